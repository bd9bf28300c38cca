// Package server exposes the engine over HTTP: the host posts messages to
// /message and tools read the engine state from /status.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/llehouerou/subcue/internal/engine"
	"github.com/llehouerou/subcue/internal/errmsg"
	"github.com/llehouerou/subcue/internal/logging"
	"github.com/llehouerou/subcue/internal/protocol"
)

// maxBodyBytes bounds the size of an inbound message.
const maxBodyBytes = 1 << 20

const shutdownTimeout = 5 * time.Second

// Engine is the part of the engine the server drives.
type Engine interface {
	Submit(ctx context.Context, msg protocol.Message) error
	Query(ctx context.Context) (engine.Snapshot, error)
}

// Server serves the message and status endpoints.
type Server struct {
	engine Engine
	logger *slog.Logger
	router chi.Router
}

// New creates a server for eng.
func New(eng Engine, logger *slog.Logger) *Server {
	s := &Server{
		engine: eng,
		logger: logging.NewComponentLogger(logger, "server"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/message", s.handleMessage)
	r.Get("/status", s.handleStatus)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("listening", logging.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// handleMessage accepts any decodable message. Unknown actions are queued
// too and rejected by the engine, so the host only sees 400 for bad JSON.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errmsg.Format(errmsg.OpMessageDecode, err))
		return
	}

	msg, err := protocol.Decode(body)
	if err != nil {
		s.logger.Warn("rejected message",
			logging.String("request_id", middleware.GetReqID(r.Context())),
			logging.Error(err),
		)
		s.writeError(w, http.StatusBadRequest, errmsg.Format(errmsg.OpMessageDecode, err))
		return
	}

	if err := s.engine.Submit(r.Context(), msg); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, errmsg.Format(errmsg.OpMessageSend, err))
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"action": msg.Action()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Query(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, errmsg.Format(errmsg.OpStatusQuery, err))
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response failed", logging.Error(err))
	}
}
