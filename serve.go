package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/llehouerou/subcue/internal/callback"
	"github.com/llehouerou/subcue/internal/config"
	"github.com/llehouerou/subcue/internal/engine"
	"github.com/llehouerou/subcue/internal/errmsg"
	"github.com/llehouerou/subcue/internal/logging"
	"github.com/llehouerou/subcue/internal/media"
	"github.com/llehouerou/subcue/internal/overlay"
	"github.com/llehouerou/subcue/internal/protocol"
	"github.com/llehouerou/subcue/internal/server"
	"github.com/llehouerou/subcue/internal/stderr"
	"github.com/llehouerou/subcue/internal/ui/subtitle"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var headless bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the subtitle daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tui := !headless && isTerminal(os.Stdout)
			return runServe(cmd.Context(), cfg, tui)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "Log subtitles instead of drawing them in the terminal")
	return cmd
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// openLogHandler builds the base handler. While the terminal overlay owns
// the screen, records go to the state log file instead of stderr.
func openLogHandler(cfg *config.Config, tui bool) (slog.Handler, func(), error) {
	var out io.Writer = os.Stderr
	closeFn := func() {}
	if tui {
		path, err := config.LogFilePath()
		if err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, err
		}
		out = f
		closeFn = func() { f.Close() }
	}

	handler, err := logging.NewHandler(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: out,
	})
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return handler, closeFn, nil
}

func runServe(parent context.Context, cfg *config.Config, tui bool) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lockPath, err := config.LockPath()
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpLock, err)
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpLock, err)
	}
	if !ok {
		return fmt.Errorf("%s: another subcue daemon holds %s", errmsg.OpLock, lockPath)
	}
	defer func() { _ = lock.Unlock() }()

	handler, closeLog, err := openLogHandler(cfg, tui)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLog()

	// local never reaches the host: the callback client reports its own
	// failures there, and debug dumps stay on this machine.
	local := slog.New(handler)
	logger := local

	if tui {
		capture, err := stderr.Start(local)
		if err != nil {
			local.Warn("stderr capture unavailable", logging.Error(err))
		} else {
			defer capture.Stop()
		}
	}

	var client *callback.Client
	var notifier callback.Notifier = callback.Nop{}
	if base := cfg.CallbackURL(); base != "" {
		client = callback.New(callback.Options{
			BaseURL: base,
			Timeout: cfg.CallbackTimeout(),
			Logger:  local,
		})
		notifier = client
		if cfg.MirrorLogs() {
			logger = slog.New(callback.NewLogHandler(handler, client, logging.ParseLevel(cfg.Log.Level)))
		}
	}

	events := make(chan media.Event, 16)
	opts := engine.Options{
		Backend:      media.NewBeepBackend(events, logger),
		Events:       events,
		Notifier:     notifier,
		Layout:       cfg.StartupLayout(),
		MasterVolume: cfg.MasterVolume(),
		TickInterval: cfg.TickInterval(),
		Fade:         cfg.FadeDuration(),
		Logger:       logger,
		LocalLogger:  local,
	}

	var program *tea.Program
	var eng *engine.Engine
	if tui {
		model := subtitle.New(subtitle.Hooks{
			Debug: func() string {
				snap, err := eng.DumpDebug(ctx)
				if err != nil {
					return errmsg.Format(errmsg.OpStatusQuery, err)
				}
				return snap.String()
			},
			Hide: func() { _ = eng.Submit(ctx, protocol.HideSubtitle{}) },
		}, "subcue · "+cfg.ListenAddr())
		program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		opts.Surface = subtitle.NewSurface(program)
	} else {
		opts.Surface = overlay.NewLogSurface(local)
	}
	eng = engine.New(opts)

	var wg sync.WaitGroup
	errc := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		errc <- eng.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		srv := server.New(eng, logger)
		if err := srv.ListenAndServe(ctx, cfg.ListenAddr()); err != nil {
			errc <- fmt.Errorf("%s: %w", errmsg.OpServe, err)
			cancel()
			return
		}
		errc <- nil
	}()

	logger.Info("subcue started",
		logging.String("listen", cfg.ListenAddr()),
		logging.String("callback", cfg.CallbackURL()),
		logging.Bool("tui", tui),
	)

	if program != nil {
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			local.Warn("terminal overlay stopped", logging.Error(err))
		}
		cancel()
	}
	<-ctx.Done()
	wg.Wait()
	close(errc)

	if client != nil {
		client.Wait()
	}
	local.Info("subcue stopped")

	var firstErr error
	for err := range errc {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
