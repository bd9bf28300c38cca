package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/llehouerou/subcue/internal/engine"
	"github.com/llehouerou/subcue/internal/errmsg"
	"github.com/llehouerou/subcue/internal/protocol"
)

const requestTimeout = 5 * time.Second

func daemonURL(ctx *commandContext, path string) (string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return "", err
	}
	return "http://" + cfg.ListenAddr() + path, nil
}

// sendMessage posts msg to the running daemon.
func sendMessage(cmd *cobra.Command, ctx *commandContext, msg protocol.Message) error {
	body, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpMessageSend, err)
	}
	url, err := daemonURL(ctx, "/message")
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpMessageSend, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: daemon answered %s: %s",
			errmsg.OpMessageSend, resp.Status, strings.TrimSpace(string(detail)))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", msg.Action())
	return nil
}

func newSendCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "send [json]",
		Short: "Send a raw JSON message to the daemon (stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			if len(args) == 1 && args[0] != "-" {
				data = []byte(args[0])
			} else {
				var err error
				data, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			msg, err := protocol.Decode(data)
			if err != nil {
				return fmt.Errorf("%s: %w", errmsg.OpMessageDecode, err)
			}
			if u, ok := msg.(protocol.Unknown); ok {
				return fmt.Errorf("%w: %q", protocol.ErrUnknownAction, u.Name)
			}
			return sendMessage(cmd, ctx, msg)
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var msg protocol.ShowSubtitle

	cmd := &cobra.Command{
		Use:   "show <text>",
		Short: "Display a subtitle outside of any audio session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg.Text = args[0]
			return sendMessage(cmd, ctx, msg)
		},
	}
	cmd.Flags().Float64VarP(&msg.Duration, "duration", "d", 3000, "Display time in milliseconds (0 keeps it until hidden)")
	cmd.Flags().StringVarP(&msg.Position, "position", "p", "bottom", "Layout position key")
	cmd.Flags().StringVarP(&msg.Style, "style", "s", "default", "Layout style key")
	return cmd
}

func newHideCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "hide",
		Short: "Fade out the displayed subtitle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendMessage(cmd, ctx, protocol.HideSubtitle{})
		},
	}
}

func fetchStatus(cmd *cobra.Command, ctx *commandContext) (engine.Snapshot, error) {
	url, err := daemonURL(ctx, "/status")
	if err != nil {
		return engine.Snapshot{}, err
	}

	reqCtx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return engine.Snapshot{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("%s: %w", errmsg.OpStatusQuery, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return engine.Snapshot{}, fmt.Errorf("%s: daemon answered %s", errmsg.OpStatusQuery, resp.Status)
	}

	var snap engine.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("%s: %w", errmsg.OpStatusQuery, err)
	}
	return snap, nil
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show sessions and overlay state of the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := fetchStatus(cmd, ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			fmt.Fprint(out, renderStatus(snap, time.Now(), shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON snapshot")
	return cmd
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}
