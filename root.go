package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/llehouerou/subcue/internal/config"
	"github.com/llehouerou/subcue/internal/errmsg"
)

type commandContext struct {
	configFlag *string
	listenFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var extra []string
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			extra = append(extra, path)
		}
		cfg, err := config.Load(extra...)
		if err != nil {
			c.configErr = fmt.Errorf("%s: %w", errmsg.OpConfigLoad, err)
			return
		}
		if listen := strings.TrimSpace(*c.listenFlag); listen != "" {
			cfg.Server.Listen = listen
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func newRootCommand() *cobra.Command {
	var configFlag, listenFlag string
	ctx := &commandContext{configFlag: &configFlag, listenFlag: &listenFlag}

	rootCmd := &cobra.Command{
		Use:           "subcue",
		Short:         "Audio-synchronized subtitle overlay",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&listenFlag, "listen", "", "Daemon address (host:port)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newSendCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newHideCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))

	return rootCmd
}
