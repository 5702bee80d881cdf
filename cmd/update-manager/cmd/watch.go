package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/update-manager/internal/logger"
	"github.com/oshokin/update-manager/internal/service/reload"
)

func (a *app) newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rebuild and print the configuration whenever the configuration file changes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			ctx = logger.WithName(ctx, "watch")

			m, err := a.openManager(ctx)
			if err != nil {
				return err
			}
			defer closeManager(ctx, m)

			rebuild := func(ctx context.Context) error {
				cfg, buildErr := m.Build(ctx)
				if buildErr != nil {
					return buildErr
				}

				data, buildErr := yaml.Marshal(cfg)
				if buildErr != nil {
					return fmt.Errorf("marshal configuration: %w", buildErr)
				}

				_, buildErr = fmt.Fprintf(cmd.OutOrStdout(), "---\n%s", data)

				return buildErr
			}

			if err = rebuild(ctx); err != nil {
				return err
			}

			w, err := reload.NewWatcher(m.ConfigPath(), rebuild)
			if err != nil {
				return err
			}

			logger.InfoKV(ctx, "Watching configuration", "path", m.ConfigPath())

			return w.Run(ctx)
		},
	}
}
