package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/update-manager/internal/logger"
	"github.com/oshokin/update-manager/internal/service/status"
	"github.com/oshokin/update-manager/internal/service/updatemanager"
)

func (a *app) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report install paths and running services of managed packages.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := logger.WithName(cmd.Context(), "status")

			m, err := a.openManager(ctx)
			if err != nil {
				return err
			}
			defer closeManager(ctx, m)

			cfg, err := m.Build(ctx)
			if err != nil {
				return err
			}

			report, err := status.Report(ctx, cfg, status.SystemProcesses,
				updatemanager.MoonrakerPackage, updatemanager.KlipperPackage)
			if err != nil {
				return fmt.Errorf("collect status: %w", err)
			}

			data, err := yaml.Marshal(report)
			if err != nil {
				return fmt.Errorf("marshal status: %w", err)
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}
}
