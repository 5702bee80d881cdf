package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/update-manager/internal/config"
	"github.com/oshokin/update-manager/internal/logger"
)

func (a *app) newShowCommand() *cobra.Command {
	var section, output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML or save it to a file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := logger.WithName(cmd.Context(), "show")

			m, err := a.openManager(ctx)
			if err != nil {
				return err
			}
			defer closeManager(ctx, m)

			cfg, err := m.Build(ctx)
			if err != nil {
				return err
			}

			if section != "" {
				options, ok := cfg.Section(section)
				if !ok {
					return fmt.Errorf("section %s: %w", section, errSectionNotFound)
				}

				cfg, err = config.New(cfg.Server(), map[string]map[string]string{section: options})
				if err != nil {
					return err
				}
			}

			if output != "" {
				if err = config.Save(output, cfg); err != nil {
					return err
				}

				logger.InfoKV(ctx, "Configuration saved", "path", output)

				return nil
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal configuration: %w", err)
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}

	cmd.Flags().StringVarP(&section, "section", "s", "", "print only this section")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the configuration to this file instead of stdout")

	return cmd
}
