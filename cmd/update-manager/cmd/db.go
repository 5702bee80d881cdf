package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/update-manager/internal/logger"
)

func (a *app) newDBCommand() *cobra.Command {
	db := &cobra.Command{
		Use:   "db",
		Short: "Inspect and change items in the database.",
	}

	db.AddCommand(a.newDBGetCommand(), a.newDBSetCommand(), a.newDBDeleteCommand())

	return db
}

func (a *app) newDBGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "get <namespace> <key>",
		Short:   "Print an item as JSON.",
		Example: "  update-manager db get moonraker update_manager.klipper_path",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logger.WithName(cmd.Context(), "db")

			m, err := a.openManager(ctx)
			if err != nil {
				return err
			}
			defer closeManager(ctx, m)

			value, err := m.Store().GetItem(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			return printJSON(cmd, value)
		},
	}
}

func (a *app) newDBSetCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "set <namespace> <key> <value>",
		Short:   "Store an item. The value is a string unless --json is given.",
		Example: "  update-manager db set moonraker update_manager.klipper_path /opt/klipper",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logger.WithName(cmd.Context(), "db")

			var value any = args[2]

			if asJSON {
				if err := json.Unmarshal([]byte(args[2]), &value); err != nil {
					return fmt.Errorf("parse value: %w", err)
				}
			}

			m, err := a.openManager(ctx)
			if err != nil {
				return err
			}
			defer closeManager(ctx, m)

			if err = m.Store().InsertItem(ctx, args[0], args[1], value); err != nil {
				return err
			}

			logger.InfoKV(ctx, "Item stored", "namespace", args[0], "key", args[1])

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "parse the value as JSON")

	return cmd
}

func (a *app) newDBDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <namespace> <key>",
		Short: "Remove an item and print what was removed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logger.WithName(cmd.Context(), "db")

			m, err := a.openManager(ctx)
			if err != nil {
				return err
			}
			defer closeManager(ctx, m)

			removed, err := m.Store().DeleteItem(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			return printJSON(cmd, removed)
		},
	}
}

func printJSON(cmd *cobra.Command, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))

	return err
}
