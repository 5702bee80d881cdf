package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oshokin/update-manager/internal/config"
	"github.com/oshokin/update-manager/internal/logger"
	"github.com/oshokin/update-manager/internal/service/updatemanager"
	"github.com/oshokin/update-manager/internal/version"
)

// Setting keys shared by flags, environment variables and viper.
const (
	keyConfig   = "config"
	keyDatabase = "database"
	keyChannel  = "channel"
	keyLogLevel = "log-level"
	keyLogFile  = "log-file"

	envPrefix = "UPDATE_MANAGER"
)

var (
	errUnknownLogLevel = errors.New("unknown log level")
	errSectionNotFound = errors.New("section not found")
)

// app carries settings resolved for one invocation.
type app struct {
	settings *viper.Viper
}

// newRootCommand assembles the CLI with its own settings instance.
func newRootCommand() *cobra.Command {
	a := &app{settings: viper.New()}

	root := &cobra.Command{
		Use:   "update-manager",
		Short: "Build the update manager configuration for moonraker and klipper.",
		Long: `Builds the configuration the update manager uses to track moonraker and klipper.

Built-in package defaults are stamped with the selected channel ("stable" tracks
packaged archives, anything else tracks git repositories), the klipper location is
read from the database, and the result is layered under the user's configuration file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupLogger(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringP(keyConfig, "c", config.DefaultConfigFilename, "path to configuration file (YAML or TOML)")
	flags.StringP(keyDatabase, "d", updatemanager.DefaultDatabasePath, "path to the SQLite database")
	flags.String(keyChannel, "", "update channel (overrides [update_manager] channel)")
	flags.String(keyLogLevel, "info", "log level: debug, info, warn, error")
	flags.String(keyLogFile, "", "also write logs to this file, rotated by size")

	_ = a.settings.BindPFlags(flags)
	a.settings.SetEnvPrefix(envPrefix)
	a.settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.settings.AutomaticEnv()

	root.AddCommand(
		a.newShowCommand(),
		a.newStatusCommand(),
		a.newWatchCommand(),
		a.newDBCommand(),
	)

	version.AttachCobraVersionCommand(root)

	return root
}

// Execute runs the update-manager CLI and exits with non-zero status on error.
func Execute() {
	defer logger.Sync()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) setupLogger(ctx context.Context) error {
	level, ok := logger.ParseLogLevel(a.settings.GetString(keyLogLevel))
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownLogLevel, a.settings.GetString(keyLogLevel))
	}

	logFile := a.settings.GetString(keyLogFile)
	logger.Setup(level, logFile)

	logger.DebugKV(ctx, "Logger configured", "level", logger.Level().String(), "file", logFile)

	return nil
}

// openManager opens the database and component registry for one command.
func (a *app) openManager(ctx context.Context) (*updatemanager.Manager, error) {
	return updatemanager.Open(ctx, &updatemanager.Options{
		ConfigPath:   a.settings.GetString(keyConfig),
		DatabasePath: a.settings.GetString(keyDatabase),
		Channel:      a.settings.GetString(keyChannel),
	})
}

// closeManager closes m, logging failures.
func closeManager(ctx context.Context, m *updatemanager.Manager) {
	if err := m.Close(); err != nil {
		logger.ErrorKV(ctx, "Closing failed", "error", err)
	}
}
