package updatemanager

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oshokin/update-manager/internal/config"
	"github.com/oshokin/update-manager/internal/logger"
	"github.com/oshokin/update-manager/internal/repository/database"
	"github.com/oshokin/update-manager/internal/server"
)

const (
	// SettingsSection is the configuration section holding update manager settings.
	SettingsSection = "update_manager"
	// DefaultChannel is used when neither the caller nor the configuration names one.
	DefaultChannel = "dev"
	// DefaultDatabasePath is the database location when none is configured.
	DefaultDatabasePath = "~/printer_data/database/update-manager.db"
)

// Options are inputs accepted by Open.
type Options struct {
	// ConfigPath is the user configuration file; "~" is expanded.
	// Only a missing default file means no overrides.
	ConfigPath string
	// DatabasePath is the SQLite database file; "~" is expanded.
	DatabasePath string
	// Channel overrides the channel from the configuration when set.
	Channel string
}

// Manager owns the component registry and the database of one process.
type Manager struct {
	opts          Options
	defaultConfig bool
	server        *server.Server
	store         *database.Store
}

// Open opens the database and registers it with a fresh component registry.
func Open(ctx context.Context, opts *Options) (*Manager, error) {
	m := &Manager{
		opts:   *opts,
		server: server.New(),
	}

	if m.opts.ConfigPath == "" {
		m.opts.ConfigPath = config.DefaultConfigFilename
	}

	m.defaultConfig = m.opts.ConfigPath == config.DefaultConfigFilename
	m.opts.ConfigPath = expandHome(m.opts.ConfigPath)

	if m.opts.DatabasePath == "" {
		m.opts.DatabasePath = DefaultDatabasePath
	}

	dbPath := expandHome(m.opts.DatabasePath)

	store, err := database.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	m.store = store
	m.server.RegisterComponent(server.DatabaseComponent, store)

	logger.DebugKV(ctx, "Opened database", "path", dbPath)

	return m, nil
}

// Build reads the user configuration and layers the base configuration under it.
func (m *Manager) Build(ctx context.Context) (*config.Config, error) {
	userConfig, err := m.loadUserConfig(ctx)
	if err != nil {
		return nil, err
	}

	channel := m.opts.Channel
	if channel == "" {
		channel = userConfig.Get(SettingsSection, "channel", DefaultChannel)
	}

	ctx = logger.WithKV(ctx, "channel", channel)

	cfg, err := BuildBaseConfig(ctx, userConfig, channel)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Configuration built", "sections", len(cfg.Sections()))

	return cfg, nil
}

// Store returns the opened database.
func (m *Manager) Store() *database.Store {
	return m.store
}

// ConfigPath returns the user configuration path in use.
func (m *Manager) ConfigPath() string {
	return m.opts.ConfigPath
}

// Close releases the database.
func (m *Manager) Close() error {
	if m == nil || m.store == nil {
		return nil
	}

	if err := m.store.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	return nil
}

// loadUserConfig loads the configuration file.
// A missing default file yields an empty configuration.
func (m *Manager) loadUserConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(m.server, m.opts.ConfigPath)
	if err == nil {
		return cfg, nil
	}

	if !m.defaultConfig || !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	logger.DebugKV(ctx, "No configuration file, using defaults only", "path", m.opts.ConfigPath)

	return config.New(m.server, nil)
}
