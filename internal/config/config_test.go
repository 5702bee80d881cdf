package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/update-manager/internal/server"
)

// TestLoad_YAML reads scalars of several types and lower-cases option names.
func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "update-manager.yaml")
	contents := `
update_manager:
  Channel: stable
  refresh_interval: 672
  enable_auto_refresh: true
klipper:
  primary_branch: master
empty:
`
	require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

	srv := server.New()

	cfg, err := Load(srv, path)
	require.NoError(t, err)
	require.Same(t, srv, cfg.Server())
	require.Equal(t, path, cfg.Path())
	require.Equal(t, []string{"empty", "klipper", "update_manager"}, cfg.Sections())
	require.Equal(t, "stable", cfg.Get("update_manager", "channel", "dev"))
	require.Equal(t, "672", cfg.Get("update_manager", "refresh_interval", ""))
	require.Equal(t, "true", cfg.Get("update_manager", "enable_auto_refresh", ""))
	require.Equal(t, "fallback", cfg.Get("missing", "option", "fallback"))
	require.True(t, cfg.HasSection("empty"))
}

// TestLoad_TOML reads the same layout from a TOML file.
func TestLoad_TOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "update-manager.toml")
	contents := `
[update_manager]
channel = "beta"
refresh_interval = 24

[moonraker]
primary_branch = "main"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

	cfg, err := Load(server.New(), path)
	require.NoError(t, err)
	require.Equal(t, "beta", cfg.Get("update_manager", "channel", ""))
	require.Equal(t, "24", cfg.Get("update_manager", "refresh_interval", ""))
	require.Equal(t, "main", cfg.Get("moonraker", "primary_branch", ""))
}

// TestLoad_Rejects covers malformed documents.
func TestLoad_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"scalar section": "klipper: just-a-string\n",
		"nested option":  "klipper:\n  path:\n    nested: value\n",
		"list option":    "klipper:\n  managed_services: [a, b]\n",
		"collision":      "klipper:\n  Path: a\n  path: b\n",
	}

	for name, contents := range cases {
		path := filepath.Join(t.TempDir(), "cfg.yaml")
		require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

		_, err := Load(server.New(), path)
		require.ErrorIs(t, err, ErrInvalidConfig, name)
	}

	_, err := Load(server.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestSaveLoad writes a configuration and reads it back.
func TestSaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "saved.yaml")

	cfg, err := New(nil, map[string]map[string]string{
		"klipper": {"path": "/opt/klipper"},
	})
	require.NoError(t, err)
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, "/opt/klipper", loaded.Get("klipper", "path", ""))

	require.Error(t, Save(path, nil))
}

// TestSection_ReturnsCopy ensures callers cannot change a Config through Section.
func TestSection_ReturnsCopy(t *testing.T) {
	t.Parallel()

	cfg, err := New(nil, map[string]map[string]string{
		"klipper": {"path": "/opt/klipper"},
	})
	require.NoError(t, err)

	section, ok := cfg.Section("klipper")
	require.True(t, ok)

	section["path"] = "/elsewhere"
	require.Equal(t, "/opt/klipper", cfg.Get("klipper", "path", ""))

	_, ok = cfg.Section("moonraker")
	require.False(t, ok)
}

// TestReadSupplementalDict checks that user options win and gaps are filled.
func TestReadSupplementalDict(t *testing.T) {
	t.Parallel()

	srv := server.New()

	user, err := New(srv, map[string]map[string]string{
		"klipper":        {"primary_branch": "custom"},
		"update_manager": {"channel": "dev"},
	})
	require.NoError(t, err)

	merged, err := user.ReadSupplementalDict(map[string]map[string]string{
		"klipper": {
			"primary_branch": "pipetting",
			"Origin":         "https://example.com/klipper.git",
		},
		"moonraker": {"primary_branch": "pipetting"},
	})
	require.NoError(t, err)
	require.Same(t, srv, merged.Server())

	require.Equal(t, "custom", merged.Get("klipper", "primary_branch", ""))
	require.Equal(t, "https://example.com/klipper.git", merged.Get("klipper", "origin", ""))
	require.Equal(t, "pipetting", merged.Get("moonraker", "primary_branch", ""))
	require.Equal(t, "dev", merged.Get("update_manager", "channel", ""))

	// The receiver is not modified.
	require.False(t, user.HasSection("moonraker"))
	require.Empty(t, user.Get("klipper", "origin", ""))
}

// TestReadSupplementalDict_Rejects covers mappings the merge refuses.
func TestReadSupplementalDict_Rejects(t *testing.T) {
	t.Parallel()

	cfg, err := New(nil, nil)
	require.NoError(t, err)

	cases := map[string]map[string]map[string]string{
		"empty mapping":  {},
		"empty section":  {"": {"a": "b"}},
		"empty option":   {"klipper": {" ": "b"}},
		"case collision": {"klipper": {"Path": "a", "path": "b"}},
	}

	for name, mapping := range cases {
		_, err = cfg.ReadSupplementalDict(mapping)
		require.ErrorIs(t, err, ErrConfigMerge, name)
	}
}
