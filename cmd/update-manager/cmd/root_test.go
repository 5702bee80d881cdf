package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/update-manager/internal/config"
)

// run executes the CLI with the given arguments and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newRootCommand()

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

// TestCLI_ShowAndDB stores overrides through `db set` and sees them in `show`.
func TestCLI_ShowAndDB(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "update-manager.yaml")
	dbPath := filepath.Join(dir, "update-manager.db")

	require.NoError(t, os.WriteFile(cfgPath, []byte("update_manager:\n  channel: stable\n"), 0o600))

	common := []string{"--config", cfgPath, "--database", dbPath, "--log-level", "error"}

	_, err := run(t, append([]string{"db", "set", "moonraker", "update_manager.klipper_path", "/opt/klipper"}, common...)...)
	require.NoError(t, err)

	out, err := run(t, append([]string{"db", "get", "moonraker", "update_manager.klipper_path"}, common...)...)
	require.NoError(t, err)
	require.Equal(t, "\"/opt/klipper\"\n", out)

	out, err = run(t, append([]string{"show"}, common...)...)
	require.NoError(t, err)

	var shown map[string]map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &shown))
	require.Equal(t, "zip", shown["klipper"]["type"])
	require.Equal(t, "stable", shown["moonraker"]["channel"])
	require.Equal(t, "/opt/klipper", shown["klipper"]["path"])
	require.Equal(t, "stable", shown["update_manager"]["channel"])

	out, err = run(t, append([]string{"show", "--section", "klipper", "--channel", "dev"}, common...)...)
	require.NoError(t, err)

	shown = nil
	require.NoError(t, yaml.Unmarshal([]byte(out), &shown))
	require.Len(t, shown, 1)
	require.Equal(t, "git_repo", shown["klipper"]["type"])

	savedPath := filepath.Join(dir, "saved.yaml")

	out, err = run(t, append([]string{"show", "--section", "moonraker", "--output", savedPath}, common...)...)
	require.NoError(t, err)
	require.Empty(t, out)

	saved, err := config.Load(nil, savedPath)
	require.NoError(t, err)
	require.Equal(t, []string{"moonraker"}, saved.Sections())
	require.Equal(t, "zip", saved.Get("moonraker", "type", ""))
	require.Equal(t, "stable", saved.Get("moonraker", "channel", ""))

	_, err = run(t, append([]string{"show", "--section", "nope"}, common...)...)
	require.ErrorIs(t, err, errSectionNotFound)

	out, err = run(t, append([]string{"db", "delete", "moonraker", "update_manager.klipper_path"}, common...)...)
	require.NoError(t, err)
	require.Contains(t, out, "/opt/klipper")
}

// TestCLI_EnvironmentChannel reads the channel from the environment.
func TestCLI_EnvironmentChannel(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("UPDATE_MANAGER_CHANNEL", "stable")
	t.Setenv("UPDATE_MANAGER_LOG_LEVEL", "error")

	cfgPath := filepath.Join(dir, "update-manager.yaml")
	require.NoError(t, os.WriteFile(cfgPath, nil, 0o600))

	out, err := run(t,
		"show", "--section", "moonraker",
		"--config", cfgPath,
		"--database", filepath.Join(dir, "update-manager.db"),
	)
	require.NoError(t, err)
	require.Contains(t, out, "type: zip")
}

// TestCLI_BadLogLevel rejects unknown log levels before doing any work.
func TestCLI_BadLogLevel(t *testing.T) {
	_, err := run(t, "show", "--log-level", "loud", "--database", filepath.Join(t.TempDir(), "x.db"))
	require.ErrorIs(t, err, errUnknownLogLevel)
}
