package pkgentry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleEntry() PackageEntry {
	return PackageEntry{
		Origin:          "https://example.com/klipper.git",
		MovedOrigin:     "https://example.com/old/klipper.git",
		PrimaryBranch:   "main",
		Requirements:    "scripts/klippy-requirements.txt",
		VenvArgs:        "-p python3",
		InstallScript:   "scripts/install.sh",
		HostRepo:        "https://example.com/klipper",
		ManagedServices: "klipper",
		Path:            "/opt/klipper",
	}
}

// TestClone verifies that Clone returns an independent copy and handles nil safely.
func TestClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*PackageEntry)(nil).Clone())

	e := sampleEntry()
	c := e.Clone()

	require.Equal(t, &e, c)
	require.NotSame(t, &e, c)

	c.Path = "/elsewhere"
	require.Equal(t, "/opt/klipper", e.Path)
}

// TestCloneEntries ensures writes to the copy do not reach the source map.
func TestCloneEntries(t *testing.T) {
	t.Parallel()

	src := map[string]PackageEntry{"klipper": sampleEntry()}
	dst := CloneEntries(src)

	entry := dst["klipper"]
	entry.Channel = "dev"
	dst["klipper"] = entry
	dst["moonraker"] = sampleEntry()

	require.Empty(t, src["klipper"].Channel)
	require.Len(t, src, 1)
}

// TestValidate reports the first missing required field.
func TestValidate(t *testing.T) {
	t.Parallel()

	e := sampleEntry()
	require.NoError(t, e.Validate())

	e.ManagedServices = ""
	err := e.Validate()
	require.ErrorIs(t, err, ErrMissingField)
	require.Contains(t, err.Error(), "managed_services")
}

// TestOptions checks that moved_origin and env only appear when set.
func TestOptions(t *testing.T) {
	t.Parallel()

	e := sampleEntry()
	e.MovedOrigin = ""

	options := e.Options()
	require.NotContains(t, options, "moved_origin")
	require.NotContains(t, options, "env")
	require.Contains(t, options, "channel")
	require.Empty(t, options["channel"])
	require.Equal(t, "klipper", options["managed_services"])

	e.Env = "/opt/klipper-env/bin/python3"
	e.Channel = "stable"
	e.Type = TypeZip

	options = e.Options()
	require.Equal(t, "/opt/klipper-env/bin/python3", options["env"])
	require.Equal(t, "stable", options["channel"])
	require.Equal(t, TypeZip, options["type"])
}
