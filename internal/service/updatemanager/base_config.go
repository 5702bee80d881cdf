package updatemanager

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"

	"github.com/oshokin/update-manager/internal/config"
	"github.com/oshokin/update-manager/internal/domain/pkgentry"
	"github.com/oshokin/update-manager/internal/logger"
	"github.com/oshokin/update-manager/internal/server"
)

const (
	// MoonrakerPackage is the name of the host service package.
	MoonrakerPackage = "moonraker"
	// KlipperPackage is the name of the firmware-control companion package.
	KlipperPackage = "klipper"

	// StableChannel is the only channel distributed as packaged archives.
	StableChannel = "stable"

	// DatabaseNamespace holds the update manager's persisted overrides.
	DatabaseNamespace = "moonraker"
	// KlipperPathKey stores the klipper checkout location.
	KlipperPathKey = "update_manager.klipper_path"
	// KlipperExecKey stores the interpreter used to run klipper.
	KlipperExecKey = "update_manager.klipper_exec"
)

// Store resolves persisted overrides.
type Store interface {
	GetString(ctx context.Context, namespace, key, def string) (string, error)
}

// ConfigHandle is the parsed configuration a base configuration is layered into.
type ConfigHandle interface {
	Server() *server.Server
	ReadSupplementalDict(supplemental map[string]map[string]string) (*config.Config, error)
}

var (
	// KlipperDefaultPath is where the klipper checkout is expected when nothing is stored.
	//nolint:gochecknoglobals // Computed once from the user's home directory.
	KlipperDefaultPath = expandHome("~/klipper-group/klipper")
	// KlipperDefaultExec is the klipper interpreter used when nothing is stored.
	//nolint:gochecknoglobals // Computed once from the user's home directory.
	KlipperDefaultExec = expandHome("~/klipper-group/klippy-env/bin/python")

	// baseTemplate is shared by every build and must only be read through a copy.
	//nolint:gochecknoglobals // Built once at start-up, read-only afterwards.
	baseTemplate = newBaseTemplate(runningExecutable())
)

// BuildBaseConfig builds the package entries for channel, resolves the klipper
// location from the database and layers the result under cfg.
// Errors from the registry, the database and the merge are returned as is.
func BuildBaseConfig(ctx context.Context, cfg ConfigHandle, channel string) (*config.Config, error) {
	entries := pkgentry.CloneEntries(baseTemplate)
	appType := TypeForChannel(channel)

	for name, entry := range entries {
		entry.Channel = channel
		entry.Type = appType
		entries[name] = entry
	}

	store, err := server.Lookup[Store](cfg.Server(), server.DatabaseComponent)
	if err != nil {
		return nil, err
	}

	klipper := entries[KlipperPackage]

	if klipper.Path, err = store.GetString(ctx, DatabaseNamespace, KlipperPathKey, KlipperDefaultPath); err != nil {
		return nil, err
	}

	if klipper.Env, err = store.GetString(ctx, DatabaseNamespace, KlipperExecKey, KlipperDefaultExec); err != nil {
		return nil, err
	}

	entries[KlipperPackage] = klipper

	supplemental := make(map[string]map[string]string, len(entries))
	for name, entry := range entries {
		supplemental[name] = entry.Options()
	}

	logger.DebugKV(ctx, "Built base configuration",
		"channel", channel,
		"type", appType,
		"klipper_path", klipper.Path,
		"klipper_env", klipper.Env,
	)

	return cfg.ReadSupplementalDict(supplemental)
}

// TypeForChannel returns the package type used for channel.
func TypeForChannel(channel string) string {
	if channel == StableChannel {
		return pkgentry.TypeZip
	}

	return pkgentry.TypeGitRepo
}

// BaseTemplate returns a copy of the static package entries.
func BaseTemplate() map[string]pkgentry.PackageEntry {
	return pkgentry.CloneEntries(baseTemplate)
}

// newBaseTemplate builds the static entries for a process running from executable.
func newBaseTemplate(executable string) map[string]pkgentry.PackageEntry {
	sourcePath := filepath.Dir(executable)

	return map[string]pkgentry.PackageEntry{
		MoonrakerPackage: {
			Origin:          "https://gitlab.com/pipettin-bot/forks/moonraker.git",
			PrimaryBranch:   "pipetting",
			Requirements:    "scripts/moonraker-requirements.txt",
			VenvArgs:        "-p python3",
			InstallScript:   "scripts/install-moonraker-arch.sh",
			HostRepo:        "https://gitlab.com/pipettin-bot/forks/moonraker",
			Env:             executable,
			Path:            sourcePath,
			ManagedServices: "moonraker",
		},
		KlipperPackage: {
			MovedOrigin:     "https://gitlab.com/pipettin-bot/forks/klipper.git",
			Origin:          "https://gitlab.com/pipettin-bot/forks/klipper.git",
			PrimaryBranch:   "pipetting",
			Requirements:    "scripts/klippy-requirements.txt",
			VenvArgs:        "-p python3",
			InstallScript:   "scripts/install-octopi.sh",
			HostRepo:        "https://gitlab.com/pipettin-bot/forks/klipper",
			ManagedServices: "klipper",
			Path:            filepath.Dir(sourcePath),
		},
	}
}

// runningExecutable returns the resolved path of the current executable.
func runningExecutable() string {
	executable, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}

	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		return resolved
	}

	return executable
}

// expandHome expands a leading "~", keeping the path as is when the home
// directory cannot be determined.
func expandHome(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}

	return expanded
}
