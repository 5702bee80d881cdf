package pkgentry

import (
	"errors"
	"fmt"
	"maps"
)

// Type values of a package entry.
const (
	// TypeZip marks a package distributed as a packaged archive.
	TypeZip = "zip"
	// TypeGitRepo marks a package tracked through version control.
	TypeGitRepo = "git_repo"
)

// ErrMissingField is returned by Validate when a required field is empty.
var ErrMissingField = errors.New("required field is empty")

// PackageEntry describes one tracked software package.
type PackageEntry struct {
	// Origin is the source repository URL.
	Origin string `yaml:"origin"`
	// MovedOrigin is a legacy URL kept to detect migrated checkouts.
	MovedOrigin string `yaml:"moved_origin,omitempty"`
	// PrimaryBranch is the default branch or track name.
	PrimaryBranch string `yaml:"primary_branch"`
	// Requirements is the relative path to the dependency manifest.
	Requirements string `yaml:"requirements"`
	// VenvArgs are the environment creation arguments.
	VenvArgs string `yaml:"venv_args"`
	// InstallScript is the relative path to the install script.
	InstallScript string `yaml:"install_script"`
	// HostRepo is the canonical repository URL shown to users.
	HostRepo string `yaml:"host_repo"`
	// ManagedServices names the OS services the package controls.
	ManagedServices string `yaml:"managed_services"`
	// Env is the executable environment used to run the package.
	Env string `yaml:"env,omitempty"`
	// Path is where the package is installed.
	Path string `yaml:"path"`
	// Channel is the update track the entry was built for.
	Channel string `yaml:"channel"`
	// Type is TypeZip or TypeGitRepo.
	Type string `yaml:"type"`
}

// Clone returns a copy of the entry.
func (e *PackageEntry) Clone() *PackageEntry {
	if e == nil {
		return nil
	}

	cloned := *e

	return &cloned
}

// Validate checks the fields every entry must carry.
func (e *PackageEntry) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"origin", e.Origin},
		{"primary_branch", e.PrimaryBranch},
		{"requirements", e.Requirements},
		{"managed_services", e.ManagedServices},
	}

	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("%s: %w", field.name, ErrMissingField)
		}
	}

	return nil
}

// Options flattens the entry into configuration options.
// MovedOrigin and Env are left out when empty.
func (e *PackageEntry) Options() map[string]string {
	options := map[string]string{
		"origin":           e.Origin,
		"primary_branch":   e.PrimaryBranch,
		"requirements":     e.Requirements,
		"venv_args":        e.VenvArgs,
		"install_script":   e.InstallScript,
		"host_repo":        e.HostRepo,
		"managed_services": e.ManagedServices,
		"path":             e.Path,
		"channel":          e.Channel,
		"type":             e.Type,
	}

	optional := map[string]string{
		"moved_origin": e.MovedOrigin,
		"env":          e.Env,
	}

	for name, value := range optional {
		if value != "" {
			options[name] = value
		}
	}

	return options
}

// CloneEntries copies a set of entries keyed by package name.
func CloneEntries(entries map[string]PackageEntry) map[string]PackageEntry {
	return maps.Clone(entries)
}
