package status

import (
	"context"
	"os"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/update-manager/internal/logger"
)

// Config is the part of a configuration the report reads.
type Config interface {
	Section(name string) (map[string]string, bool)
}

// ProcessLister returns the names of running executables.
type ProcessLister func() ([]string, error)

// PackageStatus describes one managed package.
type PackageStatus struct {
	// Name is the package (section) name.
	Name string `yaml:"name"`
	// Channel and Type echo the built entry.
	Channel string `yaml:"channel"`
	Type    string `yaml:"type"`
	// Path is the install location and PathExists whether it is on disk.
	Path       string `yaml:"path"`
	PathExists bool   `yaml:"path_exists"`
	// Services maps each managed service to whether a process with that name runs.
	Services map[string]bool `yaml:"services"`
}

// SystemProcesses lists running executables using the OS process table.
func SystemProcesses() ([]string, error) {
	processes, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(processes))
	for _, process := range processes {
		names = append(names, process.Executable())
	}

	return names, nil
}

// Report returns the status of the named packages in cfg.
// Packages missing from cfg are skipped.
func Report(ctx context.Context, cfg Config, lister ProcessLister, packages ...string) ([]PackageStatus, error) {
	running, err := lister()
	if err != nil {
		return nil, err
	}

	runningSet := make(map[string]struct{}, len(running))
	for _, name := range running {
		runningSet[name] = struct{}{}
	}

	report := make([]PackageStatus, 0, len(packages))

	for _, name := range packages {
		section, ok := cfg.Section(name)
		if !ok {
			logger.WarnKV(ctx, "Package is not configured", "package", name)
			continue
		}

		st := PackageStatus{
			Name:     name,
			Channel:  section["channel"],
			Type:     section["type"],
			Path:     section["path"],
			Services: make(map[string]bool),
		}

		if st.Path != "" {
			if _, statErr := os.Stat(st.Path); statErr == nil {
				st.PathExists = true
			}
		}

		for _, service := range splitServices(section["managed_services"]) {
			_, isRunning := runningSet[service]
			st.Services[service] = isRunning
		}

		report = append(report, st)
	}

	return report, nil
}

// splitServices splits a managed_services value on commas and whitespace.
func splitServices(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
