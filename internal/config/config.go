package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/update-manager/internal/server"
)

const (
	// DefaultConfigFilename is the default filename for user configuration.
	DefaultConfigFilename = "update-manager.yaml"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// ErrInvalidConfig is returned when a configuration file cannot be interpreted.
	ErrInvalidConfig = errors.New("invalid configuration")
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")

	errEmptySectionName = errors.New("empty section name")
	errEmptyOptionName  = errors.New("empty option name")
	errDuplicateOption  = errors.New("duplicate option")
	errNotMapping       = errors.New("section is not a mapping")
	errNestedValue      = errors.New("nested values are not supported")
)

// Config is a parsed configuration: sections of string options.
// A Config is never modified after construction; merges return new values.
type Config struct {
	// server gives access to the component registry.
	server *server.Server
	// sections maps section names to their options.
	sections map[string]map[string]string
	// path is the file the configuration was loaded from, if any.
	path string
}

// New builds a configuration from an in-memory mapping.
// Option names are lower-cased; colliding names are rejected.
func New(srv *server.Server, sections map[string]map[string]string) (*Config, error) {
	normalized := make(map[string]map[string]string, len(sections))

	for name, options := range sections {
		section, err := normalizeSection(name, options)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

		normalized[name] = section
	}

	return &Config{
		server:   srv,
		sections: normalized,
	}, nil
}

// Load reads a YAML or TOML configuration file.
// The format is picked from the file extension; YAML is the default.
func Load(srv *server.Server, path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	raw := make(map[string]any)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(contents, &raw)
	default:
		err = yaml.Unmarshal(contents, &raw)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidConfig, path, err)
	}

	sections, err := flattenSections(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	cfg, err := New(srv, sections)
	if err != nil {
		return nil, err
	}

	cfg.path = path

	return cfg, nil
}

// Save writes the configuration to path in YAML format.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	data, err := yaml.Marshal(cfg.sections)
	if err != nil {
		return fmt.Errorf("marshal configuration: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}

	return nil
}

// Server returns the component registry the configuration belongs to.
func (c *Config) Server() *server.Server {
	return c.server
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Sections returns the sorted section names.
func (c *Config) Sections() []string {
	names := make([]string, 0, len(c.sections))
	for name := range c.sections {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// HasSection reports whether the section exists.
func (c *Config) HasSection(name string) bool {
	_, ok := c.sections[name]

	return ok
}

// Section returns a copy of the section's options.
func (c *Config) Section(name string) (map[string]string, bool) {
	options, ok := c.sections[name]
	if !ok {
		return nil, false
	}

	return maps.Clone(options), true
}

// Get returns an option value or def when the section or option is missing.
func (c *Config) Get(section, option, def string) string {
	if value, ok := c.sections[section][strings.ToLower(option)]; ok {
		return value
	}

	return def
}

// MarshalYAML renders the configuration as its section mapping.
func (c *Config) MarshalYAML() (any, error) {
	return c.sections, nil
}

// flattenSections turns decoded documents into string options.
func flattenSections(raw map[string]any) (map[string]map[string]string, error) {
	sections := make(map[string]map[string]string, len(raw))

	for name, value := range raw {
		options := make(map[string]string)

		switch typed := value.(type) {
		case nil:
		case map[string]any:
			for option, optionValue := range typed {
				rendered, err := renderScalar(optionValue)
				if err != nil {
					return nil, fmt.Errorf("section %s option %s: %w", name, option, err)
				}

				options[option] = rendered
			}
		default:
			return nil, fmt.Errorf("section %s (%T): %w", name, value, errNotMapping)
		}

		sections[name] = options
	}

	return sections, nil
}

// renderScalar converts a decoded scalar to its option string.
func renderScalar(value any) (string, error) {
	switch typed := value.(type) {
	case nil:
		return "", nil
	case string:
		return typed, nil
	case bool:
		return strconv.FormatBool(typed), nil
	case int, int64, uint64, float64:
		return fmt.Sprint(typed), nil
	case time.Time:
		return typed.Format(time.RFC3339), nil
	case map[string]any, []any:
		return "", fmt.Errorf("%T: %w", value, errNestedValue)
	default:
		return fmt.Sprint(typed), nil
	}
}

// normalizeSection lower-cases option names and rejects collisions.
func normalizeSection(name string, options map[string]string) (map[string]string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errEmptySectionName
	}

	normalized := make(map[string]string, len(options))

	for option, value := range options {
		key := strings.ToLower(strings.TrimSpace(option))
		if key == "" {
			return nil, fmt.Errorf("section %s: %w", name, errEmptyOptionName)
		}

		if _, exists := normalized[key]; exists {
			return nil, fmt.Errorf("section %s: %w %s", name, errDuplicateOption, key)
		}

		normalized[key] = value
	}

	return normalized, nil
}
