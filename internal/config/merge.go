package config

import (
	"errors"
	"fmt"
	"maps"
)

// ErrConfigMerge is returned when a supplemental mapping cannot be layered
// over the parsed configuration.
var ErrConfigMerge = errors.New("cannot merge supplemental configuration")

// ReadSupplementalDict layers a mapping under the parsed configuration and
// returns the result as a new Config. Options already present in the parsed
// configuration win; the rest are filled from the mapping. The receiver is
// left untouched.
func (c *Config) ReadSupplementalDict(supplemental map[string]map[string]string) (*Config, error) {
	if len(supplemental) == 0 {
		return nil, fmt.Errorf("%w: empty mapping", ErrConfigMerge)
	}

	merged := make(map[string]map[string]string, len(c.sections)+len(supplemental))
	for name, options := range c.sections {
		merged[name] = maps.Clone(options)
	}

	for name, options := range supplemental {
		section, err := normalizeSection(name, options)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigMerge, err)
		}

		current, ok := merged[name]
		if !ok {
			merged[name] = section
			continue
		}

		for option, value := range section {
			if _, overridden := current[option]; !overridden {
				current[option] = value
			}
		}
	}

	return &Config{
		server:   c.server,
		sections: merged,
		path:     c.path,
	}, nil
}
