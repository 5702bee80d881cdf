// Package config parses update-manager configuration files and layers
// built-in defaults under them.
//
// A configuration is a set of named sections holding string options. Files
// may be YAML or TOML; option names are case-insensitive and stored lower-case.
// ReadSupplementalDict is the merge step used by services that ship defaults:
// the user's file always wins over the supplied mapping.
package config
