// Package config provides the miniredis server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation
//   - keys.go: the dotted key set used for environment mapping
//   - summary.go: flat key/value form for startup logging
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// MINIREDIS_ environment variables and command-line flags.
package config
