// Package config provides miniredis-cli configuration.
//
// Settings are layered: defaults, then ~/.miniredis/cli.yaml (or the file
// named by --config), then MINIREDIS_CLI_* environment variables, then
// command-line flags.
package config
