// Package output renders replies and log records for miniredis-cli.
//
// Text output follows redis-cli: bulk strings are quoted, integers and
// errors are tagged, absent values print as (nil). Raw output prints
// payloads as-is for scripting, and JSON output wraps each reply in a
// {"type", "value"} object.
package output
