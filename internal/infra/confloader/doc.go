// Package confloader loads layered configuration with koanf.
//
// Sources are merged in priority order (highest last):
//
//  1. Default values (the target struct as passed in)
//  2. YAML configuration file
//  3. Environment variables (MINIREDIS_ prefix)
//  4. Command-line flags, applied through LoadMap
//
// Environment names map onto dotted keys by matching the known key set, so
// MINIREDIS_STORAGE_AOF_DIR sets storage.aof_dir rather than
// storage.aof.dir. Unknown names fall back to replacing every underscore
// with a dot.
//
// Watcher notifies callbacks when the configuration file changes on disk.
package confloader
