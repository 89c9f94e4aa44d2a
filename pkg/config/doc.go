// Package config loads service configuration.
//
// Configuration is resolved in three layers, later layers winning:
// built-in defaults, an optional YAML file (CHATSENTRY_CONFIG_FILE), and
// CHATSENTRY_* environment variables. LoadConfig validates the merged
// result before returning it, so a running process always holds a
// coherent configuration.
package config
