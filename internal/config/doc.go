// Package config loads, normalizes, and validates ctrdecrypt configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// CTRDECRYPT_TOOLS_DIR and CTRDECRYPT_MAX_PARALLEL. The Config type
// centralizes the tool names, directories, and worker limits a run needs.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
