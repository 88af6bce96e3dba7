// Package config loads, normalizes, and validates the burnloop TOML
// configuration file.
package config
