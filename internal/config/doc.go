// Package config loads and validates saucery's TOML configuration,
// overlaying SAUCERY_* environment variables for secrets.
package config
