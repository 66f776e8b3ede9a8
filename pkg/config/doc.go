// Package config handles configuration management for formulary.
// It layers the embedded defaults, the user's config.toml and FORMULARY_
// environment variables with koanf, then decodes the result into Config.
package config
