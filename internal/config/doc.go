// Package config loads and validates the recorder configuration from a YAML
// file, with API keys supplied through the environment.
package config
