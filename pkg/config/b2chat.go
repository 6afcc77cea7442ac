package config

import (
	"os"
	"time"
)

// B2ChatConfig holds upstream API connection settings. Credentials are
// resolved from environment variables so the YAML file never carries
// secrets.
type B2ChatConfig struct {
	// BaseURL is the root of the upstream REST API.
	BaseURL string `yaml:"base_url"`

	// UsernameEnv is the env var name holding the OAuth client username.
	UsernameEnv string `yaml:"username_env"`

	// PasswordEnv is the env var name holding the OAuth client password.
	PasswordEnv string `yaml:"password_env"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultB2ChatConfig returns the built-in upstream defaults.
func DefaultB2ChatConfig() *B2ChatConfig {
	return &B2ChatConfig{
		BaseURL:     "https://api.b2chat.io",
		UsernameEnv: "B2CHAT_USERNAME",
		PasswordEnv: "B2CHAT_PASSWORD",
		Timeout:     30 * time.Second,
	}
}

// Credentials reads the OAuth client credentials from the configured
// environment variables.
func (c *B2ChatConfig) Credentials() (username, password string) {
	return os.Getenv(c.UsernameEnv), os.Getenv(c.PasswordEnv)
}
