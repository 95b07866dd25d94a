// Package config handles loading and managing friday configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the friday configuration.
type Config struct {
	Data   DataConfig   `toml:"data"`
	OAuth  OAuthConfig  `toml:"oauth"`
	Email  EmailConfig  `toml:"email"`
	Server ServerConfig `toml:"server"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// DataConfig holds data storage configuration.
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// OAuthConfig holds OAuth configuration.
type OAuthConfig struct {
	// ClientSecrets is the default client secrets file used for accounts
	// that don't specify their own credentials path.
	ClientSecrets string `toml:"client_secrets"`

	// ConsentTimeoutSeconds bounds the interactive consent flow so
	// unattended runs fail instead of hanging on a browser redirect.
	ConsentTimeoutSeconds int `toml:"consent_timeout_seconds"`
}

// EmailConfig holds email subsystem configuration.
type EmailConfig struct {
	// AccountsFile is the JSON account directory. Defaults to
	// <data_dir>/email_accounts.json.
	AccountsFile string `toml:"accounts_file"`

	// RateLimitQPS caps Gmail API request rate per account.
	RateLimitQPS int `toml:"rate_limit_qps"`
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	BindAddr string `toml:"bind_addr"` // default 127.0.0.1
	APIPort  int    `toml:"api_port"`  // default 8080
	APIKey   string `toml:"api_key"`   // API authentication key

	// CORSOrigins restricts cross-origin callers. Empty allows any origin.
	CORSOrigins []string `toml:"cors_origins"`

	// RateLimitRPS and RateLimitBurst bound requests per client address.
	RateLimitRPS   float64 `toml:"rate_limit_rps"`   // default 10
	RateLimitBurst int     `toml:"rate_limit_burst"` // default 20
}

// DefaultHome returns the default friday home directory.
// Respects FRIDAY_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("FRIDAY_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".friday"
	}
	return filepath.Join(home, ".friday")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location (~/.friday/config.toml).
// The config file is optional; defaults apply when it is absent.
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		Data: DataConfig{
			DataDir: homeDir,
		},
		OAuth: OAuthConfig{
			ConsentTimeoutSeconds: 300,
		},
		Email: EmailConfig{
			RateLimitQPS: 5,
		},
		Server: ServerConfig{
			BindAddr:       "127.0.0.1",
			APIPort:        8080,
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Data.DataDir = expandPath(cfg.Data.DataDir)
	cfg.OAuth.ClientSecrets = expandPath(cfg.OAuth.ClientSecrets)
	cfg.Email.AccountsFile = expandPath(cfg.Email.AccountsFile)

	return cfg, nil
}

// EnsureHomeDir creates the data directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return os.MkdirAll(c.Data.DataDir, 0700)
}

// AccountsFilePath returns the path to the account directory file.
func (c *Config) AccountsFilePath() string {
	if c.Email.AccountsFile != "" {
		return c.Email.AccountsFile
	}
	return filepath.Join(c.Data.DataDir, "email_accounts.json")
}

// TokensDir returns the path to the OAuth tokens directory.
func (c *Config) TokensDir() string {
	return filepath.Join(c.Data.DataDir, "tokens")
}

// ConfigFilePath returns the path of the config file in use.
func (c *Config) ConfigFilePath() string {
	return filepath.Join(c.HomeDir, "config.toml")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
