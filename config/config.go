// Package config handles addrsync configuration.
//
// Settings come from three layers, later ones overriding earlier ones:
// per-network defaults, the <datadir>/addrsync.conf file, and command-line
// flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds runtime configuration for the wallet engine.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Ledger nodes reached over JSON-RPC
	Ledger LedgerConfig

	// Wallet defaults for new accounts
	Wallet WalletConfig

	// Address discovery
	Discovery DiscoveryConfig

	// Logging
	Log LogConfig
}

// LedgerConfig holds ledger node settings.
type LedgerConfig struct {
	Nodes   []string      `conf:"ledger.nodes"`   // Tried in order; a transport failure moves to the next.
	Timeout time.Duration `conf:"ledger.timeout"` // Per request.
	Retries int           `conf:"ledger.retries"` // Extra attempts after the first.
}

// WalletConfig holds wallet settings.
type WalletConfig struct {
	Security int `conf:"wallet.security"` // 1..3
}

// DiscoveryConfig holds address discovery settings.
type DiscoveryConfig struct {
	Batch int `conf:"discovery.batch"` // Addresses generated per scan step.
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.addrsync
//	macOS:   ~/Library/Application Support/Addrsync
//	Windows: %APPDATA%\Addrsync
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".addrsync"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Addrsync")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Addrsync")
		}
		return filepath.Join(home, "AppData", "Roaming", "Addrsync")
	default:
		return filepath.Join(home, ".addrsync")
	}
}

// NetworkDir returns the network-specific data directory.
func (c *Config) NetworkDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// KeystoreDir returns the encrypted seed directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDir(), "keystore")
}

// AccountsDir returns the account database directory.
func (c *Config) AccountsDir() string {
	return filepath.Join(c.NetworkDir(), "accounts")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "addrsync.conf")
}
