// Package config handles service configuration.
//
// Settings are layered: built-in defaults, then the .conf file, then
// command-line flags. Validation runs on the merged result.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config holds famvaultd runtime configuration.
type Config struct {
	// Core
	DataDir string `conf:"datadir"`

	// HTTP API
	API APIConfig

	// Chain endpoint and transaction parameters
	Chain ChainConfig

	// Secondary token
	Token TokenConfig

	// Sessions
	Session SessionConfig

	// Keystore hardening
	Vault VaultConfig

	// Logging
	Log LogConfig
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Addr string `conf:"api.addr"`
	Port int    `conf:"api.port"`
}

// ChainConfig holds the node endpoint and native-coin parameters.
type ChainConfig struct {
	RPCURL         string `conf:"chain.rpc"`
	ChainID        int64  `conf:"chain.id"`
	NativeSymbol   string `conf:"chain.symbol"`
	NativeDecimals int32  `conf:"chain.decimals"`
	GasLimitNative uint64 `conf:"chain.gas_native"`
	GasLimitToken  uint64 `conf:"chain.gas_token"`
}

// TokenConfig identifies the one supported secondary token.
type TokenConfig struct {
	Contract string `conf:"token.contract"`
	Symbol   string `conf:"token.symbol"`
	Decimals int32  `conf:"token.decimals"`
}

// SessionConfig holds session token settings.
type SessionConfig struct {
	Secret     string `conf:"session.secret"`
	TTLMinutes int    `conf:"session.ttl_minutes"`
}

// VaultConfig holds the Argon2id parameters used when sealing wallets.
type VaultConfig struct {
	MemoryKiB   uint32 `conf:"vault.memory_kib"`
	Iterations  uint32 `conf:"vault.iterations"`
	Parallelism uint8  `conf:"vault.parallelism"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.famvault
//	macOS:   ~/Library/Application Support/Famvault
//	Windows: %APPDATA%\Famvault
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".famvault"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Famvault")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Famvault")
		}
		return filepath.Join(home, "AppData", "Roaming", "Famvault")
	default:
		return filepath.Join(home, ".famvault")
	}
}

// DBDir returns the badger database directory.
func (c *Config) DBDir() string {
	return filepath.Join(c.DataDir, "db")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "famvault.conf")
}
