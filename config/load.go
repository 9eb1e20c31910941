package config

import (
	"fmt"
	"os"
)

// Load builds the final configuration: defaults, then the config file,
// then flags. The data directory is created on first start.
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("famvaultd version 0.1.0")
		os.Exit(0)
	}

	cfg := Default()

	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data, database and log directories.
func EnsureDataDirs(cfg *Config) error {
	for _, dir := range []string{cfg.DataDir, cfg.DBDir(), cfg.LogsDir()} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return nil
}

func printUsage() {
	fmt.Print(`famvaultd - custodial family wallet service

Usage:
  famvaultd [flags]

Flags:
  --datadir <path>          Data directory (default ~/.famvault)
  --config, -c <path>       Config file (default <datadir>/famvault.conf)
  --api-addr <addr>         HTTP API listen address
  --api-port <port>         HTTP API listen port
  --chain-rpc <url>         Chain node JSON-RPC endpoint
  --chain-id <id>           EVM chain ID
  --token-contract <addr>   Secondary token contract address
  --log-level <level>       trace, debug, info, warn, error
  --log-file <path>         Log file path
  --log-json                Log in JSON format
  --version                 Show version
  --help, -h                Show this message
`)
}
