package config

import (
	"flag"
	"fmt"
	"os"
)

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	DataDir string
	Config  string

	// API
	APIAddr string
	APIPort int

	// Chain
	ChainRPC string
	ChainID  int64

	// Token
	TokenContract string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetLogJSON bool
}

// ParseFlags parses command-line flags.
func ParseFlags() *Flags {
	f := &Flags{}
	fs := flag.NewFlagSet("famvaultd", flag.ContinueOnError)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	// Core
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// API
	fs.StringVar(&f.APIAddr, "api-addr", "", "HTTP API listen address")
	fs.IntVar(&f.APIPort, "api-port", 0, "HTTP API listen port")

	// Chain
	fs.StringVar(&f.ChainRPC, "chain-rpc", "", "Chain node JSON-RPC endpoint")
	fs.Int64Var(&f.ChainID, "chain-id", 0, "EVM chain ID")

	// Token
	fs.StringVar(&f.TokenContract, "token-contract", "", "Secondary token contract address")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path (empty = stderr)")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Log in JSON format")

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "log-json" {
			f.SetLogJSON = true
		}
	})

	f.Args = fs.Args()
	return f
}

// ApplyFlags overlays set flags onto a Config.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.APIAddr != "" {
		cfg.API.Addr = f.APIAddr
	}
	if f.APIPort != 0 {
		cfg.API.Port = f.APIPort
	}
	if f.ChainRPC != "" {
		cfg.Chain.RPCURL = f.ChainRPC
	}
	if f.ChainID != 0 {
		cfg.Chain.ChainID = f.ChainID
	}
	if f.TokenContract != "" {
		cfg.Token.Contract = f.TokenContract
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}
