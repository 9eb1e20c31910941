package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "datadir":
		cfg.DataDir = value

	// API
	case "api.addr":
		cfg.API.Addr = value
	case "api.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.API.Port = port

	// Chain
	case "chain.rpc":
		cfg.Chain.RPCURL = value
	case "chain.id":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Chain.ChainID = id
	case "chain.symbol":
		cfg.Chain.NativeSymbol = value
	case "chain.decimals":
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Chain.NativeDecimals = int32(n)
	case "chain.gas_native":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Chain.GasLimitNative = n
	case "chain.gas_token":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Chain.GasLimitToken = n

	// Token
	case "token.contract":
		cfg.Token.Contract = value
	case "token.symbol":
		cfg.Token.Symbol = value
	case "token.decimals":
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Token.Decimals = int32(n)

	// Sessions
	case "session.secret":
		cfg.Session.Secret = value
	case "session.ttl_minutes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Session.TTLMinutes = n

	// Vault
	case "vault.memory_kib":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Vault.MemoryKiB = uint32(n)
	case "vault.iterations":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Vault.Iterations = uint32(n)
	case "vault.parallelism":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return err
		}
		cfg.Vault.Parallelism = uint8(n)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		return fmt.Errorf("unknown key")
	}
	return nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
