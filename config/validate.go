package config

import (
	"fmt"

	"github.com/famvault/famvault/pkg/types"
)

// Validate checks the merged config for operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}
	if cfg.API.Port < 0 || cfg.API.Port > 65535 {
		return fmt.Errorf("api.port must be in range [0, 65535]")
	}
	if cfg.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc must not be empty")
	}
	if cfg.Chain.ChainID <= 0 {
		return fmt.Errorf("chain.id must be positive")
	}
	if cfg.Chain.NativeDecimals < 0 || cfg.Chain.NativeDecimals > 36 {
		return fmt.Errorf("chain.decimals must be in range [0, 36]")
	}
	if cfg.Chain.GasLimitNative == 0 || cfg.Chain.GasLimitToken == 0 {
		return fmt.Errorf("gas limits must be nonzero")
	}
	if cfg.Token.Contract == "" {
		return fmt.Errorf("token.contract must be configured")
	}
	if _, err := types.ParseAddress(cfg.Token.Contract); err != nil {
		return fmt.Errorf("token.contract: %w", err)
	}
	if cfg.Token.Decimals < 0 || cfg.Token.Decimals > 36 {
		return fmt.Errorf("token.decimals must be in range [0, 36]")
	}
	if cfg.Session.Secret == "" {
		return fmt.Errorf("session.secret must be configured")
	}
	if cfg.Session.TTLMinutes <= 0 {
		return fmt.Errorf("session.ttl_minutes must be positive")
	}
	if cfg.Vault.MemoryKiB < 8 || cfg.Vault.Iterations == 0 || cfg.Vault.Parallelism == 0 {
		return fmt.Errorf("vault parameters must be nonzero (memory at least 8 KiB)")
	}
	return nil
}
