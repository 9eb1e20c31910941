package config

// Default returns the built-in configuration. The chain defaults point
// at the BSC testnet; operators override them for any other EVM chain.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		API: APIConfig{
			Addr: "127.0.0.1",
			Port: 8787,
		},
		Chain: ChainConfig{
			RPCURL:         "https://data-seed-prebsc-2-s3.binance.org:8545",
			ChainID:        97,
			NativeSymbol:   "BNB",
			NativeDecimals: 18,
			GasLimitNative: 21000,
			GasLimitToken:  200000,
		},
		Token: TokenConfig{
			// No default contract; token.contract must be configured.
			Symbol:   "STK",
			Decimals: 18,
		},
		Session: SessionConfig{
			TTLMinutes: 12 * 60,
		},
		Vault: VaultConfig{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: 4,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
