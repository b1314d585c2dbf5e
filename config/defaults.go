package config

import "time"

const (
	DefaultSecurity = 2
	DefaultBatch    = 10
	DefaultTimeout  = 30 * time.Second
	DefaultRetries  = 3
)

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Ledger: LedgerConfig{
			Nodes:   []string{"http://127.0.0.1:14265"},
			Timeout: DefaultTimeout,
			Retries: DefaultRetries,
		},
		Wallet: WalletConfig{
			Security: DefaultSecurity,
		},
		Discovery: DiscoveryConfig{
			Batch: DefaultBatch,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Ledger.Nodes = []string{"http://127.0.0.1:14266"}
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
