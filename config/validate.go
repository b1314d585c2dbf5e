package config

import (
	"fmt"
	"net/url"
	"strings"
)

// MaxBatch caps discovery.batch so one gateway query stays reasonably sized.
const MaxBatch = 500

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir is empty")
	}

	if len(cfg.Ledger.Nodes) == 0 {
		return fmt.Errorf("ledger.nodes requires at least one endpoint")
	}
	if err := validateNodes(cfg.Ledger.Nodes); err != nil {
		return err
	}
	if cfg.Ledger.Timeout <= 0 {
		return fmt.Errorf("ledger.timeout must be positive")
	}
	if cfg.Ledger.Retries < 0 {
		return fmt.Errorf("ledger.retries must not be negative")
	}

	if cfg.Wallet.Security < 1 || cfg.Wallet.Security > 3 {
		return fmt.Errorf("wallet.security must be in range [1, 3]")
	}
	if cfg.Discovery.Batch < 1 || cfg.Discovery.Batch > MaxBatch {
		return fmt.Errorf("discovery.batch must be in range [1, %d]", MaxBatch)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("log.level %q is not recognised", cfg.Log.Level)
	}

	return nil
}

func validateNodes(nodes []string) error {
	seen := make(map[string]struct{}, len(nodes))
	for i, n := range nodes {
		u, err := url.Parse(n)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("ledger.nodes[%d] must be an http(s) URL", i)
		}
		if _, ok := seen[n]; ok {
			return fmt.Errorf("ledger.nodes has duplicate endpoint %q", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}
