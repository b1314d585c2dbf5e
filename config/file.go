package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
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

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
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
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Ledger
	case "ledger.nodes", "nodes":
		cfg.Ledger.Nodes = parseStringList(value)
	case "ledger.timeout":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		cfg.Ledger.Timeout = d
	case "ledger.retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Ledger.Retries = n

	// Wallet
	case "wallet.security", "security":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Wallet.Security = n

	// Discovery
	case "discovery.batch":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Discovery.Batch = n

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseDuration accepts Go duration strings or a bare number of seconds.
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	d := Default(network)
	content := `# Klingnet address sync configuration

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.addrsync)
# datadir = ~/.addrsync

# ============================================================================
# Ledger
# ============================================================================

# Ledger node RPC endpoints (comma-separated). Transport failures move on to
# the next node; errors returned by a node are not retried.
ledger.nodes = ` + strings.Join(d.Ledger.Nodes, ",") + `

# Request timeout (Go duration or seconds)
ledger.timeout = ` + d.Ledger.Timeout.String() + `

# Extra attempts after the first failed request
ledger.retries = ` + strconv.Itoa(d.Ledger.Retries) + `

# ============================================================================
# Wallet / Discovery
# ============================================================================

# Security level for new accounts (1, 2 or 3)
wallet.security = ` + strconv.Itoa(d.Wallet.Security) + `

# Addresses generated per discovery step
discovery.batch = ` + strconv.Itoa(d.Discovery.Batch) + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
