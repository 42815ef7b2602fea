package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"namemarket/crypto"

	"github.com/BurntSushi/toml"
)

// Config describes the market daemon: listen addresses, data directory, the
// administrator and vault accounts, the four marketplace periods (seconds)
// used to bootstrap settings, and genesis balance allocations.
type Config struct {
	RPCAddress     string            `toml:"RPCAddress"`
	MetricsAddress string            `toml:"MetricsAddress"`
	DataDir        string            `toml:"DataDir"`
	OwnerAddress   string            `toml:"OwnerAddress"`
	VaultAddress   string            `toml:"VaultAddress"`
	BillingPeriod  int64             `toml:"BillingPeriod"`
	ClosingPeriod  int64             `toml:"ClosingPeriod"`
	SecurePeriod   int64             `toml:"SecurePeriod"`
	DeadlinePeriod int64             `toml:"DeadlinePeriod"`
	Alloc          map[string]string `toml:"Alloc"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = "127.0.0.1:9464"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./namemarket-data"
	}
	if cfg.BillingPeriod == 0 {
		cfg.BillingPeriod = 3600
	}
	if cfg.ClosingPeriod == 0 {
		cfg.ClosingPeriod = 3600
	}
	if cfg.SecurePeriod == 0 {
		cfg.SecurePeriod = 1800
	}
	if cfg.DeadlinePeriod == 0 {
		cfg.DeadlinePeriod = 30 * 24 * 3600
	}
	if cfg.Alloc == nil {
		cfg.Alloc = map[string]string{}
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Owner parses the configured owner address. The owner must be set before
// the daemon can bootstrap marketplace settings.
func (c *Config) Owner() ([20]byte, error) {
	var owner [20]byte
	trimmed := strings.TrimSpace(c.OwnerAddress)
	if trimmed == "" {
		return owner, fmt.Errorf("config: OwnerAddress is required")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return owner, fmt.Errorf("config: invalid OwnerAddress: %w", err)
	}
	copy(owner[:], addr.Bytes())
	return owner, nil
}

// Vault parses the configured vault address, falling back to the derived
// module vault when unset.
func (c *Config) Vault(fallback [20]byte) ([20]byte, error) {
	var vault [20]byte
	trimmed := strings.TrimSpace(c.VaultAddress)
	if trimmed == "" {
		return fallback, nil
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return vault, fmt.Errorf("config: invalid VaultAddress: %w", err)
	}
	copy(vault[:], addr.Bytes())
	return vault, nil
}

// Allocations parses the genesis balance table into address/amount pairs.
func (c *Config) Allocations() (map[[20]byte]*big.Int, error) {
	alloc := make(map[[20]byte]*big.Int, len(c.Alloc))
	for addrStr, amountStr := range c.Alloc {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(addrStr))
		if err != nil {
			return nil, fmt.Errorf("config: invalid alloc address %q: %w", addrStr, err)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(amountStr), 10)
		if !ok || amount.Sign() < 0 {
			return nil, fmt.Errorf("config: invalid alloc amount %q for %q", amountStr, addrStr)
		}
		var key [20]byte
		copy(key[:], addr.Bytes())
		alloc[key] = amount
	}
	return alloc, nil
}
