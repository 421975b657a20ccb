// Package config loads w3burn settings from config.json with environment
// overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"

	"github.com/Mohsinsiddi/w3burn/internal/log"
	"github.com/Mohsinsiddi/w3burn/internal/rpc"
)

const (
	defaultMode           = "mainnet"
	defaultAlgorithm      = "fastest"
	defaultReceiptTimeout = 120
	defaultWatchInterval  = 4
	defaultEndpoint       = "127.0.0.1:8080"

	// EnvPrefix marks environment variables that override config keys.
	// `__` separates levels: W3BURN_INDEXER__COVALENT_KEY sets
	// indexer.covalent_key.
	EnvPrefix = "W3BURN_"

	configFile  = "config.json"
	walletsFile = "wallets.json"
)

// Load reads config from dir (or creates defaults) and applies W3BURN_
// environment overrides. dir defaults to ~/.w3burn.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".w3burn")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps W3BURN_LOG__LEVEL to log.level.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"network_mode":    defaultMode,
		"rpc_algorithm":   defaultAlgorithm,
		"receipt_timeout": defaultReceiptTimeout,
		"watch_interval":  defaultWatchInterval,
		"log.format":      "logfmt",
		"log.level":       "info",
		"server.endpoint": defaultEndpoint,
	}
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	if c.NetworkMode != "mainnet" && c.NetworkMode != "testnet" {
		return fmt.Errorf("invalid network_mode %q (want mainnet or testnet)", c.NetworkMode)
	}
	if _, err := rpc.ParseAlgorithm(c.RPCAlgorithm); err != nil {
		return err
	}
	var format log.Format
	if err := format.Set(c.Log.Format); err != nil {
		return err
	}
	var level log.Level
	if err := level.Set(c.Log.Level); err != nil {
		return err
	}
	if c.ReceiptTimeout <= 0 {
		return fmt.Errorf("receipt_timeout must be positive")
	}
	if c.WatchInterval <= 0 {
		return fmt.Errorf("watch_interval must be positive")
	}
	for i, p := range c.WalletProviders {
		if p.URL == "" {
			return fmt.Errorf("wallet_providers[%d]: url is required", i)
		}
	}
	return nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// settable lists the keys `config set` accepts.
var settable = map[string]func(c *Config, v string) error{
	"network_mode":   func(c *Config, v string) error { c.NetworkMode = v; return nil },
	"default_wallet": func(c *Config, v string) error { c.DefaultWallet = v; return nil },
	"rpc_algorithm":  func(c *Config, v string) error { c.RPCAlgorithm = v; return nil },
	"app_origin":     func(c *Config, v string) error { c.AppOrigin = v; return nil },
	"user_agent":     func(c *Config, v string) error { c.UserAgent = v; return nil },
	"host.socket":    func(c *Config, v string) error { c.Host.Socket = v; return nil },
	"host.trusted_origin": func(c *Config, v string) error {
		c.Host.TrustedOrigin = v
		return nil
	},
	"indexer.covalent_key": func(c *Config, v string) error { c.Indexer.CovalentKey = v; return nil },
	"indexer.moralis_key":  func(c *Config, v string) error { c.Indexer.MoralisKey = v; return nil },
	"indexer.ankr_key":     func(c *Config, v string) error { c.Indexer.AnkrKey = v; return nil },
	"keyring.backend":      func(c *Config, v string) error { c.Keyring.Backend = v; return nil },
	"keyring.dir":          func(c *Config, v string) error { c.Keyring.Dir = v; return nil },
	"receipt_timeout":      func(c *Config, v string) error { return setSeconds(&c.ReceiptTimeout, v) },
	"watch_interval":       func(c *Config, v string) error { return setSeconds(&c.WatchInterval, v) },
	"log.level":            func(c *Config, v string) error { c.Log.Level = v; return nil },
	"log.format":           func(c *Config, v string) error { c.Log.Format = v; return nil },
	"server.endpoint":      func(c *Config, v string) error { c.Server.Endpoint = v; return nil },
}

func setSeconds(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%q is not a number of seconds", v)
	}
	*dst = n
	return nil
}

// Keys returns the keys accepted by Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(settable))
	for k := range settable {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Set assigns a single key and validates the result. On error c is left
// unchanged.
func (c *Config) Set(key, value string) error {
	set, ok := settable[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	next := *c
	if err := set(&next, strings.TrimSpace(value)); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// AddRPC adds a custom RPC URL for a network.
func (c *Config) AddRPC(network, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[network], url) {
		return fmt.Errorf("RPC %s already exists for network %s", url, network)
	}
	c.CustomRPCs[network] = append(c.CustomRPCs[network], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a network.
func (c *Config) RemoveRPC(network, url string) error {
	rpcs := c.CustomRPCs[network]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for network %s", url, network)
	}
	c.CustomRPCs[network] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a network.
func (c *Config) GetRPCs(network string) []string {
	return c.CustomRPCs[network]
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is the wallet metadata file.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// KeyringDir is the directory of the file keyring backend.
func (c *Config) KeyringDir() string {
	if c.Keyring.Dir != "" {
		return c.Keyring.Dir
	}
	return filepath.Join(c.configDir, "keys")
}

// ReceiptTimeoutDuration returns ReceiptTimeout as a duration.
func (c *Config) ReceiptTimeoutDuration() time.Duration {
	return time.Duration(c.ReceiptTimeout) * time.Second
}

// WatchIntervalDuration returns WatchInterval as a duration.
func (c *Config) WatchIntervalDuration() time.Duration {
	return time.Duration(c.WatchInterval) * time.Second
}
