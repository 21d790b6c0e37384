package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"sellerchain/core/gas"
	"sellerchain/crypto"
)

// Defaults applied to settings left empty in the file.
const (
	DefaultChainID            = 1337
	DefaultRPCAddress         = "127.0.0.1:8645"
	DefaultMetricsAddress     = "127.0.0.1:9645"
	DefaultRateLimitPerSecond = 20
	DefaultRateLimitBurst     = 40
	DefaultMaxBodyBytes       = 1 << 20
	DefaultCallGasCap         = 10_000_000
)

// Load loads the configuration from the given path. A missing file is
// created with defaults and a freshly generated operator keystore.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	applyDefaults(cfg, meta.IsDefined("gas"))

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config, gasDefined bool) {
	if cfg.ChainID == 0 {
		cfg.ChainID = DefaultChainID
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./seller-data"
	}
	if cfg.RPC.Address == "" {
		cfg.RPC.Address = DefaultRPCAddress
	}
	if cfg.RPC.RateLimitPerSecond == 0 {
		cfg.RPC.RateLimitPerSecond = DefaultRateLimitPerSecond
	}
	if cfg.RPC.RateLimitBurst == 0 {
		cfg.RPC.RateLimitBurst = DefaultRateLimitBurst
	}
	if cfg.RPC.MaxBodyBytes == 0 {
		cfg.RPC.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.RPC.CallGasCap == 0 {
		cfg.RPC.CallGasCap = DefaultCallGasCap
	}
	if cfg.RPC.ReadTimeoutSecs == 0 {
		cfg.RPC.ReadTimeoutSecs = 15
	}
	if cfg.RPC.WriteTimeoutSecs == 0 {
		cfg.RPC.WriteTimeoutSecs = 15
	}
	if cfg.RPC.AllowedOrigins == nil {
		cfg.RPC.AllowedOrigins = []string{}
	}
	if !gasDefined {
		cfg.Gas = gas.DefaultSchedule()
	}
	if cfg.Indexer.Driver == "" {
		cfg.Indexer.Driver = "sqlite"
	}
	if cfg.Indexer.DSN == "" && cfg.Indexer.Driver == "sqlite" {
		cfg.Indexer.DSN = filepath.Join(cfg.DataDir, "index.sqlite")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Telemetry.MetricsAddress == "" {
		cfg.Telemetry.MetricsAddress = DefaultMetricsAddress
	}
}

// WebhookSecretValue resolves the webhook signing secret, preferring the
// environment variable named by SecretEnv.
func (c *Config) WebhookSecretValue() string {
	if c.Webhook.SecretEnv != "" {
		if v := strings.TrimSpace(os.Getenv(c.Webhook.SecretEnv)); v != "" {
			return v
		}
	}
	return c.Webhook.Secret
}

// JWTSecretValue resolves the bearer token secret, preferring the
// environment variable named by JWTSecretEnv.
func (c *Config) JWTSecretValue() string {
	if c.RPC.JWTSecretEnv != "" {
		if v := strings.TrimSpace(os.Getenv(c.RPC.JWTSecretEnv)); v != "" {
			return v
		}
	}
	return c.RPC.JWTSecret
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.KeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); errors.Is(err, fs.ErrNotExist) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, "", crypto.ScryptLight); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.KeystorePath != keystorePath {
		cfg.KeystorePath = keystorePath
		return persist(configPath, cfg)
	}
	return nil
}

// createDefault creates and saves a default configuration file. The
// generated operator key has an empty passphrase and is meant for local use.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, "", crypto.ScryptLight); err != nil {
		return nil, err
	}

	cfg := &Config{GenesisFile: "genesis.yaml", KeystorePath: keystorePath}
	applyDefaults(cfg, false)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
