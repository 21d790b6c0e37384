package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate rejects settings the node cannot run with.
func (c *Config) Validate() error {
	if c.ChainID == 0 {
		return fmt.Errorf("ChainID must be positive")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir required")
	}
	if _, _, err := net.SplitHostPort(c.RPC.Address); err != nil {
		return fmt.Errorf("rpc: invalid Address %q: %w", c.RPC.Address, err)
	}
	if c.RPC.RateLimitPerSecond < 0 || c.RPC.RateLimitBurst < 0 {
		return fmt.Errorf("rpc: rate limits must not be negative")
	}
	if c.RPC.RateLimitPerSecond > 0 && c.RPC.RateLimitBurst == 0 {
		return fmt.Errorf("rpc: RateLimitBurst must be positive when RateLimitPerSecond is set")
	}
	if c.RPC.MaxBodyBytes <= 0 {
		return fmt.Errorf("rpc: MaxBodyBytes must be positive")
	}
	if c.RPC.JWTSecret != "" && len(c.RPC.JWTSecret) < 32 {
		return fmt.Errorf("rpc: JWTSecret must be at least 32 bytes")
	}
	if err := c.Gas.Validate(); err != nil {
		return err
	}
	if c.Indexer.Enabled {
		switch c.Indexer.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("indexer: unsupported Driver %q", c.Indexer.Driver)
		}
		if strings.TrimSpace(c.Indexer.DSN) == "" {
			return fmt.Errorf("indexer: DSN required")
		}
	}
	if strings.TrimSpace(c.Webhook.Endpoint) != "" {
		if !c.Indexer.Enabled {
			return fmt.Errorf("webhook: requires the indexer to be enabled")
		}
		if c.Webhook.Secret == "" && c.Webhook.SecretEnv == "" {
			return fmt.Errorf("webhook: Secret or SecretEnv required")
		}
		if c.Webhook.MaxAttempts < 0 {
			return fmt.Errorf("webhook: MaxAttempts must not be negative")
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unsupported Level %q", c.Log.Level)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log: rotation settings must not be negative")
	}
	if c.Telemetry.Traces || c.Telemetry.Metrics {
		if strings.TrimSpace(c.Telemetry.OTLPEndpoint) == "" {
			return fmt.Errorf("telemetry: OTLPEndpoint required when export is enabled")
		}
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be between 0 and 1")
	}
	return nil
}
