package config

import "sellerchain/core/gas"

// RPC configures the JSON-RPC server.
type RPC struct {
	Address string `toml:"Address"`
	// JWTSecret signs bearer tokens required for transaction submission.
	// JWTSecretEnv names an environment variable that overrides it.
	JWTSecret          string   `toml:"JWTSecret"`
	JWTSecretEnv       string   `toml:"JWTSecretEnv"`
	JWTIssuer          string   `toml:"JWTIssuer"`
	RateLimitPerSecond float64  `toml:"RateLimitPerSecond"`
	RateLimitBurst     int      `toml:"RateLimitBurst"`
	AllowedOrigins     []string `toml:"AllowedOrigins"`
	ReadTimeoutSecs    int      `toml:"ReadTimeoutSecs"`
	WriteTimeoutSecs   int      `toml:"WriteTimeoutSecs"`
	MaxBodyBytes       int64    `toml:"MaxBodyBytes"`
	CallGasCap         uint64   `toml:"CallGasCap"`
}

// Indexer configures the SQL index of seller activity.
type Indexer struct {
	Enabled bool   `toml:"Enabled"`
	Driver  string `toml:"Driver"`
	DSN     string `toml:"DSN"`
}

// Webhook configures signed delivery of indexed activity. It requires the
// indexer and is disabled while Endpoint is empty.
type Webhook struct {
	Endpoint    string `toml:"Endpoint"`
	Secret      string `toml:"Secret"`
	SecretEnv   string `toml:"SecretEnv"`
	MaxAttempts int    `toml:"MaxAttempts"`
}

// Log configures structured logging. An empty File logs to stdout.
type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// Telemetry configures OTLP export and the prometheus endpoint.
type Telemetry struct {
	OTLPEndpoint   string `toml:"OTLPEndpoint"`
	OTLPHeaders    string `toml:"OTLPHeaders"`
	Insecure       bool   `toml:"Insecure"`
	Traces         bool   `toml:"Traces"`
	Metrics        bool   `toml:"Metrics"`
	MetricsAddress string `toml:"MetricsAddress"`
	// SampleRatio is the fraction of root spans kept; zero keeps all.
	SampleRatio float64 `toml:"SampleRatio"`
}

// Config is the sellerd configuration file.
type Config struct {
	ChainID      uint64       `toml:"ChainID"`
	Environment  string       `toml:"Environment"`
	DataDir      string       `toml:"DataDir"`
	GenesisFile  string       `toml:"GenesisFile"`
	KeystorePath string       `toml:"KeystorePath"`
	RPC          RPC          `toml:"rpc"`
	Gas          gas.Schedule `toml:"gas"`
	Indexer      Indexer      `toml:"indexer"`
	Webhook      Webhook      `toml:"webhook"`
	Log          Log          `toml:"log"`
	Telemetry    Telemetry    `toml:"telemetry"`
}
