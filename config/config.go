package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

const defaultConfigName = ".tradesim.yaml"

type Config struct {
	// Chain and network settings
	ChainID     uint64 `yaml:"chain_id" json:"chain_id"`
	Network     string `yaml:"network" json:"network"`
	RPCEndpoint string `yaml:"rpc_endpoint" json:"rpc_endpoint"`

	RPCRateLimit RateLimitConfig `yaml:"rpc_rate_limit" json:"rpc_rate_limit"`
	Sweep        SweepConfig     `yaml:"sweep" json:"sweep"`
	Gas          GasConfig       `yaml:"gas" json:"gas"`
	Oracle       OracleConfig    `yaml:"oracle" json:"oracle"`
	Cache        CacheConfig     `yaml:"cache" json:"cache"`
	Metrics      MetricsConfig   `yaml:"metrics" json:"metrics"`

	// Address books, keyed by upper-case symbol
	Tokens    map[string]string `yaml:"tokens" json:"tokens"`
	Routers   map[string]string `yaml:"routers" json:"routers"`
	Factories map[string]string `yaml:"factories" json:"factories"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" json:"burst_size"`
	WaitTimeout       time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
}

type SweepConfig struct {
	Workers     int           `yaml:"workers" json:"workers"`
	CallTimeout time.Duration `yaml:"call_timeout" json:"call_timeout"`
	MaxPoints   int           `yaml:"max_points" json:"max_points"`
}

type GasConfig struct {
	FallbackUnits uint64        `yaml:"fallback_units" json:"fallback_units"`
	FallbackGwei  float64       `yaml:"fallback_gwei" json:"fallback_gwei"`
	Sender        string        `yaml:"sender" json:"sender"`
	SwapDeadline  time.Duration `yaml:"swap_deadline" json:"swap_deadline"`
}

type OracleConfig struct {
	ReferenceRouter string `yaml:"reference_router" json:"reference_router"`
	ReferenceStable string `yaml:"reference_stable" json:"reference_stable"`
	StableDecimals  uint8  `yaml:"stable_decimals" json:"stable_decimals"`
	// Feeds adds or overrides token -> Chainlink feed entries
	Feeds map[string]string `yaml:"feeds" json:"feeds"`
}

type CacheConfig struct {
	DecimalsSize int `yaml:"decimals_size" json:"decimals_size"`
	// QuoteSize of 0 disables quote caching
	QuoteSize int `yaml:"quote_size" json:"quote_size"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

func (c *Config) ValidateConfig() error {
	var errors []string

	if c.ChainID == 0 {
		errors = append(errors, "chain_id must be specified")
	}
	if c.RPCEndpoint == "" {
		errors = append(errors, "rpc_endpoint must be specified")
	}

	if err := c.RPCRateLimit.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("RPC rate limit error: %v", err))
	}
	if err := c.Sweep.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("sweep config error: %v", err))
	}
	if err := c.Gas.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("gas config error: %v", err))
	}
	if err := c.Oracle.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("oracle config error: %v", err))
	}
	if err := c.Cache.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("cache config error: %v", err))
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		errors = append(errors, "metrics listen_addr must be specified when metrics are enabled")
	}

	for _, book := range []struct {
		name    string
		entries map[string]string
	}{
		{"tokens", c.Tokens},
		{"routers", c.Routers},
		{"factories", c.Factories},
	} {
		for symbol, addr := range book.entries {
			if !common.IsHexAddress(addr) {
				errors = append(errors, fmt.Sprintf("%s.%s is not a valid address: %q", book.name, symbol, addr))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (r *RateLimitConfig) Validate() error {
	if r.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if r.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive")
	}
	if r.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive")
	}

	return nil
}

func (s *SweepConfig) Validate() error {
	if s.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if s.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be positive")
	}
	if s.MaxPoints <= 0 {
		return fmt.Errorf("max points must be positive")
	}
	return nil
}

func (g *GasConfig) Validate() error {
	if g.FallbackUnits == 0 {
		return fmt.Errorf("fallback units must be positive")
	}
	if g.FallbackGwei <= 0 {
		return fmt.Errorf("fallback gwei must be positive")
	}
	if g.Sender != "" && !common.IsHexAddress(g.Sender) {
		return fmt.Errorf("sender is not a valid address: %q", g.Sender)
	}
	if g.SwapDeadline <= 0 {
		return fmt.Errorf("swap deadline must be positive")
	}
	return nil
}

func (o *OracleConfig) Validate() error {
	if !common.IsHexAddress(o.ReferenceRouter) {
		return fmt.Errorf("reference router is not a valid address: %q", o.ReferenceRouter)
	}
	if !common.IsHexAddress(o.ReferenceStable) {
		return fmt.Errorf("reference stable is not a valid address: %q", o.ReferenceStable)
	}
	for token, feed := range o.Feeds {
		if !common.IsHexAddress(token) || !common.IsHexAddress(feed) {
			return fmt.Errorf("invalid feed entry %q -> %q", token, feed)
		}
	}
	return nil
}

func (c *CacheConfig) Validate() error {
	if c.DecimalsSize <= 0 {
		return fmt.Errorf("decimals cache size must be positive")
	}
	if c.QuoteSize < 0 {
		return fmt.Errorf("quote cache size must not be negative")
	}
	return nil
}

// SenderAddress returns the configured simulation sender, or the zero address
func (g *GasConfig) SenderAddress() common.Address {
	if g.Sender == "" {
		return common.Address{}
	}
	return common.HexToAddress(g.Sender)
}

// LoadConfig reads cfgFile (YAML, or JSON by extension) over DefaultConfig and
// applies environment overrides. A missing default file is not an error.
func LoadConfig(cfgFile string) (*Config, error) {
	explicit := cfgFile != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfgFile = filepath.Join(home, defaultConfigName)
	}

	config := DefaultConfig()

	data, err := os.ReadFile(cfgFile)
	switch {
	case err == nil:
		if err := decode(cfgFile, data, config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

func decode(path string, data []byte, out *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Unmarshal(data, out)
	}
	return yaml.Unmarshal(data, out)
}

func (c *Config) applyEnv() error {
	if url := os.Getenv(EnvRPCURL); url != "" {
		c.RPCEndpoint = url
	} else if os.Getenv(EnvInfuraKey) != "" {
		endpoint, err := GetNetworkEndpoint(GetEnvWithDefault(EnvNetwork, c.Network))
		if err != nil {
			return fmt.Errorf("failed to get network endpoint: %w", err)
		}
		c.RPCEndpoint = endpoint
	}

	if sender := os.Getenv(EnvSender); sender != "" {
		c.Gas.Sender = sender
	}
	return nil
}

// SaveConfig writes cfg as YAML
func SaveConfig(cfg *Config, cfgFile string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(cfgFile, data, 0o644)
}

func DefaultConfig() *Config {
	return &Config{
		ChainID:     1,
		Network:     "mainnet",
		RPCEndpoint: "http://localhost:8545",
		RPCRateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			BurstSize:         20,
			WaitTimeout:       5 * time.Second,
		},
		Sweep: SweepConfig{
			Workers:     4,
			CallTimeout: 10 * time.Second,
			MaxPoints:   100000,
		},
		Gas: GasConfig{
			FallbackUnits: 180000,
			FallbackGwei:  20,
			SwapDeadline:  600 * time.Second,
		},
		Oracle: OracleConfig{
			ReferenceRouter: DefaultRouters["UNISWAP"],
			ReferenceStable: DefaultTokens["USDC"],
			StableDecimals:  6,
			Feeds:           map[string]string{},
		},
		Cache: CacheConfig{
			DecimalsSize: 256,
			QuoteSize:    1024,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9102",
		},
		Tokens:    copyBook(DefaultTokens),
		Routers:   copyBook(DefaultRouters),
		Factories: copyBook(DefaultFactories),
	}
}

func copyBook(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s not set", key)
	}
	return value, nil
}

// GetNetworkEndpoint builds the Infura HTTP endpoint for network
func GetNetworkEndpoint(network string) (string, error) {
	infuraKey, err := GetRequiredEnv(EnvInfuraKey)
	if err != nil {
		return "", err
	}

	switch network {
	case "", "mainnet":
		return fmt.Sprintf("https://mainnet.infura.io/v3/%s", infuraKey), nil
	case "sepolia":
		return fmt.Sprintf("https://sepolia.infura.io/v3/%s", infuraKey), nil
	case "holesky":
		return fmt.Sprintf("https://holesky.infura.io/v3/%s", infuraKey), nil
	default:
		return "", fmt.Errorf("unsupported network: %s", network)
	}
}
