package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the full runtime configuration. Chain settings come from the
// environment; the remaining sections may be overridden by a YAML file.
type Config struct {
	Chain  ChainConfig  `yaml:"-"`
	Server ServerConfig `yaml:"server"`
	RPC    RPCConfig    `yaml:"rpc"`
	Wallet WalletConfig `yaml:"wallet"`
	Cache  CacheConfig  `yaml:"cache"`
}

// ChainConfig describes the chain and the flash loan contract the UI talks to.
type ChainConfig struct {
	ChainID          string
	ChainName        string
	RPCEndpoint      string
	FeeDenom         string
	DenomName        string
	ContractAddr     string
	USDCSwapAddr     string
	AddressPrefix    string
	DenomExponent    int
	ExplorerTxPrefix string
	GasPrice         string
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	PingInterval      time.Duration `yaml:"ping_interval"`
	SessionCacheSize  int           `yaml:"session_cache_size"`
}

type RPCConfig struct {
	Timeout       time.Duration   `yaml:"timeout"`
	RetryAttempts uint            `yaml:"retry_attempts"`
	RetryDelay    time.Duration   `yaml:"retry_delay"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size"`
	WaitTimeout       time.Duration `yaml:"wait_timeout"`
}

type WalletConfig struct {
	Mnemonic  string `yaml:"-"`
	StatePath string `yaml:"state_path"`
}

type CacheConfig struct {
	FamilySize int           `yaml:"family_size"`
	BalanceTTL time.Duration `yaml:"balance_ttl"`
	HeightTTL  time.Duration `yaml:"height_ttl"`
}

const (
	defaultAddressPrefix    = "juno"
	defaultDenomExponent    = 6
	defaultExplorerTxPrefix = "https://www.mintscan.io/juno/txs/"
	defaultGasPriceAmount   = "0.0025"
)

// DefaultConfig returns a configuration with every operational setting filled
// in. Chain settings are left empty.
func DefaultConfig() *Config {
	return &Config{
		Chain: ChainConfig{
			AddressPrefix:    defaultAddressPrefix,
			DenomExponent:    defaultDenomExponent,
			ExplorerTxPrefix: defaultExplorerTxPrefix,
		},
		Server: ServerConfig{
			Addr:              ":3000",
			ReadHeaderTimeout: 15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			PingInterval:      54 * time.Second,
			SessionCacheSize:  1024,
		},
		RPC: RPCConfig{
			Timeout:       10 * time.Second,
			RetryAttempts: 3,
			RetryDelay:    500 * time.Millisecond,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 10,
				BurstSize:         20,
				WaitTimeout:       5 * time.Second,
			},
		},
		Wallet: WalletConfig{
			StatePath: defaultWalletStatePath(),
		},
		Cache: CacheConfig{
			FamilySize: 256,
			BalanceTTL: 30 * time.Second,
			HeightTTL:  5 * time.Second,
		},
	}
}

// LoadConfig reads .env, the optional YAML settings file and the environment,
// then validates the result.
func LoadConfig(cfgFile string) (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if cfgFile != "" {
		raw, err := os.ReadFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Chain.ChainID = GetEnvWithDefault(EnvChainID, c.Chain.ChainID)
	c.Chain.ChainName = GetEnvWithDefault(EnvChainName, c.Chain.ChainName)
	c.Chain.RPCEndpoint = GetEnvWithDefault(EnvChainRPCEndpoint, c.Chain.RPCEndpoint)
	c.Chain.FeeDenom = GetEnvWithDefault(EnvFeeDenom, c.Chain.FeeDenom)
	c.Chain.DenomName = GetEnvWithDefault(EnvDenomName, c.Chain.DenomName)
	c.Chain.ContractAddr = GetEnvWithDefault(EnvContractAddr, c.Chain.ContractAddr)
	c.Chain.USDCSwapAddr = GetEnvWithDefault(EnvUSDCSwapAddr, c.Chain.USDCSwapAddr)
	c.Chain.AddressPrefix = GetEnvWithDefault(EnvAddressPrefix, c.Chain.AddressPrefix)
	c.Chain.ExplorerTxPrefix = GetEnvWithDefault(EnvExplorerTxPrefix, c.Chain.ExplorerTxPrefix)

	exponent, err := getEnvIntWithDefault(EnvDenomExponent, c.Chain.DenomExponent)
	if err != nil {
		return err
	}
	c.Chain.DenomExponent = exponent

	if c.Chain.DenomName == "" && len(c.Chain.FeeDenom) > 1 {
		c.Chain.DenomName = strings.ToUpper(c.Chain.FeeDenom[1:])
	}
	if c.Chain.GasPrice == "" && c.Chain.FeeDenom != "" {
		c.Chain.GasPrice = defaultGasPriceAmount + c.Chain.FeeDenom
	}
	c.Chain.GasPrice = GetEnvWithDefault(EnvGasPrice, c.Chain.GasPrice)

	c.Wallet.Mnemonic = GetEnvWithDefault(EnvWalletMnemonic, c.Wallet.Mnemonic)
	c.Wallet.StatePath = GetEnvWithDefault(EnvWalletStatePath, c.Wallet.StatePath)
	c.Server.Addr = GetEnvWithDefault(EnvHTTPAddr, c.Server.Addr)
	return nil
}

// ValidateConfig reports every problem with the configuration at once.
func (c *Config) ValidateConfig() error {
	var errors []string

	if err := c.Chain.Validate(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.RPC.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("rpc config error: %v", err))
	}
	if err := c.Server.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("server config error: %v", err))
	}
	if c.Cache.FamilySize <= 0 {
		errors = append(errors, "cache family_size must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (c *ChainConfig) Validate() error {
	var missing []string
	if c.ChainID == "" {
		missing = append(missing, EnvChainID)
	}
	if c.RPCEndpoint == "" {
		missing = append(missing, EnvChainRPCEndpoint)
	}
	if c.FeeDenom == "" {
		missing = append(missing, EnvFeeDenom)
	}
	if c.ContractAddr == "" {
		missing = append(missing, EnvContractAddr)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s must be specified", strings.Join(missing, ", "))
	}
	if c.AddressPrefix == "" {
		return fmt.Errorf("address prefix must be specified")
	}
	if c.DenomExponent <= 0 {
		return fmt.Errorf("denom exponent must be positive")
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.PingInterval <= 0 {
		return fmt.Errorf("ping_interval must be positive")
	}
	if s.SessionCacheSize <= 0 {
		return fmt.Errorf("session_cache_size must be positive")
	}
	return nil
}

func (r *RPCConfig) Validate() error {
	if r.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if r.RetryAttempts == 0 {
		return fmt.Errorf("retry attempts must be positive")
	}
	return r.RateLimit.Validate()
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

func defaultWalletStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cwflash-wallet.yaml"
	}
	return filepath.Join(home, ".cwflash-wallet.yaml")
}
