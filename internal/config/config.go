package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ociswap/registry/internal/registry"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Chain     ChainConfig     `mapstructure:"chain"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

type ServerConfig struct {
	Port      string `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	ReadOnly  bool   `mapstructure:"read_only"` // reject every mutating call
}

// RegistryConfig seeds a registry that has no persisted state yet.
type RegistryConfig struct {
	Owner            string `mapstructure:"owner"`              // hex address holding the owner capability
	FeeProtocolShare string `mapstructure:"fee_protocol_share"` // decimal string, e.g. "0.1"
	SyncPeriod       uint64 `mapstructure:"sync_period"`        // seconds
	SyncSlots        uint64 `mapstructure:"sync_slots"`
}

type AuthConfig struct {
	SignatureWindowSeconds int `mapstructure:"signature_window_seconds"`
}

type DatabaseConfig struct {
	DSN                    string `mapstructure:"dsn"`
	AuditRetentionDays     int    `mapstructure:"audit_retention_days"`
	CleanupIntervalMinutes int    `mapstructure:"cleanup_interval_minutes"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	KeyPrefix             string `mapstructure:"key_prefix"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
}

type ChainConfig struct {
	RPCURL       string `mapstructure:"rpc_url"`
	UseBlockTime bool   `mapstructure:"use_block_time"`
	TimeoutMs    int    `mapstructure:"timeout_ms"`
}

type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`   // per client, 0 disables limiting
	Burst int     `mapstructure:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type AuditConfig struct {
	Dir        string `mapstructure:"dir"`
	BufferSize int    `mapstructure:"buffer_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.read_only", false)
	v.SetDefault("registry.owner", "")
	v.SetDefault("registry.fee_protocol_share", "0")
	v.SetDefault("registry.sync_period", 1209600) // two weeks
	v.SetDefault("registry.sync_slots", 20)
	v.SetDefault("auth.signature_window_seconds", 300)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.audit_retention_days", 30)
	v.SetDefault("database.cleanup_interval_minutes", 60)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.key_prefix", "feereg")
	v.SetDefault("redis.idempotency_ttl_seconds", 86400)
	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.use_block_time", false)
	v.SetDefault("chain.timeout_ms", 3000)
	v.SetDefault("rate_limit.qps", 5)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("audit.dir", "./logs")
	v.SetDefault("audit.buffer_size", 1000)
}

// Load reads config.yaml from . or ./configs, overlaid with FEEREG_* environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	return load(v)
}

// LoadFile reads an explicit config file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// e.g. FEEREG_REGISTRY_OWNER
	v.SetEnvPrefix("feereg")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// OwnerAddress parses registry.owner.
func (c *Config) OwnerAddress() (common.Address, error) {
	raw := strings.TrimSpace(c.Registry.Owner)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("registry.owner %q is not a hex address", raw)
	}
	owner := common.HexToAddress(raw)
	// the zero address can never present a proof
	if owner == (common.Address{}) {
		return common.Address{}, fmt.Errorf("registry.owner must not be the zero address")
	}
	return owner, nil
}

// RegistryParams converts the registry section into a validated registry config.
func (c *Config) RegistryParams() (registry.Config, error) {
	share, err := decimal.NewFromString(strings.TrimSpace(c.Registry.FeeProtocolShare))
	if err != nil {
		return registry.Config{}, fmt.Errorf("registry.fee_protocol_share: %w", err)
	}
	params := registry.Config{
		FeeProtocolShare: share,
		SyncPeriod:       c.Registry.SyncPeriod,
		SyncSlots:        c.Registry.SyncSlots,
	}
	if err := registry.Validate(params); err != nil {
		return registry.Config{}, err
	}
	return params, nil
}
