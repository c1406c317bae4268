// Package config loads the listcount YAML configuration and builds the
// logger, totals store and client settings it describes.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logger LoggerConfig `yaml:"logger"`
	Store  StoreConfig  `yaml:"store"`
	Client ClientConfig `yaml:"client"`
}

type LoggerConfig struct {
	Backend     string         `yaml:"backend" validate:"oneof=zerolog zap logrus slog"`
	Level       string         `yaml:"level" validate:"oneof=debug info warn error"`
	Format      string         `yaml:"format" validate:"oneof=json console"`
	Output      string         `yaml:"output" validate:"oneof=stdout stderr"`
	Env         string         `yaml:"env" validate:"oneof=dev staging prod"`
	ServiceName string         `yaml:"service_name"`
	Fields      map[string]any `yaml:"fields"`
}

type StoreConfig struct {
	Provider  string        `yaml:"provider" validate:"oneof=none ristretto bigcache redis"`
	Codec     string        `yaml:"codec" validate:"oneof=json cbor msgpack protobuf"`
	GenStore  string        `yaml:"genstore" validate:"oneof=local redis"`
	Namespace string        `yaml:"namespace" validate:"required,max=200"`
	TTL       time.Duration `yaml:"ttl" validate:"gte=0"`
	MaxDecode int           `yaml:"max_decode" validate:"gte=0"`

	GenRetention    time.Duration `yaml:"gen_retention" validate:"gte=0"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" validate:"gte=0"`

	Ristretto RistrettoConfig `yaml:"ristretto"`
	Bigcache  BigcacheConfig  `yaml:"bigcache"`
	Redis     RedisConfig     `yaml:"redis"`
}

type RistrettoConfig struct {
	NumCounters int64 `yaml:"num_counters" validate:"gt=0"`
	MaxCost     int64 `yaml:"max_cost" validate:"gt=0"`
	BufferItems int64 `yaml:"buffer_items" validate:"gt=0"`
}

type BigcacheConfig struct {
	LifeWindow         time.Duration `yaml:"life_window" validate:"gt=0"`
	CleanWindow        time.Duration `yaml:"clean_window" validate:"gte=0"`
	HardMaxCacheSizeMB int           `yaml:"hard_max_cache_size_mb" validate:"gte=0"`
}

type RedisConfig struct {
	Addrs    []string      `yaml:"addrs" validate:"dive,hostname_port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	Prefix   string        `yaml:"prefix"`
	GenTTL   time.Duration `yaml:"gen_ttl" validate:"gte=0"`
}

type ClientConfig struct {
	URL       string            `yaml:"url" validate:"omitempty,url"`
	Timeout   time.Duration     `yaml:"timeout" validate:"gte=0"`
	PageLimit int               `yaml:"page_limit" validate:"gte=0,lte=1000"`
	Header    map[string]string `yaml:"header"`
}

// Load reads, defaults and validates the YAML file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(b)
}

// Parse is Load for an in-memory document. An empty document yields the
// defaults.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the configuration of an empty document.
func Default() *Config {
	var c Config
	c.setDefaults()
	return &c
}

func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterStructValidation(storeRules, StoreConfig{})
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}
	return nil
}

// storeRules requires redis addresses whenever a redis component is selected,
// and namespace generations that outlive stored totals: a forgotten namespace
// reads as gen 0 again, which would revive totals written before its first
// invalidation.
func storeRules(sl validator.StructLevel) {
	s := sl.Current().Interface().(StoreConfig)
	if (s.Provider == "redis" || s.GenStore == "redis") && len(s.Redis.Addrs) == 0 {
		sl.ReportError(s.Redis.Addrs, "Addrs", "addrs", "required_with_redis", "")
	}
	if s.GenStore == "local" && s.GenRetention > 0 && s.GenRetention <= s.TTL {
		sl.ReportError(s.GenRetention, "GenRetention", "gen_retention", "gt_ttl", s.TTL.String())
	}
	if s.GenStore == "redis" && s.Redis.GenTTL > 0 && s.Redis.GenTTL <= s.TTL {
		sl.ReportError(s.Redis.GenTTL, "GenTTL", "gen_ttl", "gt_ttl", s.TTL.String())
	}
}

// FieldErrors flattens a validation error into "Namespace: tag" strings.
func FieldErrors(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, fe.Namespace()+": "+fe.Tag())
	}
	return out
}

func (c *Config) setDefaults() {
	c.Logger.setDefaults()
	c.Store.setDefaults()
	c.Client.setDefaults()
}

func (c *LoggerConfig) setDefaults() {
	if c.Env == "" {
		c.Env = "prod"
	}
	if c.Backend == "" {
		c.Backend = "zerolog"
	}
	// level and format follow the environment
	if c.Level == "" {
		if c.Env == "dev" {
			c.Level = "debug"
		} else {
			c.Level = "info"
		}
	}
	if c.Format == "" {
		if c.Env == "dev" {
			c.Format = "console"
		} else {
			c.Format = "json"
		}
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
	if c.ServiceName == "" {
		c.ServiceName = "listcount"
	}
}

func (c *StoreConfig) setDefaults() {
	if c.Provider == "" {
		c.Provider = "none"
	}
	if c.Codec == "" {
		c.Codec = "json"
	}
	if c.GenStore == "" {
		c.GenStore = "local"
	}
	if c.Namespace == "" {
		c.Namespace = "default"
	}
	if c.TTL == 0 {
		c.TTL = 10 * time.Minute
	}
	if c.MaxDecode == 0 {
		c.MaxDecode = 1 << 10
	}

	if c.Ristretto.NumCounters == 0 {
		c.Ristretto.NumCounters = 1e5
	}
	if c.Ristretto.MaxCost == 0 {
		c.Ristretto.MaxCost = 8 << 20
	}
	if c.Ristretto.BufferItems == 0 {
		c.Ristretto.BufferItems = 64
	}

	if c.Bigcache.LifeWindow == 0 {
		c.Bigcache.LifeWindow = c.TTL
	}

	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "listcount"
	}
}

func (c *ClientConfig) setDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
	if c.PageLimit == 0 {
		c.PageLimit = 20
	}
}
