package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Gateway     GatewayConfig     `mapstructure:"gateway"`
	Etcd        EtcdConfig        `mapstructure:"etcd"`
	Redis       RedisConfig       `mapstructure:"redis"`
	RecordStore RecordStoreConfig `mapstructure:"record_store"`
	MongoDB     MongoDBConfig     `mapstructure:"mongodb"`
	RabbitMQ    RabbitMQConfig    `mapstructure:"rabbitmq"`
	Session     SessionConfig     `mapstructure:"session"`
	Handoff     HandoffConfig     `mapstructure:"handoff"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServerConfig describes the gRPC health endpoint and the name the
// instance registers under.
type ServerConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type GatewayConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
	LeaseTTL    int64         `mapstructure:"lease_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RecordStoreConfig selects the backing database for the generic record
// store. Driver is one of mysql, postgres or memory. SeedFile, when set,
// names a product fixture loaded into an empty products table.
type RecordStoreConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
	SeedFile     string `mapstructure:"seed_file"`
}

type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type RabbitMQConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// HandoffConfig controls the messaging deep link built after an order is
// stored.
type HandoffConfig struct {
	Domain      string `mapstructure:"domain"`
	Recipient   string `mapstructure:"recipient"`
	StoreName   string `mapstructure:"store_name"`
	Timezone    string `mapstructure:"timezone"`
	RedirectURL string `mapstructure:"redirect_url"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("storefront")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "storefront")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 50051)
	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", 8080)
	v.SetDefault("etcd.dial_timeout", 5)
	v.SetDefault("etcd.prefix", "/services/")
	v.SetDefault("etcd.lease_ttl", 30)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("record_store.driver", "mysql")
	v.SetDefault("record_store.max_idle_conns", 5)
	v.SetDefault("record_store.max_open_conns", 20)
	v.SetDefault("record_store.ssl_mode", "disable")
	v.SetDefault("record_store.auto_migrate", true)
	v.SetDefault("mongodb.collection", "audit_logs")
	v.SetDefault("rabbitmq.queue", "order.placed")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("handoff.domain", "wa.me")
	v.SetDefault("handoff.store_name", "متجر المنظفات")
	v.SetDefault("handoff.timezone", "Africa/Cairo")
	v.SetDefault("handoff.redirect_url", "/")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
}

func (c *Config) Validate() error {
	switch c.RecordStore.Driver {
	case "mysql", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported record store driver %q", c.RecordStore.Driver)
	}
	if c.Handoff.Recipient == "" {
		return fmt.Errorf("handoff.recipient is required")
	}
	return nil
}

func (c *RecordStoreConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// Location resolves the configured timezone, falling back to local time.
func (c *HandoffConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
