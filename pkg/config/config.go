package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // chart_api.location must resolve on images without zoneinfo

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"AlphaChart/pkg/logger"
)

const (
	BackendREST       = "rest"
	BackendClickHouse = "clickhouse"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Log     logger.Config `yaml:"log"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"1s"`
	} `yaml:"metrics"`
	Backend struct {
		Type string `yaml:"type" default:"rest"`
	} `yaml:"backend"`
	ChartAPI struct {
		BaseURL       string        `yaml:"base_url"`
		Timeout       time.Duration `yaml:"timeout" default:"10s"`
		IntradayLimit int           `yaml:"intraday_limit" default:"500"`
		EODLimit      int           `yaml:"eod_limit" default:"2000"`
		IntradayTTL   time.Duration `yaml:"intraday_payload_ttl" default:"4m"`
		EODTTL        time.Duration `yaml:"eod_payload_ttl" default:"1h"`
		StatusTTL     time.Duration `yaml:"status_ttl" default:"30s"`
		Location      string        `yaml:"location" default:"America/New_York"`
	} `yaml:"chart_api"`
	Refresh struct {
		Interval         time.Duration `yaml:"interval" default:"5m"`
		FetchTimeout     time.Duration `yaml:"fetch_timeout" default:"10s"`
		MarketStatusCron string        `yaml:"market_status_cron" default:"@every 1m"`
		MarketMIC        string        `yaml:"market_mic" default:"xnys"`
		MaxSessions      int           `yaml:"max_sessions" default:"256"`
	} `yaml:"refresh"`
	Redis struct {
		Enabled   bool          `yaml:"enabled"`
		Addr      string        `yaml:"addr" default:"localhost:6379"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		PoolSize  int           `yaml:"pool_size" default:"10"`
		Prefix    string        `yaml:"prefix" default:"alphachart"`
		MemoryTTL time.Duration `yaml:"memory_ttl" default:"1m"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RefreshTopic string   `yaml:"refresh_topic" default:"series.refreshed"`
		LogTopic     string   `yaml:"log_topic" default:"alphachart.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"alphachart"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		InitSchema       bool          `yaml:"init_schema"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file. Keys missing from the
// file keep their default values.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := parse(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := parse(b)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("CHART_API_URL"); v != "" {
		c.ChartAPI.BaseURL = v
	}
	if v := getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Backend.Type {
	case BackendREST:
		if c.ChartAPI.BaseURL == "" {
			return fmt.Errorf("chart_api.base_url is required for the rest backend")
		}
	case BackendClickHouse:
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for the clickhouse backend")
		}
	default:
		return fmt.Errorf("backend.type must be '%s' or '%s', got '%s'", BackendREST, BackendClickHouse, c.Backend.Type)
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive")
	}
	if c.Refresh.MaxSessions <= 0 {
		return fmt.Errorf("refresh.max_sessions must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if _, err := time.LoadLocation(c.ChartAPI.Location); err != nil {
		return fmt.Errorf("chart_api.location: %w", err)
	}
	return nil
}
