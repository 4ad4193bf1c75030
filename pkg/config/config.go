package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	History struct {
		// Source selects the history provider backend: "http" or "clickhouse".
		Source        string `yaml:"source"`
		DefaultMonths int    `yaml:"default_months"`
		API           struct {
			BaseURL string        `yaml:"base_url"`
			APIKey  string        `yaml:"api_key"`
			Timeout time.Duration `yaml:"timeout"`
		} `yaml:"api"`
	} `yaml:"history"`
	Postgres struct {
		DSN            string        `yaml:"dsn"`
		MaxConns       int           `yaml:"max_conns"`
		ConnectTimeout time.Duration `yaml:"connect_timeout"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		ForecastTopic string   `yaml:"forecast_topic"`
		ActualsTopic  string   `yaml:"actuals_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Model struct {
		Dir             string  `yaml:"dir"`
		ValidationSplit float64 `yaml:"validation_split"`
		Seed            int64   `yaml:"seed"`
		Ridge           float64 `yaml:"ridge"`
		Confidence      struct {
			MarginScale         float64 `yaml:"margin_scale"`
			LowDataDiscount     float64 `yaml:"low_data_discount"`
			AccuracyBlendWeight float64 `yaml:"accuracy_blend_weight"`
		} `yaml:"confidence"`
	} `yaml:"model"`
	Cache struct {
		TTL struct {
			Stats     time.Duration `yaml:"stats"`
			ModelInfo time.Duration `yaml:"model_info"`
		} `yaml:"ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("SALES_API_BASE_URL"); v != "" {
		c.History.API.BaseURL = v
	}
	if v := os.Getenv("SALES_API_KEY"); v != "" {
		c.History.API.APIKey = v
	}
	if v := os.Getenv("HISTORY_SOURCE"); v != "" {
		c.History.Source = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MODEL_DIR"); v != "" {
		c.Model.Dir = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.History.Source == "" {
		return fmt.Errorf("history.source is required")
	}
	if c.History.Source != "http" && c.History.Source != "clickhouse" {
		return fmt.Errorf("history.source must be 'http' or 'clickhouse', got '%s'", c.History.Source)
	}
	if c.History.Source == "http" && c.History.API.BaseURL == "" {
		return fmt.Errorf("history.api.base_url is required for http source")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if c.Model.Dir == "" {
		return fmt.Errorf("model.dir is required")
	}
	if c.History.DefaultMonths <= 0 {
		c.History.DefaultMonths = 12
	}
	if c.Model.ValidationSplit <= 0 || c.Model.ValidationSplit >= 1 {
		c.Model.ValidationSplit = 0.2
	}
	if c.Model.Confidence.MarginScale <= 0 {
		c.Model.Confidence.MarginScale = 5.0
	}
	if c.Model.Confidence.LowDataDiscount <= 0 || c.Model.Confidence.LowDataDiscount > 1 {
		c.Model.Confidence.LowDataDiscount = 0.6
	}
	if c.Model.Confidence.AccuracyBlendWeight < 0 || c.Model.Confidence.AccuracyBlendWeight > 1 {
		c.Model.Confidence.AccuracyBlendWeight = 0.3
	}
	return nil
}
