package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Kafka struct {
		Brokers      []string `yaml:"brokers" validate:"required,min=1"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Topics       struct {
			Requests      string `yaml:"requests" validate:"required"`
			Tasks         string `yaml:"tasks" validate:"required"`
			Results       string `yaml:"results" validate:"required"`
			Responses     string `yaml:"responses" validate:"required"`
			Notifications string `yaml:"notifications" validate:"required"`
			Subscriptions string `yaml:"subscriptions" validate:"required"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"signalflow"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Postgres struct {
		Host     string `yaml:"host" validate:"required"`
		Port     int    `yaml:"port" default:"5432"`
		Database string `yaml:"database" validate:"required"`
		User     string `yaml:"user" validate:"required"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"sslmode" default:"disable"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Host        string        `yaml:"host" validate:"required"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"signalflow"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl" default:"5m"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file, applies struct defaults
// and validates required fields.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables. Validation runs after overrides: a queue name or endpoint that
// is set neither in the file nor the environment is a startup error.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TICKER_REQUEST_QUEUE"); v != "" {
		c.Kafka.Topics.Requests = v
	}
	if v := os.Getenv("TASK_QUEUE"); v != "" {
		c.Kafka.Topics.Tasks = v
	}
	if v := os.Getenv("RESULTS_QUEUE"); v != "" {
		c.Kafka.Topics.Results = v
	}
	if v := os.Getenv("TICKER_RESPONSE_QUEUE"); v != "" {
		c.Kafka.Topics.Responses = v
	}
	if v := os.Getenv("NOTIFICATION_QUEUE"); v != "" {
		c.Kafka.Topics.Notifications = v
	}
	if v := os.Getenv("SUSCRIPTION_QUEUE"); v != "" {
		c.Kafka.Topics.Subscriptions = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Postgres.Port = p
		}
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		c.Postgres.Database = v
	}
	if v := os.Getenv("POSTGRES_USERNAME"); v != "" {
		c.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Kafka.Consumer.Workers < 1 {
		return fmt.Errorf("kafka.consumer.workers must be at least 1")
	}
	return nil
}
