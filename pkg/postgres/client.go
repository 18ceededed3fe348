package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds connection configuration.
type ClientConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

func WithHost(host string, port int) ClientOption {
	return func(c *ClientConfig) {
		c.Host = host
		c.Port = port
	}
}

func WithDatabase(db string) ClientOption {
	return func(c *ClientConfig) { c.Database = db }
}

func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.User = user
		c.Password = password
	}
}

func WithSSLMode(mode string) ClientOption {
	return func(c *ClientConfig) { c.SSLMode = mode }
}

func WithPool(open, idle int, lifetime time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.MaxOpenConns = open
		c.MaxIdleConns = idle
		c.ConnLifetime = lifetime
	}
}

// Client manages a PostgreSQL connection pool through gorm.
type Client struct {
	db *gorm.DB
}

// NewClient opens the pool and verifies connectivity.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &ClientConfig{
		Host:         "localhost",
		Port:         5432,
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		ConnLifetime: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	db, err := gorm.Open(postgres.Open(buildDSN(*cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return &Client{db: db}, nil
}

// DB returns the underlying gorm handle.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Health performs a connectivity check.
func (c *Client) Health(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func buildDSN(cfg ClientConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
