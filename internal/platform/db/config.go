package db

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "config/config.yaml"

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

// TLS は cert/key が両方指定されているときだけ有効
func (s ServerConfig) TLS() bool { return s.Cert != "" && s.Key != "" }

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type BorrowingConfig struct {
	MaxBooksPerRequest  int `yaml:"max_books_per_request"`
	MonthlyRequestLimit int `yaml:"monthly_request_limit"`
	TxRetries           int `yaml:"tx_retries"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Version   string          `yaml:"version"`
	Mode      string          `yaml:"mode"`
	Server    ServerConfig    `yaml:"server"`
	DB        DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Borrowing BorrowingConfig `yaml:"borrowing"`
	Log       LogConfig       `yaml:"log"`
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	return ParseConfig(buf)
}

func ParseConfig(buf []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "dev"
	}
	if c.Server.Addr == "" {
		if c.Server.TLS() {
			c.Server.Addr = ":8443"
		} else {
			c.Server.Addr = ":8080"
		}
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Borrowing.MaxBooksPerRequest <= 0 {
		c.Borrowing.MaxBooksPerRequest = 5
	}
	if c.Borrowing.MonthlyRequestLimit <= 0 {
		c.Borrowing.MonthlyRequestLimit = 3
	}
	if c.Borrowing.TxRetries <= 0 {
		c.Borrowing.TxRetries = 3
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Mode != "dev" && c.Mode != "release" {
		return fmt.Errorf("mode must be dev or release, got %q", c.Mode)
	}
	if c.Mode == "release" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in release mode")
	}
	return nil
}
