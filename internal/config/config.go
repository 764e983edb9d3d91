// Package config loads pipeline settings from YAML with .env and ${VAR}
// substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/ratelimit"
)

// Config is the root configuration document.
type Config struct {
	Database  Database     `yaml:"database" json:"database"`
	API       API          `yaml:"api" json:"api"`
	Paths     Paths        `yaml:"paths" json:"paths"`
	Load      LoadSettings `yaml:"load" json:"load"`
	Transform Transform    `yaml:"transform" json:"transform"`
	Logging   Logging      `yaml:"logging" json:"logging"`
	Metrics   Metrics      `yaml:"metrics" json:"metrics"`
}

type Database struct {
	Type     string   `yaml:"type" json:"type" validate:"oneof=sqlite postgres postgresql"`
	Debug    bool     `yaml:"debug" json:"debug"`
	SQLite   SQLite   `yaml:"sqlite" json:"sqlite"`
	Postgres Postgres `yaml:"postgresql" json:"postgresql"`
}

type SQLite struct {
	Path string `yaml:"path" json:"path"`
}

type Postgres struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port" validate:"omitempty,min=1,max=65535"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
	Database string `yaml:"database" json:"database"`
	SSLMode  string `yaml:"sslmode" json:"sslmode"`
}

// DSN renders a pgx connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", p.Username, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

type API struct {
	FakeStore FakeStore `yaml:"fake_store" json:"fake_store"`
}

type FakeStore struct {
	BaseURL   string           `yaml:"base_url" json:"base_url" validate:"required,url"`
	Timeout   time.Duration    `yaml:"timeout" json:"timeout"`
	RateLimit ratelimit.Config `yaml:"rate_limit" json:"rate_limit"`
}

type Paths struct {
	OlistData string `yaml:"olist_data" json:"olist_data"`
	// RawData receives snapshots of API payloads; empty disables them.
	RawData string `yaml:"raw_data" json:"raw_data"`
}

type LoadSettings struct {
	ChunkSize int `yaml:"batch_size" json:"batch_size" validate:"min=1"`
}

type Transform struct {
	NullThreshold float64 `yaml:"null_threshold" json:"null_threshold" validate:"min=0,max=1"`
	// MaxOutOfOrder is the tolerated fraction of orders whose milestone
	// timestamps are not in sequence.
	MaxOutOfOrder float64 `yaml:"max_out_of_order" json:"max_out_of_order" validate:"min=0,max=1"`
}

type Logging struct {
	Level    string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	File     string `yaml:"file" json:"file"`
	Encoding string `yaml:"encoding" json:"encoding" validate:"oneof=console json"`
}

type Metrics struct {
	PushgatewayURL string `yaml:"pushgateway_url" json:"pushgateway_url" validate:"omitempty,url"`
	Job            string `yaml:"job" json:"job"`
}

// Default returns a configuration usable for local SQLite runs.
func Default() Config {
	return Config{
		Database: Database{
			Type:   "sqlite",
			SQLite: SQLite{Path: "data/logiflow.db"},
			Postgres: Postgres{
				Host:     "localhost",
				Port:     5432,
				Database: "logiflow",
				SSLMode:  "disable",
			},
		},
		API: API{FakeStore: FakeStore{
			BaseURL:   "https://fakestoreapi.com",
			Timeout:   30 * time.Second,
			RateLimit: ratelimit.DefaultConfig(),
		}},
		Paths:     Paths{OlistData: "data/raw/olist", RawData: "data/raw"},
		Load:      LoadSettings{ChunkSize: 1000},
		Transform: Transform{NullThreshold: 0.3, MaxOutOfOrder: 0.3},
		Logging:   Logging{Level: "info", Encoding: "console"},
		Metrics:   Metrics{Job: "logiflow_etl"},
	}
}

var (
	envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	validate   = validator.New(validator.WithRequiredStructEnabled())
)

// SearchPaths lists where Find looks for config.yaml.
var SearchPaths = []string{
	filepath.Join("config", "config.yaml"),
	"config.yaml",
}

// Find returns the first existing path from SearchPaths, or "".
func Find() string {
	for _, p := range SearchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads .env (when present) and the YAML file at path over Default().
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes over Default() after substituting ${VAR} references.
// Unset variables are left as written.
func Parse(data []byte) (Config, error) {
	expanded := envPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envPattern.FindSubmatch(m)[1]
		if v, ok := os.LookupEnv(string(name)); ok {
			return []byte(v)
		}
		return m
	})

	cfg := Default()
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.API.FakeStore.RateLimit = ratelimit.ApplyDefaults(cfg.API.FakeStore.RateLimit)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
