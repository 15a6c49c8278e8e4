// Package config loads the TOML configuration shared by stubcall and stubd.
//
//	[log]
//	level = "info"
//
//	[client]
//	transport = "tcp"          # "tcp" or "http"
//	address   = "127.0.0.1:9090"
//
//	[server]
//	listen      = ":9090"
//	http_listen = ":9091"
//
//	[etcd]
//	endpoints = ["127.0.0.1:2379"]
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stub-rpc/loadbalance"
)

type Config struct {
	Log    LogConfig    `toml:"log"`
	Client ClientConfig `toml:"client"`
	Server ServerConfig `toml:"server"`
	Etcd   EtcdConfig   `toml:"etcd"`
}

type LogConfig struct {
	Level       string `toml:"level"`       // debug, info, warn, error
	Development bool   `toml:"development"` // console encoder, stack traces on warn
}

type ClientConfig struct {
	Transport string  `toml:"transport"`
	Address   string  `toml:"address"`  // tcp: host:port, used when no endpoint is set
	URL       string  `toml:"url"`      // http: JSON-RPC URL
	Endpoint  string  `toml:"endpoint"` // discover the address through etcd instead
	Balancer  string  `toml:"balancer"`
	RateLimit float64 `toml:"rate_limit"` // calls per second, 0 disables
	RateBurst int     `toml:"rate_burst"`
}

type ServerConfig struct {
	Listen          string        `toml:"listen"`
	HTTPListen      string        `toml:"http_listen"` // empty disables HTTP
	Advertise       string        `toml:"advertise"`   // address announced in etcd
	Endpoint        string        `toml:"endpoint"`
	TTL             int64         `toml:"ttl"` // lease seconds
	RateLimit       float64       `toml:"rate_limit"`
	RateBurst       int           `toml:"rate_burst"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// EtcdConfig enables discovery when Endpoints is not empty.
type EtcdConfig struct {
	Endpoints   []string      `toml:"endpoints"`
	DialTimeout time.Duration `toml:"dial_timeout"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Client: ClientConfig{
			Transport: "tcp",
			Address:   "127.0.0.1:9090",
			URL:       "http://127.0.0.1:9091/rpc",
			Balancer:  "round_robin",
		},
		Server: ServerConfig{
			Listen:          ":9090",
			HTTPListen:      ":9091",
			Advertise:       "127.0.0.1:9090",
			Endpoint:        "stubd",
			TTL:             10,
			ShutdownTimeout: 5 * time.Second,
		},
		Etcd: EtcdConfig{DialTimeout: 3 * time.Second},
	}
}

// Load returns the defaults overlaid with the file at path. An empty path returns the
// defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if st, err := os.Stat(path); err != nil {
		return nil, err
	} else if st.IsDir() {
		return nil, errors.New("config path is a directory")
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Client.Transport {
	case "tcp", "http":
	default:
		return fmt.Errorf("client.transport: want tcp or http, got %q", c.Client.Transport)
	}
	if _, err := loadbalance.New(c.Client.Balancer); err != nil {
		return fmt.Errorf("client.balancer: %w", err)
	}
	if c.Client.RateLimit < 0 || c.Server.RateLimit < 0 {
		return errors.New("rate_limit must not be negative")
	}
	if c.Client.Endpoint != "" && len(c.Etcd.Endpoints) == 0 {
		return errors.New("client.endpoint needs etcd.endpoints")
	}
	if c.Server.TTL <= 0 {
		return fmt.Errorf("server.ttl: must be positive, got %d", c.Server.TTL)
	}
	return nil
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Logger builds a zap logger for the configured level.
func (c LogConfig) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
