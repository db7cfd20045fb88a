package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration. Precedence: flags set on the command
// line, then the YAML file given with -config, then defaults.
type Config struct {
	Addr                string        `yaml:"addr"`
	DB                  string        `yaml:"db"`
	RedisAddr           string        `yaml:"redis_addr"`
	RedisPrefix         string        `yaml:"redis_prefix"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
	Architectures       string        `yaml:"architectures"`
	ArchitecturesReload time.Duration `yaml:"architectures_reload"` // zero loads once
	LogLevel            string        `yaml:"log_level"`
	LogFormat           string        `yaml:"log_format"`
	AllowedOrigins      []string      `yaml:"allowed_origins"`
}

func defaultConfig() Config {
	return Config{
		Addr:      ":8080",
		DB:        "licenses.db",
		CacheTTL:  30 * time.Minute,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadConfig parses args (without the program name).
func LoadConfig(args []string) (Config, error) {
	cfg := defaultConfig()

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "YAML config file")
	addr := fs.String("addr", cfg.Addr, "HTTP listen address")
	db := fs.String("db", cfg.DB, `SQLite database path (":memory:" for in-memory)`)
	redisAddr := fs.String("redis", "", "Redis address for the document cache (memory cache when empty)")
	redisPrefix := fs.String("redis-prefix", "", "Redis key prefix")
	ttl := fs.Duration("cache-ttl", cfg.CacheTTL, "How long uploaded documents stay cached")
	architectures := fs.String("architectures", "", "Architecture table file (.json, .yaml) loaded at startup")
	reload := fs.Duration("architectures-reload", 0, "Re-read the architecture file on this interval (0: load once)")
	logLevel := fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", cfg.LogFormat, "Log format (text, json)")
	origins := fs.String("allowed-origins", "", "Comma separated CORS origins")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", *configPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal %s: %w", *configPath, err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "db":
			cfg.DB = *db
		case "redis":
			cfg.RedisAddr = *redisAddr
		case "redis-prefix":
			cfg.RedisPrefix = *redisPrefix
		case "cache-ttl":
			cfg.CacheTTL = *ttl
		case "architectures":
			cfg.Architectures = *architectures
		case "architectures-reload":
			cfg.ArchitecturesReload = *reload
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "allowed-origins":
			cfg.AllowedOrigins = splitList(*origins)
		}
	})

	return cfg, nil
}

// NewLogger builds the process logger from the config.
func NewLogger(cfg Config, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	return log, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
