// Package config loads client and development server settings from an
// optional YAML file, with environment variables taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreMemory  = "memory"
	StoreLevelDB = "leveldb"
	StoreRedis   = "redis"
)

// Config holds all settings of the signal binaries.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Store   StoreConfig   `yaml:"store"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig describes the platform REST API.
type APIConfig struct {
	URL            string        `yaml:"url"`
	RequestTimeout time.Duration `yaml:"-"`

	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// StoreConfig selects where the session token is persisted.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
}

// WalletConfig locates the local signing key.
type WalletConfig struct {
	PrivateKey string `yaml:"private_key"`
	KeyFile    string `yaml:"key_file"`
}

// ServerConfig is used by the development API server only.
type ServerConfig struct {
	HTTPAddr   string   `yaml:"http_addr"`
	SigningKey string   `yaml:"signing_key"`
	Allowlist  []string `yaml:"allowlist"`

	// PrintTokens writes a session token per allowlisted address to stdout
	// at startup, for clients that cannot run the wallet login.
	PrintTokens bool `yaml:"print_tokens"`

	// Deployments seeds the deployment catalog, keyed by app id.
	Deployments map[string][]DeploymentConfig `yaml:"deployments"`
}

// DeploymentConfig is one seeded deployment. Timestamp is RFC 3339.
type DeploymentConfig struct {
	DeployID  string `yaml:"deploy_id"`
	SID       string `yaml:"sid"`
	Timestamp string `yaml:"timestamp"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:               "http://localhost:9000",
			RequestTimeout:    10 * time.Second,
			RequestTimeoutRaw: "10s",
		},
		Store: StoreConfig{
			Driver: StoreLevelDB,
			Path:   defaultStorePath(),
		},
		Server: ServerConfig{
			HTTPAddr: ":9000",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and environment overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := envVarPattern.ReplaceAllStringFunc(string(data), func(match string) string {
			return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
		})

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.parse(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	override(&cfg.API.URL, "SIGNAL_API_URL")
	override(&cfg.API.RequestTimeoutRaw, "SIGNAL_REQUEST_TIMEOUT")
	override(&cfg.Store.Driver, "SIGNAL_STORE")
	override(&cfg.Store.Path, "SIGNAL_STORE_PATH")
	override(&cfg.Store.RedisURL, "REDIS_URL")
	override(&cfg.Wallet.PrivateKey, "SIGNAL_PRIVATE_KEY")
	override(&cfg.Wallet.KeyFile, "SIGNAL_KEY_FILE")
	override(&cfg.Server.HTTPAddr, "SIGNAL_HTTP_ADDR")
	override(&cfg.Server.SigningKey, "SIGNAL_SIGNING_KEY")
	override(&cfg.Logging.Level, "SIGNAL_LOG_LEVEL")
	override(&cfg.Logging.Format, "SIGNAL_LOG_FORMAT")

	if value := os.Getenv("SIGNAL_PRINT_TOKENS"); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parsing SIGNAL_PRINT_TOKENS: %w", err)
		}
		cfg.Server.PrintTokens = enabled
	}
	return nil
}

func override(field *string, envVar string) {
	if value := os.Getenv(envVar); value != "" {
		*field = value
	}
}

func (c *Config) parse() error {
	if c.API.RequestTimeoutRaw != "" {
		d, err := time.ParseDuration(c.API.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing api.request_timeout: %w", err)
		}
		c.API.RequestTimeout = d
	}
	return nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	if c.API.RequestTimeout <= 0 {
		return fmt.Errorf("api.request_timeout must be positive")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreLevelDB:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the leveldb driver")
		}
	case StoreRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	for appID, deployments := range c.Server.Deployments {
		for i, d := range deployments {
			if d.DeployID == "" {
				return fmt.Errorf("server.deployments.%s[%d]: deploy_id is required", appID, i)
			}
			if _, err := time.Parse(time.RFC3339, d.Timestamp); err != nil {
				return fmt.Errorf("server.deployments.%s[%d]: %w", appID, i, err)
			}
		}
	}
	return nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".signal"
	}
	return filepath.Join(home, ".signal")
}
