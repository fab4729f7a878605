package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thaasbai/tables/go/internal/events"
	"github.com/thaasbai/tables/go/internal/room"
)

// Config is the server configuration. Values come from defaults, then an
// optional YAML file, then environment variables.
type Config struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	MaxConnectionsPerIP int            `yaml:"max_connections_per_ip"`
	ConnectionRateLimit int            `yaml:"connection_rate_limit"`
	EventBudgets        map[string]int `yaml:"event_budgets"`
	DefaultEventBudget  int            `yaml:"default_event_budget"`

	ConfirmTimeout  time.Duration `yaml:"confirm_timeout"`
	RummyMinPlayers int           `yaml:"rummy_min_players"`
	InboxSize       int           `yaml:"inbox_size"`

	TrustProxyHeaders bool     `yaml:"trust_proxy_headers"`
	CORSOrigins       []string `yaml:"cors_origins"`

	NATSURL           string `yaml:"nats_url"`
	NATSSubjectPrefix string `yaml:"nats_subject_prefix"`
	DatabaseURL       string `yaml:"database_url"`

	StatsInterval time.Duration `yaml:"stats_interval"`
}

func Default() Config {
	return Config{
		Port:                "8080",
		LogLevel:            "info",
		LogFormat:           "console",
		MaxConnectionsPerIP: 10,
		ConnectionRateLimit: 5,
		EventBudgets:        events.DefaultBudgets(),
		DefaultEventBudget:  events.DefaultBudget,
		ConfirmTimeout:      30 * time.Second,
		RummyMinPlayers:     room.TableSize,
		InboxSize:           1024,
		TrustProxyHeaders:   true,
		CORSOrigins:         []string{"*"},
		NATSSubjectPrefix:   "tables.events",
		StatsInterval:       time.Minute,
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// overlayFile merges a YAML file over cfg. Event budgets named in the file
// replace the matching defaults; the rest are kept.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	budgets := c.EventBudgets
	c.EventBudgets = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	for event, n := range c.EventBudgets {
		budgets[event] = n
	}
	c.EventBudgets = budgets
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.MaxConnectionsPerIP = getEnvAsInt("MAX_CONNECTIONS_PER_IP", c.MaxConnectionsPerIP)
	c.ConnectionRateLimit = getEnvAsInt("CONNECTION_RATE_LIMIT", c.ConnectionRateLimit)
	c.DefaultEventBudget = getEnvAsInt("DEFAULT_EVENT_BUDGET", c.DefaultEventBudget)
	c.ConfirmTimeout = getEnvAsDuration("CONFIRM_TIMEOUT", c.ConfirmTimeout)
	c.RummyMinPlayers = getEnvAsInt("RUMMY_MIN_PLAYERS", c.RummyMinPlayers)
	c.InboxSize = getEnvAsInt("INBOX_SIZE", c.InboxSize)
	c.TrustProxyHeaders = getEnvAsBool("TRUST_PROXY_HEADERS", c.TrustProxyHeaders)
	c.CORSOrigins = getEnvAsList("CORS_ORIGINS", c.CORSOrigins)
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.NATSSubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", c.NATSSubjectPrefix)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.StatsInterval = getEnvAsDuration("STATS_INTERVAL", c.StatsInterval)
}

func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log format must be console or json, got %q", c.LogFormat))
	}
	if c.ConfirmTimeout <= 0 {
		errs = append(errs, errors.New("confirm timeout must be positive"))
	}
	if c.RummyMinPlayers < room.MinCapacity || c.RummyMinPlayers > room.TableSize {
		errs = append(errs, fmt.Errorf("rummy min players must be between %d and %d", room.MinCapacity, room.TableSize))
	}
	if c.StatsInterval <= 0 {
		errs = append(errs, errors.New("stats interval must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
