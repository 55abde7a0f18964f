package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for Axiom-Gateway
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Chat     ChatConfig     `yaml:"chat"`
	Redis    RedisConfig    `yaml:"redis"`
	Channels ChannelsConfig `yaml:"channels"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// LLMConfig defines the chat-completion provider settings
type LLMConfig struct {
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	BaseURL         string  `yaml:"base_url"`
	Timeout         string  `yaml:"timeout"`
	Temperature     float64 `yaml:"temperature"`
	KnowledgeCutoff string  `yaml:"knowledge_cutoff"`
	EnableWebSearch bool    `yaml:"enable_web_search"`
	SearchModel     string  `yaml:"search_model"`
}

// GetTimeout returns the request timeout as a time.Duration
func (l *LLMConfig) GetTimeout() time.Duration {
	if l.Timeout == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(l.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetTemperature returns the sampling temperature, defaulting to 1
func (l *LLMConfig) GetTemperature() float64 {
	if l.Temperature == 0 {
		return 1
	}
	return l.Temperature
}

// ChatConfig defines turn handling settings
type ChatConfig struct {
	HistoryWindow    int    `yaml:"history_window"`
	MaxImageBytes    int    `yaml:"max_image_bytes"`
	MaxImageEdge     int    `yaml:"max_image_edge"`
	SessionRetention string `yaml:"session_retention"`
}

// GetRetention returns how long idle sessions are kept
func (c *ChatConfig) GetRetention() time.Duration {
	if c.SessionRetention == "" {
		return 30 * 24 * time.Hour
	}
	d, err := time.ParseDuration(c.SessionRetention)
	if err != nil {
		return 30 * 24 * time.Hour
	}
	return d
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ChannelsConfig defines channel configurations
type ChannelsConfig struct {
	WebChat WebChatConfig `yaml:"webchat"`
}

// WebChatConfig defines WebChat channel settings
type WebChatConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from a YAML file with environment variable overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	return &cfg, nil
}

// Default returns a config with defaults applied and env overrides,
// used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8600
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.moonshot.ai/v1"
	}
	if c.Chat.HistoryWindow == 0 {
		c.Chat.HistoryWindow = 8
	}
	if c.Chat.MaxImageBytes == 0 {
		c.Chat.MaxImageBytes = 4 * 1024 * 1024
	}
	if c.Chat.MaxImageEdge == 0 {
		c.Chat.MaxImageEdge = 1024
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// applyEnvOverrides applies environment variable overrides to the config
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("GATEWAY_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Server.Port)
	}
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if base := os.Getenv("LLM_BASE_URL"); base != "" {
		c.LLM.BaseURL = base
	}
	if timeout := os.Getenv("LLM_TIMEOUT"); timeout != "" {
		c.LLM.Timeout = timeout
	}
	if enable := os.Getenv("LLM_ENABLE_WEB_SEARCH"); enable != "" {
		c.LLM.EnableWebSearch = parseBool(enable)
	}
	if model := os.Getenv("LLM_SEARCH_MODEL"); model != "" {
		c.LLM.SearchModel = model
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		c.Redis.Password = pass
	}
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		return strings.EqualFold(value, "yes")
	}
	return b
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm base_url is required")
	}
	if c.Chat.HistoryWindow <= 0 {
		return fmt.Errorf("invalid history window: %d", c.Chat.HistoryWindow)
	}
	if c.Channels.WebChat.Enabled && c.Channels.WebChat.Port <= 0 {
		return fmt.Errorf("webchat channel enabled without a port")
	}
	return nil
}
