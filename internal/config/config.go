// Package config handles application configuration using Viper.
// Settings merge in priority order: defaults < YAML file < environment
// variables (STOCK_ prefix, e.g. STOCK_SERVER_PORT=9090).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration struct. Nested structs organize related
// settings; `mapstructure` tags map YAML/env keys to fields.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Finnhub      FinnhubConfig      `mapstructure:"finnhub"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type FinnhubConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type LLMConfig struct {
	// ProviderOrder controls which LLM providers are used and in what order.
	// First is primary, rest are fallbacks. Example: ["openai", "anthropic"]
	ProviderOrder []string        `mapstructure:"provider_order"`
	OpenAI        OpenAIConfig    `mapstructure:"openai"`
	Anthropic     AnthropicConfig `mapstructure:"anthropic"`
	RatePerMinute int             `mapstructure:"rate_per_minute"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OrchestratorConfig struct {
	// MaxCompareSymbols caps how many symbols a comparison fetches,
	// bounding provider cost per query.
	MaxCompareSymbols int `mapstructure:"max_compare_symbols"`
	// DefaultMoversCount is the top-movers result count when the query
	// doesn't ask for a specific number.
	DefaultMoversCount int `mapstructure:"default_movers_count"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults apply when neither file nor env provides a value.
	// The API keys default to empty so AutomaticEnv picks them up: viper
	// only reads env vars for keys it already knows about.
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("finnhub.api_key", "")
	v.SetDefault("llm.provider_order", []string{"openai", "anthropic"})
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.rate_per_minute", 30)
	v.SetDefault("orchestrator.max_compare_symbols", 5)
	v.SetDefault("orchestrator.default_movers_count", 3)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("log.level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// A missing config file is fine; defaults + env are enough
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Environment variables override everything.
	// STOCK_ prefix + nested keys: STOCK_FINNHUB_API_KEY → finnhub.api_key
	v.SetEnvPrefix("STOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Address returns the listen address string like "0.0.0.0:8080".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
