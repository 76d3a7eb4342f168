package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig     `mapstructure:"server"`
	Log         LogConfig        `mapstructure:"log"`
	Router      RouterConfig     `mapstructure:"router"`
	Attachments AttachmentConfig `mapstructure:"attachments"`
	Tracing     TracingConfig    `mapstructure:"tracing"`
	Providers   ProvidersConfig  `mapstructure:"providers"`
}

type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	Env         string   `mapstructure:"env"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RouterConfig struct {
	// RequestTimeout bounds a whole streamed call, from connect to the last fragment.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	DefaultModel   string        `mapstructure:"default_model"`
}

type AttachmentConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

type ProvidersConfig struct {
	Google    ProviderConfig `mapstructure:"google"`
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
}

// ProviderConfig holds the settings of one upstream backend. Fields that do
// not apply to a backend are ignored by its adapter.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key" validate:"required"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`

	// Google
	SystemInstruction string  `mapstructure:"system_instruction"`
	Temperature       float32 `mapstructure:"temperature"`

	// OpenAI
	Organization string `mapstructure:"organization"`

	// Anthropic
	Version   string `mapstructure:"version"`
	MaxTokens int    `mapstructure:"max_tokens"`

	// ResponseHeaderTimeout bounds the wait for upstream response headers.
	ResponseHeaderTimeout time.Duration `mapstructure:"response_header_timeout"`
}

const DefaultSystemInstruction = "You are Prism, a helpful, intelligent, and concise AI assistant."

// credentialEnv lists the environment variables consulted, in order, for each
// provider key. The NEXT_PUBLIC_ names are the ones the web frontend ships with.
var credentialEnv = map[string][]string{
	"providers.google.api_key":    {"PROVIDERS_GOOGLE_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "NEXT_PUBLIC_GEMINI_API_KEY", "API_KEY"},
	"providers.openai.api_key":    {"PROVIDERS_OPENAI_API_KEY", "OPENAI_API_KEY", "NEXT_PUBLIC_OPENAI_API_KEY"},
	"providers.anthropic.api_key": {"PROVIDERS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY", "NEXT_PUBLIC_ANTHROPIC_API_KEY"},
}

// LoadConfig reads configuration from file or environment variables.
// A missing provider key is not an error here; adapters report it on first use.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range credentialEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	cfg.Providers.Google.APIKey = resolveKey(v, cfg.Providers.Google.APIKey)
	cfg.Providers.OpenAI.APIKey = resolveKey(v, cfg.Providers.OpenAI.APIKey)
	cfg.Providers.Anthropic.APIKey = resolveKey(v, cfg.Providers.Anthropic.APIKey)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("router.request_timeout", 5*time.Minute)
	v.SetDefault("router.default_model", "gemini-2.5-flash-latest")
	v.SetDefault("attachments.max_bytes", 20<<20)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "prism")

	v.SetDefault("providers.google.api_key", "")
	v.SetDefault("providers.google.base_url", "")
	v.SetDefault("providers.google.system_instruction", DefaultSystemInstruction)
	v.SetDefault("providers.google.temperature", 0.7)

	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.openai.organization", "")
	v.SetDefault("providers.openai.response_header_timeout", 60*time.Second)

	v.SetDefault("providers.anthropic.api_key", "")
	v.SetDefault("providers.anthropic.base_url", "https://api.anthropic.com/v1")
	v.SetDefault("providers.anthropic.version", "2023-06-01")
	v.SetDefault("providers.anthropic.max_tokens", 1024)
	v.SetDefault("providers.anthropic.response_header_timeout", 60*time.Second)
}

// resolveKey expands the "ENV:NAME" indirection used in config files.
func resolveKey(v *viper.Viper, key string) string {
	if !strings.HasPrefix(key, "ENV:") {
		return key
	}
	envVar := strings.TrimPrefix(key, "ENV:")
	// Check process environment first (explicit override)
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return v.GetString(envVar)
}

func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	// SetConfigFile with a missing path surfaces an *os.PathError instead.
	return os.IsNotExist(err)
}
