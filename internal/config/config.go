// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.vyom/config.yaml or ./config.yaml)
//  3. Default values
//
// Main categories:
//   - Server: listen address, rate limiting
//   - Auth: credential file location, JWT secret and token lifetime
//   - Storage: data directory for session logs and attachments
//   - Backends: hosted model endpoints and API keys
//   - Tracing: optional OTLP trace export
//
// Security: secrets (JWT secret, API keys) are only read from the
// environment and are masked in MarshalJSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingJWTSecret indicates the JWT signing secret is not set.
	ErrMissingJWTSecret = errors.New("missing JWT secret")

	// ErrWeakJWTSecret indicates the JWT signing secret is too short.
	ErrWeakJWTSecret = errors.New("JWT secret too short")

	// ErrInvalidAddr indicates the listen address is empty.
	ErrInvalidAddr = errors.New("invalid listen address")

	// ErrInvalidDataDir indicates the data directory is empty.
	ErrInvalidDataDir = errors.New("invalid data directory")

	// ErrInvalidTokenTTL indicates the token lifetime is out of range.
	ErrInvalidTokenTTL = errors.New("invalid token TTL")

	// ErrInvalidRateLimit indicates the rate limit values are out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidBcryptCost indicates the bcrypt cost is out of range.
	ErrInvalidBcryptCost = errors.New("invalid bcrypt cost")
)

const (
	// DefaultAddr is the default listen address for the HTTP server.
	DefaultAddr = "127.0.0.1:8470"

	// MinJWTSecretLength is the minimum accepted JWT secret length.
	MinJWTSecretLength = 32

	// DefaultTokenTTLMinutes is the default access token lifetime.
	DefaultTokenTTLMinutes = 60

	// MaxTokenTTLMinutes bounds the access token lifetime to a day.
	MaxTokenTTLMinutes = 24 * 60
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// Server
	Addr           string `mapstructure:"addr" json:"addr"`
	RateLimitRPS   int    `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int    `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	// Auth
	CredentialsFile string `mapstructure:"credentials_file" json:"credentials_file"`
	JWTSecret       string `mapstructure:"jwt_secret" json:"jwt_secret"` // SENSITIVE: masked in MarshalJSON
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes" json:"token_ttl_minutes"`
	BcryptCost      int    `mapstructure:"bcrypt_cost" json:"bcrypt_cost"`

	// Storage
	DataDir string `mapstructure:"data_dir" json:"data_dir"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Backend endpoints
	Chat    ChatBackendConfig `mapstructure:"chat" json:"chat"`
	Gemini  GeminiConfig      `mapstructure:"gemini" json:"gemini"`
	HF      HFConfig          `mapstructure:"hf" json:"hf"`
	Tracing TracingConfig     `mapstructure:"tracing" json:"tracing"`
}

// ChatBackendConfig configures the OpenAI-compatible chat completions
// endpoint used by the plain chat feature (Groq in the default setup).
type ChatBackendConfig struct {
	BaseURL   string `mapstructure:"base_url" json:"base_url"`
	APIKey    string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	Model     string `mapstructure:"model" json:"model"`
	MaxTokens int    `mapstructure:"max_tokens" json:"max_tokens"`
}

// GeminiConfig configures the Gemini API used by the image chat, PDF
// chat and prompt-elaboration paths.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	Model  string `mapstructure:"model" json:"model"`
}

// HFConfig configures the Hugging Face inference endpoints used for
// text-to-image, text-to-audio and audio classification.
type HFConfig struct {
	APIKey        string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	ImageURL      string `mapstructure:"image_url" json:"image_url"`
	AudioURL      string `mapstructure:"audio_url" json:"audio_url"`
	ClassifierURL string `mapstructure:"classifier_url" json:"classifier_url"`
}

// TracingConfig configures the optional OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".vyom")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("rate_limit_rps", 10)
	v.SetDefault("rate_limit_burst", 20)

	v.SetDefault("credentials_file", filepath.Join(configDir, "credentials.yaml"))
	v.SetDefault("token_ttl_minutes", DefaultTokenTTLMinutes)
	v.SetDefault("bcrypt_cost", 0) // 0 = bcrypt.DefaultCost

	v.SetDefault("data_dir", filepath.Join(configDir, "data"))

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("chat.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("chat.model", "llama-3.3-70b-versatile")
	v.SetDefault("chat.max_tokens", 2048)

	v.SetDefault("gemini.model", "gemini-2.5-flash")

	v.SetDefault("hf.image_url", "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-xl-base-1.0")
	v.SetDefault("hf.audio_url", "https://api-inference.huggingface.co/models/facebook/musicgen-small")
	v.SetDefault("hf.classifier_url", "https://api-inference.huggingface.co/models/MIT/ast-finetuned-audioset-10-10-0.4593")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "vyom")
	v.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds secrets explicitly. Secrets never live in the
// config file by default; the environment is their home.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("jwt_secret", "VYOM_JWT_SECRET")
	mustBind("chat.api_key", "GROQ_API_KEY")
	mustBind("gemini.api_key", "GEMINI_API_KEY")
	mustBind("hf.api_key", "HF_API_TOKEN")

	mustBind("addr", "VYOM_ADDR")
	mustBind("data_dir", "VYOM_DATA_DIR")
	mustBind("credentials_file", "VYOM_CREDENTIALS_FILE")
	mustBind("log_level", "VYOM_LOG_LEVEL")
}

// MarshalJSON masks sensitive fields so a dumped config never leaks
// secrets into logs.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	masked.JWTSecret = mask(c.JWTSecret)
	masked.Chat.APIKey = mask(c.Chat.APIKey)
	masked.Gemini.APIKey = mask(c.Gemini.APIKey)
	masked.HF.APIKey = mask(c.HF.APIKey)
	return json.Marshal(masked)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
