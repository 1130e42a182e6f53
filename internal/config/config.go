// Package config loads process configuration and owns the runtime-mutable
// agent settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// Config holds all process-level settings. The Agent section is only the
// startup default; the live copy is owned by Manager.
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// GitHub configuration
	GitHub GitHubConfig `yaml:"github" mapstructure:"github"`

	// AI fix provider configuration
	AI AIConfig `yaml:"ai" mapstructure:"ai"`

	// Agent defaults applied at startup
	Agent AgentConfig `yaml:"agent" mapstructure:"agent"`

	// History storage
	History HistoryConfig `yaml:"history" mapstructure:"history"`
}

type ServerConfig struct {
	Addr          string        `yaml:"addr" mapstructure:"addr"`
	WebhookSecret string        `yaml:"webhook_secret" mapstructure:"webhook_secret"`
	ReadTimeout   time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

type GitHubConfig struct {
	Token     string        `yaml:"token" mapstructure:"token"`
	RateLimit int           `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`      // per API call
}

type AIConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider"` // "openai", "gemini", "none"
	OpenAIKey   string        `yaml:"openai_key" mapstructure:"openai_key"`
	OpenAIModel string        `yaml:"openai_model" mapstructure:"openai_model"`
	GeminiKey   string        `yaml:"gemini_key" mapstructure:"gemini_key"`
	GeminiModel string        `yaml:"gemini_model" mapstructure:"gemini_model"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"` // per completion
}

type HistoryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		GitHub: GitHubConfig{
			RateLimit: 10,
			Timeout:   15 * time.Second,
		},
		AI: AIConfig{
			Provider:    "gemini",
			OpenAIModel: "gpt-4o-mini",
			GeminiModel: "gemini-2.0-flash",
			Timeout:     30 * time.Second,
		},
		Agent: DefaultAgent(),
		History: HistoryConfig{
			Path: filepath.Join(homeDir, ".github-doctor", "history.db"),
		},
	}
}

// Load reads configuration from the given file (or standard locations when
// empty), layered under environment variables.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("server", cfg.Server)
	v.SetDefault("github", cfg.GitHub)
	v.SetDefault("ai", cfg.AI)
	v.SetDefault("agent", cfg.Agent)
	v.SetDefault("history", cfg.History)

	v.SetEnvPrefix("DOCTOR")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".github-doctor")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".github-doctor"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine, defaults plus env apply.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Agent.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// loadEnvFiles loads .env files in order of precedence.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
	homeDir, _ := os.UserHomeDir()
	homeEnv := filepath.Join(homeDir, ".github-doctor", ".env")
	if _, err := os.Stat(homeEnv); err == nil {
		godotenv.Load(homeEnv)
	}
}

// applyEnvOverrides applies well-known environment variables on top of the
// file values. Secret precedence: env var, then OS keychain, then file.
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	} else if cfg.GitHub.Token == "" {
		if token, err := NewKeyring().GitHubToken(); err == nil && token != "" {
			cfg.GitHub.Token = token
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.AI.OpenAIKey = key
	} else if cfg.AI.OpenAIKey == "" {
		if key, err := NewKeyring().OpenAIKey(); err == nil && key != "" {
			cfg.AI.OpenAIKey = key
		}
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.AI.GeminiKey = key
	} else if cfg.AI.GeminiKey == "" {
		if key, err := NewKeyring().GeminiKey(); err == nil && key != "" {
			cfg.AI.GeminiKey = key
		}
	}

	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		cfg.AI.Provider = provider
	}
	if secret := os.Getenv("GITHUB_WEBHOOK_SECRET"); secret != "" {
		cfg.Server.WebhookSecret = secret
	}

	if mode := os.Getenv("AGENT_MODE"); mode != "" {
		cfg.Agent.Mode = models.AgentMode(mode)
	}
	if auto := os.Getenv("AUTO_COMMIT_FIXES"); auto != "" {
		cfg.Agent.AutoCommit = auto == "true"
	}
	if maxFiles := os.Getenv("MAX_FILES_TO_ANALYZE"); maxFiles != "" {
		if n, err := strconv.Atoi(maxFiles); err == nil {
			cfg.Agent.MaxFiles = n
		}
	}
}
