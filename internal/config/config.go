package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	JWKSURL     string
	CORSOrigins string
	TablePrefix string

	// Generation configuration
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultModel    string
	CompletionModel string

	// MergeWindow bounds how long after its last update a current version
	// keeps absorbing same-kind edits in place before a fork is taken.
	MergeWindow time.Duration

	// SettleDelay is the pause between a create capability's setup events
	// and its finish event, giving the client a beat to initialize.
	SettleDelay time.Duration

	Completion CompletionConfig

	// Debug flags
	Debug bool
}

// CompletionConfig tunes the inline ghost-text engine.
type CompletionConfig struct {
	// Debounce is how long after the triggering keystroke a request waits
	// before firing.
	Debounce time.Duration
	// MinContext is the minimum prefix length that may trigger a request.
	MinContext int
	// MaxLength is the universal suggestion length cap.
	MaxLength int
	// MaxTokens bounds the generation request itself.
	MaxTokens int
}

// fileOverrides mirrors the optional YAML overrides file. Only the
// product-tunable knobs live here; secrets stay in the environment.
type fileOverrides struct {
	MergeWindowMinutes  *int `yaml:"merge_window_minutes"`
	SettleDelayMillis   *int `yaml:"settle_delay_ms"`
	CompletionDebounce  *int `yaml:"completion_debounce_ms"`
	CompletionMinChars  *int `yaml:"completion_min_context"`
	CompletionMaxLength *int `yaml:"completion_max_length"`
	CompletionMaxTokens *int `yaml:"completion_max_tokens"`
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWKSURL:     getEnv("JWKS_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DefaultModel:    getEnv("DEFAULT_MODEL", "claude-haiku-4-5-20251001"),
		CompletionModel: getEnv("COMPLETION_MODEL", "gpt-4o-mini"),

		MergeWindow: time.Duration(getEnvInt("MERGE_WINDOW_MINUTES", 10)) * time.Minute,
		SettleDelay: time.Duration(getEnvInt("SETTLE_DELAY_MS", 500)) * time.Millisecond,
		Completion: CompletionConfig{
			Debounce:   time.Duration(getEnvInt("COMPLETION_DEBOUNCE_MS", 300)) * time.Millisecond,
			MinContext: getEnvInt("COMPLETION_MIN_CONTEXT", 12),
			MaxLength:  getEnvInt("COMPLETION_MAX_LENGTH", 100),
			MaxTokens:  getEnvInt("COMPLETION_MAX_TOKENS", 64),
		},

		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}

	if path := os.Getenv("INKWELL_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: config overrides not applied: %v\n", err)
		}
	}

	return cfg
}

// applyFile layers YAML overrides on top of env-derived values.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var o fileOverrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if o.MergeWindowMinutes != nil {
		c.MergeWindow = time.Duration(*o.MergeWindowMinutes) * time.Minute
	}
	if o.SettleDelayMillis != nil {
		c.SettleDelay = time.Duration(*o.SettleDelayMillis) * time.Millisecond
	}
	if o.CompletionDebounce != nil {
		c.Completion.Debounce = time.Duration(*o.CompletionDebounce) * time.Millisecond
	}
	if o.CompletionMinChars != nil {
		c.Completion.MinContext = *o.CompletionMinChars
	}
	if o.CompletionMaxLength != nil {
		c.Completion.MaxLength = *o.CompletionMaxLength
	}
	if o.CompletionMaxTokens != nil {
		c.Completion.MaxTokens = *o.CompletionMaxTokens
	}

	return nil
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
