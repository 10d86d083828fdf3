package services

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	AI        AIConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	Feedback  FeedbackConfig
	Stats     StatsConfig
	Interview InterviewConfig
	Assistant AssistantConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

type AIConfig struct {
	Provider          string // gemini or openrouter
	GeminiAPIKey      string
	GeminiModel       string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
}

type JWTConfig struct {
	Secret string
}

type WebSocketConfig struct {
	AllowedOrigins string
}

type FeedbackConfig struct {
	GenerationTimeout time.Duration
	HistoryLimit      int
}

type StatsConfig struct {
	MaxAttempts       int
	ReconcileInterval time.Duration // 0 disables the background reconciler
	ReconcileGrace    time.Duration
	ReconcileBatch    int
}

type InterviewConfig struct {
	MaxQuestions      int
	DefaultQuestions  int
	GenerationTimeout time.Duration
}

// AssistantConfig bounds the resume review and chat assistant calls
type AssistantConfig struct {
	GenerationTimeout time.Duration
	MaxResumeLength   int
	MaxMessageLength  int
}

// LoadConfig loads configuration from environment variables and config files.
// overridesPath optionally points at a YAML file whose nested keys override
// the defaults, e.g. "feedback: {generation_timeout: 45s}".
func LoadConfig(overridesPath string) (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("websocket.allowed_origins", "")
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.model", ModelName)
	viper.SetDefault("openrouter.api_key", "")
	viper.SetDefault("openrouter.model", "openai/gpt-4o-mini")
	viper.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.seed", "false")
	viper.SetDefault("database.log_level", "silent")
	viper.SetDefault("database.max_idle_conns", "10")
	viper.SetDefault("database.max_open_conns", "100")
	viper.SetDefault("feedback.generation_timeout", "30s")
	viper.SetDefault("feedback.history_limit", "10")
	viper.SetDefault("stats.max_attempts", "3")
	viper.SetDefault("stats.reconcile_interval", "5m")
	viper.SetDefault("stats.reconcile_grace", "1m")
	viper.SetDefault("stats.reconcile_batch", "100")
	viper.SetDefault("interview.max_questions", "20")
	viper.SetDefault("interview.default_questions", "5")
	viper.SetDefault("interview.generation_timeout", "30s")
	viper.SetDefault("assistant.generation_timeout", "30s")
	viper.SetDefault("assistant.max_resume_length", "20000")
	viper.SetDefault("assistant.max_message_length", "4000")

	// Map environment variables to config keys
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("websocket.allowed_origins", "WEBSOCKET_ALLOWED_ORIGINS")
	viper.BindEnv("ai.provider", "AI_PROVIDER")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("gemini.model", "GEMINI_MODEL")
	viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	viper.BindEnv("openrouter.base_url", "OPENROUTER_BASE_URL")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.seed", "DATABASE_SEED")
	viper.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("feedback.generation_timeout", "FEEDBACK_GENERATION_TIMEOUT")
	viper.BindEnv("feedback.history_limit", "FEEDBACK_HISTORY_LIMIT")
	viper.BindEnv("stats.max_attempts", "STATS_MAX_ATTEMPTS")
	viper.BindEnv("stats.reconcile_interval", "STATS_RECONCILE_INTERVAL")
	viper.BindEnv("stats.reconcile_grace", "STATS_RECONCILE_GRACE")
	viper.BindEnv("stats.reconcile_batch", "STATS_RECONCILE_BATCH")
	viper.BindEnv("interview.max_questions", "INTERVIEW_MAX_QUESTIONS")
	viper.BindEnv("interview.default_questions", "INTERVIEW_DEFAULT_QUESTIONS")
	viper.BindEnv("interview.generation_timeout", "INTERVIEW_GENERATION_TIMEOUT")
	viper.BindEnv("assistant.generation_timeout", "ASSISTANT_GENERATION_TIMEOUT")
	viper.BindEnv("assistant.max_resume_length", "ASSISTANT_MAX_RESUME_LENGTH")
	viper.BindEnv("assistant.max_message_length", "ASSISTANT_MAX_MESSAGE_LENGTH")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	if overridesPath != "" {
		if err := mergeYAMLOverrides(overridesPath); err != nil {
			return nil, err
		}
		slog.Info("Config overrides loaded", "path", overridesPath)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
		},
		Database: DatabaseConfig{
			URL:          viper.GetString("database.url"),
			Seed:         viper.GetBool("database.seed"),
			LogLevel:     viper.GetString("database.log_level"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			Provider:          viper.GetString("ai.provider"),
			GeminiAPIKey:      viper.GetString("gemini.api_key"),
			GeminiModel:       viper.GetString("gemini.model"),
			OpenRouterAPIKey:  viper.GetString("openrouter.api_key"),
			OpenRouterModel:   viper.GetString("openrouter.model"),
			OpenRouterBaseURL: viper.GetString("openrouter.base_url"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: viper.GetString("websocket.allowed_origins"),
		},
		Feedback: FeedbackConfig{
			GenerationTimeout: viper.GetDuration("feedback.generation_timeout"),
			HistoryLimit:      viper.GetInt("feedback.history_limit"),
		},
		Stats: StatsConfig{
			MaxAttempts:       viper.GetInt("stats.max_attempts"),
			ReconcileInterval: viper.GetDuration("stats.reconcile_interval"),
			ReconcileGrace:    viper.GetDuration("stats.reconcile_grace"),
			ReconcileBatch:    viper.GetInt("stats.reconcile_batch"),
		},
		Interview: InterviewConfig{
			MaxQuestions:      viper.GetInt("interview.max_questions"),
			DefaultQuestions:  viper.GetInt("interview.default_questions"),
			GenerationTimeout: viper.GetDuration("interview.generation_timeout"),
		},
		Assistant: AssistantConfig{
			GenerationTimeout: viper.GetDuration("assistant.generation_timeout"),
			MaxResumeLength:   viper.GetInt("assistant.max_resume_length"),
			MaxMessageLength:  viper.GetInt("assistant.max_message_length"),
		},
	}, nil
}

func mergeYAMLOverrides(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config overrides: %w", err)
	}
	var overrides map[string]interface{}
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return fmt.Errorf("parsing config overrides: %w", err)
	}
	if err := viper.MergeConfigMap(overrides); err != nil {
		return fmt.Errorf("merging config overrides: %w", err)
	}
	return nil
}
