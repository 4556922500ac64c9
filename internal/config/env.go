package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()
}

type Config struct {
	// Server
	DBPath      string
	HTTPPort    int
	Timezone    string
	LogLevel    string
	FrontendURL string
	BaseURL     string

	// LLM
	LLMProvider       string
	AnthropicAPIKey   string
	ClaudeModel       string
	ClaudeTemperature float64
	GroqAPIKey        string
	GroqBaseURL       string
	GroqModel         string
	LLMTimeout        time.Duration
	LLMRatePerMinute  float64
	LLMBurst          int

	// Google Calendar
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
	CalendarTimeout       time.Duration
	ListMaxResults        int
	SearchMaxResults      int
	SearchWindowDays      int

	// Conversation
	HistorySize           int
	ContextTurns          int
	ConversationCacheSize int

	// Matching
	MatchThreshold      float64
	MatchShortThreshold float64
	MatchShortQueryLen  int
	MatchTokenBonus     float64

	EncryptionKey string
}

func LoadFromEnv() *Config {
	cfg := &Config{
		DBPath:      getEnvOrDefault("CALPAL_DB_PATH", "./calpal.db"),
		HTTPPort:    getEnvAsIntOrDefault("CALPAL_HTTP_PORT", 8000),
		Timezone:    getEnvOrDefault("CALPAL_TIMEZONE", "Asia/Kolkata"),
		LogLevel:    getEnvOrDefault("CALPAL_LOG_LEVEL", "info"),
		FrontendURL: getEnvOrDefault("CALPAL_FRONTEND_URL", "http://localhost:5173"),

		LLMProvider:       os.Getenv("CALPAL_LLM_PROVIDER"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		ClaudeModel:       getEnvOrDefault("CALPAL_CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		ClaudeTemperature: getEnvAsFloatOrDefault("CALPAL_CLAUDE_TEMPERATURE", 0.1),
		GroqAPIKey:        os.Getenv("GROQ_API_KEY"),
		GroqBaseURL:       getEnvOrDefault("CALPAL_GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:         getEnvOrDefault("CALPAL_GROQ_MODEL", "llama-3.1-8b-instant"),
		LLMTimeout:        getEnvAsDurationOrDefault("CALPAL_LLM_TIMEOUT", 8*time.Second),
		LLMRatePerMinute:  getEnvAsFloatOrDefault("CALPAL_LLM_RATE_PER_MINUTE", 30),
		LLMBurst:          getEnvAsIntOrDefault("CALPAL_LLM_BURST", 5),

		GoogleCredentialsFile: getEnvOrDefault("GOOGLE_CREDENTIALS_FILE", "./credentials.json"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
		CalendarTimeout:       getEnvAsDurationOrDefault("CALPAL_CALENDAR_TIMEOUT", 10*time.Second),
		ListMaxResults:        getEnvAsIntOrDefault("CALPAL_LIST_MAX_RESULTS", 10),
		SearchMaxResults:      getEnvAsIntOrDefault("CALPAL_SEARCH_MAX_RESULTS", 50),
		SearchWindowDays:      getEnvAsIntOrDefault("CALPAL_SEARCH_WINDOW_DAYS", 30),

		HistorySize:           getEnvAsIntOrDefault("CALPAL_HISTORY_SIZE", 20),
		ContextTurns:          getEnvAsIntOrDefault("CALPAL_CONTEXT_TURNS", 3),
		ConversationCacheSize: getEnvAsIntOrDefault("CALPAL_CONVERSATION_CACHE_SIZE", 1024),

		MatchThreshold:      getEnvAsFloatOrDefault("CALPAL_MATCH_THRESHOLD", 0.4),
		MatchShortThreshold: getEnvAsFloatOrDefault("CALPAL_MATCH_SHORT_THRESHOLD", 0.3),
		MatchShortQueryLen:  getEnvAsIntOrDefault("CALPAL_MATCH_SHORT_QUERY_LEN", 5),
		MatchTokenBonus:     getEnvAsFloatOrDefault("CALPAL_MATCH_TOKEN_BONUS", 0.3),

		EncryptionKey: os.Getenv("CALPAL_ENCRYPTION_KEY"),
	}

	cfg.BaseURL = getEnvOrDefault("CALPAL_BASE_URL", "http://localhost:"+strconv.Itoa(cfg.HTTPPort))

	return cfg
}

// OAuthRedirectURL is the callback Google sends the user back to after consent.
func (c *Config) OAuthRedirectURL() string {
	return c.BaseURL + "/api/auth/callback"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
