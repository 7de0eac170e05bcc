package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"knowledge-chat-be/internal/constant"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Ai        AIConfig
	Chat      ChatConfig
	Knowledge KnowledgeConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string // empty disables event streaming
	RedisURL           string // empty disables cross-instance invalidation
	InstanceID         string
	APIJWTSecret       string // empty disables bearer auth
}

type DatabaseConfig struct {
	Connection string // empty keeps refresh history in memory
}

type AIConfig struct {
	LLMProvider   string // "gemini" or "ollama"
	LLMModel      string
	Temperature   float64
	GeminiAPIKey  string
	OllamaBaseURL string
}

type ChatConfig struct {
	SystemInstruction     string
	TranscriptInstruction string
	TitleLanguage         string
	SessionIdleTTL        time.Duration // 0 keeps sessions until deleted
	TempDir               string
}

type KnowledgeConfig struct {
	BaseURL         string
	RefreshInterval time.Duration // 0 disables periodic refresh
	RefreshOnStart  bool
	RefreshTopic    string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			InstanceID:         getEnv("INSTANCE_ID", hostname()),
			APIJWTSecret:       getEnv("API_JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:      getEnv("LLM_MODEL", "gemini-2.0-flash"),
			Temperature:   getEnvAsFloat("LLM_TEMPERATURE", 0.2),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Chat: ChatConfig{
			SystemInstruction:     getInstruction("SYSTEM_INSTRUCTION", constant.DefaultSystemInstruction),
			TranscriptInstruction: getInstruction("TRANSCRIPT_INSTRUCTION", constant.DefaultTranscriptInstruction),
			TitleLanguage:         getEnv("TITLE_LANGUAGE", "Thai"),
			SessionIdleTTL:        getEnvAsDuration("SESSION_IDLE_TTL", 0),
			TempDir:               getEnv("UPLOAD_TEMP_DIR", ""),
		},
		Knowledge: KnowledgeConfig{
			BaseURL:         getEnv("LARAVEL_BASE_URL", "http://localhost"),
			RefreshInterval: getEnvAsDuration("KNOWLEDGE_REFRESH_INTERVAL", 0),
			RefreshOnStart:  getEnvAsBool("KNOWLEDGE_REFRESH_ON_START", true),
			RefreshTopic:    getEnv("KNOWLEDGE_REFRESH_TOPIC", "knowledge.refresh"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warn: invalid duration for %s: %q", key, raw)
	return fallback
}

// getInstruction reads KEY, or the file named by KEY_FILE.
func getInstruction(key, fallback string) string {
	if path := getEnv(key+"_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
		log.Printf("Warn: cannot read %s_FILE %s: %v", key, path, err)
	}
	return getEnv(key, fallback)
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "knowledge-chat"
	}
	return h
}
