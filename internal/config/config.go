package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Agent    AgentConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
	NatsURL     string
	RedisURL    string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	GeminiApiKey      string
	LLMProvider       string // "ollama"
	LLMModel          string // e.g. "llama3", "qwen2.5"
}

// AgentConfig holds the dialogue engine tuning knobs.
type AgentConfig struct {
	// Confidence tier cut-offs on cosine distance.
	HighDistance   float64
	MediumDistance float64

	// Semantic cache.
	CacheEnabled  bool
	CacheDistance float64
	CacheMaxSize  int

	// Behaviour policies.
	RouteNonePolicy  string // "reuse" or "clarify" when routing fails mid-task
	MaxToolFailures  int
	RecentWindow     int
	RelevantLimit    int
	RelevantDistance float64

	// Every external capability call gets this budget.
	CapabilityTimeout time.Duration
}

const (
	RouteNonePolicyReuse   = "reuse"
	RouteNonePolicyClarify = "clarify"
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "logs/agent.log"),
			NatsURL:     getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			GeminiApiKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
		},
		Agent: AgentConfig{
			HighDistance:      getEnvAsFloat("AGENT_HIGH_DISTANCE", 0.2),
			MediumDistance:    getEnvAsFloat("AGENT_MEDIUM_DISTANCE", 0.35),
			CacheEnabled:      getEnvAsBool("AGENT_CACHE_ENABLED", true),
			CacheDistance:     getEnvAsFloat("AGENT_CACHE_DISTANCE", 0.2),
			CacheMaxSize:      getEnvAsInt("AGENT_CACHE_MAX_SIZE", 1000),
			RouteNonePolicy:   getEnv("AGENT_ROUTE_NONE_POLICY", RouteNonePolicyReuse),
			MaxToolFailures:   getEnvAsInt("AGENT_MAX_TOOL_FAILURES", 3),
			RecentWindow:      getEnvAsInt("AGENT_RECENT_WINDOW", 10),
			RelevantLimit:     getEnvAsInt("AGENT_RELEVANT_LIMIT", 5),
			RelevantDistance:  getEnvAsFloat("AGENT_RELEVANT_DISTANCE", 0.5),
			CapabilityTimeout: time.Duration(getEnvAsInt("AGENT_CAPABILITY_TIMEOUT_MS", 30000)) * time.Millisecond,
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
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
