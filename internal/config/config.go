package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Search   SearchConfig
	Index    IndexConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	DialogueLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	IndexApiKey string // X-API-Key for the indexing endpoints
	HuggingFace string
	Jina        string
	WebSearch   string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama" or "jina"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "huggingface"
	LLMModel          string // e.g. "llama3", "qwen2.5"
	StepTimeoutSecs   int    // Per model call inside a dialogue turn
}

type SearchConfig struct {
	GazetteerURL     string
	WebSearchURL     string
	SmallTalkLimit   int // Transcript length below which chitchat short-circuits
	ResultCount      int // Candidates fetched per retrieval
	GeometryTopN     int
	TextualTopN      int
	RouteCacheTTLMin int
}

type IndexConfig struct {
	PyGeoAPIInstances   []string
	ExcludedCollections []string
	GeoJSONSource       string
	GeoJSONTagName      string
	IndexTopicName      string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			DialogueLogPath:    getEnv("DIALOGUE_LOG_PATH", "logs/dialogue.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			IndexApiKey: getEnv("INDEX_API_KEY", ""),
			HuggingFace: getEnv("HUGGINGFACE_API_KEY", ""),
			Jina:        getEnv("JINA_API_KEY", ""),
			WebSearch:   getEnv("WEB_SEARCH_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			StepTimeoutSecs:   getEnvAsInt("AI_STEP_TIMEOUT_SECONDS", 60),
		},
		Search: SearchConfig{
			GazetteerURL:     getEnv("GAZETTEER_URL", "https://photon.komoot.io"),
			WebSearchURL:     getEnv("WEB_SEARCH_URL", ""),
			SmallTalkLimit:   getEnvAsInt("SMALL_TALK_TURN_LIMIT", 5),
			ResultCount:      getEnvAsInt("SEARCH_RESULT_COUNT", 20),
			GeometryTopN:     getEnvAsInt("GEOMETRY_TOP_N", 5),
			TextualTopN:      getEnvAsInt("TEXTUAL_TOP_N", 10),
			RouteCacheTTLMin: getEnvAsInt("ROUTE_CACHE_TTL_MINUTES", 60),
		},
		Index: IndexConfig{
			PyGeoAPIInstances:   getEnvAsSlice("PYGEOAPI_INSTANCES", nil),
			ExcludedCollections: getEnvAsSlice("EXCLUDED_COLLECTIONS", nil),
			GeoJSONSource:       getEnv("GEOJSON_SOURCE", ""),
			GeoJSONTagName:      getEnv("GEOJSON_TAG_NAME", "name"),
			IndexTopicName:      getEnv("INDEX_DOCUMENTS_TOPIC_NAME", "INDEX_DOCUMENTS"),
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

func getEnvAsSlice(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	parts := strings.Split(strValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
