package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"multimodal-rag-be/pkg/apperror"
	"multimodal-rag-be/pkg/database"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Tracing   TracingConfig
	Keys      APIKeys
	Ai        AIConfig
	Retrieval RetrievalConfig
	Context   ContextConfig
	Prompt    PromptConfig
	Retry     RetryConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	TurnLogFilePath    string // abandoned turns only
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string // empty disables bearer auth
	ServiceName        string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

type DatabaseConfig struct {
	Connection      string // empty runs the in-memory stores
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool
}

type APIKeys struct {
	GoogleGemini string
	OpenAI       string
	Anthropic    string
	Jina         string
}

type AIConfig struct {
	TextEmbeddingProvider  string // "gemini", "ollama", "openai", "jina"
	TextEmbeddingModel     string
	TextEmbeddingDim       int
	TextMetric             string // "cosine" or "inner_product"
	ImageEmbeddingProvider string // "jina" or "" to disable the image modality
	ImageEmbeddingModel    string
	ImageEmbeddingDim      int
	ImageMetric            string
	ProbeEmbeddings        bool

	OllamaBaseURL  string
	OpenAIBaseURL  string
	LLMProvider    string // "ollama", "openai", "gemini", "anthropic"
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int
}

type RetrievalConfig struct {
	TextWeight      float64
	ImageWeight     float64
	EvidenceK       int
	PerModalityK    int
	TextTimeout     time.Duration
	ImageTimeout    time.Duration
	RedactEvidence  bool
	DefaultClientId string
}

type ContextConfig struct {
	TotalTokens        int
	PromptReserveRatio float64
	EvidenceCapRatio   float64
	HistoryTurns       int
}

type PromptConfig struct {
	DefaultName         string
	DefaultSystemPrompt string
	DefaultTemplate     string
	CacheTTL            time.Duration
}

type RetryConfig struct {
	MaxTries        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

const defaultSystemPrompt = `You are a careful assistant answering questions about the client's documents.
Answer only from the supplied evidence and conversation. Cite evidence as [n].
If the evidence does not contain the answer, say so plainly.`

const defaultTemplate = `Evidence:
{{evidence}}

Conversation so far:
{{history}}

Question: {{question}}`

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			TurnLogFilePath:    getEnv("TURN_LOG_FILE_PATH", "logs/turns.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			ServiceName:        getEnv("SERVICE_NAME", "multimodal-rag-backend"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
		Database: DatabaseConfig{
			Connection:      getEnv("DB_CONNECTION_STRING", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			LogSQL:          getEnvAsBool("DB_LOG_SQL", false),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			Anthropic:    getEnv("ANTHROPIC_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
		},
		Ai: AIConfig{
			TextEmbeddingProvider:  getEnv("TEXT_EMBEDDING_PROVIDER", "ollama"),
			TextEmbeddingModel:     getEnv("TEXT_EMBEDDING_MODEL", "nomic-embed-text"),
			TextEmbeddingDim:       getEnvAsInt("TEXT_EMBEDDING_DIM", 768),
			TextMetric:             getEnv("TEXT_METRIC", "cosine"),
			ImageEmbeddingProvider: getEnv("IMAGE_EMBEDDING_PROVIDER", ""),
			ImageEmbeddingModel:    getEnv("IMAGE_EMBEDDING_MODEL", "jina-clip-v2"),
			ImageEmbeddingDim:      getEnvAsInt("IMAGE_EMBEDDING_DIM", 1024),
			ImageMetric:            getEnv("IMAGE_METRIC", "cosine"),
			ProbeEmbeddings:        getEnvAsBool("PROBE_EMBEDDINGS", false),
			OllamaBaseURL:          getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:          getEnv("OPENAI_BASE_URL", ""),
			LLMProvider:            getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:               getEnv("LLM_MODEL", "llama3"),
			LLMTemperature:         getEnvAsFloat("LLM_TEMPERATURE", 0.2),
			LLMMaxTokens:           getEnvAsInt("LLM_MAX_TOKENS", 1024),
		},
		Retrieval: RetrievalConfig{
			TextWeight:      getEnvAsFloat("RETRIEVAL_TEXT_WEIGHT", 1.0),
			ImageWeight:     getEnvAsFloat("RETRIEVAL_IMAGE_WEIGHT", 1.0),
			EvidenceK:       getEnvAsInt("RETRIEVAL_EVIDENCE_K", 6),
			PerModalityK:    getEnvAsInt("RETRIEVAL_PER_MODALITY_K", 10),
			TextTimeout:     getEnvAsDuration("RETRIEVAL_TEXT_TIMEOUT", 3*time.Second),
			ImageTimeout:    getEnvAsDuration("RETRIEVAL_IMAGE_TIMEOUT", 3*time.Second),
			RedactEvidence:  getEnvAsBool("PII_REDACT_EVIDENCE", true),
			DefaultClientId: getEnv("DEFAULT_CLIENT_ID", ""),
		},
		Context: ContextConfig{
			TotalTokens:        getEnvAsInt("CONTEXT_TOTAL_TOKENS", 4096),
			PromptReserveRatio: getEnvAsFloat("CONTEXT_PROMPT_RESERVE_RATIO", 0.25),
			EvidenceCapRatio:   getEnvAsFloat("CONTEXT_EVIDENCE_CAP_RATIO", 0.45),
			HistoryTurns:       getEnvAsInt("CONTEXT_HISTORY_TURNS", 10),
		},
		Prompt: PromptConfig{
			DefaultName:         getEnv("PROMPT_DEFAULT_NAME", "default"),
			DefaultSystemPrompt: getEnv("PROMPT_DEFAULT_SYSTEM", defaultSystemPrompt),
			DefaultTemplate:     getEnv("PROMPT_DEFAULT_TEMPLATE", defaultTemplate),
			CacheTTL:            getEnvAsDuration("PROMPT_CACHE_TTL", 5*time.Minute),
		},
		Retry: RetryConfig{
			MaxTries:        getEnvAsInt("UPSTREAM_RETRY_MAX_TRIES", 3),
			InitialInterval: getEnvAsDuration("UPSTREAM_RETRY_INITIAL", 200*time.Millisecond),
			MaxInterval:     getEnvAsDuration("UPSTREAM_RETRY_MAX", 2*time.Second),
		},
	}
}

// Validate rejects settings that would only fail once queries start flowing.
func (c *Config) Validate() error {
	const op = "config.Validate"

	if c.Context.TotalTokens <= 0 {
		return apperror.Configuration(op, "CONTEXT_TOTAL_TOKENS must be positive, got %d", c.Context.TotalTokens)
	}
	if c.Context.PromptReserveRatio <= 0 || c.Context.PromptReserveRatio >= 1 {
		return apperror.Configuration(op, "CONTEXT_PROMPT_RESERVE_RATIO must be in (0,1), got %v", c.Context.PromptReserveRatio)
	}
	if c.Context.EvidenceCapRatio < 0 || c.Context.PromptReserveRatio+c.Context.EvidenceCapRatio > 1 {
		return apperror.Configuration(op, "CONTEXT_EVIDENCE_CAP_RATIO must be in [0, 1-reserve], got %v", c.Context.EvidenceCapRatio)
	}
	if c.Retrieval.TextWeight < 0 || c.Retrieval.ImageWeight < 0 {
		return apperror.Configuration(op, "retrieval weights must not be negative")
	}
	if c.Retrieval.EvidenceK <= 0 || c.Retrieval.PerModalityK <= 0 {
		return apperror.Configuration(op, "retrieval k values must be positive")
	}
	for _, metric := range []string{c.Ai.TextMetric, c.Ai.ImageMetric} {
		if metric != "cosine" && metric != "inner_product" {
			return apperror.Configuration(op, "unsupported similarity metric %q", metric)
		}
	}
	if c.Ai.TextEmbeddingDim <= 0 {
		return apperror.Configuration(op, "TEXT_EMBEDDING_DIM must be positive")
	}
	if c.Ai.ImageEmbeddingProvider != "" && c.Ai.ImageEmbeddingDim <= 0 {
		return apperror.Configuration(op, "IMAGE_EMBEDDING_DIM must be positive when the image modality is enabled")
	}
	if c.Retry.MaxTries < 1 {
		return apperror.Configuration(op, "UPSTREAM_RETRY_MAX_TRIES must be at least 1")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// DatabaseOptions turns the pool settings into gorm connection options.
func (c *Config) DatabaseOptions() []database.Option {
	return []database.Option{
		database.WithPool(c.Database.MaxOpenConns, c.Database.MaxIdleConns, c.Database.ConnMaxLifetime),
		database.WithSQLLogging(c.Database.LogSQL && !c.IsProduction()),
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
	strValue := strings.TrimSpace(getEnv(key, ""))
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
