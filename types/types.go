package types

import (
	"os"
	"strconv"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Document is one uploaded unit, reconstructed from chunk metadata.
type Document struct {
	ID   uuid.UUID `json:"file_id"`
	Name string    `json:"file_name"`
}

// Chunk is a contiguous slice of a document's text, the unit of retrieval.
type Chunk struct {
	ID        uuid.UUID
	DocID     uuid.UUID
	Index     int
	Content   string
	Embedding []float32
}

// ChunkMetadata travels with every vector store entry and is the only
// place document identity is persisted.
type ChunkMetadata struct {
	DocID      uuid.UUID `json:"file_id"`
	DocName    string    `json:"file_name"`
	ChunkIndex int       `json:"chunk_index"`
}

// ChunkRef pairs a stored chunk's id with its metadata.
type ChunkRef struct {
	ID       uuid.UUID     `json:"id"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChatEntry is one conversation turn. IDs are strictly increasing and
// never reused.
type ChatEntry struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
	Text string `json:"message"`
}

// SearchHit is one retrieval result, ranked by cosine similarity.
type SearchHit struct {
	Content  string
	Score    float64
	Metadata ChunkMetadata
}

type IngestResult struct {
	DocID       uuid.UUID `json:"file_id"`
	DocName     string    `json:"file_name"`
	TotalChunks int       `json:"total_chunks"`
}

// JobStatus is what a poller sees for a submitted query.
type JobStatus struct {
	Status string `json:"status"`
	Answer string `json:"answer,omitempty"`
}

const (
	JobProcessing = "processing"
	JobDone       = "done"
)

// Config carries every runtime setting, resolved from the environment once in main.
type Config struct {
	ListenAddr string

	EmbeddingURL string
	EmbeddingDim int
	EmbedBatch   int

	ChunkSize    int
	ChunkOverlap int
	DefaultTopK  int

	Workers   int
	QueueSize int

	LLMURL    string
	LLMModel  string
	LLMAPIKey string

	VectorBackend string
	LedgerBackend string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// LoadConfigFromEnv resolves the config with defaults for anything unset.
func LoadConfigFromEnv() Config {
	return Config{
		ListenAddr:    getEnv("SERVER_ADDR", ":3000"),
		EmbeddingURL:  getEnv("EMBEDDING_SERVER_URL", "http://localhost:8000/embed"),
		EmbeddingDim:  getEnvInt("EMBEDDING_DIM", 384),
		EmbedBatch:    getEnvInt("EMBEDDING_BATCH_SIZE", 32),
		ChunkSize:     getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:  getEnvInt("CHUNK_OVERLAP", 200),
		DefaultTopK:   getEnvInt("SEARCH_TOP_K", 5),
		Workers:       getEnvInt("QUERY_WORKERS", 4),
		QueueSize:     getEnvInt("QUERY_QUEUE_SIZE", 64),
		LLMURL:        getEnv("LLM_URL", "https://openrouter.ai/api/v1/chat/completions"),
		LLMModel:      getEnv("LLM_MODEL", ""),
		LLMAPIKey:     getEnv("LLM_API_KEY", ""),
		VectorBackend: getEnv("VECTOR_BACKEND", "memory"),
		LedgerBackend: getEnv("LEDGER_BACKEND", "memory"),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
