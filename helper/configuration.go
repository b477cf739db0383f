package helper

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Configuration holds all tunable settings of the retrieval pipeline and the
// connection settings of its collaborators. Values come from environment
// variables (a .env file is loaded first if present); every field has a
// working default so a zero-configuration setup points at local services.
type Configuration struct {
	// Cache
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	CacheTTL       time.Duration
	CacheKeyPrefix string

	// Vector search
	WeaviateURL       string
	WeaviateAPIKey    string
	WeaviateClassName string

	// Graph store
	Neo4jURI      string
	Neo4jUsername string
	Neo4jPassword string

	// LLM (per-role models, matching the roles the pipeline needs)
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	ResponseModel      string
	ExpansionModel     string
	ExtractionModel    string
	EmbeddingModel     string
	EmbeddingDimension int

	// Cross-encoder re-ranking
	RerankerModel string

	// Pipeline tunables
	UseQueryExpansion   bool
	UseReranking        bool
	VectorTopK          int
	PerDocumentLimit    int
	FinalChunkCount     int
	ExpansionQueryCount int
	PreliminaryTopK     int
	EntityHopDepth      int
	ComplexHopDepth     int
	ShortestPathMaxHops int

	// Prompt/schema overrides (empty means use the embedded defaults)
	PromptsPath string
	SchemaPath  string

	// Local index persistence
	IndexPath         string
	IndexMetadataPath string
}

// NewConfiguration builds a Configuration from the environment
func NewConfiguration() *Configuration {
	_ = godotenv.Load()

	return &Configuration{
		RedisAddr:      envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  envString("REDIS_PASSWORD", ""),
		RedisDB:        envInt("REDIS_DB", 0),
		CacheTTL:       time.Duration(envInt("CACHE_TTL_SECONDS", 3600)) * time.Second,
		CacheKeyPrefix: envString("CACHE_KEY_PREFIX", "query:"),

		WeaviateURL:       envString("WEAVIATE_URL", "http://localhost:8080"),
		WeaviateAPIKey:    envString("WEAVIATE_API_KEY", ""),
		WeaviateClassName: envString("WEAVIATE_CLASS_NAME", "DocumentChunk"),

		Neo4jURI:      envString("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUsername: envString("NEO4J_USERNAME", "neo4j"),
		Neo4jPassword: envString("NEO4J_PASSWORD", "password"),

		OpenAIAPIKey:       envString("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      envString("OPENAI_BASE_URL", ""),
		ResponseModel:      envString("LLM_RESPONSE_MODEL", "gpt-4o"),
		ExpansionModel:     envString("LLM_EXPANSION_MODEL", "gpt-4o-mini"),
		ExtractionModel:    envString("LLM_EXTRACTION_MODEL", "gpt-4o-mini"),
		EmbeddingModel:     envString("LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimension: envInt("EMBEDDING_DIMENSION", 1536),

		RerankerModel: envString("RERANKER_MODEL", "cross-encoder/ms-marco-MiniLM-L-6-v2"),

		UseQueryExpansion:   envBool("USE_QUERY_EXPANSION", false),
		UseReranking:        envBool("USE_RERANKING", false),
		VectorTopK:          envInt("VECTOR_TOP_K", 15),
		PerDocumentLimit:    envInt("PER_DOCUMENT_LIMIT", 3),
		FinalChunkCount:     envInt("FINAL_CHUNK_COUNT", 3),
		ExpansionQueryCount: envInt("EXPANSION_QUERY_COUNT", 3),
		PreliminaryTopK:     envInt("PRELIMINARY_TOP_K", 3),
		EntityHopDepth:      envInt("ENTITY_HOP_DEPTH", 1),
		ComplexHopDepth:     envInt("COMPLEX_HOP_DEPTH", 2),
		ShortestPathMaxHops: envInt("SHORTEST_PATH_MAX_HOPS", 3),

		PromptsPath: envString("PROMPTS_PATH", ""),
		SchemaPath:  envString("SCHEMA_PATH", ""),

		IndexPath:         envString("VECTOR_INDEX_PATH", "./data/vector_index.gob"),
		IndexMetadataPath: envString("VECTOR_METADATA_PATH", "./data/vector_metadata.json"),
	}
}

func envString(key string, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}
