package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigurationDefaults(t *testing.T) {
	config := NewConfiguration()

	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, time.Hour, config.CacheTTL)
	assert.Equal(t, "query:", config.CacheKeyPrefix)
	assert.Equal(t, "http://localhost:8080", config.WeaviateURL)
	assert.Equal(t, "DocumentChunk", config.WeaviateClassName)
	assert.Equal(t, "bolt://localhost:7687", config.Neo4jURI)
	assert.Equal(t, "gpt-4o", config.ResponseModel)
	assert.Equal(t, "gpt-4o-mini", config.ExpansionModel)
	assert.Equal(t, "text-embedding-3-small", config.EmbeddingModel)
	assert.Equal(t, 1536, config.EmbeddingDimension)
	assert.Equal(t, 15, config.VectorTopK)
	assert.Equal(t, 3, config.PerDocumentLimit)
	assert.Equal(t, 3, config.FinalChunkCount)
	assert.Equal(t, 3, config.ExpansionQueryCount)
	assert.Equal(t, 3, config.PreliminaryTopK)
	assert.Equal(t, 1, config.EntityHopDepth)
	assert.Equal(t, 2, config.ComplexHopDepth)
	assert.Equal(t, 3, config.ShortestPathMaxHops)
	assert.False(t, config.UseQueryExpansion)
	assert.False(t, config.UseReranking)
}

func TestNewConfigurationFromEnvironment(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("CACHE_TTL_SECONDS", "120")
	t.Setenv("VECTOR_TOP_K", "25")
	t.Setenv("USE_QUERY_EXPANSION", "true")
	t.Setenv("USE_RERANKING", "1")
	t.Setenv("LLM_RESPONSE_MODEL", "gpt-4.1")
	t.Setenv("ENTITY_HOP_DEPTH", "2")

	config := NewConfiguration()

	assert.Equal(t, "redis.internal:6380", config.RedisAddr)
	assert.Equal(t, 2*time.Minute, config.CacheTTL)
	assert.Equal(t, 25, config.VectorTopK)
	assert.True(t, config.UseQueryExpansion)
	assert.True(t, config.UseReranking)
	assert.Equal(t, "gpt-4.1", config.ResponseModel)
	assert.Equal(t, 2, config.EntityHopDepth)
}

func TestNewConfigurationInvalidValuesFallBack(t *testing.T) {
	t.Setenv("VECTOR_TOP_K", "not-a-number")
	t.Setenv("USE_RERANKING", "maybe")

	config := NewConfiguration()

	assert.Equal(t, 15, config.VectorTopK)
	assert.False(t, config.UseReranking)
}
