package connector

import (
	"context"
	"time"

	"github.com/anuj67851/graph-rag-metadata/model"
)

// Cache is the response cache wrapped around the query pipeline. Faults are
// surfaced as errors; callers treat them as a miss (Get) or a skipped write
// (Set) and continue.
type Cache interface {
	// Key derives the stable cache key for a query and an optional,
	// possibly-unordered document filter.
	Key(query string, filterFilenames []string) string
	// Get returns the cached value for key, or (nil, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Search is the lexical-semantic search collaborator over document chunks.
type Search interface {
	// SearchChunks runs one relevance computation over all given query
	// phrasings, optionally restricted to the named source documents,
	// returning up to topK scored chunks ordered by relevance.
	SearchChunks(ctx context.Context, queries []string, topK int, filterFilenames []string) ([]*model.SourceChunk, error)
	InsertChunks(ctx context.Context, chunks []*model.SourceChunk) error
	DeleteDocumentChunks(ctx context.Context, filename string) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Graph is the knowledge graph collaborator.
type Graph interface {
	// Neighborhood returns the bounded N-hop subgraph around the entities
	// with the given canonical names.
	Neighborhood(ctx context.Context, canonicalNames []string, hopDepth int) (*model.Subgraph, error)
	// ShortestPaths returns all shortest paths between two entities up to
	// maxHops relationships long, as a subgraph.
	ShortestPaths(ctx context.Context, startName string, endName string, maxHops int) (*model.Subgraph, error)
	// Sample returns an edge-limited sample of the whole graph.
	Sample(ctx context.Context, nodeLimit int, edgeLimit int) (*model.Subgraph, error)
	// BusiestNodes returns the most connected entities and their 1-hop
	// neighborhood.
	BusiestNodes(ctx context.Context, topN int) (*model.Subgraph, error)
	// MergeEntities upserts consolidated entities, tagging each with the
	// source filename. Returns the number of entities merged.
	MergeEntities(ctx context.Context, entities []model.ConsolidatedEntity, sourceFilename string) (int, error)
	// MergeRelationships upserts consolidated relationships. Endpoint types
	// are looked up in entityTypes; relationships with an unknown endpoint
	// are skipped. Returns the number of relationships merged.
	MergeRelationships(ctx context.Context, relationships []model.ConsolidatedRelationship, entityTypes map[string]string, sourceFilename string) (int, error)
	// DeleteDocument removes the relationships tagged with the filename and
	// any of its tagged entities left without connections.
	DeleteDocument(ctx context.Context, filename string) error
	Close(ctx context.Context) error
}

// LLM is the language model collaborator.
type LLM interface {
	// Generate produces the final answer for a query from the assembled
	// context.
	Generate(ctx context.Context, query string, context string) (string, error)
	// ExpandQuery produces up to count alternative phrasings of the query,
	// informed by sampled document context.
	ExpandQuery(ctx context.Context, query string, context string, count int) ([]string, error)
	// ExtractGraph extracts entities and relationships from one text chunk.
	ExtractGraph(ctx context.Context, text string) (*model.ExtractionResult, error)
	// Embed returns the embedding vector for a text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Reranker scores (query, text) pairs with a cross-encoder. Scores are
// comparable only within one call.
type Reranker interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
	Close() error
}

// EmbedFunc produces the embedding vector for a text. Search backends
// without server-side vectorization embed through it on insert and query.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)
