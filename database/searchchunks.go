package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/anuj67851/graph-rag-metadata/helper"
	"github.com/anuj67851/graph-rag-metadata/model"
	loadSql "github.com/anuj67851/graph-rag-metadata/sql"
)

// SearchChunksDBHandlerFunctions defines the interface for search chunk database operations.
type SearchChunksDBHandlerFunctions interface {
	InsertChunk(chunk *model.SourceChunk, embedding []float32) (int, error)
	SelectChunksBySimilarity(embedding []float32, limit int, filterFilenames []string) ([]*model.SourceChunk, error)
	SelectChunksByHybrid(embedding []float32, queryText string, limit int, filterFilenames []string) ([]*model.SourceChunk, error)
	DeleteChunksByDocument(sourceDocument string) (int, error)
	CountChunks() (int64, error)
}

// SearchChunksDBHandler handles embedded chunk database operations
type SearchChunksDBHandler struct {
	db *helper.Database
}

// NewSearchChunksDBHandler creates a new search chunks database handler.
// It initializes the database connection and loads chunk-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewSearchChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*SearchChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	searchChunksDbHandler := &SearchChunksDBHandler{
		db: db,
	}

	err := loadSql.LoadSearchChunksSql(searchChunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load search chunks sql", err)
	}

	err = searchChunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized SearchChunksDBHandler")

	return searchChunksDbHandler, nil
}

// CreateTable creates the 'search_chunks' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary extensions and indexes.
func (h *SearchChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_search_chunks($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing search_chunks table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table search_chunks")

	return nil
}

// InsertChunk upserts a chunk with its embedding.
// Re-inserting the same chunk text for the same document updates the stored
// embedding and entity IDs in place.
func (h *SearchChunksDBHandler) InsertChunk(chunk *model.SourceChunk, embedding []float32) (int, error) {
	embeddingVector := pgvector.NewVector(embedding)

	entityIDs := chunk.EntityIDs
	if entityIDs == nil {
		entityIDs = []string{}
	}

	var id int
	err := h.db.Instance.QueryRow(
		`SELECT insert_search_chunk($1, $2, $3, $4)`,
		chunk.ChunkText,
		chunk.SourceDocument,
		pq.Array(entityIDs),
		embeddingVector,
	).Scan(&id)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return id, nil
}

// SelectChunksBySimilarity performs cosine similarity search over stored chunks.
// If filterFilenames is nil or empty, searches across all documents.
func (h *SearchChunksDBHandler) SelectChunksBySimilarity(embedding []float32, limit int, filterFilenames []string) ([]*model.SourceChunk, error) {
	embeddingVector := pgvector.NewVector(embedding)

	// Convert filterFilenames to PostgreSQL TEXT array format
	var filterFilenamesParam interface{}
	if len(filterFilenames) > 0 {
		filterFilenamesParam = pq.Array(filterFilenames)
	} else {
		filterFilenamesParam = nil
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_search_chunks_by_similarity($1, $2, $3)`,
		embeddingVector,
		limit,
		filterFilenamesParam,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.SourceChunk
	for rows.Next() {
		chunk := &model.SourceChunk{}
		err := rows.Scan(
			&chunk.ChunkText,
			&chunk.SourceDocument,
			pq.Array(&chunk.EntityIDs),
			&chunk.Score,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunk.ScoreStage = model.ScoreStageRetrieval
		results = append(results, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// SelectChunksByHybrid performs cosine similarity search with a lexical
// boost from full-text rank against the query text.
// If filterFilenames is nil or empty, searches across all documents.
func (h *SearchChunksDBHandler) SelectChunksByHybrid(embedding []float32, queryText string, limit int, filterFilenames []string) ([]*model.SourceChunk, error) {
	embeddingVector := pgvector.NewVector(embedding)

	// Convert filterFilenames to PostgreSQL TEXT array format
	var filterFilenamesParam interface{}
	if len(filterFilenames) > 0 {
		filterFilenamesParam = pq.Array(filterFilenames)
	} else {
		filterFilenamesParam = nil
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_search_chunks_by_hybrid($1, $2, $3, $4)`,
		embeddingVector,
		queryText,
		limit,
		filterFilenamesParam,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.SourceChunk
	for rows.Next() {
		chunk := &model.SourceChunk{}
		err := rows.Scan(
			&chunk.ChunkText,
			&chunk.SourceDocument,
			pq.Array(&chunk.EntityIDs),
			&chunk.Score,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunk.ScoreStage = model.ScoreStageRetrieval
		results = append(results, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// DeleteChunksByDocument deletes all chunks of a source document.
// Returns the number of deleted chunks.
func (h *SearchChunksDBHandler) DeleteChunksByDocument(sourceDocument string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_search_chunks_by_document($1)`,
		sourceDocument,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return deleted, nil
}

// CountChunks returns the total number of stored chunks
func (h *SearchChunksDBHandler) CountChunks() (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(
		`SELECT count_search_chunks()`,
	).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return count, nil
}
