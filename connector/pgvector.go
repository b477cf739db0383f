package connector

import (
	"context"
	"errors"
	"log/slog"

	"github.com/anuj67851/graph-rag-metadata/database"
	"github.com/anuj67851/graph-rag-metadata/helper"
	"github.com/anuj67851/graph-rag-metadata/model"
)

// PgVectorSearch serves chunk search from the PostgreSQL pgvector store.
// Embeddings are computed client side through the embedder, so the store
// itself stays a plain vector table.
type PgVectorSearch struct {
	db      *helper.Database
	handler *database.SearchChunksDBHandler
	embed   EmbedFunc
	logger  *slog.Logger
}

func NewPgVectorSearch(db *helper.Database, handler *database.SearchChunksDBHandler, embed EmbedFunc, logger *slog.Logger) *PgVectorSearch {
	return &PgVectorSearch{
		db:      db,
		handler: handler,
		embed:   embed,
		logger:  logger,
	}
}

// SearchChunks embeds the query phrasings, averages them and runs a hybrid
// search over the chunk table. The first phrasing carries the lexical part,
// the fused embedding the semantic part.
func (s *PgVectorSearch) SearchChunks(ctx context.Context, queries []string, topK int, filterFilenames []string) ([]*model.SourceChunk, error) {
	if len(queries) == 0 {
		return []*model.SourceChunk{}, nil
	}

	probe, err := fuseQueryEmbeddings(ctx, s.embed, s.logger, queries)
	if err != nil {
		return nil, err
	}

	chunks, err := s.handler.SelectChunksByHybrid(probe, queries[0], topK, filterFilenames)
	if err != nil {
		return nil, err
	}
	if chunks == nil {
		chunks = []*model.SourceChunk{}
	}
	return chunks, nil
}

// InsertChunks embeds and stores the chunks. A chunk whose embedding fails
// is skipped so the rest of the batch still lands.
func (s *PgVectorSearch) InsertChunks(ctx context.Context, chunks []*model.SourceChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	inserted := 0
	for _, chunk := range chunks {
		vector, err := s.embed(ctx, chunk.ChunkText)
		if err != nil {
			s.logger.Warn("Skipping chunk that could not be embedded",
				slog.String("sourceDocument", chunk.SourceDocument),
				slog.Any("error", err))
			continue
		}

		_, err = s.handler.InsertChunk(chunk, vector)
		if err != nil {
			return err
		}
		inserted++
	}
	if inserted == 0 {
		return errors.New("no chunk in the batch could be embedded")
	}
	s.logger.Info("Stored chunks", slog.Int("inserted", inserted))

	return nil
}

// DeleteDocumentChunks removes all chunks of the document from the store.
func (s *PgVectorSearch) DeleteDocumentChunks(ctx context.Context, filename string) (int, error) {
	return s.handler.DeleteChunksByDocument(filename)
}

// Ping checks the database connection.
func (s *PgVectorSearch) Ping(ctx context.Context) error {
	return s.db.Instance.PingContext(ctx)
}

// Close is a no-op, the database connection is owned by the caller and
// shared with the file metadata handler.
func (s *PgVectorSearch) Close() error {
	return nil
}
