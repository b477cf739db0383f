package connector

import (
	"context"
	"errors"
	"log/slog"

	"github.com/anuj67851/graph-rag-metadata/core/vectorindex"
	"github.com/anuj67851/graph-rag-metadata/model"
)

// LocalSearch serves chunk search from the in-process vector index, with no
// external services beyond the embedder. Multiple query phrasings are fused
// by averaging their embeddings into a single probe vector.
type LocalSearch struct {
	index  *vectorindex.Index
	embed  EmbedFunc
	logger *slog.Logger
}

func NewLocalSearch(index *vectorindex.Index, embed EmbedFunc, logger *slog.Logger) *LocalSearch {
	return &LocalSearch{
		index:  index,
		embed:  embed,
		logger: logger,
	}
}

// SearchChunks embeds the query phrasings, averages them and probes the
// index. With a document filter the whole index is scored first and the
// filter applied before truncating to topK.
func (s *LocalSearch) SearchChunks(ctx context.Context, queries []string, topK int, filterFilenames []string) ([]*model.SourceChunk, error) {
	if len(queries) == 0 {
		return []*model.SourceChunk{}, nil
	}

	probe, err := fuseQueryEmbeddings(ctx, s.embed, s.logger, queries)
	if err != nil {
		return nil, err
	}

	searchK := topK
	if len(filterFilenames) > 0 && s.index.Size() > searchK {
		searchK = s.index.Size()
	}

	results, err := s.index.Search(probe, searchK)
	if err != nil {
		return nil, err
	}

	allowed := map[string]bool{}
	for _, filename := range filterFilenames {
		allowed[filename] = true
	}

	chunks := make([]*model.SourceChunk, 0, topK)
	for _, result := range results {
		if len(allowed) > 0 && !allowed[result.Metadata.SourceDocument] {
			continue
		}
		chunks = append(chunks, &model.SourceChunk{
			ChunkText:      result.Metadata.ChunkText,
			SourceDocument: result.Metadata.SourceDocument,
			EntityIDs:      result.Metadata.EntityIDs,
			Score:          result.Score,
			ScoreStage:     model.ScoreStageRetrieval,
		})
		if len(chunks) >= topK {
			break
		}
	}
	return chunks, nil
}

// InsertChunks embeds and stores the chunks. A chunk whose embedding fails
// is skipped so the rest of the batch still lands.
func (s *LocalSearch) InsertChunks(ctx context.Context, chunks []*model.SourceChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	vectors := make([][]float32, 0, len(chunks))
	metadata := make([]vectorindex.Metadata, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := s.embed(ctx, chunk.ChunkText)
		if err != nil {
			s.logger.Warn("Skipping chunk that could not be embedded",
				slog.String("sourceDocument", chunk.SourceDocument),
				slog.Any("error", err))
			continue
		}

		entityIDs := chunk.EntityIDs
		if entityIDs == nil {
			entityIDs = []string{}
		}
		vectors = append(vectors, vector)
		metadata = append(metadata, vectorindex.Metadata{
			ChunkText:      chunk.ChunkText,
			SourceDocument: chunk.SourceDocument,
			EntityIDs:      entityIDs,
		})
	}
	if len(vectors) == 0 {
		return errors.New("no chunk in the batch could be embedded")
	}

	added, err := s.index.AddBatch(vectors, metadata)
	if err != nil {
		return err
	}
	s.logger.Info("Indexed chunks", slog.Int("added", added), slog.Int("total", s.index.Size()))

	return s.index.Save()
}

// DeleteDocumentChunks removes all chunks of the document from the index.
func (s *LocalSearch) DeleteDocumentChunks(ctx context.Context, filename string) (int, error) {
	removed := s.index.RemoveDocument(filename)
	if removed > 0 {
		err := s.index.Save()
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Ping always succeeds, the index lives in process.
func (s *LocalSearch) Ping(ctx context.Context) error {
	return nil
}

// Close persists the index.
func (s *LocalSearch) Close() error {
	return s.index.Save()
}

// fuseQueryEmbeddings averages the embeddings of all query phrasings into a
// single probe vector. Phrasings that fail to embed are dropped; at least one
// must survive.
func fuseQueryEmbeddings(ctx context.Context, embed EmbedFunc, logger *slog.Logger, queries []string) ([]float32, error) {
	embeddings := make([][]float32, 0, len(queries))
	for _, query := range queries {
		vector, err := embed(ctx, query)
		if err != nil {
			logger.Warn("Could not embed query phrasing", slog.Any("error", err))
			continue
		}
		if len(embeddings) > 0 && len(vector) != len(embeddings[0]) {
			logger.Warn("Dropping query embedding with inconsistent dimension", slog.Int("dimension", len(vector)))
			continue
		}
		embeddings = append(embeddings, vector)
	}
	if len(embeddings) == 0 {
		return nil, errors.New("no query phrasing could be embedded")
	}

	fused := make([]float32, len(embeddings[0]))
	for _, embedding := range embeddings {
		for i := range fused {
			fused[i] += embedding[i]
		}
	}
	for i := range fused {
		fused[i] /= float32(len(embeddings))
	}
	return fused, nil
}
