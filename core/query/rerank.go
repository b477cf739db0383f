package query

import (
	"context"
	"log/slog"
	"sort"

	"github.com/anuj67851/graph-rag-metadata/model"
)

// rerank scores the candidates against the original query and truncates them
// to the final evidence set. Re-ranking always scores against the literal
// user query, never the expanded phrasings. With a document filter active,
// candidates are truncated per document partition instead of globally, which
// keeps the per-document retrieval guarantee intact. A disabled or failed
// re-ranker falls back to the retrieval scores with the same output shape.
func (s *Service) rerank(ctx context.Context, query string, candidates []*model.SourceChunk, options *model.QueryOptions) []*model.SourceChunk {
	if len(candidates) == 0 {
		return candidates
	}

	if options.UseReranking && s.reranker != nil {
		texts := make([]string, 0, len(candidates))
		for _, chunk := range candidates {
			texts = append(texts, chunk.ChunkText)
		}

		scores, err := s.reranker.Score(ctx, query, texts)
		switch {
		case err != nil:
			s.logger.Warn("Re-ranking failed, keeping retrieval scores", slog.Any("error", err))
		case len(scores) != len(candidates):
			s.logger.Warn("Re-ranker returned a mismatched score count, keeping retrieval scores",
				slog.Int("scores", len(scores)),
				slog.Int("candidates", len(candidates)))
		default:
			for i, chunk := range candidates {
				chunk.Score = scores[i]
				chunk.ScoreStage = model.ScoreStageReranked
			}
		}
	}

	if len(options.FilterFilenames) > 0 {
		return truncatePerDocument(candidates, options.FinalChunkCount)
	}
	return truncateTop(candidates, options.FinalChunkCount)
}

// truncateTop sorts chunks by score descending and keeps the top limit.
func truncateTop(chunks []*model.SourceChunk, limit int) []*model.SourceChunk {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks
}

// truncatePerDocument partitions chunks by source document in first
// appearance order, truncates each partition to the top limit and
// concatenates the partitions.
func truncatePerDocument(chunks []*model.SourceChunk, limit int) []*model.SourceChunk {
	order := []string{}
	partitions := map[string][]*model.SourceChunk{}
	for _, chunk := range chunks {
		if _, exists := partitions[chunk.SourceDocument]; !exists {
			order = append(order, chunk.SourceDocument)
		}
		partitions[chunk.SourceDocument] = append(partitions[chunk.SourceDocument], chunk)
	}

	result := make([]*model.SourceChunk, 0, len(chunks))
	for _, source := range order {
		result = append(result, truncateTop(partitions[source], limit)...)
	}
	return result
}
