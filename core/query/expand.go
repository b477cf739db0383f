package query

import (
	"context"
	"log/slog"
	"strings"

	"github.com/anuj67851/graph-rag-metadata/model"
)

// expandQuery returns the set of search phrasings for a query, the original
// always first. A preliminary search provides corpus context for the
// language model to phrase alternatives against. Every expansion fault
// degrades to the original query alone.
func (s *Service) expandQuery(ctx context.Context, query string, options *model.QueryOptions) []string {
	if !options.UseQueryExpansion || s.llm == nil {
		return []string{query}
	}

	preliminary, err := s.search.SearchChunks(ctx, []string{query}, options.PreliminaryTopK, options.FilterFilenames)
	if err != nil {
		s.logger.Warn("Preliminary search failed, skipping query expansion", slog.Any("error", err))
		return []string{query}
	}
	if len(preliminary) == 0 {
		s.logger.Info("No preliminary context found, skipping query expansion")
		return []string{query}
	}

	texts := make([]string, 0, len(preliminary))
	for _, chunk := range preliminary {
		texts = append(texts, chunk.ChunkText)
	}

	expanded, err := s.llm.ExpandQuery(ctx, query, strings.Join(texts, "\n\n"), options.ExpansionQueryCount)
	if err != nil {
		s.logger.Warn("Query expansion failed", slog.Any("error", err))
		return []string{query}
	}

	queries := []string{query}
	seen := map[string]bool{query: true}
	for _, phrasing := range expanded {
		if strings.TrimSpace(phrasing) == "" || seen[phrasing] {
			continue
		}
		seen[phrasing] = true
		queries = append(queries, phrasing)
	}
	return queries
}
