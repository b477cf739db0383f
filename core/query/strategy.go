package query

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/anuj67851/graph-rag-metadata/connector"
	"github.com/anuj67851/graph-rag-metadata/model"
)

// Strategy defines a retrieval strategy for candidate chunks
type Strategy interface {
	Retrieve(ctx context.Context, queries []string, options *model.QueryOptions) ([]*model.SourceChunk, error)
}

// GlobalStrategy retrieves candidates with one ranked search across the
// whole corpus
type GlobalStrategy struct {
	search connector.Search
}

// NewGlobalStrategy creates a new global retrieval strategy
func NewGlobalStrategy(search connector.Search) *GlobalStrategy {
	return &GlobalStrategy{search: search}
}

// Retrieve performs one search over all query phrasings
func (s *GlobalStrategy) Retrieve(ctx context.Context, queries []string, options *model.QueryOptions) ([]*model.SourceChunk, error) {
	return s.search.SearchChunks(ctx, queries, options.TopK, nil)
}

// maxParallelSearches bounds the concurrent searches of the per-document
// fan-out.
const maxParallelSearches = 3

// PerDocumentStrategy retrieves candidates independently per filtered
// document, so one large or highly relevant document cannot crowd out
// evidence from smaller ones
type PerDocumentStrategy struct {
	search connector.Search
	logger *slog.Logger
}

// NewPerDocumentStrategy creates a new per-document retrieval strategy
func NewPerDocumentStrategy(search connector.Search, logger *slog.Logger) *PerDocumentStrategy {
	return &PerDocumentStrategy{
		search: search,
		logger: logger,
	}
}

// Retrieve searches every filtered document on its own, bounded by the
// per-document limit, and merges the results. A failed document search is
// logged and contributes nothing. The merge deduplicates by exact chunk
// text, first occurrence wins, and sorts by score descending.
func (s *PerDocumentStrategy) Retrieve(ctx context.Context, queries []string, options *model.QueryOptions) ([]*model.SourceChunk, error) {
	perDocument := make([][]*model.SourceChunk, len(options.FilterFilenames))
	semaphore := make(chan struct{}, maxParallelSearches)
	var wg sync.WaitGroup

	for i, filename := range options.FilterFilenames {
		wg.Add(1)
		go func(i int, filename string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			chunks, err := s.search.SearchChunks(ctx, queries, options.PerDocumentLimit, []string{filename})
			if err != nil {
				s.logger.Warn("Document search failed",
					slog.String("filename", filename),
					slog.Any("error", err))
				return
			}
			perDocument[i] = chunks
		}(i, filename)
	}
	wg.Wait()

	// Merge in filter order so deduplication stays deterministic regardless
	// of search completion order.
	seen := map[string]bool{}
	merged := []*model.SourceChunk{}
	for _, chunks := range perDocument {
		for _, chunk := range chunks {
			if seen[chunk.ChunkText] {
				continue
			}
			seen[chunk.ChunkText] = true
			merged = append(merged, chunk)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	return merged, nil
}
