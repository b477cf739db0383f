package query

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/anuj67851/graph-rag-metadata/connector"
	"github.com/anuj67851/graph-rag-metadata/model"
)

// ErrEmptyQuery rejects a blank query before the pipeline runs. It is the
// only input condition that fails a query outright.
var ErrEmptyQuery = errors.New("query must not be empty")

const (
	// NoInformationAnswer is the terminal answer when retrieval produces no
	// candidate chunks. It doubles as the marker for an empty generation
	// context.
	NoInformationAnswer = "No relevant information found in the knowledge graph for this query."

	// FallbackAnswer replaces the answer when generation fails or returns
	// nothing.
	FallbackAnswer = "I encountered an issue while trying to formulate a response based on the available information."

	// cacheTTL is the fixed expiration of cached query responses.
	cacheTTL = time.Hour
)

// Service orchestrates the retrieval pipeline: cache check, optional query
// expansion, strategy selection, optional re-ranking, graph augmentation and
// answer generation. Collaborator faults degrade stage by stage instead of
// failing the query.
type Service struct {
	search   connector.Search
	graph    connector.Graph
	llm      connector.LLM
	cache    connector.Cache
	reranker connector.Reranker
	logger   *slog.Logger
}

// NewService creates a new query service
func NewService(search connector.Search, graph connector.Graph, llm connector.LLM, logger *slog.Logger) *Service {
	return &Service{
		search: search,
		graph:  graph,
		llm:    llm,
		logger: logger,
	}
}

// SetCache adds a response cache to the pipeline.
func (s *Service) SetCache(cache connector.Cache) {
	s.cache = cache
}

// SetReranker adds a cross-encoder re-ranker to the pipeline.
func (s *Service) SetReranker(reranker connector.Reranker) {
	s.reranker = reranker
}

// Query answers a question through the full pipeline. Responses are cached
// under the (query, sorted filter) key, terminal and degraded answers
// included. A nil options value uses the defaults.
func (s *Service) Query(ctx context.Context, queryText string, options *model.QueryOptions) (*model.QueryResponse, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, ErrEmptyQuery
	}
	options = normalizeOptions(options)

	cacheKey := ""
	if s.cache != nil {
		cacheKey = s.cache.Key(queryText, options.FilterFilenames)
		if cached := s.cacheLookup(ctx, cacheKey); cached != nil {
			s.logger.Info("Answered query from cache", slog.String("key", cacheKey))
			return cached, nil
		}
	}

	queries := s.expandQuery(ctx, queryText, options)
	candidates := s.retrieve(ctx, queries, options)
	if len(candidates) == 0 {
		response := &model.QueryResponse{
			Answer:       NoInformationAnswer,
			Subgraph:     model.NewSubgraph(),
			SourceChunks: []*model.SourceChunk{},
		}
		s.cacheStore(ctx, cacheKey, response)
		return response, nil
	}

	final := s.rerank(ctx, queryText, candidates, options)
	subgraph := s.augment(ctx, final, options)
	answer := s.generate(ctx, queryText, final, subgraph)

	response := &model.QueryResponse{
		Answer:       answer,
		Subgraph:     subgraph,
		SourceChunks: final,
	}
	s.cacheStore(ctx, cacheKey, response)

	s.logger.Info("Answered query",
		slog.Int("chunks", len(final)),
		slog.Int("nodes", len(subgraph.Nodes)),
		slog.Int("edges", len(subgraph.Edges)))

	return response, nil
}

// Search returns ranked evidence chunks without graph augmentation, answer
// generation or caching.
func (s *Service) Search(ctx context.Context, queryText string, options *model.QueryOptions) (*model.SearchResponse, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, ErrEmptyQuery
	}
	options = normalizeOptions(options)

	queries := s.expandQuery(ctx, queryText, options)
	candidates := s.retrieve(ctx, queries, options)
	final := s.rerank(ctx, queryText, candidates, options)
	if final == nil {
		final = []*model.SourceChunk{}
	}

	return &model.SearchResponse{
		Query:  queryText,
		Chunks: final,
	}, nil
}

// retrieve selects the strategy from the document filter and degrades a
// failed retrieval to an empty candidate set.
func (s *Service) retrieve(ctx context.Context, queries []string, options *model.QueryOptions) []*model.SourceChunk {
	var strategy Strategy
	if len(options.FilterFilenames) > 0 {
		strategy = NewPerDocumentStrategy(s.search, s.logger)
	} else {
		strategy = NewGlobalStrategy(s.search)
	}

	candidates, err := strategy.Retrieve(ctx, queries, options)
	if err != nil {
		s.logger.Warn("Retrieval failed", slog.Any("error", err))
		return nil
	}
	return candidates
}

// generate synthesizes the final answer from the assembled context. Failures
// and empty generations degrade to the fixed fallback answer.
func (s *Service) generate(ctx context.Context, query string, chunks []*model.SourceChunk, subgraph *model.Subgraph) string {
	if s.llm == nil {
		s.logger.Warn("No language model configured, returning fallback answer")
		return FallbackAnswer
	}

	answer, err := s.llm.Generate(ctx, query, assembleContext(chunks, subgraph))
	if err != nil {
		s.logger.Warn("Answer generation failed", slog.Any("error", err))
		return FallbackAnswer
	}
	if strings.TrimSpace(answer) == "" {
		return FallbackAnswer
	}
	return answer
}

func (s *Service) cacheLookup(ctx context.Context, key string) *model.QueryResponse {
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Cache read failed", slog.Any("error", err))
		return nil
	}
	if value == nil {
		return nil
	}

	response := &model.QueryResponse{}
	err = json.Unmarshal(value, response)
	if err != nil {
		s.logger.Warn("Dropping corrupt cache entry", slog.String("key", key), slog.Any("error", err))
		if deleteErr := s.cache.Delete(ctx, key); deleteErr != nil {
			s.logger.Warn("Could not delete corrupt cache entry", slog.Any("error", deleteErr))
		}
		return nil
	}
	return response
}

func (s *Service) cacheStore(ctx context.Context, key string, response *model.QueryResponse) {
	if s.cache == nil || key == "" {
		return
	}

	value, err := json.Marshal(response)
	if err != nil {
		s.logger.Warn("Could not serialize response for caching", slog.Any("error", err))
		return
	}

	err = s.cache.Set(ctx, key, value, cacheTTL)
	if err != nil {
		s.logger.Warn("Cache write failed", slog.Any("error", err))
	}
}

func normalizeOptions(options *model.QueryOptions) *model.QueryOptions {
	if options == nil {
		defaults := model.DefaultQueryOptions()
		return &defaults
	}
	return options
}
