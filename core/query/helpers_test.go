package query

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anuj67851/graph-rag-metadata/connector"
	"github.com/anuj67851/graph-rag-metadata/helper"
	"github.com/anuj67851/graph-rag-metadata/model"
)

func chunk(text string, source string, score float64, entityIDs ...string) *model.SourceChunk {
	return &model.SourceChunk{
		ChunkText:      text,
		SourceDocument: source,
		EntityIDs:      entityIDs,
		Score:          score,
		ScoreStage:     model.ScoreStageRetrieval,
	}
}

func newTestService(search connector.Search, graph connector.Graph, llm connector.LLM) *Service {
	return NewService(search, graph, llm, helper.NewTestLogger())
}

type searchCall struct {
	queries []string
	topK    int
	filter  []string
}

type fakeSearch struct {
	mu         sync.Mutex
	calls      []searchCall
	global     []*model.SourceChunk
	byFilename map[string][]*model.SourceChunk
	errFor     map[string]error
	err        error
}

func (f *fakeSearch) SearchChunks(ctx context.Context, queries []string, topK int, filterFilenames []string) ([]*model.SourceChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, searchCall{queries: queries, topK: topK, filter: filterFilenames})

	if f.err != nil {
		return nil, f.err
	}
	if len(filterFilenames) == 1 {
		if err := f.errFor[filterFilenames[0]]; err != nil {
			return nil, err
		}
		return limitChunks(f.byFilename[filterFilenames[0]], topK), nil
	}
	return limitChunks(f.global, topK), nil
}

// limitChunks copies the slice so pipeline sorting cannot reorder the fake's
// scripted data.
func limitChunks(chunks []*model.SourceChunk, topK int) []*model.SourceChunk {
	copied := append([]*model.SourceChunk{}, chunks...)
	if len(copied) > topK {
		copied = copied[:topK]
	}
	return copied
}

func (f *fakeSearch) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSearch) call(i int) searchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func (f *fakeSearch) InsertChunks(ctx context.Context, chunks []*model.SourceChunk) error {
	return nil
}

func (f *fakeSearch) DeleteDocumentChunks(ctx context.Context, filename string) (int, error) {
	return 0, nil
}

func (f *fakeSearch) Ping(ctx context.Context) error { return nil }

func (f *fakeSearch) Close() error { return nil }

type fakeGraph struct {
	neighborhoodCalls int
	lastNames         []string
	lastHops          int
	subgraph          *model.Subgraph
	err               error
}

func (f *fakeGraph) Neighborhood(ctx context.Context, canonicalNames []string, hopDepth int) (*model.Subgraph, error) {
	f.neighborhoodCalls++
	f.lastNames = canonicalNames
	f.lastHops = hopDepth
	if f.err != nil {
		return nil, f.err
	}
	if f.subgraph == nil {
		return model.NewSubgraph(), nil
	}
	return f.subgraph, nil
}

func (f *fakeGraph) ShortestPaths(ctx context.Context, startName string, endName string, maxHops int) (*model.Subgraph, error) {
	return model.NewSubgraph(), nil
}

func (f *fakeGraph) Sample(ctx context.Context, nodeLimit int, edgeLimit int) (*model.Subgraph, error) {
	return model.NewSubgraph(), nil
}

func (f *fakeGraph) BusiestNodes(ctx context.Context, topN int) (*model.Subgraph, error) {
	return model.NewSubgraph(), nil
}

func (f *fakeGraph) MergeEntities(ctx context.Context, entities []model.ConsolidatedEntity, sourceFilename string) (int, error) {
	return 0, nil
}

func (f *fakeGraph) MergeRelationships(ctx context.Context, relationships []model.ConsolidatedRelationship, entityTypes map[string]string, sourceFilename string) (int, error) {
	return 0, nil
}

func (f *fakeGraph) DeleteDocument(ctx context.Context, filename string) error { return nil }

func (f *fakeGraph) Close(ctx context.Context) error { return nil }

type fakeLLM struct {
	generateCalls     int
	lastQuery         string
	lastContext       string
	answer            string
	generateErr       error
	expandCalls       int
	expansions        []string
	expandErr         error
	lastExpandQuery   string
	lastExpandContext string
	lastExpandCount   int
}

func (f *fakeLLM) Generate(ctx context.Context, query string, context string) (string, error) {
	f.generateCalls++
	f.lastQuery = query
	f.lastContext = context
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.answer, nil
}

func (f *fakeLLM) ExpandQuery(ctx context.Context, query string, context string, count int) ([]string, error) {
	f.expandCalls++
	f.lastExpandQuery = query
	f.lastExpandContext = context
	f.lastExpandCount = count
	if f.expandErr != nil {
		return nil, f.expandErr
	}
	return f.expansions, nil
}

func (f *fakeLLM) ExtractGraph(ctx context.Context, text string) (*model.ExtractionResult, error) {
	return &model.ExtractionResult{}, nil
}

func (f *fakeLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

type fakeCache struct {
	store       map[string][]byte
	getCalls    int
	setCalls    int
	deleteCalls int
	lastSetKey  string
	lastTTL     time.Duration
	getErr      error
	setErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string][]byte{}}
}

func (f *fakeCache) Key(query string, filterFilenames []string) string {
	sorted := append([]string{}, filterFilenames...)
	sort.Strings(sorted)
	return "query:" + query + "|" + strings.Join(sorted, ",")
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	value, exists := f.store[key]
	if !exists {
		return nil, nil
	}
	return value, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.lastSetKey = key
	f.lastTTL = ttl
	f.store[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	f.deleteCalls++
	delete(f.store, key)
	return nil
}

func (f *fakeCache) Close() error { return nil }

type fakeReranker struct {
	calls        int
	lastQuery    string
	scoresByText map[string]float64
	mismatch     bool
	err          error
}

func (f *fakeReranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	f.calls++
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	if f.mismatch {
		return make([]float64, len(texts)/2), nil
	}
	scores := make([]float64, len(texts))
	for i, text := range texts {
		scores[i] = f.scoresByText[text]
	}
	return scores, nil
}

func (f *fakeReranker) Close() error { return nil }
