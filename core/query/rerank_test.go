package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anuj67851/graph-rag-metadata/model"
)

func TestRerank(t *testing.T) {
	ctx := context.Background()

	candidates := func() []*model.SourceChunk {
		return []*model.SourceChunk{
			chunk("alpha builds reactors", "a.pdf", 0.9),
			chunk("alpha has offices", "a.pdf", 0.8),
			chunk("beta sells turbines", "b.pdf", 0.7),
			chunk("gamma files patents", "c.pdf", 0.6),
		}
	}

	t.Run("Cross-encoder reorders and truncates globally", func(t *testing.T) {
		reranker := &fakeReranker{scoresByText: map[string]float64{
			"alpha builds reactors": 0.1,
			"alpha has offices":     0.2,
			"beta sells turbines":   0.9,
			"gamma files patents":   0.8,
		}}
		service := newTestService(&fakeSearch{}, &fakeGraph{}, nil)
		service.SetReranker(reranker)
		options := model.DefaultQueryOptions()
		options.UseReranking = true

		final := service.rerank(ctx, "what does beta sell", candidates(), &options)

		require.Len(t, final, options.FinalChunkCount)
		assert.Equal(t, "beta sells turbines", final[0].ChunkText)
		assert.Equal(t, "gamma files patents", final[1].ChunkText)
		assert.Equal(t, 0.9, final[0].Score, "Expected the cross-encoder score to overwrite the retrieval score")
		for _, c := range final {
			assert.Equal(t, model.ScoreStageReranked, c.ScoreStage)
		}
		assert.Equal(t, "what does beta sell", reranker.lastQuery, "Expected scoring against the original query")
	})

	t.Run("Disabled re-ranking keeps retrieval scores with the same shape", func(t *testing.T) {
		service := newTestService(&fakeSearch{}, &fakeGraph{}, nil)
		options := model.DefaultQueryOptions()

		input := candidates()
		final := service.rerank(ctx, "anything", input, &options)

		require.Len(t, final, options.FinalChunkCount)
		assert.Equal(t, "alpha builds reactors", final[0].ChunkText)
		for _, c := range final {
			assert.Equal(t, model.ScoreStageRetrieval, c.ScoreStage)
		}
	})

	t.Run("Output chunks always come from the input set", func(t *testing.T) {
		reranker := &fakeReranker{scoresByText: map[string]float64{}}
		service := newTestService(&fakeSearch{}, &fakeGraph{}, nil)
		service.SetReranker(reranker)
		options := model.DefaultQueryOptions()
		options.UseReranking = true

		input := candidates()
		inputTexts := map[string]bool{}
		for _, c := range input {
			inputTexts[c.ChunkText] = true
		}

		final := service.rerank(ctx, "anything", input, &options)

		assert.LessOrEqual(t, len(final), options.FinalChunkCount)
		for _, c := range final {
			assert.True(t, inputTexts[c.ChunkText], "Expected no invented chunks")
		}
	})

	t.Run("Re-ranker failure falls back to retrieval scores", func(t *testing.T) {
		reranker := &fakeReranker{err: fmt.Errorf("session closed")}
		service := newTestService(&fakeSearch{}, &fakeGraph{}, nil)
		service.SetReranker(reranker)
		options := model.DefaultQueryOptions()
		options.UseReranking = true

		final := service.rerank(ctx, "anything", candidates(), &options)

		require.Len(t, final, options.FinalChunkCount)
		assert.Equal(t, "alpha builds reactors", final[0].ChunkText, "Expected retrieval order after the fault")
		for _, c := range final {
			assert.Equal(t, model.ScoreStageRetrieval, c.ScoreStage, "Expected no reranked provenance after the fault")
		}
	})

	t.Run("Mismatched score count falls back to retrieval scores", func(t *testing.T) {
		reranker := &fakeReranker{mismatch: true}
		service := newTestService(&fakeSearch{}, &fakeGraph{}, nil)
		service.SetReranker(reranker)
		options := model.DefaultQueryOptions()
		options.UseReranking = true

		final := service.rerank(ctx, "anything", candidates(), &options)

		require.Len(t, final, options.FinalChunkCount)
		assert.Equal(t, "alpha builds reactors", final[0].ChunkText)
		assert.Equal(t, model.ScoreStageRetrieval, final[0].ScoreStage)
	})

	t.Run("Document filter truncates per partition", func(t *testing.T) {
		reranker := &fakeReranker{scoresByText: map[string]float64{
			"alpha one":   0.2,
			"alpha two":   0.9,
			"alpha three": 0.5,
			"beta one":    0.8,
			"beta two":    0.1,
		}}
		service := newTestService(&fakeSearch{}, &fakeGraph{}, nil)
		service.SetReranker(reranker)
		options := model.DefaultQueryOptions()
		options.UseReranking = true
		options.FilterFilenames = []string{"a.pdf", "b.pdf"}
		options.FinalChunkCount = 2

		input := []*model.SourceChunk{
			chunk("alpha one", "a.pdf", 0.9),
			chunk("beta one", "b.pdf", 0.85),
			chunk("alpha two", "a.pdf", 0.8),
			chunk("alpha three", "a.pdf", 0.7),
			chunk("beta two", "b.pdf", 0.6),
		}

		final := service.rerank(ctx, "anything", input, &options)

		require.Len(t, final, 4, "Expected two chunks per document partition")
		assert.Equal(t, "alpha two", final[0].ChunkText, "Expected a.pdf's partition first, reranked")
		assert.Equal(t, "alpha three", final[1].ChunkText)
		assert.Equal(t, "beta one", final[2].ChunkText)
		assert.Equal(t, "beta two", final[3].ChunkText)
	})

	t.Run("Document filter truncates per partition without a re-ranker", func(t *testing.T) {
		service := newTestService(&fakeSearch{}, &fakeGraph{}, nil)
		options := model.DefaultQueryOptions()
		options.FilterFilenames = []string{"a.pdf", "b.pdf"}
		options.FinalChunkCount = 1

		input := []*model.SourceChunk{
			chunk("alpha one", "a.pdf", 0.9),
			chunk("beta one", "b.pdf", 0.85),
			chunk("alpha two", "a.pdf", 0.8),
		}

		final := service.rerank(ctx, "anything", input, &options)

		require.Len(t, final, 2, "Expected one chunk per document")
		assert.Equal(t, "alpha one", final[0].ChunkText)
		assert.Equal(t, "beta one", final[1].ChunkText)
	})

	t.Run("Empty candidates pass through", func(t *testing.T) {
		service := newTestService(&fakeSearch{}, &fakeGraph{}, nil)
		options := model.DefaultQueryOptions()

		final := service.rerank(ctx, "anything", []*model.SourceChunk{}, &options)
		assert.Empty(t, final)
	})
}
