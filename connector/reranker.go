package connector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/anuj67851/graph-rag-metadata/helper"
)

// HugotReranker scores query and passage pairs with a local cross encoder
// model. The model sees both texts at once, so its relevance scores are
// sharper than the retrieval similarity they replace.
type HugotReranker struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	logger   *slog.Logger
}

// NewHugotReranker downloads the cross encoder model if needed and loads it
// into a local inference session.
func NewHugotReranker(modelName string, logger *slog.Logger) (*HugotReranker, error) {
	modelPath, err := helper.PrepareModel(modelName, "")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "reranker-pipeline",
		Options: []hugot.TextClassificationOption{
			pipelines.WithSigmoid(),
		},
	}
	rerankPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create reranker pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create reranker pipeline: %w", err)
	}

	logger.Info("Loaded reranker model", slog.String("model", modelName))
	return &HugotReranker{
		session:  session,
		pipeline: rerankPipeline,
		logger:   logger,
	}, nil
}

// Score returns one relevance score per text for the given query, in input
// order. The pair encoding feeds query and passage through the model
// together.
func (r *HugotReranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return []float64{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := r.pipeline.RunPipeline(rerankPairs(query, texts))
	if err != nil {
		return nil, fmt.Errorf("failed to run reranker: %w", err)
	}
	if len(result.ClassificationOutputs) != len(texts) {
		return nil, fmt.Errorf("reranker returned %d outputs for %d texts", len(result.ClassificationOutputs), len(texts))
	}

	scores := make([]float64, len(texts))
	for i, outputs := range result.ClassificationOutputs {
		if len(outputs) == 0 {
			continue
		}
		scores[i] = float64(outputs[0].Score)
	}
	return scores, nil
}

// Close releases the inference session.
func (r *HugotReranker) Close() error {
	return r.session.Destroy()
}

// rerankPairs encodes each query and passage pair into the single sequence
// form cross encoder models are trained on.
func rerankPairs(query string, texts []string) []string {
	pairs := make([]string, len(texts))
	for i, text := range texts {
		pairs[i] = query + " [SEP] " + text
	}
	return pairs
}
