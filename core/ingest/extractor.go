package ingest

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/anuj67851/graph-rag-metadata/helper"
	"github.com/anuj67851/graph-rag-metadata/model"
)

// NERExtractor creates a local fallback extractor using a NER model.
// Uses distilbert-NER for named entity recognition.
// Detects PERSON, ORGANIZATION and LOCATION entities; MISC maps to CONCEPT.
// NER finds no relationships, so the graph stays entity-only on this path.
func NERExtractor() (ExtractFunc, error) {
	// Prepare model (download if needed)
	// Using KnightsAnalytics optimized distilbert-NER model
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	// Create token classification pipeline for NER
	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-extractor-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}), // Ignore non-entity tokens
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(text string) (*model.ExtractionResult, error) {
		// Run NER on the text
		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}

		extraction := &model.ExtractionResult{}
		if len(result.Entities) == 0 {
			return extraction, nil
		}

		seen := map[string]bool{}
		for _, entity := range result.Entities[0] {
			name := strings.TrimSpace(entity.Word)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true

			extraction.Entities = append(extraction.Entities, model.ExtractedEntity{
				OriginalMention: name,
				EntityType:      nerEntityType(entity.Entity),
				CanonicalName:   name,
				Contexts:        []string{text},
			})
		}

		return extraction, nil
	}, nil
}

// nerEntityType maps NER labels to the schema's entity types
func nerEntityType(label string) string {
	switch normalizeEntityType(label) {
	case "PER":
		return "PERSON"
	case "ORG":
		return "ORGANIZATION"
	case "LOC":
		return "LOCATION"
	case "MISC":
		return "CONCEPT"
	default:
		return "CONCEPT"
	}
}

// normalizeEntityType removes B- and I- prefixes from NER labels
func normalizeEntityType(label string) string {
	// Remove BIO tagging prefixes (B- for beginning, I- for inside)
	if strings.HasPrefix(label, "B-") {
		return label[2:]
	}
	if strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}
