package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNERExtractor(t *testing.T) {
	// Note: NERExtractor uses hugot which requires downloading models
	// This test will download the distilbert-NER model if not already present
	t.Run("Create extractor", func(t *testing.T) {
		extract, err := NERExtractor()
		require.NoError(t, err)
		assert.NotNil(t, extract)
	})

	t.Run("Extract entities from text", func(t *testing.T) {
		extract, err := NERExtractor()
		require.NoError(t, err)

		text := "My name is Wolfgang and I live in Berlin."
		result, err := extract(text)
		assert.NoError(t, err)
		require.NotNil(t, result)

		// Should detect at least Wolfgang (PERSON) and Berlin (LOCATION)
		if len(result.Entities) > 0 {
			t.Logf("Detected %d entities:", len(result.Entities))
			for _, entity := range result.Entities {
				t.Logf("  - %s (%s)", entity.CanonicalName, entity.EntityType)
				assert.Equal(t, entity.CanonicalName, entity.OriginalMention, "Expected mention and canonical name to match for NER output")
				assert.Equal(t, []string{text}, entity.Contexts, "Expected the chunk text as context")
			}
		}
	})

	t.Run("Handle empty text", func(t *testing.T) {
		extract, err := NERExtractor()
		require.NoError(t, err)

		result, err := extract("")
		assert.NoError(t, err)
		require.NotNil(t, result)
		assert.Empty(t, result.Entities)
		assert.Empty(t, result.Relationships)
	})

	t.Run("Handle text without entities", func(t *testing.T) {
		extract, err := NERExtractor()
		require.NoError(t, err)

		result, err := extract("This is a simple sentence without any named entities.")
		assert.NoError(t, err)
		require.NotNil(t, result)
		t.Logf("Detected %d entities (expected 0 or few)", len(result.Entities))
		assert.Empty(t, result.Relationships, "Expected no relationships from token classification")
	})
}

func TestNerEntityType(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"B-PER", "PERSON"},
		{"I-PER", "PERSON"},
		{"B-ORG", "ORGANIZATION"},
		{"I-ORG", "ORGANIZATION"},
		{"B-LOC", "LOCATION"},
		{"I-LOC", "LOCATION"},
		{"B-MISC", "CONCEPT"},
		{"MISC", "CONCEPT"},
		{"UNKNOWN", "CONCEPT"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := nerEntityType(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNormalizeEntityType(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"B-PER", "PER"},
		{"I-PER", "PER"},
		{"B-LOC", "LOC"},
		{"I-LOC", "LOC"},
		{"B-ORG", "ORG"},
		{"I-ORG", "ORG"},
		{"MISC", "MISC"},
		{"O", "O"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := normalizeEntityType(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
