package ingest

import "github.com/anuj67851/graph-rag-metadata/model"

// ChunkFunc is a function that splits document text into chunks
type ChunkFunc func(text string) ([]string, error)

// ExtractFunc extracts entities and relationships from a chunk of text.
// Used as a local fallback when no LLM connector is configured.
type ExtractFunc func(text string) (*model.ExtractionResult, error)
