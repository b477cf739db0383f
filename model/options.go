package model

// QueryOptions represents configuration for a single retrieval run.
type QueryOptions struct {
	// Document filtering
	FilterFilenames []string `json:"filter_filenames,omitempty"` // Restrict retrieval to these source documents

	// Optional stages
	UseQueryExpansion bool `json:"use_query_expansion"`
	UseReranking      bool `json:"use_reranking"`

	// Retrieval parameters
	TopK             int `json:"top_k"`              // Candidate count for a global search
	PerDocumentLimit int `json:"per_document_limit"` // Candidate count per document when filtering
	FinalChunkCount  int `json:"final_chunk_count"`  // Evidence chunks kept after ranking

	// Expansion parameters
	ExpansionQueryCount int `json:"expansion_query_count"`
	PreliminaryTopK     int `json:"preliminary_top_k"`

	// Graph augmentation parameters
	HopDepth int `json:"hop_depth"`
}

// DefaultQueryOptions returns a sensible default configuration
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		FilterFilenames:     nil,
		UseQueryExpansion:   false,
		UseReranking:        false,
		TopK:                15,
		PerDocumentLimit:    3,
		FinalChunkCount:     3,
		ExpansionQueryCount: 3,
		PreliminaryTopK:     3,
		HopDepth:            1,
	}
}
