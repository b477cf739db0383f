package model

// QueryRequest carries a user query and an optional restriction to a set of
// source documents.
type QueryRequest struct {
	Query           string   `json:"query"`
	FilterFilenames []string `json:"filter_filenames,omitempty"`
}

// QueryResponse is the final answer payload: the generated answer, the
// subgraph used as graph context and the ordered evidence chunks.
// Responses are cached verbatim.
type QueryResponse struct {
	Answer       string         `json:"answer"`
	Subgraph     *Subgraph      `json:"subgraph"`
	SourceChunks []*SourceChunk `json:"source_chunks"`
}

// SearchResponse is the result of a raw chunk search without answer
// generation. Search responses are never cached.
type SearchResponse struct {
	Query  string         `json:"query"`
	Chunks []*SourceChunk `json:"chunks"`
}
