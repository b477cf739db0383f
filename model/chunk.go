package model

// ScoreStage marks which pipeline stage produced a chunk's score. Scores from
// different stages use different scales and must not be compared.
type ScoreStage string

const (
	ScoreStageRetrieval ScoreStage = "retrieval"
	ScoreStageReranked  ScoreStage = "reranked"
)

// SourceChunk is a unit of retrieved text evidence. Chunk identity for
// deduplication is the exact chunk text.
type SourceChunk struct {
	ChunkText      string     `json:"chunk_text"`
	SourceDocument string     `json:"source_document"`
	EntityIDs      []string   `json:"entity_ids,omitempty"`
	Score          float64    `json:"score"`
	ScoreStage     ScoreStage `json:"score_stage,omitempty"`
}
