package model

// ExtractedEntity is a single entity found in one text chunk.
type ExtractedEntity struct {
	OriginalMention string   `json:"original_mention"`
	EntityType      string   `json:"entity_type"`
	CanonicalName   string   `json:"canonical_name"`
	Contexts        []string `json:"contexts,omitempty"`
}

// ExtractedRelationship is a single relationship found in one text chunk,
// referencing its endpoints by canonical name.
type ExtractedRelationship struct {
	SourceCanonicalName string   `json:"source_canonical_name"`
	RelationshipType    string   `json:"relationship_type"`
	TargetCanonicalName string   `json:"target_canonical_name"`
	Contexts            []string `json:"contexts,omitempty"`
}

// ExtractionResult is the structured output of graph extraction over one
// chunk of text.
type ExtractionResult struct {
	Entities      []ExtractedEntity       `json:"entities"`
	Relationships []ExtractedRelationship `json:"relationships"`
}
