package model

// ConsolidatedEntity aggregates every extraction of one entity across all
// chunks of a document. The entity type of the first extraction wins;
// mentions and contexts are set unions.
type ConsolidatedEntity struct {
	CanonicalName    string   `json:"canonical_name"`
	EntityType       string   `json:"entity_type"`
	OriginalMentions []string `json:"original_mentions"`
	Contexts         []string `json:"contexts"`
}

// ConsolidatedRelationship aggregates every extraction of one relationship,
// identified by (source, type, target), across all chunks of a document.
type ConsolidatedRelationship struct {
	SourceCanonicalName string   `json:"source_canonical_name"`
	RelationshipType    string   `json:"relationship_type"`
	TargetCanonicalName string   `json:"target_canonical_name"`
	Contexts            []string `json:"contexts"`
}

// RelationshipKey identifies a relationship for consolidation.
type RelationshipKey struct {
	Source string
	Type   string
	Target string
}
