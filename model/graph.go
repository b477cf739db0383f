package model

// GraphNode represents an entity in a subgraph, keyed by its canonical name.
type GraphNode struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Type       string   `json:"type"`
	Properties Metadata `json:"properties,omitempty"`
}

// GraphEdge represents a relationship between two nodes, referencing them by
// canonical name. Edges are deduplicated by (source, label, target).
type GraphEdge struct {
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	Label      string   `json:"label"`
	Properties Metadata `json:"properties,omitempty"`
}

// Subgraph is a bounded graph neighborhood assembled fresh per query.
// It is a response artifact and is never persisted.
type Subgraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// NewSubgraph returns an empty subgraph with non-nil node and edge slices.
func NewSubgraph() *Subgraph {
	return &Subgraph{
		Nodes: []GraphNode{},
		Edges: []GraphEdge{},
	}
}

// IsEmpty checks if the subgraph contains neither nodes nor edges.
func (s *Subgraph) IsEmpty() bool {
	return s == nil || (len(s.Nodes) == 0 && len(s.Edges) == 0)
}

// ContainsNode checks if a node with the given id exists in the subgraph.
func (s *Subgraph) ContainsNode(id string) bool {
	if s == nil {
		return false
	}
	for _, node := range s.Nodes {
		if node.ID == id {
			return true
		}
	}
	return false
}
