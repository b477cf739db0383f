package query

import (
	"context"
	"log/slog"
	"sort"

	"github.com/anuj67851/graph-rag-metadata/model"
)

// augment fetches the bounded-hop neighborhood around every entity the final
// chunk list references. Chunks without entity linkage produce an empty
// subgraph without a graph call. A graph fault degrades to an empty
// subgraph.
func (s *Service) augment(ctx context.Context, chunks []*model.SourceChunk, options *model.QueryOptions) *model.Subgraph {
	names := entityUnion(chunks)
	if len(names) == 0 {
		return model.NewSubgraph()
	}

	subgraph, err := s.graph.Neighborhood(ctx, names, options.HopDepth)
	if err != nil {
		s.logger.Warn("Graph augmentation failed", slog.Any("error", err))
		return model.NewSubgraph()
	}
	if subgraph == nil {
		return model.NewSubgraph()
	}
	return subgraph
}

// entityUnion collects the sorted set of entity IDs referenced across the
// given chunks.
func entityUnion(chunks []*model.SourceChunk) []string {
	seen := map[string]bool{}
	for _, chunk := range chunks {
		for _, id := range chunk.EntityIDs {
			if id != "" {
				seen[id] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
