package query

import (
	"fmt"
	"strings"

	"github.com/anuj67851/graph-rag-metadata/model"
)

// assembleContext formats the final chunks and the subgraph into one text
// block for answer generation. An entirely empty context produces the
// explicit no-information marker instead of a blank block.
func assembleContext(chunks []*model.SourceChunk, subgraph *model.Subgraph) string {
	hasGraph := subgraph != nil && !subgraph.IsEmpty()
	if len(chunks) == 0 && !hasGraph {
		return NoInformationAnswer
	}

	parts := []string{}

	if len(chunks) > 0 {
		parts = append(parts, "Retrieved Text Passages:")
		for _, chunk := range chunks {
			parts = append(parts, fmt.Sprintf("- Passage: [Source: %v; Score: %.4f]\n%v",
				chunk.SourceDocument, chunk.Score, chunk.ChunkText))
		}
	}

	if hasGraph {
		if len(parts) > 0 {
			parts = append(parts, "")
		}
		parts = append(parts, "Knowledge Graph Context:")

		if len(subgraph.Nodes) > 0 {
			parts = append(parts, "\nEntities Found:")
			for _, node := range subgraph.Nodes {
				parts = append(parts, nodeLine(node))
			}
		}

		if len(subgraph.Edges) > 0 {
			parts = append(parts, "\nRelationships Found:")
			for _, edge := range subgraph.Edges {
				parts = append(parts, edgeLine(edge))
			}
		}
	}

	return strings.Join(parts, "\n")
}

func nodeLine(node model.GraphNode) string {
	details := []string{
		fmt.Sprintf("Name: %v", node.Label),
		fmt.Sprintf("Type: %v", node.Type),
	}

	mentions := metadataStrings(node.Properties, "original_mentions")
	if len(mentions) > 3 {
		mentions = mentions[:3]
	}
	if len(mentions) > 0 {
		details = append(details, fmt.Sprintf("Aliases: %v", strings.Join(mentions, ", ")))
	}

	if contexts := metadataStrings(node.Properties, "contexts"); len(contexts) > 0 {
		details = append(details, fmt.Sprintf("Context: %v", shortenText(contexts[0], 150)))
	}

	if source, ok := node.Properties["source_document_filename"].(string); ok && source != "" {
		details = append(details, fmt.Sprintf("Source Document: %v", source))
	}

	return fmt.Sprintf("- Node: [%v]", strings.Join(details, "; "))
}

func edgeLine(edge model.GraphEdge) string {
	details := []string{fmt.Sprintf("Type: %v", edge.Label)}

	if contexts := metadataStrings(edge.Properties, "contexts"); len(contexts) > 0 {
		details = append(details, fmt.Sprintf("Context: %v", shortenText(contexts[0], 150)))
	}

	if source, ok := edge.Properties["source_document_filename"].(string); ok && source != "" {
		details = append(details, fmt.Sprintf("Source Document: %v", source))
	}

	return fmt.Sprintf("- Relationship: (%v) -[%v]-> (%v)", edge.Source, strings.Join(details, ", "), edge.Target)
}

// metadataStrings reads a list-valued property as strings, tolerating the
// untyped lists the graph driver returns.
func metadataStrings(properties model.Metadata, key string) []string {
	if properties == nil {
		return nil
	}
	switch value := properties[key].(type) {
	case []string:
		return value
	case []interface{}:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if text, ok := item.(string); ok {
				out = append(out, text)
			}
		}
		return out
	}
	return nil
}

// shortenText truncates to limit runes with an ellipsis marker.
func shortenText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
