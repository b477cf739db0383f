package connector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/anuj67851/graph-rag-metadata/helper"
	"github.com/anuj67851/graph-rag-metadata/model"
)

// Neo4jGraph stores and queries the knowledge graph. Entities are nodes
// labeled with their entity type and keyed by canonical_name; relationships
// carry their type as the relationship label. Both are tagged with the
// source document filename they came from.
type Neo4jGraph struct {
	driver      neo4j.DriverWithContext
	entityTypes []string
	logger      *slog.Logger
}

// NewNeo4jGraph connects to Neo4j, verifies connectivity and ensures the
// per-entity-type uniqueness constraints on canonical_name.
func NewNeo4jGraph(ctx context.Context, uri string, username string, password string, entityTypes []string, logger *slog.Logger) (*Neo4jGraph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, helper.NewError("neo4j driver", err)
	}

	err = driver.VerifyConnectivity(ctx)
	if err != nil {
		return nil, helper.NewError("neo4j connectivity", err)
	}

	graph := &Neo4jGraph{
		driver:      driver,
		entityTypes: entityTypes,
		logger:      logger,
	}
	graph.ensureConstraints(ctx)

	logger.Info("Connected to Neo4j", slog.String("uri", uri))
	return graph, nil
}

// ensureConstraints creates one uniqueness constraint per known entity type.
// Failures are logged and skipped so an unsupported server version does not
// block startup.
func (g *Neo4jGraph) ensureConstraints(ctx context.Context) {
	for _, entityType := range g.entityTypes {
		label := sanitizeLabel(entityType, "Entity")
		query := fmt.Sprintf(
			"CREATE CONSTRAINT constraint_unique_%s_canonical_name IF NOT EXISTS FOR (n:%s) REQUIRE n.canonical_name IS UNIQUE",
			strings.ToLower(label), label,
		)
		_, err := g.run(ctx, query, nil)
		if err != nil {
			g.logger.Error("Failed to ensure constraint", slog.String("entityType", entityType), slog.Any("error", err))
		}
	}
}

// MergeEntities upserts the consolidated entities, each tagged with the
// source filename. A failed merge is logged and skipped.
func (g *Neo4jGraph) MergeEntities(ctx context.Context, entities []model.ConsolidatedEntity, sourceFilename string) (int, error) {
	merged := 0
	for _, entity := range entities {
		label := sanitizeLabel(entity.EntityType, "Entity")
		query := fmt.Sprintf(
			"MERGE (n:%s {canonical_name: $canonical_name}) ON CREATE SET n = $props ON MATCH SET n += $props",
			label,
		)
		params := map[string]any{
			"canonical_name": entity.CanonicalName,
			"props": map[string]any{
				"canonical_name":           entity.CanonicalName,
				"original_mentions":        entity.OriginalMentions,
				"contexts":                 entity.Contexts,
				"source_document_filename": sourceFilename,
			},
		}

		_, err := g.run(ctx, query, params)
		if err != nil {
			g.logger.Error("Failed to merge entity",
				slog.String("canonicalName", entity.CanonicalName),
				slog.String("entityType", entity.EntityType),
				slog.Any("error", err))
			continue
		}
		merged++
	}
	return merged, nil
}

// MergeRelationships upserts the consolidated relationships. Endpoint types
// come from entityTypes; a relationship with an endpoint that never appeared
// as an entity is skipped.
func (g *Neo4jGraph) MergeRelationships(ctx context.Context, relationships []model.ConsolidatedRelationship, entityTypes map[string]string, sourceFilename string) (int, error) {
	merged := 0
	for _, relationship := range relationships {
		sourceType, sourceKnown := entityTypes[relationship.SourceCanonicalName]
		targetType, targetKnown := entityTypes[relationship.TargetCanonicalName]
		if !sourceKnown || !targetKnown {
			g.logger.Warn("Skipping relationship with unknown endpoint",
				slog.String("source", relationship.SourceCanonicalName),
				slog.String("type", relationship.RelationshipType),
				slog.String("target", relationship.TargetCanonicalName))
			continue
		}

		query := fmt.Sprintf(
			"MATCH (s:%s {canonical_name: $s_name}), (t:%s {canonical_name: $t_name}) "+
				"MERGE (s)-[r:%s]->(t) ON CREATE SET r = $props ON MATCH SET r += $props",
			sanitizeLabel(sourceType, "Entity"),
			sanitizeLabel(targetType, "Entity"),
			sanitizeLabel(relationship.RelationshipType, "RELATED_TO"),
		)
		params := map[string]any{
			"s_name": relationship.SourceCanonicalName,
			"t_name": relationship.TargetCanonicalName,
			"props": map[string]any{
				"contexts":                 relationship.Contexts,
				"source_document_filename": sourceFilename,
			},
		}

		_, err := g.run(ctx, query, params)
		if err != nil {
			g.logger.Error("Failed to merge relationship",
				slog.String("source", relationship.SourceCanonicalName),
				slog.String("type", relationship.RelationshipType),
				slog.String("target", relationship.TargetCanonicalName),
				slog.Any("error", err))
			continue
		}
		merged++
	}
	return merged, nil
}

// Neighborhood returns the bounded N-hop subgraph around the named entities.
// An empty name set returns an empty subgraph without querying.
func (g *Neo4jGraph) Neighborhood(ctx context.Context, canonicalNames []string, hopDepth int) (*model.Subgraph, error) {
	if len(canonicalNames) == 0 {
		return model.NewSubgraph(), nil
	}

	query := fmt.Sprintf(
		"MATCH path = (center)-[*0..%d]-(neighbor) WHERE center.canonical_name IN $names "+
			"UNWIND nodes(path) AS item RETURN DISTINCT item, 'node' AS item_type "+
			"UNION ALL "+
			"MATCH path = (center)-[*0..%d]-(neighbor) WHERE center.canonical_name IN $names "+
			"UNWIND relationships(path) AS item RETURN DISTINCT item, 'relationship' AS item_type",
		hopDepth, hopDepth,
	)

	result, err := g.run(ctx, query, map[string]any{"names": canonicalNames})
	if err != nil {
		return nil, helper.NewError("neo4j neighborhood", err)
	}

	return g.subgraphFromRecords(result.Records), nil
}

// ShortestPaths returns every shortest path between two entities up to
// maxHops relationships long, as one subgraph.
func (g *Neo4jGraph) ShortestPaths(ctx context.Context, startName string, endName string, maxHops int) (*model.Subgraph, error) {
	query := fmt.Sprintf(
		"MATCH path = allShortestPaths((start {canonical_name: $start_name})-[*1..%d]-(end {canonical_name: $end_name})) "+
			"UNWIND nodes(path) AS item RETURN DISTINCT item, 'node' AS item_type "+
			"UNION ALL "+
			"MATCH path = allShortestPaths((start {canonical_name: $start_name})-[*1..%d]-(end {canonical_name: $end_name})) "+
			"UNWIND relationships(path) AS item RETURN DISTINCT item, 'relationship' AS item_type",
		maxHops, maxHops,
	)
	params := map[string]any{
		"start_name": startName,
		"end_name":   endName,
	}

	result, err := g.run(ctx, query, params)
	if err != nil {
		return nil, helper.NewError("neo4j shortest paths", err)
	}

	return g.subgraphFromRecords(result.Records), nil
}

// Sample returns an edge-limited sample of the graph with all endpoint nodes
// included, capped at nodeLimit nodes.
func (g *Neo4jGraph) Sample(ctx context.Context, nodeLimit int, edgeLimit int) (*model.Subgraph, error) {
	query := "MATCH (s)-[r]->(t) WITH s, r, t LIMIT $edge_limit " +
		"WITH collect(r) AS rels, collect(s) + collect(t) AS all_nodes " +
		"UNWIND all_nodes AS node WITH rels, collect(DISTINCT node) AS unique_nodes " +
		"RETURN rels, unique_nodes[..$node_limit] AS nodes"
	params := map[string]any{
		"node_limit": nodeLimit,
		"edge_limit": edgeLimit,
	}

	result, err := g.run(ctx, query, params)
	if err != nil {
		return nil, helper.NewError("neo4j sample", err)
	}
	if len(result.Records) == 0 {
		return model.NewSubgraph(), nil
	}

	record := result.Records[0]
	nodesValue, _ := record.Get("nodes")
	relsValue, _ := record.Get("rels")
	return g.subgraphFromValues(nodesValue, relsValue), nil
}

// BusiestNodes returns the topN most connected entities together with their
// 1-hop neighborhood.
func (g *Neo4jGraph) BusiestNodes(ctx context.Context, topN int) (*model.Subgraph, error) {
	query := "MATCH (n) WHERE n.canonical_name IS NOT NULL " +
		"WITH n, COUNT { (n)--() } AS degree ORDER BY degree DESC LIMIT $top_n " +
		"RETURN n.canonical_name AS canonical_name"

	result, err := g.run(ctx, query, map[string]any{"top_n": topN})
	if err != nil {
		return nil, helper.NewError("neo4j busiest nodes", err)
	}

	names := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		value, ok := record.Get("canonical_name")
		if !ok {
			continue
		}
		if name, ok := value.(string); ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return model.NewSubgraph(), nil
	}

	return g.Neighborhood(ctx, names, 1)
}

// DeleteDocument removes all relationships tagged with the filename, then
// any of its tagged entities left without connections. Entities still
// connected through other documents are kept.
func (g *Neo4jGraph) DeleteDocument(ctx context.Context, filename string) error {
	params := map[string]any{"filename": filename}

	_, err := g.run(ctx, "MATCH ()-[r]-() WHERE r.source_document_filename = $filename DELETE r", params)
	if err != nil {
		return helper.NewError("neo4j delete relationships", err)
	}

	_, err = g.run(ctx, "MATCH (n) WHERE n.source_document_filename = $filename AND NOT (n)--() DELETE n", params)
	if err != nil {
		return helper.NewError("neo4j delete entities", err)
	}

	g.logger.Info("Removed graph references", slog.String("filename", filename))
	return nil
}

// Close releases the driver.
func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

func (g *Neo4jGraph) run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	return neo4j.ExecuteQuery(ctx, g.driver, query, params, neo4j.EagerResultTransformer)
}

// subgraphFromRecords assembles a subgraph from item/item_type records as
// returned by the neighborhood and shortest-path queries.
func (g *Neo4jGraph) subgraphFromRecords(records []*neo4j.Record) *model.Subgraph {
	nodes := make([]any, 0, len(records))
	relationships := make([]any, 0, len(records))
	for _, record := range records {
		itemType, _ := record.Get("item_type")
		item, ok := record.Get("item")
		if !ok || item == nil {
			continue
		}
		switch itemType {
		case "node":
			nodes = append(nodes, item)
		case "relationship":
			relationships = append(relationships, item)
		}
	}
	return g.subgraphFromValues(nodes, relationships)
}

// subgraphFromValues converts driver node and relationship values into a
// subgraph. Edge endpoints are resolved through the nodes' element ids;
// endpoints missing from the node set are backfilled as bare nodes so every
// edge always references an existing node.
func (g *Neo4jGraph) subgraphFromValues(nodesValue any, relationshipsValue any) *model.Subgraph {
	subgraph := model.NewSubgraph()
	nameByElementID := map[string]string{}
	seenNodes := map[string]bool{}
	seenRelationships := map[string]bool{}

	for _, value := range toValueList(nodesValue) {
		node, ok := value.(neo4j.Node)
		if !ok {
			continue
		}

		graphNode := g.nodeFromNeo4j(node)
		nameByElementID[node.ElementId] = graphNode.ID
		if seenNodes[graphNode.ID] {
			continue
		}
		seenNodes[graphNode.ID] = true
		subgraph.Nodes = append(subgraph.Nodes, graphNode)
	}

	for _, value := range toValueList(relationshipsValue) {
		relationship, ok := value.(neo4j.Relationship)
		if !ok {
			continue
		}
		if seenRelationships[relationship.ElementId] {
			continue
		}
		seenRelationships[relationship.ElementId] = true

		source := g.resolveEndpoint(subgraph, nameByElementID, seenNodes, relationship.StartElementId)
		target := g.resolveEndpoint(subgraph, nameByElementID, seenNodes, relationship.EndElementId)

		subgraph.Edges = append(subgraph.Edges, model.GraphEdge{
			Source:     source,
			Target:     target,
			Label:      relationship.Type,
			Properties: model.Metadata(relationship.Props),
		})
	}

	return subgraph
}

// resolveEndpoint maps a relationship endpoint element id to its node id,
// backfilling a bare node when the endpoint was not part of the result.
func (g *Neo4jGraph) resolveEndpoint(subgraph *model.Subgraph, nameByElementID map[string]string, seenNodes map[string]bool, elementID string) string {
	if name, ok := nameByElementID[elementID]; ok {
		return name
	}

	nameByElementID[elementID] = elementID
	if !seenNodes[elementID] {
		seenNodes[elementID] = true
		subgraph.Nodes = append(subgraph.Nodes, model.GraphNode{
			ID:         elementID,
			Label:      elementID,
			Type:       "Unknown",
			Properties: model.Metadata{},
		})
	}
	return elementID
}

// nodeFromNeo4j converts a driver node. The node id is its canonical name,
// falling back to the element id; the type is the first label known to the
// schema, falling back to the first label.
func (g *Neo4jGraph) nodeFromNeo4j(node neo4j.Node) model.GraphNode {
	name := ""
	if value, ok := node.Props["canonical_name"].(string); ok {
		name = value
	}
	if name == "" {
		name = node.ElementId
	}

	nodeType := "Unknown"
	if len(node.Labels) > 0 {
		nodeType = node.Labels[0]
		for _, label := range node.Labels {
			if containsString(g.entityTypes, label) {
				nodeType = label
				break
			}
		}
	}

	return model.GraphNode{
		ID:         name,
		Label:      name,
		Type:       nodeType,
		Properties: model.Metadata(node.Props),
	}
}

func toValueList(value any) []any {
	if list, ok := value.([]any); ok {
		return list
	}
	return nil
}

func containsString(values []string, search string) bool {
	for _, value := range values {
		if value == search {
			return true
		}
	}
	return false
}

// sanitizeLabel makes an extracted type safe to interpolate as a Cypher
// label or relationship type. Anything but letters, digits and underscores
// is replaced; an empty result falls back to the given default.
func sanitizeLabel(value string, fallback string) string {
	var builder strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			builder.WriteRune(r)
		case r == ' ', r == '-':
			builder.WriteRune('_')
		}
	}

	sanitized := builder.String()
	if sanitized == "" || (sanitized[0] >= '0' && sanitized[0] <= '9') {
		return fallback
	}
	return sanitized
}
