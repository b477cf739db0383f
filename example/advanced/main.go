package main

import (
	"context"
	"fmt"
	"log"

	graphrag "github.com/anuj67851/graph-rag-metadata"
	"github.com/anuj67851/graph-rag-metadata/helper"
)

const sampleContent = `Aurora Dynamics is a robotics company headquartered in Lisbon. It was
founded in 2014 by Elena Marques, a former control systems researcher at
the Technical University of Lisbon.

The company builds autonomous inspection robots for offshore wind farms.
Its flagship platform, the Petrel, climbs turbine towers and scans the
blades for micro fractures. Aurora Dynamics operates a test facility in
Porto and partners with WindSea Energy, the largest wind farm operator in
the Iberian Peninsula.

In 2021 Elena Marques stepped down as chief executive and became head of
research. The chief executive role went to Tomas Ribeiro, who previously
ran the European operations of WindSea Energy.`

// Runs the full external stack. Expects the collaborators configured via
// environment variables (or a .env file):
//
//	WEAVIATE_URL, NEO4J_URI, NEO4J_USERNAME, NEO4J_PASSWORD,
//	OPENAI_API_KEY, REDIS_ADDR,
//	DB_HOST, DB_PORT, DB_DATABASE, DB_USERNAME, DB_PASSWORD
//
// Redis and Postgres are optional; without them the instance runs with no
// response cache and no file metadata store.
func main() {
	ctx := context.Background()

	config := helper.NewConfiguration()

	g, err := graphrag.NewGraphRAG(ctx, config)
	if err != nil {
		log.Fatalf("Failed to create GraphRAG: %v", err)
	}
	defer g.Close(ctx)

	// Ingest: chunking, LLM graph extraction, consolidation, graph merge,
	// vector indexing
	fmt.Println("Ingesting document...")
	file, err := g.IngestDocument(ctx, "aurora-dynamics.txt", sampleContent)
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Ingested %s: %d chunks, %d entities, %d relationships\n",
		file.Filename, file.ChunkCount, file.EntitiesAdded, file.RelationshipsAdded)

	// Ask a question that needs both the text and the graph
	queryText := "Who runs Aurora Dynamics today and what did they do before?"

	options := g.QueryOptions()
	options.UseQueryExpansion = true

	fmt.Printf("\nQuerying: %s\n", queryText)
	response, err := g.Query(ctx, queryText, options)
	if err != nil {
		log.Fatalf("Failed to query: %v", err)
	}

	fmt.Printf("\nAnswer: %s\n", response.Answer)
	fmt.Printf("\nEvidence (%d chunks):\n", len(response.SourceChunks))
	for i, chunk := range response.SourceChunks {
		fmt.Printf("%d. [%s] score %.4f\n", i+1, chunk.SourceDocument, chunk.Score)
	}
	fmt.Printf("\nSubgraph: %d nodes, %d edges\n", len(response.Subgraph.Nodes), len(response.Subgraph.Edges))

	// Graph exploration beyond the query pipeline
	connections, err := g.FindConnections(ctx, "Elena Marques", "WindSea Energy")
	if err != nil {
		log.Fatalf("Failed to find connections: %v", err)
	}
	fmt.Printf("\nConnections between Elena Marques and WindSea Energy: %d nodes, %d edges\n",
		len(connections.Nodes), len(connections.Edges))

	busiest, err := g.BusiestNodes(ctx, 5)
	if err != nil {
		log.Fatalf("Failed to load busiest nodes: %v", err)
	}
	fmt.Println("\nMost connected entities:")
	for _, node := range busiest.Nodes {
		fmt.Printf("- %s (%s)\n", node.Label, node.Type)
	}

	// File records tracked in the metadata store, when configured
	if files, err := g.ListFiles(); err == nil {
		fmt.Printf("\nIngested files: %d\n", len(files))
		for _, record := range files {
			fmt.Printf("- %s (%s, %d chunks)\n", record.Filename, record.Status, record.ChunkCount)
		}
	}

	// Clean up the demo document
	if err := g.DeleteDocument(ctx, "aurora-dynamics.txt"); err != nil {
		log.Fatalf("Failed to delete document: %v", err)
	}
	fmt.Println("\nDeleted the demo document. Advanced example completed successfully!")
}
