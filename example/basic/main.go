package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	graphrag "github.com/anuj67851/graph-rag-metadata"
	"github.com/anuj67851/graph-rag-metadata/connector"
	"github.com/anuj67851/graph-rag-metadata/core/ingest"
	"github.com/anuj67851/graph-rag-metadata/core/vectorindex"
	"github.com/anuj67851/graph-rag-metadata/helper"
)

const knowledgeGraphsContent = `Knowledge graphs organize information as entities and the relationships
between them. Instead of rows in a table, a knowledge graph stores people,
places and concepts as nodes, connected by typed edges such as FOUNDED or
LOCATED_IN.

Because the structure mirrors how facts relate to each other, a knowledge
graph can answer questions that span several documents. Traversing from an
entity to its neighbors surfaces context that plain keyword search misses.`

const retrievalContent = `Retrieval augmented generation grounds a language model in indexed
documents. The retriever embeds the question, finds the most similar text
chunks and hands them to the model as context.

The quality of the final answer depends mostly on the quality of retrieval.
Hybrid approaches that combine vector similarity with graph structure tend
to outperform either technique on its own.`

func main() {
	ctx := context.Background()

	// Logger matching the library's own output format
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	config := helper.NewConfiguration()

	// Local embedder (all-MiniLM, 384 dimensions, downloaded on first run)
	embed, err := ingest.LocalEmbedder()
	if err != nil {
		log.Fatalf("Failed to create local embedder: %v", err)
	}

	// In-process vector index persisted next to the binary
	index, err := vectorindex.Open(config.IndexPath, config.IndexMetadataPath, 384, logger)
	if err != nil {
		log.Fatalf("Failed to open vector index: %v", err)
	}

	search := connector.NewLocalSearch(index, embed, logger)

	// Plain semantic search needs neither a graph store nor a language model
	g := graphrag.NewGraphRAGFromConnectors(config, search, nil, nil, logger)
	defer g.Close(ctx)

	// Ingest two documents. Without an extractor the chunks are indexed for
	// search and no graph data is produced.
	fmt.Println("Ingesting documents...")
	file, err := g.IngestDocument(ctx, "knowledge-graphs.txt", knowledgeGraphsContent)
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Ingested %s: %d chunks\n", file.Filename, file.ChunkCount)

	file, err = g.IngestDocument(ctx, "retrieval.txt", retrievalContent)
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Ingested %s: %d chunks\n", file.Filename, file.ChunkCount)

	// Search for evidence chunks
	queryText := "How does a knowledge graph help with answering questions?"
	fmt.Printf("\nSearching: %s\n", queryText)

	response, err := g.Search(ctx, queryText, nil)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}

	fmt.Printf("\nFound %d results:\n", len(response.Chunks))
	for i, chunk := range response.Chunks {
		fmt.Printf("\n--- Result %d ---\n", i+1)
		fmt.Printf("Score: %.4f\n", chunk.Score)
		fmt.Printf("Source: %s\n", chunk.SourceDocument)
		fmt.Printf("Text: %s\n", chunk.ChunkText)
	}

	fmt.Println("\nBasic example completed successfully!")
}
