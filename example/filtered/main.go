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

const reactorsContent = `Nuclear power plants generate electricity from the heat of controlled
fission. Fuel rods in the reactor core heat water into steam, the steam
drives a turbine and the turbine spins a generator.

A single large reactor produces around one gigawatt of electrical power and
runs continuously for eighteen to twenty-four months between refueling
outages. Cooling towers dissipate the waste heat that the turbines cannot
convert.`

const solarContent = `Solar farms convert sunlight directly into electricity with photovoltaic
panels. Each panel produces direct current, inverters convert it to
alternating current for the grid.

Output follows the sun: production peaks at midday and stops at night, so
grid operators pair solar farms with storage or with dispatchable plants.
Panel efficiency has roughly doubled over the last two decades.`

func main() {
	ctx := context.Background()

	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	config := helper.NewConfiguration()

	embed, err := ingest.LocalEmbedder()
	if err != nil {
		log.Fatalf("Failed to create local embedder: %v", err)
	}

	index, err := vectorindex.Open(config.IndexPath, config.IndexMetadataPath, 384, logger)
	if err != nil {
		log.Fatalf("Failed to open vector index: %v", err)
	}

	search := connector.NewLocalSearch(index, embed, logger)
	g := graphrag.NewGraphRAGFromConnectors(config, search, nil, nil, logger)
	defer g.Close(ctx)

	// Cross-encoder re-ranker (ms-marco-MiniLM, downloaded on first run)
	reranker, err := connector.NewHugotReranker(config.RerankerModel, logger)
	if err != nil {
		log.Fatalf("Failed to create re-ranker: %v", err)
	}
	g.SetReranker(reranker)

	fmt.Println("Ingesting documents...")
	for _, doc := range []struct {
		filename string
		content  string
	}{
		{"reactors.txt", reactorsContent},
		{"solar.txt", solarContent},
	} {
		file, err := g.IngestDocument(ctx, doc.filename, doc.content)
		if err != nil {
			log.Fatalf("Failed to ingest %s: %v", doc.filename, err)
		}
		fmt.Printf("Ingested %s: %d chunks\n", file.Filename, file.ChunkCount)
	}

	// A document filter switches retrieval to per-document search: each named
	// document contributes its own best chunks, so a short document is not
	// crowded out by a longer one. Re-ranking then truncates per document.
	queryText := "How is electricity generated?"

	options := g.QueryOptions()
	options.UseReranking = true
	options.FilterFilenames = []string{"reactors.txt", "solar.txt"}
	options.PerDocumentLimit = 2
	options.FinalChunkCount = 1

	fmt.Printf("\nSearching across both documents: %s\n", queryText)
	response, err := g.Search(ctx, queryText, options)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}

	for _, chunk := range response.Chunks {
		fmt.Printf("\n[%s] (score %.4f, %s)\n%s\n", chunk.SourceDocument, chunk.Score, chunk.ScoreStage, chunk.ChunkText)
	}

	// Restricting the filter to one document scopes the answer to it
	options.FilterFilenames = []string{"solar.txt"}
	options.FinalChunkCount = 2

	fmt.Printf("\nSearching only solar.txt: %s\n", queryText)
	response, err = g.Search(ctx, queryText, options)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}

	for _, chunk := range response.Chunks {
		fmt.Printf("\n[%s] (score %.4f)\n%s\n", chunk.SourceDocument, chunk.Score, chunk.ChunkText)
	}

	fmt.Println("\nFiltered example completed successfully!")
}
