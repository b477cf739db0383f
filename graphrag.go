package graphrag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/anuj67851/graph-rag-metadata/connector"
	"github.com/anuj67851/graph-rag-metadata/core/ingest"
	"github.com/anuj67851/graph-rag-metadata/core/query"
	"github.com/anuj67851/graph-rag-metadata/database"
	"github.com/anuj67851/graph-rag-metadata/helper"
	"github.com/anuj67851/graph-rag-metadata/model"
	"github.com/anuj67851/graph-rag-metadata/prompts"
	loadSql "github.com/anuj67851/graph-rag-metadata/sql"
)

// defaultChunkSize is the target chunk length in characters for the default sentence chunker.
const defaultChunkSize = 500

// GraphRAG provides a unified interface to the retrieval pipeline, the
// ingestion pipeline and all collaborator connections.
type GraphRAG struct {
	Config   *helper.Configuration
	DB       *helper.Database // Postgres handle of the file metadata store, nil when disabled
	Search   connector.Search
	Graph    connector.Graph
	LLM      connector.LLM
	Cache    connector.Cache
	Reranker connector.Reranker
	Files    database.FilesDBHandlerFunctions
	Engine   *query.Service  // Query pipeline
	Ingestor *ingest.Service // Ingestion pipeline
	// Logging
	log *slog.Logger
}

// NewGraphRAG creates a GraphRAG instance wired to the full external stack
// from the configuration: Weaviate for chunk search, Neo4j for the knowledge
// graph, OpenAI for generation/expansion/extraction, Redis for the response
// cache and Postgres for the file metadata store. The cache, the re-ranker
// and the file store are optional; when one is unreachable or unconfigured
// the instance runs without it.
func NewGraphRAG(ctx context.Context, config *helper.Configuration) (*GraphRAG, error) {
	if config == nil {
		config = helper.NewConfiguration()
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	promptsConfig, err := prompts.Load(config.PromptsPath)
	if err != nil {
		return nil, helper.NewError("load prompt templates", err)
	}
	schema, err := prompts.LoadSchema(config.SchemaPath)
	if err != nil {
		return nil, helper.NewError("load graph schema", err)
	}

	search, err := connector.NewWeaviateSearch(config.WeaviateURL, config.WeaviateAPIKey, config.WeaviateClassName, logger)
	if err != nil {
		return nil, helper.NewError("create search connector", err)
	}

	graph, err := connector.NewNeo4jGraph(ctx, config.Neo4jURI, config.Neo4jUsername, config.Neo4jPassword, schema.EntityTypes, logger)
	if err != nil {
		return nil, helper.NewError("create graph connector", err)
	}

	var llm connector.LLM
	if config.OpenAIAPIKey != "" {
		llm = connector.NewOpenAILLM(config, promptsConfig, schema, logger)
	} else {
		logger.Warn("No OpenAI API key configured, answering falls back and ingestion uses the local extractor")
	}

	g := newGraphRAG(config, search, graph, llm, logger)

	cache, err := connector.NewRedisCache(config.RedisAddr, config.RedisPassword, config.RedisDB, config.CacheKeyPrefix, logger)
	if err != nil {
		logger.Warn("Response cache unavailable, continuing without", slog.Any("error", err))
	} else {
		g.SetCache(cache)
	}

	if config.UseReranking {
		reranker, err := connector.NewHugotReranker(config.RerankerModel, logger)
		if err != nil {
			logger.Warn("Re-ranker unavailable, continuing without", slog.Any("error", err))
		} else {
			g.SetReranker(reranker)
		}
	}

	if llm == nil {
		extractor, err := ingest.NERExtractor()
		if err != nil {
			logger.Warn("Local entity extractor unavailable, ingestion will skip graph extraction", slog.Any("error", err))
		} else {
			g.Ingestor.SetFallbackExtractor(extractor)
		}
	}

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		logger.Info("File metadata store disabled", slog.Any("reason", err))
		return g, nil
	}

	db := helper.NewDatabase("graphrag", dbConfig, logger)
	err = loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}
	// force=false to not reload if functions already exist
	files, err := database.NewFilesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create files handler", err)
	}
	g.DB = db
	g.SetFileStore(files)

	return g, nil
}

// NewGraphRAGFromConnectors creates a GraphRAG instance over caller-provided
// collaborators. The cache, the re-ranker and the file store can be added
// through the setters afterwards.
func NewGraphRAGFromConnectors(config *helper.Configuration, search connector.Search, graph connector.Graph, llm connector.LLM, logger *slog.Logger) *GraphRAG {
	if config == nil {
		config = helper.NewConfiguration()
	}
	if logger == nil {
		opts := helper.PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{
				Level: slog.LevelInfo,
			},
		}
		logger = slog.New(helper.NewPrettyHandler(os.Stdout, opts))
	}
	return newGraphRAG(config, search, graph, llm, logger)
}

func newGraphRAG(config *helper.Configuration, search connector.Search, graph connector.Graph, llm connector.LLM, logger *slog.Logger) *GraphRAG {
	engine := query.NewService(search, graph, llm, logger)

	ingestor := ingest.NewService(search, graph, ingest.SentenceChunker(defaultChunkSize), logger)
	if llm != nil {
		ingestor.SetLLM(llm)
	}

	return &GraphRAG{
		Config:   config,
		Search:   search,
		Graph:    graph,
		LLM:      llm,
		Engine:   engine,
		Ingestor: ingestor,
		log:      logger,
	}
}

// SetCache adds a response cache to the query pipeline
func (g *GraphRAG) SetCache(cache connector.Cache) {
	g.Cache = cache
	g.Engine.SetCache(cache)
}

// SetReranker adds a cross-encoder re-ranker to the query pipeline
func (g *GraphRAG) SetReranker(reranker connector.Reranker) {
	g.Reranker = reranker
	g.Engine.SetReranker(reranker)
}

// SetFileStore adds an ingested-files metadata store
func (g *GraphRAG) SetFileStore(files database.FilesDBHandlerFunctions) {
	g.Files = files
	g.Ingestor.SetFileStore(files)
}

// QueryOptions derives the per-query defaults from the configuration.
func (g *GraphRAG) QueryOptions() *model.QueryOptions {
	options := model.DefaultQueryOptions()
	options.UseQueryExpansion = g.Config.UseQueryExpansion
	options.UseReranking = g.Config.UseReranking
	options.TopK = g.Config.VectorTopK
	options.PerDocumentLimit = g.Config.PerDocumentLimit
	options.FinalChunkCount = g.Config.FinalChunkCount
	options.ExpansionQueryCount = g.Config.ExpansionQueryCount
	options.PreliminaryTopK = g.Config.PreliminaryTopK
	options.HopDepth = g.Config.EntityHopDepth
	return &options
}

// Query answers a question from the indexed documents and the knowledge
// graph. A nil options value uses the configuration defaults.
func (g *GraphRAG) Query(ctx context.Context, queryText string, options *model.QueryOptions) (*model.QueryResponse, error) {
	if options == nil {
		options = g.QueryOptions()
	}
	return g.Engine.Query(ctx, queryText, options)
}

// Search returns ranked evidence chunks for a query without graph
// augmentation or answer generation. A nil options value uses the
// configuration defaults.
func (g *GraphRAG) Search(ctx context.Context, queryText string, options *model.QueryOptions) (*model.SearchResponse, error) {
	if options == nil {
		options = g.QueryOptions()
	}
	return g.Engine.Search(ctx, queryText, options)
}

// IngestDocument ingests raw text under the given filename: chunking, graph
// extraction, consolidation, graph merge and search indexing.
func (g *GraphRAG) IngestDocument(ctx context.Context, filename string, text string) (*model.IngestedFile, error) {
	return g.Ingestor.IngestDocument(ctx, filename, text)
}

// IngestFile reads a document from disk and ingests it under its base name.
func (g *GraphRAG) IngestFile(ctx context.Context, path string) (*model.IngestedFile, error) {
	return g.Ingestor.IngestFile(ctx, path)
}

// DeleteDocument removes a document from the search store, the knowledge
// graph and the file metadata store.
func (g *GraphRAG) DeleteDocument(ctx context.Context, filename string) error {
	return g.Ingestor.DeleteDocument(ctx, filename)
}

// ListFiles returns all ingested file records, newest first.
func (g *GraphRAG) ListFiles() ([]*model.IngestedFile, error) {
	if g.Files == nil {
		return nil, helper.NewError("list files", fmt.Errorf("file metadata store not configured"))
	}
	return g.Files.SelectAllFiles()
}

// FindConnections returns all shortest paths between two entities as a
// subgraph, bounded by the configured maximum hop count.
func (g *GraphRAG) FindConnections(ctx context.Context, startName string, endName string) (*model.Subgraph, error) {
	return g.Graph.ShortestPaths(ctx, startName, endName, g.Config.ShortestPathMaxHops)
}

// GraphSample returns a bounded sample of the knowledge graph for overview
// rendering.
func (g *GraphRAG) GraphSample(ctx context.Context, nodeLimit int, edgeLimit int) (*model.Subgraph, error) {
	return g.Graph.Sample(ctx, nodeLimit, edgeLimit)
}

// BusiestNodes returns the most connected entities and their 1-hop
// neighborhood.
func (g *GraphRAG) BusiestNodes(ctx context.Context, topN int) (*model.Subgraph, error) {
	return g.Graph.BusiestNodes(ctx, topN)
}

// Close closes all collaborator connections.
func (g *GraphRAG) Close(ctx context.Context) error {
	var errs []error
	if g.Cache != nil {
		if err := g.Cache.Close(); err != nil {
			errs = append(errs, helper.NewError("close cache", err))
		}
	}
	if g.Reranker != nil {
		if err := g.Reranker.Close(); err != nil {
			errs = append(errs, helper.NewError("close reranker", err))
		}
	}
	if g.Search != nil {
		if err := g.Search.Close(); err != nil {
			errs = append(errs, helper.NewError("close search connector", err))
		}
	}
	if g.Graph != nil {
		if err := g.Graph.Close(ctx); err != nil {
			errs = append(errs, helper.NewError("close graph connector", err))
		}
	}
	if g.DB != nil && g.DB.Instance != nil {
		if err := g.DB.Instance.Close(); err != nil {
			errs = append(errs, helper.NewError("close database", err))
		}
	}
	return errors.Join(errs...)
}
