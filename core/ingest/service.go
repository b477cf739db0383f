package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/anuj67851/graph-rag-metadata/connector"
	"github.com/anuj67851/graph-rag-metadata/database"
	"github.com/anuj67851/graph-rag-metadata/model"
)

// Service runs the ingestion pipeline: chunking, per-chunk graph
// extraction, consolidation and the store writes. Chunks whose extraction
// fails still get indexed for search, they just contribute no graph data.
type Service struct {
	search    connector.Search
	graph     connector.Graph
	chunker   ChunkFunc
	llm       connector.LLM
	extractor ExtractFunc
	files     database.FilesDBHandlerFunctions
	logger    *slog.Logger
}

// NewService creates an ingestion service over the required collaborators.
// The LLM, the fallback extractor and the file store are optional and wired
// through setters.
func NewService(search connector.Search, graph connector.Graph, chunker ChunkFunc, logger *slog.Logger) *Service {
	return &Service{
		search:  search,
		graph:   graph,
		chunker: chunker,
		logger:  logger,
	}
}

// SetLLM sets the language model used for graph extraction
func (s *Service) SetLLM(llm connector.LLM) {
	s.llm = llm
}

// SetFallbackExtractor sets the local extractor used when no LLM is set
func (s *Service) SetFallbackExtractor(extractor ExtractFunc) {
	s.extractor = extractor
}

// SetFileStore sets the ingested-files metadata store
func (s *Service) SetFileStore(files database.FilesDBHandlerFunctions) {
	s.files = files
}

// IngestFile reads a document from disk and ingests it under its base name.
func (s *Service) IngestFile(ctx context.Context, path string) (*model.IngestedFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return s.ingest(ctx, filepath.Base(path), path, string(content))
}

// IngestDocument ingests raw text under the given filename.
func (s *Service) IngestDocument(ctx context.Context, filename string, text string) (*model.IngestedFile, error) {
	return s.ingest(ctx, filename, "", text)
}

func (s *Service) ingest(ctx context.Context, filename string, path string, text string) (*model.IngestedFile, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("filename must not be empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document %v is empty", filename)
	}

	file := s.beginFile(filename, path, int64(len(text)))

	chunks, err := s.chunker(text)
	if err != nil {
		return s.failFile(file, fmt.Errorf("failed to chunk document: %w", err))
	}
	if len(chunks) == 0 {
		return s.failFile(file, fmt.Errorf("document %v produced no chunks", filename))
	}

	results := make([]*model.ExtractionResult, len(chunks))
	hasExtractor := s.llm != nil || s.extractor != nil
	if hasExtractor {
		failures := 0
		for i, chunk := range chunks {
			result, err := s.extractChunk(ctx, chunk)
			if err != nil {
				failures++
				s.logger.Warn("Chunk contributes no graph data",
					slog.String("filename", filename),
					slog.Int("chunk", i),
					slog.Any("error", err))
				continue
			}
			results[i] = result
		}
		if failures == len(chunks) {
			return s.failFile(file, fmt.Errorf("graph extraction failed for all %v chunks", len(chunks)))
		}
	} else {
		s.logger.Info("No extractor configured, skipping graph extraction", slog.String("filename", filename))
	}

	entities := ConsolidateEntities(results)
	entityTypes := EntityTypeIndex(entities)
	relationships := ConsolidateRelationships(results, entityTypes)

	entitiesMerged := 0
	relationshipsMerged := 0
	if len(entities) > 0 {
		entitiesMerged, err = s.graph.MergeEntities(ctx, entities, filename)
		if err != nil {
			return s.failFile(file, fmt.Errorf("failed to merge entities: %w", err))
		}
	}
	if len(relationships) > 0 {
		relationshipsMerged, err = s.graph.MergeRelationships(ctx, relationships, entityTypes, filename)
		if err != nil {
			return s.failFile(file, fmt.Errorf("failed to merge relationships: %w", err))
		}
	}

	sourceChunks := make([]*model.SourceChunk, 0, len(chunks))
	for i, chunk := range chunks {
		sourceChunks = append(sourceChunks, &model.SourceChunk{
			ChunkText:      chunk,
			SourceDocument: filename,
			EntityIDs:      chunkEntityIDs(results[i]),
		})
	}
	err = s.search.InsertChunks(ctx, sourceChunks)
	if err != nil {
		return s.failFile(file, fmt.Errorf("failed to index chunks: %w", err))
	}

	s.logger.Info("Ingested document",
		slog.String("filename", filename),
		slog.Int("chunks", len(chunks)),
		slog.Int("entities", entitiesMerged),
		slog.Int("relationships", relationshipsMerged))

	return s.completeFile(file, len(chunks), entitiesMerged, relationshipsMerged)
}

// DeleteDocument removes a document from the search store, the graph and
// the file metadata store, in that order.
func (s *Service) DeleteDocument(ctx context.Context, filename string) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("filename must not be empty")
	}

	removed, err := s.search.DeleteDocumentChunks(ctx, filename)
	if err != nil {
		return fmt.Errorf("failed to delete document chunks: %w", err)
	}
	s.logger.Info("Deleted document chunks", slog.String("filename", filename), slog.Int("removed", removed))

	err = s.graph.DeleteDocument(ctx, filename)
	if err != nil {
		return fmt.Errorf("failed to delete document from graph: %w", err)
	}

	if s.files != nil {
		deleted, err := s.files.DeleteFile(filename)
		if err != nil {
			return fmt.Errorf("failed to delete file record: %w", err)
		}
		if !deleted {
			s.logger.Warn("No file record to delete", slog.String("filename", filename))
		}
	}

	return nil
}

func (s *Service) extractChunk(ctx context.Context, text string) (*model.ExtractionResult, error) {
	if s.llm != nil {
		return s.llm.ExtractGraph(ctx, text)
	}
	return s.extractor(text)
}

// beginFile upserts the metadata record and moves it to processing. Without
// a file store an in-memory record tracks the run.
func (s *Service) beginFile(filename string, path string, size int64) *model.IngestedFile {
	file := &model.IngestedFile{
		Filename:   filename,
		Filepath:   path,
		Filesize:   size,
		Status:     model.FileStatusProcessing,
		IngestedAt: time.Now(),
	}
	if s.files == nil {
		return file
	}

	err := s.files.InsertFile(file)
	if err != nil {
		s.logger.Warn("Could not record file metadata", slog.String("filename", filename), slog.Any("error", err))
		return file
	}

	updated, err := s.files.UpdateFileStatus(filename, model.FileStatusProcessing, "")
	if err != nil {
		s.logger.Warn("Could not update file status", slog.String("filename", filename), slog.Any("error", err))
		return file
	}
	return updated
}

func (s *Service) failFile(file *model.IngestedFile, cause error) (*model.IngestedFile, error) {
	file.Status = model.FileStatusFailed
	file.ErrorMessage = cause.Error()
	if s.files != nil {
		updated, err := s.files.UpdateFileStatus(file.Filename, model.FileStatusFailed, cause.Error())
		if err != nil {
			s.logger.Warn("Could not update file status", slog.String("filename", file.Filename), slog.Any("error", err))
		} else {
			file = updated
		}
	}
	return file, cause
}

func (s *Service) completeFile(file *model.IngestedFile, chunkCount int, entitiesAdded int, relationshipsAdded int) (*model.IngestedFile, error) {
	file.Status = model.FileStatusCompleted
	file.ChunkCount = chunkCount
	file.EntitiesAdded = entitiesAdded
	file.RelationshipsAdded = relationshipsAdded
	if s.files == nil {
		return file, nil
	}

	_, err := s.files.UpdateFileCounts(file.Filename, chunkCount, entitiesAdded, relationshipsAdded)
	if err != nil {
		s.logger.Warn("Could not update file counts", slog.String("filename", file.Filename), slog.Any("error", err))
		return file, nil
	}
	updated, err := s.files.UpdateFileStatus(file.Filename, model.FileStatusCompleted, "")
	if err != nil {
		s.logger.Warn("Could not update file status", slog.String("filename", file.Filename), slog.Any("error", err))
		return file, nil
	}
	return updated, nil
}

// chunkEntityIDs collects the sorted set of canonical names extracted from
// one chunk.
func chunkEntityIDs(result *model.ExtractionResult) []string {
	if result == nil {
		return []string{}
	}

	seen := map[string]bool{}
	for _, entity := range result.Entities {
		if entity.CanonicalName != "" {
			seen[entity.CanonicalName] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
