package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anuj67851/graph-rag-metadata/helper"
	"github.com/anuj67851/graph-rag-metadata/model"
)

// chunkNamespace is used to derive deterministic object ids, so re-ingesting
// the same chunk overwrites instead of duplicating.
var chunkNamespace = uuid.MustParse("8c9e6f2a-41d3-47b8-9d6e-2f5a8b7c1e04")

// WeaviateSearch speaks to a Weaviate instance over its REST and GraphQL
// APIs. The instance is expected to run a text2vec module, so chunks are
// embedded server-side and multiple query concepts fold into one relevance
// computation.
type WeaviateSearch struct {
	baseURL    string
	apiKey     string
	className  string
	httpClient *http.Client
	logger     *slog.Logger

	schemaOnce sync.Once
	schemaErr  error
}

// NewWeaviateSearch creates a search connector and verifies the instance is
// reachable.
func NewWeaviateSearch(baseURL string, apiKey string, className string, logger *slog.Logger) (*WeaviateSearch, error) {
	search := &WeaviateSearch{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		className: className,
		httpClient: &http.Client{
			Timeout: 240 * time.Second,
		},
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := search.Ping(ctx)
	if err != nil {
		return nil, helper.NewError("weaviate ready check", err)
	}

	logger.Info("Connected to Weaviate", slog.String("url", search.baseURL), slog.String("class", className))
	return search, nil
}

// Ping checks the readiness endpoint.
func (w *WeaviateSearch) Ping(ctx context.Context) error {
	return w.doJSON(ctx, http.MethodGet, "/v1/.well-known/ready", nil, nil)
}

// SearchChunks runs a nearText search with all query phrasings as concepts,
// optionally restricted to the given source documents, and returns up to
// topK scored chunks.
func (w *WeaviateSearch) SearchChunks(ctx context.Context, queries []string, topK int, filterFilenames []string) ([]*model.SourceChunk, error) {
	if len(queries) == 0 {
		return []*model.SourceChunk{}, nil
	}

	query := w.buildSearchQuery(queries, topK, filterFilenames)

	var response struct {
		Data map[string]map[string][]struct {
			ChunkText      string   `json:"chunk_text"`
			SourceDocument string   `json:"source_document"`
			EntityIDs      []string `json:"entity_ids"`
			Additional     struct {
				Score any `json:"score"`
			} `json:"_additional"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}

	err := w.doJSON(ctx, http.MethodPost, "/v1/graphql", map[string]string{"query": query}, &response)
	if err != nil {
		return nil, helper.NewError("weaviate search", err)
	}
	if len(response.Errors) > 0 {
		return nil, helper.NewError("weaviate search", fmt.Errorf("graphql error: %s", response.Errors[0].Message))
	}

	results := response.Data["Get"][w.className]
	chunks := make([]*model.SourceChunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, &model.SourceChunk{
			ChunkText:      result.ChunkText,
			SourceDocument: result.SourceDocument,
			EntityIDs:      result.EntityIDs,
			Score:          parseScore(result.Additional.Score),
			ScoreStage:     model.ScoreStageRetrieval,
		})
	}

	return chunks, nil
}

// InsertChunks writes a batch of chunks. Object ids are derived from the
// source document and chunk text, so repeated inserts overwrite.
func (w *WeaviateSearch) InsertChunks(ctx context.Context, chunks []*model.SourceChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	err := w.ensureSchema(ctx)
	if err != nil {
		return helper.NewError("weaviate schema", err)
	}

	objects := make([]map[string]any, 0, len(chunks))
	for _, chunk := range chunks {
		entityIDs := chunk.EntityIDs
		if entityIDs == nil {
			entityIDs = []string{}
		}
		objects = append(objects, map[string]any{
			"class": w.className,
			"id":    uuid.NewSHA1(chunkNamespace, []byte(chunk.SourceDocument+"\x00"+chunk.ChunkText)).String(),
			"properties": map[string]any{
				"chunk_text":      chunk.ChunkText,
				"source_document": chunk.SourceDocument,
				"entity_ids":      entityIDs,
			},
		})
	}

	var response []struct {
		Result struct {
			Errors *struct {
				Error []struct {
					Message string `json:"message"`
				} `json:"error"`
			} `json:"errors"`
		} `json:"result"`
	}

	err = w.doJSON(ctx, http.MethodPost, "/v1/batch/objects", map[string]any{"objects": objects}, &response)
	if err != nil {
		return helper.NewError("weaviate batch insert", err)
	}

	for _, objectResult := range response {
		if objectResult.Result.Errors != nil && len(objectResult.Result.Errors.Error) > 0 {
			return helper.NewError("weaviate batch insert", fmt.Errorf("object error: %s", objectResult.Result.Errors.Error[0].Message))
		}
	}

	w.logger.Info("Inserted chunks into Weaviate", slog.Int("count", len(chunks)))
	return nil
}

// DeleteDocumentChunks removes all chunks of one source document and returns
// how many were deleted.
func (w *WeaviateSearch) DeleteDocumentChunks(ctx context.Context, filename string) (int, error) {
	request := map[string]any{
		"match": map[string]any{
			"class": w.className,
			"where": map[string]any{
				"path":        []string{"source_document"},
				"operator":    "Equal",
				"valueString": filename,
			},
		},
		"output": "verbose",
	}

	var response struct {
		Results struct {
			Successful int `json:"successful"`
		} `json:"results"`
	}

	err := w.doJSON(ctx, http.MethodDelete, "/v1/batch/objects", request, &response)
	if err != nil {
		return 0, helper.NewError("weaviate batch delete", err)
	}

	w.logger.Info("Deleted chunks from Weaviate", slog.String("filename", filename), slog.Int("count", response.Results.Successful))
	return response.Results.Successful, nil
}

// Close releases idle connections.
func (w *WeaviateSearch) Close() error {
	w.httpClient.CloseIdleConnections()
	return nil
}

// ensureSchema creates the chunk class if it does not exist yet.
func (w *WeaviateSearch) ensureSchema(ctx context.Context) error {
	w.schemaOnce.Do(func() {
		err := w.doJSON(ctx, http.MethodGet, "/v1/schema/"+w.className, nil, nil)
		if err == nil {
			return
		}

		schema := map[string]any{
			"class":      w.className,
			"vectorizer": "text2vec-transformers",
			"moduleConfig": map[string]any{
				"text2vec-transformers": map[string]any{
					"vectorizeClassName": false,
				},
			},
			"properties": []map[string]any{
				{
					"name":        "chunk_text",
					"dataType":    []string{"text"},
					"description": "The actual text content of the chunk.",
				},
				{
					"name":        "source_document",
					"dataType":    []string{"string"},
					"description": "The filename of the source document for this chunk.",
				},
				{
					"name":        "entity_ids",
					"dataType":    []string{"string[]"},
					"description": "A list of canonical entity names found in this chunk.",
				},
			},
		}

		err = w.doJSON(ctx, http.MethodPost, "/v1/schema", schema, nil)
		if err != nil {
			w.schemaErr = err
			return
		}
		w.logger.Info("Created Weaviate class", slog.String("class", w.className))
	})
	return w.schemaErr
}

// buildSearchQuery renders the GraphQL search for the given concepts.
func (w *WeaviateSearch) buildSearchQuery(queries []string, topK int, filterFilenames []string) string {
	concepts := make([]string, 0, len(queries))
	for _, query := range queries {
		concepts = append(concepts, `"`+escapeGraphQLString(query)+`"`)
	}

	whereClause := ""
	if len(filterFilenames) > 0 {
		filenames := make([]string, 0, len(filterFilenames))
		for _, filename := range filterFilenames {
			filenames = append(filenames, `"`+escapeGraphQLString(filename)+`"`)
		}
		whereClause = fmt.Sprintf(
			`, where: {path: ["source_document"], operator: ContainsAny, valueString: [%s]}`,
			strings.Join(filenames, ", "),
		)
	}

	return fmt.Sprintf(
		`{ Get { %s(nearText: {concepts: [%s]}, limit: %d%s) { chunk_text source_document entity_ids _additional { score } } } }`,
		w.className,
		strings.Join(concepts, ", "),
		topK,
		whereClause,
	)
}

// doJSON sends a JSON request and decodes the JSON response into out.
func (w *WeaviateSearch) doJSON(ctx context.Context, method string, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, w.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	response, err := w.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		raw, _ := io.ReadAll(response.Body)
		return fmt.Errorf("%s %s returned status %d: %s", method, path, response.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(out)
}

// parseScore reads the _additional score, which Weaviate returns as a JSON
// string.
func parseScore(value any) float64 {
	switch typed := value.(type) {
	case string:
		score, err := strconv.ParseFloat(typed, 64)
		if err != nil {
			return 0
		}
		return score
	case float64:
		return typed
	default:
		return 0
	}
}

func escapeGraphQLString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
