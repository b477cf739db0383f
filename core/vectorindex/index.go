package vectorindex

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Metadata is the payload stored alongside each vector, mirroring the chunk
// fields the search layer works with.
type Metadata struct {
	ChunkText      string   `json:"chunk_text"`
	SourceDocument string   `json:"source_document"`
	EntityIDs      []string `json:"entity_ids"`
}

// Result is a single search hit with its cosine similarity score.
type Result struct {
	Metadata Metadata
	Score    float64
}

// Index is a flat in-process cosine similarity index. Vectors and their
// metadata live in two parallel slices guarded by one mutex; both always
// have the same length.
type Index struct {
	mutex        sync.Mutex
	dimension    int
	indexPath    string
	metadataPath string
	vectors      [][]float32
	metadata     []Metadata
	logger       *slog.Logger
}

// persistedVectors is the on-disk gob layout of the vector file.
type persistedVectors struct {
	Dimension int
	Vectors   [][]float32
}

// Open loads the index from disk or initializes an empty one. A vector file
// whose dimension differs from the configured one, or whose vector count
// does not match the metadata count, is discarded and the index starts
// empty.
func Open(indexPath string, metadataPath string, dimension int, logger *slog.Logger) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid index dimension %d", dimension)
	}

	directory := filepath.Dir(indexPath)
	err := os.MkdirAll(directory, 0750)
	if err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	index := &Index{
		dimension:    dimension,
		indexPath:    indexPath,
		metadataPath: metadataPath,
		vectors:      [][]float32{},
		metadata:     []Metadata{},
		logger:       logger,
	}

	err = index.load()
	if err != nil {
		logger.Warn("Could not load vector index, starting empty", slog.Any("error", err))
		index.vectors = [][]float32{}
		index.metadata = []Metadata{}
	}
	return index, nil
}

func (i *Index) load() error {
	_, indexErr := os.Stat(i.indexPath)
	_, metadataErr := os.Stat(i.metadataPath)
	if os.IsNotExist(indexErr) || os.IsNotExist(metadataErr) {
		return nil
	}

	indexFile, err := os.Open(i.indexPath)
	if err != nil {
		return fmt.Errorf("failed to open vector file: %w", err)
	}
	defer indexFile.Close()

	persisted := persistedVectors{}
	err = gob.NewDecoder(indexFile).Decode(&persisted)
	if err != nil {
		return fmt.Errorf("failed to decode vector file: %w", err)
	}

	metadataBytes, err := os.ReadFile(i.metadataPath)
	if err != nil {
		return fmt.Errorf("failed to read metadata file: %w", err)
	}
	metadata := []Metadata{}
	err = json.Unmarshal(metadataBytes, &metadata)
	if err != nil {
		return fmt.Errorf("failed to decode metadata file: %w", err)
	}

	if persisted.Dimension != i.dimension {
		return fmt.Errorf("stored dimension %d differs from configured dimension %d", persisted.Dimension, i.dimension)
	}
	if len(persisted.Vectors) != len(metadata) {
		return fmt.Errorf("vector count %d differs from metadata count %d", len(persisted.Vectors), len(metadata))
	}

	i.vectors = persisted.Vectors
	i.metadata = metadata
	i.logger.Info("Loaded vector index", slog.Int("vectors", len(i.vectors)))
	return nil
}

// AddBatch appends vectors with their metadata. A vector with the wrong
// dimension is skipped together with its metadata entry, keeping the two
// slices aligned. Returns how many vectors were added.
func (i *Index) AddBatch(vectors [][]float32, metadata []Metadata) (int, error) {
	if len(vectors) != len(metadata) {
		return 0, fmt.Errorf("got %d vectors for %d metadata entries", len(vectors), len(metadata))
	}

	i.mutex.Lock()
	defer i.mutex.Unlock()

	added := 0
	for index, vector := range vectors {
		if len(vector) != i.dimension {
			i.logger.Warn("Skipping vector with wrong dimension",
				slog.Int("dimension", len(vector)),
				slog.String("sourceDocument", metadata[index].SourceDocument))
			continue
		}
		i.vectors = append(i.vectors, vector)
		i.metadata = append(i.metadata, metadata[index])
		added++
	}
	return added, nil
}

// Search returns the topK most similar entries by cosine similarity, sorted
// by descending score. An empty index returns no results.
func (i *Index) Search(vector []float32, topK int) ([]Result, error) {
	if len(vector) != i.dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), i.dimension)
	}
	if topK <= 0 {
		return nil, errors.New("topK must be positive")
	}

	i.mutex.Lock()
	defer i.mutex.Unlock()

	results := make([]Result, 0, len(i.vectors))
	for index, candidate := range i.vectors {
		results = append(results, Result{
			Metadata: i.metadata[index],
			Score:    cosineSimilarity(vector, candidate),
		})
	}

	sort.Slice(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// RemoveDocument drops every entry belonging to the source document and
// returns how many were removed.
func (i *Index) RemoveDocument(sourceDocument string) int {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	keptVectors := make([][]float32, 0, len(i.vectors))
	keptMetadata := make([]Metadata, 0, len(i.metadata))
	removed := 0
	for index, entry := range i.metadata {
		if entry.SourceDocument == sourceDocument {
			removed++
			continue
		}
		keptVectors = append(keptVectors, i.vectors[index])
		keptMetadata = append(keptMetadata, entry)
	}

	i.vectors = keptVectors
	i.metadata = keptMetadata
	return removed
}

// Size returns the number of stored vectors.
func (i *Index) Size() int {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return len(i.vectors)
}

// Save writes the vectors and metadata to their files.
func (i *Index) Save() error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	indexFile, err := os.Create(i.indexPath)
	if err != nil {
		return fmt.Errorf("failed to create vector file: %w", err)
	}
	defer indexFile.Close()

	err = gob.NewEncoder(indexFile).Encode(persistedVectors{
		Dimension: i.dimension,
		Vectors:   i.vectors,
	})
	if err != nil {
		return fmt.Errorf("failed to encode vectors: %w", err)
	}

	metadataBytes, err := json.MarshalIndent(i.metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	err = os.WriteFile(i.metadataPath, metadataBytes, 0640)
	if err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	i.logger.Info("Saved vector index", slog.Int("vectors", len(i.vectors)))
	return nil
}

// cosineSimilarity returns the cosine of the angle between two vectors of
// equal length, or 0 when either has zero magnitude.
func cosineSimilarity(a []float32, b []float32) float64 {
	var dot, normA, normB float64
	for index := range a {
		dot += float64(a[index]) * float64(b[index])
		normA += float64(a[index]) * float64(a[index])
		normB += float64(b[index]) * float64(b[index])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
