package connector

import "github.com/anuj67851/graph-rag-metadata/model"

func testChunks(filename string, texts ...string) []*model.SourceChunk {
	chunks := make([]*model.SourceChunk, 0, len(texts))
	for _, text := range texts {
		chunks = append(chunks, &model.SourceChunk{
			ChunkText:      text,
			SourceDocument: filename,
			EntityIDs:      []string{},
		})
	}
	return chunks
}
