package ingest

import (
	"fmt"
	"strings"
)

// SentenceChunker creates a chunker that splits text into sentences and
// merges consecutive sentences up to maxChunkSize characters. A single
// sentence longer than the limit still becomes its own chunk.
func SentenceChunker(maxChunkSize int) ChunkFunc {
	return func(text string) ([]string, error) {
		if maxChunkSize <= 0 {
			return nil, fmt.Errorf("max chunk size must be positive")
		}

		// Handle empty or whitespace-only text
		if strings.TrimSpace(text) == "" {
			return []string{}, nil
		}

		text = strings.ReplaceAll(text, "! ", "!|")
		text = strings.ReplaceAll(text, "? ", "?|")
		text = strings.ReplaceAll(text, ". ", ".|")

		var sentences []string
		for _, s := range strings.Split(text, "|") {
			s = strings.TrimSpace(s)
			if s != "" {
				sentences = append(sentences, s)
			}
		}

		var chunks []string
		var currentChunk []string
		currentLength := 0

		for _, sentence := range sentences {
			if currentLength > 0 && currentLength+1+len(sentence) > maxChunkSize {
				chunks = append(chunks, strings.Join(currentChunk, " "))
				currentChunk = nil
				currentLength = 0
			}

			currentChunk = append(currentChunk, sentence)
			if currentLength == 0 {
				currentLength = len(sentence)
			} else {
				currentLength += 1 + len(sentence)
			}
		}

		// Add remaining sentences
		if len(currentChunk) > 0 {
			chunks = append(chunks, strings.Join(currentChunk, " "))
		}

		return chunks, nil
	}
}

// ParagraphChunker creates a chunker that splits by paragraphs
func ParagraphChunker() ChunkFunc {
	return func(text string) ([]string, error) {
		paragraphs := strings.Split(text, "\n\n")

		var chunks []string
		for _, para := range paragraphs {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			chunks = append(chunks, para)
		}

		return chunks, nil
	}
}
