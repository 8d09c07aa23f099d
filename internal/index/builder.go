package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"noteflow/internal/providers"
	"noteflow/internal/util"
)

// Span is a chunk of text plus its rune offset in the source document.
type Span struct {
	Start int
	Text  string
}

// Builder splits document text and embeds the chunks in batches.
type Builder struct {
	embed        providers.EmbeddingProvider
	chunkSize    int
	chunkOverlap int
	dim          int
}

const embedBatchSize = 64

func NewBuilder(embed providers.EmbeddingProvider, chunkSize, chunkOverlap, dim int) *Builder {
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &Builder{embed: embed, chunkSize: chunkSize, chunkOverlap: chunkOverlap, dim: dim}
}

// Split chunks a document the same way the index stores it, keeping the
// rune offset where each chunk begins.
func (b *Builder) Split(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	step := b.chunkSize - b.chunkOverlap
	spans := make([]Span, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + b.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		spans = append(spans, Span{Start: start, Text: string(runes[start:end])})
		if end == len(runes) {
			break
		}
	}
	return spans
}

// BuildFile splits and embeds one document, returning index-ready chunks.
// Returns util.ErrNoContent when the document has no usable text.
func (b *Builder) BuildFile(ctx context.Context, fileID, text string) ([]StoredChunk, error) {
	spans := b.Split(text)
	if len(spans) == 0 {
		return nil, util.ErrNoContent
	}
	chunks := make([]StoredChunk, 0, len(spans))
	for batchStart := 0; batchStart < len(spans); batchStart += embedBatchSize {
		batchEnd := batchStart + embedBatchSize
		if batchEnd > len(spans) {
			batchEnd = len(spans)
		}
		inputs := make([]string, 0, batchEnd-batchStart)
		for _, s := range spans[batchStart:batchEnd] {
			inputs = append(inputs, s.Text)
		}
		vectors, _, err := b.embed.Embed(ctx, providers.EmbedRequest{
			Operation: "index_chunks",
			Inputs:    inputs,
			Dimension: b.dim,
		})
		if err != nil {
			return nil, fmt.Errorf("embed chunk batch: %w", err)
		}
		if len(vectors) != len(inputs) {
			return nil, fmt.Errorf("embedding count mismatch: got %d want %d", len(vectors), len(inputs))
		}
		for i, s := range spans[batchStart:batchEnd] {
			chunks = append(chunks, StoredChunk{
				ID:         uuid.NewString(),
				FileID:     fileID,
				StartIndex: s.Start,
				Text:       s.Text,
				Embedding:  vectors[i],
			})
		}
	}
	return chunks, nil
}

// EmbedQuery embeds a single query string.
func (b *Builder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, _, err := b.embed.Embed(ctx, providers.EmbedRequest{
		Operation: "query",
		Inputs:    []string{query},
		Dimension: b.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding count mismatch: got %d want 1", len(vectors))
	}
	return vectors[0], nil
}
