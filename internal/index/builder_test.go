package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"noteflow/internal/providers"
	"noteflow/internal/util"
)

type countingEmbedder struct {
	calls  int
	inputs int
}

func (c *countingEmbedder) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	c.calls++
	c.inputs += len(req.Inputs)
	out := make([][]float32, len(req.Inputs))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, providers.ProviderInfo{Name: "stub"}, nil
}

func TestSplitOverlapAndOffsets(t *testing.T) {
	b := NewBuilder(&countingEmbedder{}, 10, 3, 2)
	spans := b.Split(strings.Repeat("a", 25))
	if len(spans) != 4 {
		t.Fatalf("expected 4 spans got %d", len(spans))
	}
	for i, want := range []int{0, 7, 14, 21} {
		if spans[i].Start != want {
			t.Fatalf("span %d start %d want %d", i, spans[i].Start, want)
		}
	}
	if len([]rune(spans[0].Text)) != 10 {
		t.Fatalf("first span length %d want 10", len([]rune(spans[0].Text)))
	}
	if len([]rune(spans[3].Text)) != 4 {
		t.Fatalf("last span length %d want 4", len([]rune(spans[3].Text)))
	}
}

func TestBuildFileBatchesEmbeddings(t *testing.T) {
	emb := &countingEmbedder{}
	b := NewBuilder(emb, 10, 0, 2)
	text := strings.Repeat("b", 10*(embedBatchSize+5))
	chunks, err := b.BuildFile(context.Background(), "f1", text)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(chunks) != embedBatchSize+5 {
		t.Fatalf("expected %d chunks got %d", embedBatchSize+5, len(chunks))
	}
	if emb.calls != 2 {
		t.Fatalf("expected 2 embed batches got %d", emb.calls)
	}
	if emb.inputs != len(chunks) {
		t.Fatalf("embedded %d inputs for %d chunks", emb.inputs, len(chunks))
	}
	for _, c := range chunks {
		if c.ID == "" || c.FileID != "f1" || c.Text == "" {
			t.Fatalf("incomplete chunk: %+v", c)
		}
	}
}

func TestBuildFileIdenticalUploadsStayDistinct(t *testing.T) {
	b := NewBuilder(&countingEmbedder{}, 10, 0, 2)
	text := strings.Repeat("c", 25)

	first, err := b.BuildFile(context.Background(), "upload-1", text)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := b.BuildFile(context.Background(), "upload-2", text)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}

	seen := make(map[string]bool, len(first))
	for _, c := range first {
		seen[c.ID] = true
	}
	for _, c := range second {
		if seen[c.ID] {
			t.Fatalf("chunk id %s reused across uploads of the same text", c.ID)
		}
		if c.FileID != "upload-2" {
			t.Fatalf("chunk %s belongs to %s, want upload-2", c.ID, c.FileID)
		}
	}
}

func TestBuildFileEmptyText(t *testing.T) {
	b := NewBuilder(&countingEmbedder{}, 10, 0, 2)
	if _, err := b.BuildFile(context.Background(), "f1", "   \n\t"); !errors.Is(err, util.ErrNoContent) {
		t.Fatalf("expected ErrNoContent got %v", err)
	}
}
