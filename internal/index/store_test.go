package index

import "testing"

func TestSearchRanksByCosine(t *testing.T) {
	s := NewStore()
	s.Add([]StoredChunk{
		{ID: "a", Text: "x axis", Embedding: []float32{1, 0}},
		{ID: "b", Text: "diagonal", Embedding: []float32{1, 1}},
		{ID: "c", Text: "y axis", Embedding: []float32{0, 1}},
	})

	hits := s.Search([]float32{1, 0.1}, 2)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits got %d", len(hits))
	}
	if hits[0].Chunk.ID != "a" {
		t.Fatalf("expected chunk a first got %s", hits[0].Chunk.ID)
	}
	if hits[1].Chunk.ID != "b" {
		t.Fatalf("expected chunk b second got %s", hits[1].Chunk.ID)
	}
	if hits[0].Score < hits[1].Score {
		t.Fatalf("scores out of order: %f < %f", hits[0].Score, hits[1].Score)
	}
}

func TestSearchSkipsDimensionMismatch(t *testing.T) {
	s := NewStore()
	s.Add([]StoredChunk{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "bad", Embedding: []float32{1, 0, 0}},
	})
	hits := s.Search([]float32{1, 0}, 5)
	if len(hits) != 1 || hits[0].Chunk.ID != "a" {
		t.Fatalf("expected only matching-dimension chunk, got %+v", hits)
	}
}

func TestLiteralRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3}
	lit := ToLiteral(in)
	out, err := FromLiteral(lit)
	if err != nil {
		t.Fatalf("from literal: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d != %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("component %d: %f != %f", i, out[i], in[i])
		}
	}
	if _, err := FromLiteral("0.1,0.2"); err == nil {
		t.Fatalf("expected error for missing brackets")
	}
}
