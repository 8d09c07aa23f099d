package index

import (
	"math"
	"sort"
	"sync"
)

// StoredChunk is one indexed span of a source document.
type StoredChunk struct {
	ID         string
	FileID     string
	StartIndex int
	Text       string
	Embedding  []float32
}

// SearchHit pairs a chunk with its cosine similarity to the query.
type SearchHit struct {
	Chunk StoredChunk
	Score float32
}

// Store is an exact in-memory vector index. Vectors are L2-normalized
// on insert so similarity reduces to a dot product.
type Store struct {
	mu     sync.RWMutex
	chunks []StoredChunk
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Add(chunks []StoredChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		c.Embedding = normalized(c.Embedding)
		s.chunks = append(s.chunks, c)
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Search returns the top k chunks by cosine similarity, best first.
func (s *Store) Search(query []float32, k int) []SearchHit {
	if k <= 0 {
		return nil
	}
	q := normalized(query)

	s.mu.RLock()
	defer s.mu.RUnlock()
	hits := make([]SearchHit, 0, len(s.chunks))
	for _, c := range s.chunks {
		if len(c.Embedding) != len(q) {
			continue
		}
		hits = append(hits, SearchHit{Chunk: c, Score: dot(q, c.Embedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func normalized(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}
