package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"noteflow/internal/index"
	"noteflow/internal/models"
	"noteflow/internal/providers"
	"noteflow/internal/util"
)

type stubSource struct {
	loads  int
	chunks []index.StoredChunk
}

func (s *stubSource) CollectionChunks(ctx context.Context, collectionID string) ([]index.StoredChunk, error) {
	s.loads++
	return s.chunks, nil
}

type memThreads struct {
	msgs map[string][]models.Message
}

func newMemThreads() *memThreads {
	return &memThreads{msgs: map[string][]models.Message{}}
}

func (m *memThreads) AppendMessage(ctx context.Context, collectionID, role, content string) error {
	m.msgs[collectionID] = append(m.msgs[collectionID], models.Message{
		CollectionID: collectionID,
		Position:     len(m.msgs[collectionID]),
		Role:         role,
		Content:      content,
	})
	return nil
}

func (m *memThreads) ListMessages(ctx context.Context, collectionID string) ([]models.Message, error) {
	return m.msgs[collectionID], nil
}

func (m *memThreads) ResetThread(ctx context.Context, collectionID string) error {
	delete(m.msgs, collectionID)
	return nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type countingLLM struct {
	generates int
	streams   int
}

func (c *countingLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	c.generates++
	return providers.GenerateResponse{Text: "standalone question"}, providers.ProviderInfo{Name: "stub"}, nil
}

func (c *countingLLM) Stream(ctx context.Context, req providers.GenerateRequest, h providers.StreamHandler) (providers.ProviderInfo, error) {
	c.streams++
	for _, d := range []string{"grounded ", "answer"} {
		if err := h(d); err != nil {
			return providers.ProviderInfo{Name: "stub"}, err
		}
	}
	return providers.ProviderInfo{Name: "stub"}, nil
}

func testEngine(src *stubSource, llm *countingLLM) (*Engine, *memThreads) {
	threads := newMemThreads()
	return NewEngine(src, threads, stubEmbedder{}, llm, Options{}), threads
}

func TestQueryLoadsIndexOnce(t *testing.T) {
	src := &stubSource{chunks: []index.StoredChunk{{ID: "c1", Text: "content", Embedding: []float32{1, 0}}}}
	llm := &countingLLM{}
	e, _ := testEngine(src, llm)

	if err := e.EnsureLoaded(context.Background(), "col"); err != nil {
		t.Fatalf("ensure loaded: %v", err)
	}

	var streamed strings.Builder
	answer, err := e.Query(context.Background(), "col", "first question?", func(d string) error {
		streamed.WriteString(d)
		return nil
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if answer != "grounded answer" || streamed.String() != answer {
		t.Fatalf("answer %q streamed %q", answer, streamed.String())
	}
	if _, err := e.Query(context.Background(), "col", "and then?", nil); err != nil {
		t.Fatalf("second query: %v", err)
	}
	if src.loads != 1 {
		t.Fatalf("expected 1 index load got %d", src.loads)
	}
}

func TestFirstTurnSkipsRewrite(t *testing.T) {
	src := &stubSource{chunks: []index.StoredChunk{{ID: "c1", Text: "content", Embedding: []float32{1, 0}}}}
	llm := &countingLLM{}
	e, _ := testEngine(src, llm)

	if _, err := e.Query(context.Background(), "col", "first question?", nil); err != nil {
		t.Fatalf("query: %v", err)
	}
	if llm.generates != 0 {
		t.Fatalf("rewrite should be skipped on an empty thread, got %d generate calls", llm.generates)
	}
	if _, err := e.Query(context.Background(), "col", "and then?", nil); err != nil {
		t.Fatalf("second query: %v", err)
	}
	if llm.generates != 1 {
		t.Fatalf("expected 1 rewrite call got %d", llm.generates)
	}
}

func TestHistoryHidesInternalMessages(t *testing.T) {
	src := &stubSource{chunks: []index.StoredChunk{{ID: "c1", Text: "content", Embedding: []float32{1, 0}}}}
	llm := &countingLLM{}
	e, threads := testEngine(src, llm)

	if _, err := e.Query(context.Background(), "col", "question?", nil); err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(threads.msgs["col"]) <= 2 {
		t.Fatalf("expected internal messages to be persisted, got %d rows", len(threads.msgs["col"]))
	}
	hist, err := e.History(context.Background(), "col")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 exposed messages got %d", len(hist))
	}
	if hist[0].Role != models.RoleHuman || hist[1].Role != models.RoleAI {
		t.Fatalf("unexpected roles: %s, %s", hist[0].Role, hist[1].Role)
	}
}

func TestQueryEmptyCollection(t *testing.T) {
	src := &stubSource{}
	llm := &countingLLM{}
	e, threads := testEngine(src, llm)

	_, err := e.Query(context.Background(), "col", "question?", nil)
	if !errors.Is(err, util.ErrNoContent) {
		t.Fatalf("expected ErrNoContent got %v", err)
	}
	if llm.generates != 0 || llm.streams != 0 {
		t.Fatalf("no model call should happen for an empty collection")
	}
	if len(threads.msgs["col"]) != 0 {
		t.Fatalf("no messages should be persisted for an empty collection")
	}
}

func TestResetClearsThreadOnly(t *testing.T) {
	src := &stubSource{chunks: []index.StoredChunk{{ID: "c1", Text: "content", Embedding: []float32{1, 0}}}}
	llm := &countingLLM{}
	e, _ := testEngine(src, llm)

	if _, err := e.Query(context.Background(), "col", "question?", nil); err != nil {
		t.Fatalf("query: %v", err)
	}
	if err := e.Reset(context.Background(), "col"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := e.Reset(context.Background(), "col"); err != nil {
		t.Fatalf("second reset: %v", err)
	}
	hist, err := e.History(context.Background(), "col")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 0 {
		t.Fatalf("expected empty history after reset got %d", len(hist))
	}
	if _, err := e.Query(context.Background(), "col", "again?", nil); err != nil {
		t.Fatalf("query after reset: %v", err)
	}
	if src.loads != 1 {
		t.Fatalf("reset should keep the cached index, loads=%d", src.loads)
	}
}
