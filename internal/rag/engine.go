package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"noteflow/internal/index"
	"noteflow/internal/models"
	"noteflow/internal/providers"
	"noteflow/internal/util"
)

// ChunkSource loads the persisted, embedded chunks of a collection.
type ChunkSource interface {
	CollectionChunks(ctx context.Context, collectionID string) ([]index.StoredChunk, error)
}

// ThreadStore persists the conversation thread of a collection.
type ThreadStore interface {
	AppendMessage(ctx context.Context, collectionID, role, content string) error
	ListMessages(ctx context.Context, collectionID string) ([]models.Message, error)
	ResetThread(ctx context.Context, collectionID string) error
}

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Options bound the conversational windows and retrieval depth.
type Options struct {
	RetrieveK      int
	RewriteWindow  int
	GenerateWindow int
}

func (o Options) withDefaults() Options {
	if o.RetrieveK <= 0 {
		o.RetrieveK = 5
	}
	if o.RewriteWindow <= 0 {
		o.RewriteWindow = 6
	}
	if o.GenerateWindow <= 0 {
		o.GenerateWindow = 8
	}
	return o
}

type collectionState struct {
	mu    sync.Mutex
	index *index.Store
}

// Engine answers conversational queries over a collection. Each query
// runs rewrite, retrieve and generate in order; one query per
// collection executes at a time.
type Engine struct {
	source   ChunkSource
	threads  ThreadStore
	embedder QueryEmbedder
	llm      providers.LLMProvider
	opts     Options

	mu     sync.Mutex
	states map[string]*collectionState
}

func NewEngine(source ChunkSource, threads ThreadStore, embedder QueryEmbedder, llm providers.LLMProvider, opts Options) *Engine {
	return &Engine{
		source:   source,
		threads:  threads,
		embedder: embedder,
		llm:      llm,
		opts:     opts.withDefaults(),
		states:   map[string]*collectionState{},
	}
}

func (e *Engine) state(collectionID string) *collectionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[collectionID]
	if !ok {
		st = &collectionState{}
		e.states[collectionID] = st
	}
	return st
}

// Invalidate drops the cached index for a collection. The next query
// reloads it from the chunk source.
func (e *Engine) Invalidate(collectionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, collectionID)
}

func (e *Engine) ensureLoaded(ctx context.Context, collectionID string, st *collectionState) error {
	if st.index != nil {
		return nil
	}
	chunks, err := e.source.CollectionChunks(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("load collection chunks: %w", err)
	}
	idx := index.NewStore()
	idx.Add(chunks)
	st.index = idx
	return nil
}

// EnsureLoaded warms the index cache for a collection so the first
// query does not pay the load.
func (e *Engine) EnsureLoaded(ctx context.Context, collectionID string) error {
	st := e.state(collectionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return e.ensureLoaded(ctx, collectionID, st)
}

// Query runs one conversational turn. The answer is streamed through h
// as it is generated and the full turn is persisted to the thread.
// Returns util.ErrNoContent, before any model call, when the collection
// has no indexed content.
func (e *Engine) Query(ctx context.Context, collectionID, question string, h providers.StreamHandler) (string, error) {
	st := e.state(collectionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := e.ensureLoaded(ctx, collectionID, st); err != nil {
		return "", err
	}
	if st.index.Len() == 0 {
		return "", util.ErrNoContent
	}

	history, err := e.threads.ListMessages(ctx, collectionID)
	if err != nil {
		return "", fmt.Errorf("load thread: %w", err)
	}
	exposed := exposedOnly(history)

	if err := e.threads.AppendMessage(ctx, collectionID, models.RoleHuman, question); err != nil {
		return "", fmt.Errorf("persist question: %w", err)
	}

	standalone, err := e.rewrite(ctx, exposed, question)
	if err != nil {
		return "", err
	}
	if err := e.threads.AppendMessage(ctx, collectionID, models.RoleInternal, "rewritten: "+standalone); err != nil {
		return "", fmt.Errorf("persist rewrite: %w", err)
	}

	hits, err := e.retrieve(ctx, st, standalone)
	if err != nil {
		return "", err
	}
	grounding := contextBlock(hits)
	if err := e.threads.AppendMessage(ctx, collectionID, models.RoleInternal, grounding); err != nil {
		return "", fmt.Errorf("persist context: %w", err)
	}

	answer, err := e.generate(ctx, exposed, question, grounding, h)
	if err != nil {
		return "", err
	}
	if err := e.threads.AppendMessage(ctx, collectionID, models.RoleAI, answer); err != nil {
		return "", fmt.Errorf("persist answer: %w", err)
	}
	return answer, nil
}

func (e *Engine) rewrite(ctx context.Context, exposed []models.Message, question string) (string, error) {
	window := tail(exposed, e.opts.RewriteWindow)
	if len(window) == 0 {
		return question, nil
	}
	transcript := make([]string, 0, len(window))
	for _, m := range window {
		transcript = append(transcript, m.Role+": "+m.Content)
	}
	resp, _, err := e.llm.Generate(ctx, providers.GenerateRequest{
		Operation: "chat_rewrite",
		System:    rewriteSystem,
		Prompt:    rewritePrompt(transcript, question),
	})
	if err != nil {
		return "", fmt.Errorf("rewrite query: %w", err)
	}
	standalone := strings.TrimSpace(resp.Text)
	if standalone == "" {
		return question, nil
	}
	return standalone, nil
}

func (e *Engine) retrieve(ctx context.Context, st *collectionState, query string) ([]index.SearchHit, error) {
	vec, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed rewritten query: %w", err)
	}
	return st.index.Search(vec, e.opts.RetrieveK), nil
}

func (e *Engine) generate(ctx context.Context, exposed []models.Message, question, contextText string, h providers.StreamHandler) (string, error) {
	window := tail(exposed, e.opts.GenerateWindow)
	msgs := make([]providers.ChatMessage, 0, len(window)+2)
	for _, m := range window {
		role := "user"
		if m.Role == models.RoleAI {
			role = "assistant"
		}
		msgs = append(msgs, providers.ChatMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, providers.ChatMessage{Role: "user", Content: contextText + "\nQuestion: " + question})

	var sb strings.Builder
	_, err := e.llm.Stream(ctx, providers.GenerateRequest{
		Operation: "chat_answer",
		System:    answerSystem,
		Messages:  msgs,
	}, func(delta string) error {
		sb.WriteString(delta)
		if h != nil {
			return h(delta)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return sb.String(), nil
}

// History returns the exposed conversation, with internal rewrite and
// retrieval messages filtered out.
func (e *Engine) History(ctx context.Context, collectionID string) ([]models.Message, error) {
	msgs, err := e.threads.ListMessages(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	return exposedOnly(msgs), nil
}

// Reset clears the conversation thread. The index cache is kept.
func (e *Engine) Reset(ctx context.Context, collectionID string) error {
	st := e.state(collectionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := e.threads.ResetThread(ctx, collectionID); err != nil {
		return fmt.Errorf("reset thread: %w", err)
	}
	return nil
}

func exposedOnly(msgs []models.Message) []models.Message {
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == models.RoleHuman || m.Role == models.RoleAI {
			out = append(out, m)
		}
	}
	return out
}

func tail(msgs []models.Message, n int) []models.Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
