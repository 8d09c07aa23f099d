package providers

import (
	"context"
	"strings"
	"testing"
)

func TestMockEmbedDeterministic(t *testing.T) {
	p := NewMockProvider(8)
	a, _, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"alpha", "beta"}})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, _, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"alpha", "beta"}})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(a) != 2 || len(a[0]) != 8 {
		t.Fatalf("unexpected shape: %d x %d", len(a), len(a[0]))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("embedding not deterministic at %d", i)
		}
	}
	if a[0][0] == a[1][0] && a[0][1] == a[1][1] && a[0][2] == a[1][2] {
		t.Fatalf("distinct inputs produced identical vectors")
	}
}

func TestMockStreamReassembles(t *testing.T) {
	p := NewMockProvider(8)
	resp, _, err := p.Generate(context.Background(), GenerateRequest{Operation: "chat_answer"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var sb strings.Builder
	if _, err := p.Stream(context.Background(), GenerateRequest{Operation: "chat_answer"}, func(delta string) error {
		sb.WriteString(delta)
		return nil
	}); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if sb.String() != resp.Text {
		t.Fatalf("stream output %q != generate output %q", sb.String(), resp.Text)
	}
}

func TestManagerFallsBackToMock(t *testing.T) {
	m, err := NewManager("", "", 8)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if m.FirstLLMProvider() == nil || m.FirstEmbedProvider() == nil {
		t.Fatalf("expected mock fallback providers")
	}
	if m.LLMRef().Name != "mock" {
		t.Fatalf("expected mock llm ref got %+v", m.LLMRef())
	}
}
