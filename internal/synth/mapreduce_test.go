package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"noteflow/internal/util"
)

func upperTransform(prefix string, calls *int) Transform {
	return func(ctx context.Context, text string) (string, error) {
		if calls != nil {
			*calls++
		}
		return prefix + strings.ToUpper(text[:1]), nil
	}
}

func TestRunEmptyInput(t *testing.T) {
	p := Pipeline{Splitter: NewSplitter(10, 0), Map: upperTransform("m:", nil)}
	if _, err := p.Run(context.Background(), "  \n "); !errors.Is(err, util.ErrNoContent) {
		t.Fatalf("expected ErrNoContent got %v", err)
	}
}

func TestRunSingleChunkSkipsReduce(t *testing.T) {
	var maps, reduces int
	p := Pipeline{
		Splitter: NewSplitter(100, 0),
		Map: func(ctx context.Context, text string) (string, error) {
			maps++
			return "mapped", nil
		},
		Reduce: func(ctx context.Context, text string) (string, error) {
			reduces++
			return "reduced", nil
		},
		TokenBudget: 100,
	}
	out, err := p.Run(context.Background(), "short text")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "mapped" {
		t.Fatalf("expected map output got %q", out)
	}
	if maps != 1 || reduces != 0 {
		t.Fatalf("maps=%d reduces=%d", maps, reduces)
	}
}

func TestRunReducesWithoutCollapseUnderBudget(t *testing.T) {
	var collapses int
	p := Pipeline{
		Splitter: Splitter{ChunkTokens: 2, OverlapTokens: 0},
		Map: func(ctx context.Context, text string) (string, error) {
			return "m", nil
		},
		Collapse: func(ctx context.Context, text string) (string, error) {
			collapses++
			return "c", nil
		},
		Reduce: func(ctx context.Context, text string) (string, error) {
			return "final", nil
		},
		TokenBudget: 1000,
	}
	out, err := p.Run(context.Background(), strings.Repeat("x", 40))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "final" {
		t.Fatalf("expected reduce output got %q", out)
	}
	if collapses != 0 {
		t.Fatalf("collapse should not run under budget, got %d calls", collapses)
	}
}

func TestRunCollapsesOverBudget(t *testing.T) {
	var collapses int
	p := Pipeline{
		Splitter: Splitter{ChunkTokens: 10, OverlapTokens: 0},
		Map: func(ctx context.Context, text string) (string, error) {
			// Each intermediate is ~10 tokens.
			return strings.Repeat("y", 40), nil
		},
		Collapse: func(ctx context.Context, text string) (string, error) {
			collapses++
			return "c", nil
		},
		Reduce: func(ctx context.Context, text string) (string, error) {
			return "final", nil
		},
		TokenBudget: 25,
	}
	// 4 chunks of 10 tokens each, joined ~43 tokens > budget 25.
	out, err := p.Run(context.Background(), strings.Repeat("x", 160))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "final" {
		t.Fatalf("expected reduce output got %q", out)
	}
	if collapses == 0 {
		t.Fatalf("expected at least one collapse call")
	}
}

func TestApproxTokens(t *testing.T) {
	if got := ApproxTokens(""); got != 0 {
		t.Fatalf("empty text: got %d", got)
	}
	if got := ApproxTokens("abcd"); got != 1 {
		t.Fatalf("4 runes: got %d", got)
	}
	if got := ApproxTokens("abcde"); got != 2 {
		t.Fatalf("5 runes rounds up: got %d", got)
	}
}
