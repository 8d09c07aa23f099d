package synth

import (
	"context"
	"fmt"
	"strings"

	"noteflow/internal/util"
)

// Transform applies one model pass to a piece of text.
type Transform func(ctx context.Context, text string) (string, error)

// Pipeline synthesizes one artifact from arbitrarily long source text.
// Map runs once per chunk, Collapse merges groups of intermediates that
// exceed the token budget, and Reduce produces the final artifact from
// the surviving intermediates.
type Pipeline struct {
	Splitter    Splitter
	Map         Transform
	Collapse    Transform
	Reduce      Transform
	TokenBudget int
}

const intermediateSep = "\n\n---\n\n"

// Run synthesizes the artifact. Empty input returns util.ErrNoContent.
// A single intermediate is returned as-is without a reduce pass.
func (p Pipeline) Run(ctx context.Context, text string) (string, error) {
	chunks := p.Splitter.Split(text)
	if len(chunks) == 0 {
		return "", util.ErrNoContent
	}

	intermediates := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := p.Map(ctx, chunk)
		if err != nil {
			return "", fmt.Errorf("map chunk %d: %w", i, err)
		}
		intermediates = append(intermediates, out)
	}
	if len(intermediates) == 1 {
		return intermediates[0], nil
	}

	intermediates, err := p.collapseUntilFits(ctx, intermediates)
	if err != nil {
		return "", err
	}
	if len(intermediates) == 1 {
		return intermediates[0], nil
	}

	final, err := p.Reduce(ctx, strings.Join(intermediates, intermediateSep))
	if err != nil {
		return "", fmt.Errorf("reduce intermediates: %w", err)
	}
	return final, nil
}

// collapseUntilFits repeatedly merges greedy left-to-right groups of
// intermediates until their joined size fits the token budget. Each
// round strictly shrinks the list, so the loop terminates.
func (p Pipeline) collapseUntilFits(ctx context.Context, intermediates []string) ([]string, error) {
	budget := p.TokenBudget
	if budget <= 0 {
		budget = 8192
	}
	for len(intermediates) > 1 && ApproxTokens(strings.Join(intermediates, intermediateSep)) > budget {
		groups := packGroups(intermediates, budget)
		if len(groups) >= len(intermediates) {
			// Nothing can be merged without exceeding the budget;
			// collapse pairwise to guarantee progress.
			groups = pairGroups(intermediates)
		}
		next := make([]string, 0, len(groups))
		for i, g := range groups {
			if len(g) == 1 {
				next = append(next, g[0])
				continue
			}
			merged, err := p.Collapse(ctx, strings.Join(g, intermediateSep))
			if err != nil {
				return nil, fmt.Errorf("collapse group %d: %w", i, err)
			}
			next = append(next, merged)
		}
		intermediates = next
	}
	return intermediates, nil
}

// packGroups greedily packs consecutive intermediates into groups whose
// joined size stays within the budget.
func packGroups(intermediates []string, budget int) [][]string {
	groups := make([][]string, 0, len(intermediates))
	var current []string
	currentTokens := 0
	for _, in := range intermediates {
		t := ApproxTokens(in)
		if len(current) > 0 && currentTokens+t > budget {
			groups = append(groups, current)
			current = nil
			currentTokens = 0
		}
		current = append(current, in)
		currentTokens += t
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func pairGroups(intermediates []string) [][]string {
	groups := make([][]string, 0, (len(intermediates)+1)/2)
	for i := 0; i < len(intermediates); i += 2 {
		end := i + 2
		if end > len(intermediates) {
			end = len(intermediates)
		}
		groups = append(groups, intermediates[i:end])
	}
	return groups
}
