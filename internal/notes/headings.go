package notes

import (
	"context"
	"fmt"
	"strings"

	"noteflow/internal/custom"
	"noteflow/internal/providers"
	"noteflow/internal/synth"
)

// Headings derives the collection-level name, title and summary from
// the uploaded documents. Runs inline after an upload, not through the
// generation queue.
func (g *Generator) Headings(ctx context.Context, collectionID string, fileIDs []string) (name, title, summary string, err error) {
	text, err := g.collectText(ctx, collectionID, fileIDs)
	if err != nil {
		return "", "", "", err
	}

	builder := synth.PromptBuilder{
		MapInstruction:    "Summarize the following passage.",
		ReduceInstruction: "Combine and refine the following summaries into a short cohesive global summary of a single paragraph.",
		NameSingular:      "summary",
		NamePlural:        "summaries",
		CustomBlock:       custom.Config{}.PromptBlock(),
	}
	pipeline := builder.Pipeline(g.llm, g.splitter, g.tokenBudget, "headings")
	summary, err = pipeline.Run(ctx, text)
	if err != nil {
		return "", "", "", fmt.Errorf("summarize collection: %w", err)
	}

	title, err = g.headingCall(ctx, "collection_title", fmt.Sprintf(
		"Based on the following summary, generate a concise and descriptive title:\n\n%s\n\nTitle:", summary))
	if err != nil {
		return "", "", "", err
	}
	name, err = g.headingCall(ctx, "collection_name", fmt.Sprintf(
		"You are provided a summary of a collection of files. Based on the summary, generate a concise and descriptive name for the collection. It should be only a few words long.\n\nSummary:\n%s\n\nName:", summary))
	if err != nil {
		return "", "", "", err
	}
	return name, title, strings.Trim(summary, `"`), nil
}

func (g *Generator) headingCall(ctx context.Context, operation, prompt string) (string, error) {
	resp, _, err := g.llm.Generate(ctx, providers.GenerateRequest{Operation: operation, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", operation, err)
	}
	return strings.Trim(strings.TrimSpace(resp.Text), `"`), nil
}
