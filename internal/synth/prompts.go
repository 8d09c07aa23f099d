package synth

import (
	"context"
	"fmt"
	"strings"

	"noteflow/internal/providers"
)

// PromptBuilder renders the map, reduce and collapse prompts for one
// artifact kind, with an optional customization block appended to each
// pass.
type PromptBuilder struct {
	MapInstruction    string
	ReduceInstruction string
	NameSingular      string
	NamePlural        string
	CustomBlock       string
}

func (b PromptBuilder) reduceInstruction() string {
	if b.ReduceInstruction != "" {
		return b.ReduceInstruction
	}
	return fmt.Sprintf("Combine and refine the following %s into a cohesive global %s.", b.NamePlural, b.NameSingular)
}

func (b PromptBuilder) customSection() string {
	if b.CustomBlock == "" {
		return ""
	}
	return b.CustomBlock + "\n\n"
}

func (b PromptBuilder) MapPrompt(text string) string {
	return fmt.Sprintf(
		"%s\nPreserve the language of the original text and strictly follow the customization parameters listed below, if provided.\n\n%sReturn only the requested %s. Do not add any explanations, comments, or extra text.\n\nPassage:\n%s\n\n%s:\n",
		b.MapInstruction, b.customSection(), b.NameSingular, text, capitalize(b.NameSingular))
}

func (b PromptBuilder) ReducePrompt(text string) string {
	return fmt.Sprintf(
		"%s\nPreserve the language of the original text and strictly follow the customization parameters listed below, if provided. Also, maintain the format of the input content.\n\n%sReturn only the requested %s. Do not add any explanations, comments, or extra text.\n\n%s:\n%s\n\nFinal %s:\n",
		b.reduceInstruction(), b.customSection(), b.NameSingular, capitalize(b.NamePlural), text, b.NameSingular)
}

func (b PromptBuilder) CollapsePrompt(text string) string {
	return fmt.Sprintf(
		"Shrink the following %s into a more concise %s.\nPreserve the language of the original text and strictly follow the customization parameters listed below, if provided. Also, maintain the format of the input content.\n\n%sReturn only the requested %s. Do not add any explanations, comments, or extra text.\n\n%s:\n%s\n\nCollapsed %s:\n",
		b.NamePlural, b.NameSingular, b.customSection(), b.NameSingular, capitalize(b.NamePlural), text, b.NameSingular)
}

// Pipeline binds the prompts to an LLM as a ready-to-run pipeline.
func (b PromptBuilder) Pipeline(llm providers.LLMProvider, splitter Splitter, tokenBudget int, operation string) Pipeline {
	call := func(op string, render func(string) string) Transform {
		return func(ctx context.Context, text string) (string, error) {
			resp, _, err := llm.Generate(ctx, providers.GenerateRequest{
				Operation: op,
				Prompt:    render(text),
			})
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(resp.Text), nil
		}
	}
	return Pipeline{
		Splitter:    splitter,
		Map:         call(operation+"_map", b.MapPrompt),
		Collapse:    call(operation+"_collapse", b.CollapsePrompt),
		Reduce:      call(operation+"_reduce", b.ReducePrompt),
		TokenBudget: tokenBudget,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
