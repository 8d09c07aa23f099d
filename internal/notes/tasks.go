// Package notes synthesizes note artifacts from the documents of a
// collection. Each note type maps to one prompt set run through the
// map-reduce pipeline.
package notes

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"noteflow/internal/audio"
	"noteflow/internal/custom"
	"noteflow/internal/models"
	"noteflow/internal/providers"
	"noteflow/internal/synth"
	"noteflow/internal/util"
)

// FileSource loads document texts for synthesis.
type FileSource interface {
	GetFileTexts(ctx context.Context, collectionID string, fileIDs []string) ([]models.FileText, error)
}

// NoteStore records the outcome of a generation task.
type NoteStore interface {
	CompleteNote(ctx context.Context, noteID, title, content, audioPath string) error
}

// CollectionSource provides collection descriptors for title prompts.
type CollectionSource interface {
	GetCollection(ctx context.Context, collectionID string) (models.Collection, error)
}

// Request describes one note to generate.
type Request struct {
	NoteID       string
	CollectionID string
	FileIDs      []string
	Type         models.NoteType
	Custom       custom.Config
	Language     string
}

type Generator struct {
	files       FileSource
	notes       NoteStore
	collections CollectionSource
	llm         providers.LLMProvider
	audio       audio.Synthesizer
	splitter    synth.Splitter
	tokenBudget int
	log         *zap.Logger
}

func NewGenerator(files FileSource, notes NoteStore, collections CollectionSource, llm providers.LLMProvider, synthesizer audio.Synthesizer, splitter synth.Splitter, tokenBudget int, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	if synthesizer == nil {
		synthesizer = audio.Disabled{}
	}
	return &Generator{
		files:       files,
		notes:       notes,
		collections: collections,
		llm:         llm,
		audio:       synthesizer,
		splitter:    splitter,
		tokenBudget: tokenBudget,
		log:         log,
	}
}

// Generate synthesizes the note content, titles it and stores the
// completed note. The queue worker marks the note failed if this
// returns an error.
func (g *Generator) Generate(ctx context.Context, req Request) error {
	text, err := g.collectText(ctx, req.CollectionID, req.FileIDs)
	if err != nil {
		return err
	}

	builder, err := promptFor(req.Type, req.Custom)
	if err != nil {
		return err
	}
	pipeline := builder.Pipeline(g.llm, g.splitter, g.tokenBudget, string(req.Type))
	content, err := pipeline.Run(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize %s: %w", req.Type, err)
	}

	title, err := g.noteTitle(ctx, req.CollectionID, req.Type, content)
	if err != nil {
		return err
	}

	audioPath := ""
	if req.Type == models.NotePodcast {
		turns, err := ParseScript(content)
		if err != nil {
			return fmt.Errorf("parse podcast script: %w", err)
		}
		audioPath, err = g.audio.Synthesize(ctx, req.NoteID, req.Language, turns)
		if err != nil {
			return fmt.Errorf("synthesize podcast audio: %w", err)
		}
	}

	if err := g.notes.CompleteNote(ctx, req.NoteID, title, content, audioPath); err != nil {
		return fmt.Errorf("store note: %w", err)
	}
	g.log.Info("note generated",
		zap.String("note_id", req.NoteID),
		zap.String("collection_id", req.CollectionID),
		zap.String("type", string(req.Type)))
	return nil
}

func (g *Generator) collectText(ctx context.Context, collectionID string, fileIDs []string) (string, error) {
	docs, err := g.files.GetFileTexts(ctx, collectionID, fileIDs)
	if err != nil {
		return "", fmt.Errorf("load documents: %w", err)
	}
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Text) != "" {
			texts = append(texts, d.Text)
		}
	}
	if len(texts) == 0 {
		return "", util.ErrNoContent
	}
	return strings.Join(texts, "\n\n"), nil
}

func (g *Generator) noteTitle(ctx context.Context, collectionID string, noteType models.NoteType, content string) (string, error) {
	col, err := g.collections.GetCollection(ctx, collectionID)
	if err != nil {
		return "", fmt.Errorf("load collection: %w", err)
	}
	resp, _, err := g.llm.Generate(ctx, providers.GenerateRequest{
		Operation: "note_title",
		Prompt: fmt.Sprintf(
			"Based on the following note, generate a concise and descriptive title.\n"+
				"The note is part of a collection with the following title and summary. Use this information to create a more relevant title.\n\n"+
				"Return only the requested title. Do not add any explanations, comments, or extra text.\n\n"+
				"Collection title: %s\nCollection summary: %s\nNote type: %s\nNote content:\n%s\n\nTitle:",
			col.Title, col.Summary, noteType, content),
	})
	if err != nil {
		return "", fmt.Errorf("generate note title: %w", err)
	}
	return strings.Trim(strings.TrimSpace(resp.Text), `"`), nil
}

const mindMapStructure = "Provide the graph representation of the mind map following the JSON structure provided below. " +
	"The graph should not contain more than 30 nodes.\n\n" +
	"JSON structure of the output:\n" +
	"{\n" +
	"  \"nodes\": [\n" +
	"    {\"id\": \"1\", \"label\": \"Artificial Intelligence\" },\n" +
	"    {\"id\": \"2\", \"label\": \"Machine Learning\" },\n" +
	"    {\"id\": \"3\", \"label\": \"Neural Networks\" }\n" +
	"  ],\n" +
	"  \"edges\": [\n" +
	"    {\"source\": \"1\", \"target\": \"2\", \"relation\": \"includes\" },\n" +
	"    {\"source\": \"2\", \"target\": \"3\", \"relation\": \"includes\" }\n" +
	"  ]\n" +
	"}"

const podcastStructure = "In order to represent the script, you must follow the JSON structure provided below.\n\n" +
	"Script format:\n" +
	"[\n" +
	"  { \"speaker\": \"1\", \"text\": \"...\" },\n" +
	"  { \"speaker\": \"2\", \"text\": \"...\" },\n" +
	"  { \"speaker\": \"1\", \"text\": \"...\" }\n" +
	"]"

func promptFor(noteType models.NoteType, cfg custom.Config) (synth.PromptBuilder, error) {
	block := cfg.PromptBlock()
	switch noteType {
	case models.NoteSummary:
		return synth.PromptBuilder{
			MapInstruction: "Summarize the following passage.",
			NameSingular:   "summary",
			NamePlural:     "summaries",
			CustomBlock:    block,
		}, nil
	case models.NoteFAQ:
		return synth.PromptBuilder{
			MapInstruction: "Build a FAQ from the following passage.",
			NameSingular:   "FAQ",
			NamePlural:     "FAQs",
			CustomBlock:    block,
		}, nil
	case models.NoteGlossary:
		return synth.PromptBuilder{
			MapInstruction: "Build a glossary from the following passage, where the most significant terms are listed along with their descriptions.",
			NameSingular:   "glossary",
			NamePlural:     "glossaries",
			CustomBlock:    block,
		}, nil
	case models.NoteOutline:
		return synth.PromptBuilder{
			MapInstruction: "Build an outline of the following passage.",
			NameSingular:   "outline",
			NamePlural:     "outlines",
			CustomBlock:    block,
		}, nil
	case models.NoteTimeline:
		return synth.PromptBuilder{
			MapInstruction: "Build a timeline from the following passage, listing the significant events in chronological order.",
			NameSingular:   "timeline",
			NamePlural:     "timelines",
			CustomBlock:    block,
		}, nil
	case models.NoteMindMap:
		return synth.PromptBuilder{
			MapInstruction: "Build a mind map of the following passage.\n" + mindMapStructure,
			ReduceInstruction: "Combine and refine the following mind maps into a cohesive and concise global mind map. " +
				"If the content is too long, shorten it to be as brief as possible while keeping the main content.",
			NameSingular: "mind map",
			NamePlural:   "mind maps",
			CustomBlock:  block,
		}, nil
	case models.NotePodcast:
		kind := cfg.Value("podcast_type")
		if kind == "" {
			kind = string(custom.PodcastConversational)
		}
		return synth.PromptBuilder{
			MapInstruction: fmt.Sprintf("Generate a %s podcast script from the contents of the following passage.\n%s", kind, podcastStructure),
			NameSingular:   fmt.Sprintf("%s podcast script", kind),
			NamePlural:     fmt.Sprintf("%s podcast scripts", kind),
			CustomBlock:    block,
		}, nil
	}
	return synth.PromptBuilder{}, fmt.Errorf("unknown note type %q", noteType)
}
