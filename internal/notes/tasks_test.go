package notes

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"noteflow/internal/audio"
	"noteflow/internal/custom"
	"noteflow/internal/models"
	"noteflow/internal/providers"
	"noteflow/internal/synth"
	"noteflow/internal/util"
)

type stubFiles struct {
	texts []models.FileText
}

func (s *stubFiles) GetFileTexts(ctx context.Context, collectionID string, fileIDs []string) ([]models.FileText, error) {
	return s.texts, nil
}

type stubNotes struct {
	noteID    string
	title     string
	content   string
	audioPath string
}

func (s *stubNotes) CompleteNote(ctx context.Context, noteID, title, content, audioPath string) error {
	s.noteID, s.title, s.content, s.audioPath = noteID, title, content, audioPath
	return nil
}

type stubCollections struct{}

func (stubCollections) GetCollection(ctx context.Context, collectionID string) (models.Collection, error) {
	return models.Collection{CollectionID: collectionID, Title: "Test Collection", Summary: "About testing."}, nil
}

type scriptLLM struct {
	script string
}

func (s *scriptLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	info := providers.ProviderInfo{Name: "stub"}
	switch {
	case strings.HasSuffix(req.Operation, "_map"), strings.HasSuffix(req.Operation, "_reduce"), strings.HasSuffix(req.Operation, "_collapse"):
		if s.script != "" {
			return providers.GenerateResponse{Text: s.script}, info, nil
		}
		return providers.GenerateResponse{Text: "synthesized content"}, info, nil
	case req.Operation == "note_title":
		return providers.GenerateResponse{Text: `"A Fitting Title"`}, info, nil
	}
	return providers.GenerateResponse{Text: "generic"}, info, nil
}

func (s *scriptLLM) Stream(ctx context.Context, req providers.GenerateRequest, h providers.StreamHandler) (providers.ProviderInfo, error) {
	resp, info, err := s.Generate(ctx, req)
	if err != nil {
		return info, err
	}
	return info, h(resp.Text)
}

type stubAudio struct {
	turns []audio.Turn
}

func (s *stubAudio) Synthesize(ctx context.Context, noteID, lang string, turns []audio.Turn) (string, error) {
	s.turns = turns
	return "/audio/" + noteID + ".wav", nil
}

func newTestGenerator(llm providers.LLMProvider, synthesizer audio.Synthesizer, store *stubNotes) *Generator {
	files := &stubFiles{texts: []models.FileText{{FileID: "f1", Text: "document content"}}}
	return NewGenerator(files, store, stubCollections{}, llm, synthesizer, synth.NewSplitter(100, 0), 100, nil)
}

func TestGenerateSummaryNote(t *testing.T) {
	store := &stubNotes{}
	g := newTestGenerator(&scriptLLM{}, nil, store)
	cfg, err := custom.ForSummary("high", "academic", "medium", "low")
	require.NoError(t, err)

	err = g.Generate(context.Background(), Request{
		NoteID:       "n1",
		CollectionID: "c1",
		Type:         models.NoteSummary,
		Custom:       cfg,
	})
	require.NoError(t, err)
	require.Equal(t, "n1", store.noteID)
	require.Equal(t, "synthesized content", store.content)
	require.Equal(t, "A Fitting Title", store.title, "title quotes should be stripped")
	require.Empty(t, store.audioPath, "summary note should not have audio")
}

func TestGeneratePodcastNote(t *testing.T) {
	store := &stubNotes{}
	synthesizer := &stubAudio{}
	llm := &scriptLLM{script: `[{ "speaker": "1", "text": "Hello." },{ "speaker": "2", "text": "Hi." }]`}
	g := newTestGenerator(llm, synthesizer, store)
	cfg, err := custom.ForPodcast("low", "non-technical", "medium", "low", "conversational")
	require.NoError(t, err)

	err = g.Generate(context.Background(), Request{
		NoteID:       "n2",
		CollectionID: "c1",
		Type:         models.NotePodcast,
		Custom:       cfg,
		Language:     "eu",
	})
	require.NoError(t, err)
	require.Equal(t, "/audio/n2.wav", store.audioPath)
	require.Len(t, synthesizer.turns, 2)
}

func TestGenerateEmptyCollection(t *testing.T) {
	store := &stubNotes{}
	g := NewGenerator(&stubFiles{}, store, stubCollections{}, &scriptLLM{}, nil, synth.NewSplitter(100, 0), 100, nil)
	err := g.Generate(context.Background(), Request{NoteID: "n3", CollectionID: "c1", Type: models.NoteSummary})
	require.ErrorIs(t, err, util.ErrNoContent)
	require.Empty(t, store.noteID, "no note should be stored on failure")
}

func TestGenerateUnknownType(t *testing.T) {
	g := newTestGenerator(&scriptLLM{}, nil, &stubNotes{})
	err := g.Generate(context.Background(), Request{NoteID: "n4", CollectionID: "c1", Type: "haiku"})
	require.Error(t, err)
}

func TestHeadings(t *testing.T) {
	store := &stubNotes{}
	g := newTestGenerator(&scriptLLM{}, nil, store)
	name, title, summary, err := g.Headings(context.Background(), "c1", nil)
	require.NoError(t, err)
	require.NotEmpty(t, name)
	require.NotEmpty(t, title)
	require.NotEmpty(t, summary)
}
