package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"noteflow/internal/custom"
	"noteflow/internal/models"
	notegen "noteflow/internal/notes"
	"noteflow/internal/queue"
)

type noteRequest struct {
	FileIDs            []string `json:"file_ids"`
	Language           string   `json:"language"`
	Formality          string   `json:"formality"`
	Style              string   `json:"style"`
	Detail             string   `json:"detail"`
	LanguageComplexity string   `json:"language_complexity"`
	PodcastType        string   `json:"podcast_type"`
}

func (s *Server) handleCollectionNotes(w http.ResponseWriter, r *http.Request, collectionID string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		notes, err := s.noteRepo.ListNotesByCollection(r.Context(), collectionID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
	case len(rest) == 1 && r.Method == http.MethodPost:
		s.handleCreateNote(w, r, collectionID, models.NoteType(rest[0]))
	case len(rest) <= 1:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request, collectionID string, noteType models.NoteType) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}

	cfg, err := customFor(noteType, req)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if _, err := s.collections.GetCollection(r.Context(), collectionID); err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = s.cfg.DefaultLanguage
	}

	noteID := uuid.NewString()
	if err := s.noteRepo.CreateEmptyNote(r.Context(), noteID, collectionID, noteType); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	genReq := notegen.Request{
		NoteID:       noteID,
		CollectionID: collectionID,
		FileIDs:      req.FileIDs,
		Type:         noteType,
		Custom:       cfg,
		Language:     language,
	}
	if err := s.queue.Enqueue(queue.Task{
		NoteID: noteID,
		Kind:   string(noteType),
		Run: func(ctx context.Context) error {
			return s.generator.Generate(ctx, genReq)
		},
	}); err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"note_id":       noteID,
		"type":          noteType,
		"status":        models.NoteStatusPending,
		"customization": cfg.Params(),
	})
}

func customFor(noteType models.NoteType, req noteRequest) (custom.Config, error) {
	switch noteType {
	case models.NoteSummary:
		return custom.ForSummary(req.Formality, req.Style, req.Detail, req.LanguageComplexity)
	case models.NoteFAQ:
		return custom.ForFAQ(req.Detail, req.LanguageComplexity)
	case models.NoteGlossary:
		return custom.ForGlossary(req.Detail, req.LanguageComplexity)
	case models.NoteOutline:
		return custom.ForOutline(req.Detail)
	case models.NoteTimeline:
		return custom.ForTimeline(req.Detail)
	case models.NoteMindMap:
		return custom.ForMindMap(req.Detail)
	case models.NotePodcast:
		return custom.ForPodcast(req.Formality, req.Style, req.Detail, req.LanguageComplexity, req.PodcastType)
	}
	return custom.Config{}, fmt.Errorf("invalid note type %q", noteType)
}

func (s *Server) handleNoteScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/notes/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	noteID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		n, err := s.noteRepo.GetNote(r.Context(), noteID)
		if err != nil {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, n)
		return
	}

	if len(parts) == 2 && parts[1] == "audio" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		n, err := s.noteRepo.GetNote(r.Context(), noteID)
		if err != nil {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		if n.AudioPath == "" {
			writeErr(w, http.StatusNotFound, fmt.Errorf("note has no audio"))
			return
		}
		http.ServeFile(w, r, n.AudioPath)
		return
	}

	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}
