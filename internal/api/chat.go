package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"noteflow/internal/util"
)

// sseChunk mirrors the OpenAI streaming wire format so existing chat
// clients can consume the stream unchanged.
type sseChunk struct {
	Choices []sseChoice `json:"choices"`
}

type sseChoice struct {
	Delta sseDelta `json:"delta"`
}

type sseDelta struct {
	Content string `json:"content"`
}

func (s *Server) handleCollectionChat(w http.ResponseWriter, r *http.Request, collectionID string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		s.handleChatHistory(w, r, collectionID)
	case len(rest) == 0 && r.Method == http.MethodPost:
		s.handleChatQuery(w, r, collectionID)
	case len(rest) == 1 && rest[0] == "reset" && r.Method == http.MethodPost:
		s.handleChatReset(w, r, collectionID)
	case len(rest) == 0 || (len(rest) == 1 && rest[0] == "reset"):
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request, collectionID string) {
	msgs, err := s.engine.History(r.Context(), collectionID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleChatReset(w http.ResponseWriter, r *http.Request, collectionID string) {
	if err := s.engine.Reset(r.Context(), collectionID); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reset": collectionID})
}

func (s *Server) handleChatQuery(w http.ResponseWriter, r *http.Request, collectionID string) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	timeout := time.Duration(s.cfg.ChatTimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	started := false
	_, err := s.engine.Query(ctx, collectionID, req.Question, func(delta string) error {
		started = true
		payload, err := json.Marshal(sseChunk{Choices: []sseChoice{{Delta: sseDelta{Content: delta}}}})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if !started {
			// Headers are not committed until the first flush, so a
			// pre-stream failure can still produce a JSON error.
			w.Header().Del("Content-Type")
			w.Header().Del("Cache-Control")
			w.Header().Del("Connection")
			if errors.Is(err, util.ErrNoContent) {
				writeErr(w, http.StatusBadRequest, err)
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		s.log.Error("chat stream aborted",
			zap.String("collection_id", collectionID),
			zap.Error(err))
		return
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
