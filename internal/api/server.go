package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"noteflow/internal/config"
	"noteflow/internal/extract"
	"noteflow/internal/index"
	"noteflow/internal/models"
	notegen "noteflow/internal/notes"
	"noteflow/internal/providers"
	"noteflow/internal/queue"
	"noteflow/internal/rag"
	"noteflow/internal/storage"
	"noteflow/internal/synth"
	"noteflow/internal/util"

	"noteflow/internal/audio"
)

type Server struct {
	cfg config.Config
	log *zap.Logger

	db          *storage.DB
	collections *storage.CollectionRepo
	files       *storage.FileRepo
	noteRepo    *storage.NoteRepo
	chunks      *storage.ChunkRepo
	chat        *storage.ChatRepo

	providers *providers.Manager
	builder   *index.Builder
	engine    *rag.Engine
	queue     *queue.Queue
	generator *notegen.Generator
}

// chunkSource adapts the chunk repository to the retrieval engine,
// decoding the stored pgvector literals.
type chunkSource struct {
	repo *storage.ChunkRepo
}

func (c chunkSource) CollectionChunks(ctx context.Context, collectionID string) ([]index.StoredChunk, error) {
	records, err := c.repo.ListCollectionChunks(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	out := make([]index.StoredChunk, 0, len(records))
	for _, rec := range records {
		if rec.EmbeddingVector == nil {
			continue
		}
		vec, err := index.FromLiteral(*rec.EmbeddingVector)
		if err != nil {
			return nil, fmt.Errorf("decode chunk %s embedding: %w", rec.ChunkID, err)
		}
		out = append(out, index.StoredChunk{
			ID:         rec.ChunkID,
			FileID:     rec.FileID,
			StartIndex: rec.StartIndex,
			Text:       rec.Text,
			Embedding:  vec,
		})
	}
	return out, nil
}

func NewServer(cfg config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	pm, err := providers.NewManager(cfg.LLMProviders, cfg.EmbedProviders, cfg.EmbedDim)
	if err != nil {
		panic(err)
	}
	log.Info("providers ready",
		zap.String("llm", pm.LLMRef().Raw),
		zap.String("embed", pm.EmbedRef().Raw))

	chunkRepo := storage.NewChunkRepo(db)
	chatRepo := storage.NewChatRepo(db)
	fileRepo := storage.NewFileRepo(db)
	noteRepo := storage.NewNoteRepo(db)
	collectionRepo := storage.NewCollectionRepo(db)

	builder := index.NewBuilder(pm.FirstEmbedProvider(), cfg.IndexChunkSize, cfg.IndexChunkOverlap, cfg.EmbedDim)
	engine := rag.NewEngine(chunkSource{repo: chunkRepo}, chatRepo, builder, pm.FirstLLMProvider(), rag.Options{
		RetrieveK:      cfg.RetrieveK,
		RewriteWindow:  cfg.RewriteWindow,
		GenerateWindow: cfg.GenerateWindow,
	})

	var synthesizer audio.Synthesizer = audio.Disabled{}
	if cfg.TTSPath != "" {
		synthesizer = audio.NewExecEngine(cfg.TTSPath, cfg.AudioDir(), log)
	}
	splitter := synth.NewSplitter(cfg.SynthChunkTokens, cfg.SynthChunkOverlap)
	generator := notegen.NewGenerator(fileRepo, noteRepo, collectionRepo, pm.FirstLLMProvider(), synthesizer, splitter, cfg.SynthTokenBudget, log)

	return &Server{
		cfg:         cfg,
		log:         log,
		db:          db,
		collections: collectionRepo,
		files:       fileRepo,
		noteRepo:    noteRepo,
		chunks:      chunkRepo,
		chat:        chatRepo,
		providers:   pm,
		builder:     builder,
		engine:      engine,
		queue:       queue.New(noteRepo, log),
		generator:   generator,
	}
}

// Start launches the generation worker. It stops when ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// WaitForWorker blocks until the generation worker has drained.
func (s *Server) WaitForWorker() {
	<-s.queue.Done()
}

func (s *Server) Close() {
	s.db.Close()
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/collections", s.handleCollections)
	mux.HandleFunc("/collections/", s.handleCollectionScoped)
	mux.HandleFunc("/notes/", s.handleNoteScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		collections, err := s.collections.ListCollections(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"collections": collections})
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("name is required"))
			return
		}
		collectionID := uuid.NewString()
		if err := s.collections.CreateCollection(r.Context(), models.Collection{CollectionID: collectionID, Name: req.Name}); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"collection_id": collectionID, "name": req.Name})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleCollectionScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/collections/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	collectionID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			col, err := s.collections.GetCollection(r.Context(), collectionID)
			if err != nil {
				writeErr(w, http.StatusNotFound, err)
				return
			}
			writeJSON(w, http.StatusOK, col)
		case http.MethodDelete:
			s.handleDeleteCollection(w, r, collectionID)
		default:
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		}
		return
	}

	if len(parts) == 2 && parts[1] == "rename" {
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("name is required"))
			return
		}
		if err := s.collections.RenameCollection(r.Context(), collectionID, req.Name); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"collection_id": collectionID, "name": req.Name})
		return
	}

	if len(parts) == 2 && parts[1] == "upload" {
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleUpload(w, r, collectionID)
		return
	}

	if len(parts) == 2 && parts[1] == "files" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		files, err := s.files.ListFilesByCollection(r.Context(), collectionID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": files})
		return
	}

	if len(parts) == 3 && parts[1] == "files" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		f, err := s.files.GetFile(r.Context(), collectionID, parts[2])
		if err != nil {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
		return
	}

	if len(parts) >= 2 && parts[1] == "notes" {
		s.handleCollectionNotes(w, r, collectionID, parts[2:])
		return
	}

	if len(parts) >= 2 && parts[1] == "chat" {
		s.handleCollectionChat(w, r, collectionID, parts[2:])
		return
	}

	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request, collectionID string) {
	if err := s.chunks.DeleteByCollection(r.Context(), collectionID); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.collections.DeleteCollection(r.Context(), collectionID); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.engine.Invalidate(collectionID)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": collectionID})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, collectionID string) {
	if err := r.ParseMultipartForm(128 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		if single, ok := firstSingleFile(r.MultipartForm.File); ok {
			files = append(files, single)
		}
	}
	if len(files) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}

	type uploadResult struct {
		Filename string `json:"filename"`
		FileID   string `json:"file_id"`
	}
	out := make([]uploadResult, 0, len(files))
	uploadedIDs := make([]string, 0, len(files))

	for _, fh := range files {
		data, err := readUploadedFile(fh)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		text, format, err := extract.Extract(fh.Filename, data)
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("extract %s: %w", fh.Filename, err))
			return
		}
		// Every upload is a new file, even for identical bytes. The
		// content hash is kept as metadata so clients can spot repeats.
		fileID := uuid.NewString()
		if err := s.files.InsertFile(r.Context(), models.File{
			FileID:       fileID,
			CollectionID: collectionID,
			Name:         fh.Filename,
			Hash:         util.SHA256Hex(data),
			Text:         text,
			CharCount:    len([]rune(text)),
			Format:       format,
		}); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if err := s.indexFile(r.Context(), collectionID, fileID, text); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, uploadResult{Filename: fh.Filename, FileID: fileID})
		uploadedIDs = append(uploadedIDs, fileID)
	}
	s.engine.Invalidate(collectionID)
	if err := s.engine.EnsureLoaded(r.Context(), collectionID); err != nil {
		s.log.Warn("warm collection index", zap.String("collection_id", collectionID), zap.Error(err))
	}

	name, title, summary, err := s.generator.Headings(r.Context(), collectionID, uploadedIDs)
	if err != nil {
		s.log.Warn("generate collection headings", zap.String("collection_id", collectionID), zap.Error(err))
	} else if err := s.collections.SetDescriptors(r.Context(), collectionID, name, title, summary); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uploaded": out,
		"name":     name,
		"title":    title,
		"summary":  summary,
	})
}

func (s *Server) indexFile(ctx context.Context, collectionID, fileID, text string) error {
	chunks, err := s.builder.BuildFile(ctx, fileID, text)
	if err != nil {
		return fmt.Errorf("index %s: %w", fileID, err)
	}
	records := make([]storage.ChunkRecord, 0, len(chunks))
	for i, c := range chunks {
		lit := index.ToLiteral(c.Embedding)
		records = append(records, storage.ChunkRecord{
			ChunkID:         c.ID,
			FileID:          fileID,
			CollectionID:    collectionID,
			ChunkIndex:      i,
			StartIndex:      c.StartIndex,
			Text:            c.Text,
			EmbeddingVector: &lit,
		})
	}
	if err := s.chunks.UpsertChunks(ctx, records); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}
	return nil
}

func readUploadedFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	for _, fhs := range m {
		if len(fhs) > 0 {
			return fhs[0], true
		}
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "NF-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "NF-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "NF-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		}
		switch providers.ClassifyError(err) {
		case providers.ErrorQuota, providers.ErrorRate:
			return apiError{
				Code:    "NF-LLM-5003",
				Message: "The model provider is rate limited or out of quota. Retry later.",
			}
		}
		return apiError{
			Code:    "NF-API-5000",
			Message: "Internal server error. Please retry or check service logs.",
		}
	case status == http.StatusBadRequest:
		code = "NF-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "NF-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "NF-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "NF-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "name is required"):
			msg = "Collection name is required."
		case strings.Contains(low, "question is required"):
			msg = "A question is required."
		case strings.Contains(low, "no files provided"):
			msg = "No files were provided."
		case strings.Contains(low, "no content provided"):
			msg = "The collection has no indexed content yet. Upload documents first."
		case strings.Contains(low, "no extractable text"):
			msg = "The document contains no extractable text."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(low, "invalid "):
			msg = strings.TrimSpace(err.Error())
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
