package models

import "time"

type Collection struct {
	CollectionID string    `json:"collection_id"`
	Name         string    `json:"name"`
	Title        string    `json:"title,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	FileCount    int       `json:"file_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type File struct {
	FileID       string    `json:"file_id"`
	CollectionID string    `json:"collection_id"`
	Name         string    `json:"name"`
	Hash         string    `json:"hash,omitempty"`
	Text         string    `json:"text,omitempty"`
	CharCount    int       `json:"char_count"`
	Format       string    `json:"format"`
	CreatedAt    time.Time `json:"created_at"`
}

type NoteType string

const (
	NoteSummary  NoteType = "summary"
	NoteFAQ      NoteType = "faq"
	NoteGlossary NoteType = "glossary"
	NoteOutline  NoteType = "outline"
	NoteTimeline NoteType = "timeline"
	NoteMindMap  NoteType = "mindmap"
	NotePodcast  NoteType = "podcast"
)

const (
	NoteStatusPending  = "pending"
	NoteStatusComplete = "complete"
	NoteStatusFailed   = "failed"
)

type Note struct {
	NoteID       string    `json:"note_id"`
	CollectionID string    `json:"collection_id"`
	Type         NoteType  `json:"type"`
	Title        string    `json:"title,omitempty"`
	Content      string    `json:"content,omitempty"`
	AudioPath    string    `json:"audio_path,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	RoleHuman    = "human"
	RoleAI       = "ai"
	RoleInternal = "internal"
)

type Message struct {
	CollectionID string    `json:"collection_id"`
	Position     int       `json:"position"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

type FileText struct {
	FileID string `json:"file_id"`
	Text   string `json:"text"`
}
