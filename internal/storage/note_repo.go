package storage

import (
	"context"
	"fmt"

	"noteflow/internal/models"
)

type NoteRepo struct {
	db *DB
}

func NewNoteRepo(db *DB) *NoteRepo {
	return &NoteRepo{db: db}
}

// CreateEmptyNote inserts a pending note that the queue worker will fill in.
func (r *NoteRepo) CreateEmptyNote(ctx context.Context, noteID, collectionID string, noteType models.NoteType) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO notes (note_id, collection_id, type, status)
VALUES ($1, $2, $3, $4)`, noteID, collectionID, string(noteType), models.NoteStatusPending)
	if err != nil {
		return fmt.Errorf("insert pending note: %w", err)
	}
	return nil
}

func (r *NoteRepo) CompleteNote(ctx context.Context, noteID, title, content, audioPath string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE notes
SET title=NULLIF($2,''), content=$3, audio_path=NULLIF($4,''), status=$5, updated_at=NOW()
WHERE note_id=$1`, noteID, title, content, audioPath, models.NoteStatusComplete)
	if err != nil {
		return fmt.Errorf("complete note: %w", err)
	}
	return nil
}

func (r *NoteRepo) FailNote(ctx context.Context, noteID string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE notes SET status=$2, updated_at=NOW() WHERE note_id=$1`, noteID, models.NoteStatusFailed)
	if err != nil {
		return fmt.Errorf("fail note: %w", err)
	}
	return nil
}

func (r *NoteRepo) ListNotesByCollection(ctx context.Context, collectionID string) ([]models.Note, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT note_id, collection_id::text, type, COALESCE(title,''), COALESCE(content,''),
       COALESCE(audio_path,''), status, created_at, updated_at
FROM notes
WHERE collection_id=$1
ORDER BY created_at DESC`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	out := make([]models.Note, 0)
	for rows.Next() {
		var n models.Note
		var noteType string
		if err := rows.Scan(&n.NoteID, &n.CollectionID, &noteType, &n.Title, &n.Content, &n.AudioPath, &n.Status, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.Type = models.NoteType(noteType)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return out, nil
}

func (r *NoteRepo) GetNote(ctx context.Context, noteID string) (models.Note, error) {
	var n models.Note
	var noteType string
	err := r.db.Pool.QueryRow(ctx, `
SELECT note_id, collection_id::text, type, COALESCE(title,''), COALESCE(content,''),
       COALESCE(audio_path,''), status, created_at, updated_at
FROM notes
WHERE note_id=$1`, noteID).
		Scan(&n.NoteID, &n.CollectionID, &noteType, &n.Title, &n.Content, &n.AudioPath, &n.Status, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return models.Note{}, fmt.Errorf("get note: %w", err)
	}
	n.Type = models.NoteType(noteType)
	return n, nil
}
