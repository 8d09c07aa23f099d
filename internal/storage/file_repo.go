package storage

import (
	"context"
	"fmt"

	"noteflow/internal/models"
)

type FileRepo struct {
	db *DB
}

func NewFileRepo(db *DB) *FileRepo {
	return &FileRepo{db: db}
}

// InsertFile stores one upload. File ids are minted per upload, so
// re-uploading the same document always creates a new row.
func (r *FileRepo) InsertFile(ctx context.Context, f models.File) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO files (file_id, collection_id, name, hash, text, char_count, format)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.FileID, f.CollectionID, f.Name, f.Hash, f.Text, f.CharCount, f.Format,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *FileRepo) ListFilesByCollection(ctx context.Context, collectionID string) ([]models.File, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT file_id, collection_id::text, name, hash, char_count, format, created_at
FROM files
WHERE collection_id=$1
ORDER BY created_at ASC`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	out := make([]models.File, 0)
	for rows.Next() {
		var f models.File
		if err := rows.Scan(&f.FileID, &f.CollectionID, &f.Name, &f.Hash, &f.CharCount, &f.Format, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return out, nil
}

func (r *FileRepo) GetFile(ctx context.Context, collectionID, fileID string) (models.File, error) {
	var f models.File
	err := r.db.Pool.QueryRow(ctx, `
SELECT file_id, collection_id::text, name, hash, text, char_count, format, created_at
FROM files
WHERE collection_id=$1 AND file_id=$2`, collectionID, fileID).
		Scan(&f.FileID, &f.CollectionID, &f.Name, &f.Hash, &f.Text, &f.CharCount, &f.Format, &f.CreatedAt)
	if err != nil {
		return models.File{}, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

// GetFileTexts returns extracted text for the given files, or for every file
// in the collection when fileIDs is empty.
func (r *FileRepo) GetFileTexts(ctx context.Context, collectionID string, fileIDs []string) ([]models.FileText, error) {
	query := `
SELECT file_id, text
FROM files
WHERE collection_id=$1
ORDER BY created_at ASC`
	args := []any{collectionID}
	if len(fileIDs) > 0 {
		query = `
SELECT file_id, text
FROM files
WHERE collection_id=$1 AND file_id = ANY($2)
ORDER BY created_at ASC`
		args = append(args, fileIDs)
	}
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get file texts: %w", err)
	}
	defer rows.Close()

	out := make([]models.FileText, 0)
	for rows.Next() {
		var ft models.FileText
		if err := rows.Scan(&ft.FileID, &ft.Text); err != nil {
			return nil, fmt.Errorf("scan file text: %w", err)
		}
		out = append(out, ft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file texts: %w", err)
	}
	return out, nil
}
