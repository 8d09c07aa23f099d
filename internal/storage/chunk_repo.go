package storage

import (
	"context"
	"fmt"
)

type ChunkRecord struct {
	ChunkID         string
	FileID          string
	CollectionID    string
	ChunkIndex      int
	StartIndex      int
	Text            string
	EmbeddingVector *string
}

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) UpsertChunks(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx upsert chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
INSERT INTO chunks (chunk_id, file_id, collection_id, chunk_index, start_index, text, embedding)
VALUES ($1, $2, $3, $4, $5, $6, CASE WHEN $7::text IS NULL THEN NULL ELSE $7::vector END)
ON CONFLICT (chunk_id)
DO UPDATE SET
  text = EXCLUDED.text,
  start_index = EXCLUDED.start_index,
  embedding = COALESCE(EXCLUDED.embedding, chunks.embedding)`,
			c.ChunkID, c.FileID, c.CollectionID, c.ChunkIndex, c.StartIndex, c.Text, c.EmbeddingVector,
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

// ListCollectionChunks returns every embedded chunk of a collection in file
// order; the retrieval index is rebuilt from this set on demand.
func (r *ChunkRepo) ListCollectionChunks(ctx context.Context, collectionID string) ([]ChunkRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT chunk_id, file_id, collection_id::text, chunk_index, start_index, text, embedding::text
FROM chunks
WHERE collection_id=$1 AND embedding IS NOT NULL
ORDER BY file_id, chunk_index ASC`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list collection chunks: %w", err)
	}
	defer rows.Close()

	out := make([]ChunkRecord, 0, 64)
	for rows.Next() {
		var c ChunkRecord
		if err := rows.Scan(&c.ChunkID, &c.FileID, &c.CollectionID, &c.ChunkIndex, &c.StartIndex, &c.Text, &c.EmbeddingVector); err != nil {
			return nil, fmt.Errorf("scan collection chunk: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection chunks: %w", err)
	}
	return out, nil
}

func (r *ChunkRepo) DeleteByCollection(ctx context.Context, collectionID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM chunks WHERE collection_id=$1`, collectionID)
	if err != nil {
		return fmt.Errorf("delete collection chunks: %w", err)
	}
	return nil
}
