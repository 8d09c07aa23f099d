package storage

import (
	"context"
	"fmt"

	"noteflow/internal/models"
)

type CollectionRepo struct {
	db *DB
}

func NewCollectionRepo(db *DB) *CollectionRepo {
	return &CollectionRepo{db: db}
}

func (r *CollectionRepo) CreateCollection(ctx context.Context, c models.Collection) error {
	_, err := r.db.Pool.Exec(ctx, `INSERT INTO collections (collection_id, name) VALUES ($1, $2)`, c.CollectionID, c.Name)
	if err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}

func (r *CollectionRepo) ListCollections(ctx context.Context) ([]models.Collection, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT c.collection_id::text, c.name, COALESCE(c.title,''), COALESCE(c.summary,''),
       COUNT(f.file_id), c.created_at, c.updated_at
FROM collections c
LEFT JOIN files f ON f.collection_id = c.collection_id
GROUP BY c.collection_id, c.name, c.title, c.summary, c.created_at, c.updated_at
ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	out := make([]models.Collection, 0)
	for rows.Next() {
		var c models.Collection
		if err := rows.Scan(&c.CollectionID, &c.Name, &c.Title, &c.Summary, &c.FileCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return out, nil
}

func (r *CollectionRepo) GetCollection(ctx context.Context, collectionID string) (models.Collection, error) {
	var c models.Collection
	err := r.db.Pool.QueryRow(ctx, `
SELECT c.collection_id::text, c.name, COALESCE(c.title,''), COALESCE(c.summary,''),
       (SELECT COUNT(*) FROM files f WHERE f.collection_id = c.collection_id),
       c.created_at, c.updated_at
FROM collections c
WHERE c.collection_id=$1`, collectionID).
		Scan(&c.CollectionID, &c.Name, &c.Title, &c.Summary, &c.FileCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return models.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	return c, nil
}

func (r *CollectionRepo) RenameCollection(ctx context.Context, collectionID, name string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE collections SET name=$2, updated_at=NOW() WHERE collection_id=$1`, collectionID, name)
	if err != nil {
		return fmt.Errorf("rename collection: %w", err)
	}
	return nil
}

func (r *CollectionRepo) SetDescriptors(ctx context.Context, collectionID, name, title, summary string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE collections
SET name=COALESCE(NULLIF($2,''), name), title=NULLIF($3,''), summary=NULLIF($4,''), updated_at=NOW()
WHERE collection_id=$1`, collectionID, name, title, summary)
	if err != nil {
		return fmt.Errorf("set collection descriptors: %w", err)
	}
	return nil
}

func (r *CollectionRepo) DeleteCollection(ctx context.Context, collectionID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM collections WHERE collection_id=$1`, collectionID)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}
