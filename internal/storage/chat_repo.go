package storage

import (
	"context"
	"fmt"

	"noteflow/internal/models"
)

// ChatRepo persists the single conversation thread each collection owns.
// Messages are append-only; position is assigned inside the insert so the
// thread keeps a dense ordinal even under concurrent appends.
type ChatRepo struct {
	db *DB
}

func NewChatRepo(db *DB) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) AppendMessage(ctx context.Context, collectionID, role, content string) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO chat_messages (collection_id, position, role, content)
VALUES ($1,
        (SELECT COALESCE(MAX(position)+1, 0) FROM chat_messages WHERE collection_id=$1),
        $2, $3)`, collectionID, role, content)
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

func (r *ChatRepo) ListMessages(ctx context.Context, collectionID string) ([]models.Message, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT collection_id::text, position, role, content, created_at
FROM chat_messages
WHERE collection_id=$1
ORDER BY position ASC`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	out := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.CollectionID, &m.Position, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return out, nil
}

func (r *ChatRepo) ResetThread(ctx context.Context, collectionID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM chat_messages WHERE collection_id=$1`, collectionID)
	if err != nil {
		return fmt.Errorf("reset chat thread: %w", err)
	}
	return nil
}
