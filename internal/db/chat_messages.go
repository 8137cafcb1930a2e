package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/types"
)

// AddChatMessage appends a message to the conversation of a copy.
func (db *DB) AddChatMessage(ctx context.Context, copyID uuid.UUID, role types.ChatRole, content string) (*types.ChatMessage, error) {
	var m types.ChatMessage
	err := db.pool.QueryRow(ctx,
		`INSERT INTO chat_messages (copy_id, role, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, copy_id, role, content, created_at`,
		copyID, role, content,
	).Scan(&m.ID, &m.CopyID, &m.Role, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add chat message: %w", err)
	}
	return &m, nil
}

// ListChatMessages returns the conversation of a copy, oldest first.
// When limit is positive only the most recent limit messages are returned.
func (db *DB) ListChatMessages(ctx context.Context, copyID uuid.UUID, limit int) ([]types.ChatMessage, error) {
	query := `SELECT id, copy_id, role, content, created_at FROM chat_messages
		WHERE copy_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{copyID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	messages := []types.ChatMessage{}
	for rows.Next() {
		var m types.ChatMessage
		if err := rows.Scan(&m.ID, &m.CopyID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
