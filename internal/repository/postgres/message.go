package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careloop/careline/internal/models"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

const messageColumns = `id, conversation_id, sender_id, sender_type, content, image_url, is_read, read_at, created_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(
		&m.ID,
		&m.ConversationID,
		&m.SenderID,
		&m.SenderType,
		&m.Content,
		&m.ImageURL,
		&m.IsRead,
		&m.ReadAt,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MessageStore) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE id = $1`

	m, err := scanMessage(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// Append inserts a message and refreshes the conversation preview in one
// transaction. A reader can never observe the new message without its
// preview, or the preview without the message.
func (s *MessageStore) Append(ctx context.Context, conversationID, senderID uuid.UUID, senderType models.SenderType, content, imageURL string) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO messages (conversation_id, sender_id, sender_type, content, image_url, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, now())
		RETURNING ` + messageColumns

	m, err := scanMessage(tx.QueryRow(ctx, insert, conversationID, senderID, senderType, content, imageURL))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	preview := models.PreviewText(m.Content, m.ImageURL)
	update := `
		UPDATE conversations
		SET last_message_at = $2, last_message_text = $3
		WHERE id = $1`

	if _, err := tx.Exec(ctx, update, conversationID, m.CreatedAt, preview); err != nil {
		return nil, fmt.Errorf("update preview: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}
	return m, nil
}

// List returns messages ascending by (created_at, id). The id tie-break
// keeps ordering stable across pages when two messages land on the same
// timestamp — bigserial ids follow insertion order.
//
// The before cursor and page/offset coexist: the cursor narrows the set
// ("everything older than X"), the offset pages within it.
func (s *MessageStore) List(ctx context.Context, conversationID uuid.UUID, page, limit int, before *time.Time) ([]models.Message, error) {
	offset := (page - 1) * limit

	var query string
	var args []any

	if before != nil {
		query = `
			SELECT ` + messageColumns + `
			FROM messages
			WHERE conversation_id = $1 AND created_at < $2
			ORDER BY created_at ASC, id ASC
			LIMIT $3 OFFSET $4`
		args = []any{conversationID, *before, limit, offset}
	} else {
		query = `
			SELECT ` + messageColumns + `
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at ASC, id ASC
			LIMIT $2 OFFSET $3`
		args = []any{conversationID, limit, offset}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// Delete hard-deletes a message and recomputes the conversation preview
// from the latest surviving message, all in one transaction. Deleting the
// newest message promotes the previous one; deleting the only message
// clears the preview entirely — so the preview always reflects the true
// latest surviving message, even after out-of-order deletes.
func (s *MessageStore) Delete(ctx context.Context, id int64) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	del := `
		DELETE FROM messages
		WHERE id = $1
		RETURNING ` + messageColumns

	m, err := scanMessage(tx.QueryRow(ctx, del, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("delete message: %w", err)
	}

	latest := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	survivor, err := scanMessage(tx.QueryRow(ctx, latest, m.ConversationID))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("find latest survivor: %w", err)
	}

	if survivor != nil {
		update := `
			UPDATE conversations
			SET last_message_at = $2, last_message_text = $3
			WHERE id = $1`
		preview := models.PreviewText(survivor.Content, survivor.ImageURL)
		if _, err := tx.Exec(ctx, update, m.ConversationID, survivor.CreatedAt, preview); err != nil {
			return nil, fmt.Errorf("update preview: %w", err)
		}
	} else {
		reset := `
			UPDATE conversations
			SET last_message_at = NULL, last_message_text = NULL
			WHERE id = $1`
		if _, err := tx.Exec(ctx, reset, m.ConversationID); err != nil {
			return nil, fmt.Errorf("clear preview: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit delete: %w", err)
	}
	return m, nil
}

// MarkRead bulk-flags unread messages of the given sender types. Naturally
// idempotent: the is_read = false predicate makes a second invocation a
// no-op returning 0.
func (s *MessageStore) MarkRead(ctx context.Context, conversationID uuid.UUID, senderTypes []models.SenderType, readAt time.Time) (int64, error) {
	query := `
		UPDATE messages
		SET is_read = true, read_at = $3
		WHERE conversation_id = $1
		  AND is_read = false
		  AND sender_type = ANY($2)`

	tag, err := s.pool.Exec(ctx, query, conversationID, senderTypeStrings(senderTypes), readAt)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountUnread aggregates unread messages of the given sender types across
// all conversations the scope admits.
func (s *MessageStore) CountUnread(ctx context.Context, scope models.ConversationScope, senderTypes []models.SenderType) (int64, error) {
	where, args := scopeWhere(scope, "c", 1)
	args = append([]any{senderTypeStrings(senderTypes)}, args...)

	query := `
		SELECT count(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.is_read = false
		  AND m.sender_type = ANY($1)
		  AND ` + where

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// senderTypeStrings converts to []string so pgx encodes a text[] parameter.
func senderTypeStrings(types []models.SenderType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
