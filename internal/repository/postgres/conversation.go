package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careloop/careline/internal/models"
)

type ConversationStore struct {
	pool *pgxpool.Pool
}

func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

const conversationColumns = `id, tenant_id, patient_id, staff_member_id, kind, last_message_at, last_message_text, created_at`

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var c models.Conversation
	err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.PatientID,
		&c.StaffMemberID,
		&c.Kind,
		&c.LastMessageAt,
		&c.LastMessageText,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ConversationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE id = $1`

	c, err := scanConversation(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// FindOrCreate returns the one conversation for (tenant, patient, staff),
// creating it on first contact.
//
// The select-first ordering keeps the common case (conversation exists) on
// a single index lookup. The insert uses ON CONFLICT DO NOTHING against
// the uniqueness indexes, so when two first messages race, exactly one
// insert wins and the loser re-selects the winner's row. An application-
// level "check then insert" alone could not close that race.
//
// IS NOT DISTINCT FROM makes the nil staff member compare as a real key
// (the general clinic thread), not as a wildcard.
func (s *ConversationStore) FindOrCreate(ctx context.Context, tenantID, patientID uuid.UUID, staffMemberID *uuid.UUID) (*models.Conversation, error) {
	sel := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE tenant_id = $1 AND patient_id = $2 AND staff_member_id IS NOT DISTINCT FROM $3`

	c, err := scanConversation(s.pool.QueryRow(ctx, sel, tenantID, patientID, staffMemberID))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	insert := `
		INSERT INTO conversations (id, tenant_id, patient_id, staff_member_id, kind, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, now())
		ON CONFLICT DO NOTHING
		RETURNING ` + conversationColumns

	c, err = scanConversation(s.pool.QueryRow(ctx, insert, tenantID, patientID, staffMemberID, models.KindFor(staffMemberID)))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	// Lost the race: a concurrent request created the row between our
	// select and insert. Fetch theirs.
	c, err = scanConversation(s.pool.QueryRow(ctx, sel, tenantID, patientID, staffMemberID))
	if err != nil {
		return nil, fmt.Errorf("reselect conversation: %w", err)
	}
	return c, nil
}

// scopeWhere renders a ConversationScope into SQL conditions over an
// aliased conversations table. Placeholders continue from argOffset so the
// fragment can be embedded in larger queries.
func scopeWhere(scope models.ConversationScope, alias string, argOffset int) (string, []any) {
	conds := make([]string, 0, 3)
	args := make([]any, 0, 3)
	n := argOffset

	if scope.TenantID != nil {
		n++
		conds = append(conds, fmt.Sprintf("%s.tenant_id = $%d", alias, n))
		args = append(args, *scope.TenantID)
	}
	if scope.PatientID != nil {
		n++
		conds = append(conds, fmt.Sprintf("%s.patient_id = $%d", alias, n))
		args = append(args, *scope.PatientID)
	}
	if scope.StaffMemberID != nil {
		n++
		if scope.IncludeUnassigned {
			conds = append(conds, fmt.Sprintf("(%s.staff_member_id = $%d OR %s.staff_member_id IS NULL)", alias, n, alias))
		} else {
			conds = append(conds, fmt.Sprintf("%s.staff_member_id = $%d", alias, n))
		}
		args = append(args, *scope.StaffMemberID)
	}

	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}

// List returns one page of conversations under the scope plus the total.
// Most recently active first; threads that never received a message sort
// last, newest created first among themselves.
func (s *ConversationStore) List(ctx context.Context, scope models.ConversationScope, page, limit int) ([]models.Conversation, int, error) {
	where, args := scopeWhere(scope, "c", 0)

	countQuery := `SELECT count(*) FROM conversations c WHERE ` + where

	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	offset := (page - 1) * limit
	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM conversations c
		WHERE %s
		ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC
		LIMIT $%d OFFSET $%d`,
		prefixColumns(conversationColumns, "c"), where, len(args)+1, len(args)+2)
	listArgs := append(args, limit, offset)

	rows, err := s.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]models.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate conversations: %w", err)
	}

	return conversations, total, nil
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(columns, alias string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
