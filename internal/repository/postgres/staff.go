package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careloop/careline/internal/models"
)

// StaffStore reads staff members. Staff are account rows with a non-patient
// role — there is no separate staff table, the accounts table is the
// identity store for everyone who can log in.
type StaffStore struct {
	pool *pgxpool.Pool
}

func NewStaffStore(pool *pgxpool.Pool) *StaffStore {
	return &StaffStore{pool: pool}
}

func (s *StaffStore) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.StaffMember, error) {
	query := `
		SELECT id, tenant_id, role, full_name, email, created_at
		FROM accounts
		WHERE id = $1 AND tenant_id = $2 AND role <> 'patient'`

	var m models.StaffMember
	err := s.pool.QueryRow(ctx, query, id, tenantID).Scan(
		&m.ID,
		&m.TenantID,
		&m.Role,
		&m.FullName,
		&m.Email,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get staff member: %w", err)
	}
	return &m, nil
}
