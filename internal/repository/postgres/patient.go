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

type PatientStore struct {
	pool *pgxpool.Pool
}

func NewPatientStore(pool *pgxpool.Pool) *PatientStore {
	return &PatientStore{pool: pool}
}

const patientColumns = `id, tenant_id, full_name, email, phone, created_at`

func (s *PatientStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE id = $1`

	var p models.Patient
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.TenantID, &p.FullName, &p.Email, &p.Phone, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return &p, nil
}

// FindByContact matches a patient by email OR phone.
//
// The empty-string guards matter: patient rows imported from older clinic
// records often have a blank phone, and without the guard a caller whose
// account also lacks a phone would "match" every such row.
//
// ORDER BY created_at makes the unscoped search deterministic: when the
// same person exists in several clinics, the oldest registration wins.
func (s *PatientStore) FindByContact(ctx context.Context, tenantID *uuid.UUID, email, phone string) (*models.Patient, error) {
	var query string
	var args []any

	contact := `((email <> '' AND email = $1) OR (phone <> '' AND phone = $2))`

	if tenantID != nil {
		query = `
			SELECT ` + patientColumns + `
			FROM patients
			WHERE tenant_id = $3 AND ` + contact + `
			ORDER BY created_at ASC
			LIMIT 1`
		args = []any{email, phone, *tenantID}
	} else {
		query = `
			SELECT ` + patientColumns + `
			FROM patients
			WHERE ` + contact + `
			ORDER BY created_at ASC
			LIMIT 1`
		args = []any{email, phone}
	}

	var p models.Patient
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.TenantID, &p.FullName, &p.Email, &p.Phone, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find patient by contact: %w", err)
	}
	return &p, nil
}

// GetOrCreate provisions a patient keyed by (tenant, email, phone).
//
// ON CONFLICT DO NOTHING against the unique index means two concurrent
// first messages from the same account insert at most one row; the loser
// of the race falls through to the re-select and gets the winner's row.
func (s *PatientStore) GetOrCreate(ctx context.Context, tenantID uuid.UUID, fullName, email, phone string) (*models.Patient, error) {
	insert := `
		INSERT INTO patients (id, tenant_id, full_name, email, phone, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, now())
		ON CONFLICT (tenant_id, email, phone) DO NOTHING
		RETURNING ` + patientColumns

	var p models.Patient
	err := s.pool.QueryRow(ctx, insert, tenantID, fullName, email, phone).Scan(
		&p.ID, &p.TenantID, &p.FullName, &p.Email, &p.Phone, &p.CreatedAt,
	)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("insert patient: %w", err)
	}

	// Conflict: the row already existed (or a concurrent insert won).
	sel := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE tenant_id = $1 AND email = $2 AND phone = $3`

	err = s.pool.QueryRow(ctx, sel, tenantID, email, phone).Scan(
		&p.ID, &p.TenantID, &p.FullName, &p.Email, &p.Phone, &p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("reselect patient: %w", err)
	}
	return &p, nil
}
