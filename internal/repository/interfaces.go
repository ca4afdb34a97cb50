package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/careline/internal/models"
)

// Every method takes context.Context first — it's idiomatic Go for
// anything doing I/O, and it lets a cancelled HTTP request cancel its DB
// query instead of wasting pool connections.
//
// Stores return nil, nil for "not found"; translating that into a coded
// NOT_FOUND error is the service layer's job, because only the service
// knows whether an absent row is an error or a normal state (a patient
// with no clinical record yet is normal).

// AccountRepository is the read side of the identity store. Accounts are
// created by the admissions system, not by this service.
type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

// TenantRepository reads clinics. Tenant lifecycle is out of this
// service's hands; it only ever verifies existence.
type TenantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// PatientRepository handles clinical patient records, including the
// email/phone identity matching that links them to accounts.
type PatientRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Patient, error)

	// FindByContact matches a patient by email OR phone, optionally scoped
	// to one tenant (nil tenantID searches across all clinics). Empty
	// email/phone values never match anything. Returns the oldest match
	// when several exist.
	FindByContact(ctx context.Context, tenantID *uuid.UUID, email, phone string) (*models.Patient, error)

	// GetOrCreate provisions the patient row keyed by (tenant, email,
	// phone). Safe under concurrent first contact: the store's uniqueness
	// constraint, not an application check, closes the race.
	GetOrCreate(ctx context.Context, tenantID uuid.UUID, fullName, email, phone string) (*models.Patient, error)
}

// StaffRepository reads staff members (doctors and clinic admins) within
// a tenant.
type StaffRepository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.StaffMember, error)
}

// ConversationRepository handles the threading table.
type ConversationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)

	// FindOrCreate returns the unique conversation for the triple,
	// creating it on first contact. A nil staffMemberID is a distinct key
	// (the general clinic thread), not a wildcard. Idempotent under
	// concurrent calls for the same triple.
	FindOrCreate(ctx context.Context, tenantID, patientID uuid.UUID, staffMemberID *uuid.UUID) (*models.Conversation, error)

	// List returns one page of conversations visible under the scope,
	// most recently active first, plus the total count for the scope.
	List(ctx context.Context, scope models.ConversationScope, page, limit int) ([]models.Conversation, int, error)
}

// MessageRepository handles the append-only message log and its derived
// state. Append and Delete also maintain the owning conversation's
// denormalized preview, atomically with the row change.
type MessageRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Message, error)

	// Append inserts a message and updates the conversation preview in the
	// same transaction.
	Append(ctx context.Context, conversationID, senderID uuid.UUID, senderType models.SenderType, content, imageURL string) (*models.Message, error)

	// List returns messages ascending by created_at (ties broken by id).
	// before, when non-nil, restricts to created_at strictly earlier —
	// the "load older" cursor. Offset pagination applies within whatever
	// the cursor leaves.
	List(ctx context.Context, conversationID uuid.UUID, page, limit int, before *time.Time) ([]models.Message, error)

	// Delete hard-deletes a message and recomputes the conversation
	// preview from the latest surviving message (clearing it if none
	// remains), atomically. Returns the deleted row.
	Delete(ctx context.Context, id int64) (*models.Message, error)

	// MarkRead flags all unread messages in the conversation whose sender
	// type is in senderTypes, stamping readAt. Returns how many changed;
	// 0 when nothing was unread.
	MarkRead(ctx context.Context, conversationID uuid.UUID, senderTypes []models.SenderType, readAt time.Time) (int64, error)

	// CountUnread aggregates unread messages with a matching sender type
	// across every conversation visible under the scope.
	CountUnread(ctx context.Context, scope models.ConversationScope, senderTypes []models.SenderType) (int64, error)
}
