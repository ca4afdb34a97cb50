package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is what kind of actor is making a request. It comes out of the JWT,
// not the database — the auth layer classified the account at login.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleClinic  Role = "clinic"
)

// SenderType categorizes a message's author. It mirrors Role on purpose:
// a message remembers what KIND of actor wrote it, so read-tracking can
// tell inbound from outbound without joining back to accounts.
type SenderType string

const (
	SenderPatient SenderType = "patient"
	SenderDoctor  SenderType = "doctor"
	SenderClinic  SenderType = "clinic"
)

// ConversationKind is derived purely from whether a conversation is
// addressed to a specific staff member or to the clinic at large.
type ConversationKind string

const (
	KindPatientDoctor ConversationKind = "patient_doctor"
	KindPatientClinic ConversationKind = "patient_clinic"
)

// KindFor derives the conversation kind from the staff assignment.
func KindFor(staffMemberID *uuid.UUID) ConversationKind {
	if staffMemberID != nil {
		return KindPatientDoctor
	}
	return KindPatientClinic
}

// Actor is the authenticated identity the middleware attaches to every
// request.
//
// Why is TenantID a pointer?
//   - Staff always belong to a clinic, so theirs is always set.
//   - Patient accounts are created before (sometimes without) a clinic
//     relationship, so a patient actor may carry no tenant at all. That is
//     a normal state, not an error — identity resolution deals with it.
type Actor struct {
	UserID   uuid.UUID
	Role     Role
	TenantID *uuid.UUID
	Email    string
	Phone    string
}

// Tenant is a clinic — the isolation boundary scoping patients, staff and
// conversations. Clinic A never sees clinic B's threads.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is an authenticated login (the identity store's row). For staff
// it doubles as the staff-member entity; for patients it is distinct from
// the clinical Patient record and linked only by email/phone.
type Account struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     *uuid.UUID `json:"tenant_id,omitempty"`
	Role         Role       `json:"role"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Patient is the clinical record inside one clinic. There is no foreign key
// from Account to Patient — the two are matched by email/phone, and the
// Patient row is created lazily on a patient's first message if missing.
type Patient struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// StaffMember is a doctor or clinic administrator within a tenant.
type StaffMember struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Role      Role      `json:"role"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is the unit of threading: one patient talking either to one
// staff member (StaffMemberID set) or to the clinic in general (nil).
//
// At most one conversation exists per (tenant, patient, staff-member)
// triple, where a nil staff member is its own distinct key. Uniqueness is
// enforced by the store's indexes, not by application checks, so two
// concurrent first contacts cannot fork the thread.
//
// LastMessageAt / LastMessageText are denormalized previews for list views;
// both are nil when the conversation holds no surviving message.
type Conversation struct {
	ID              uuid.UUID        `json:"id"`
	TenantID        uuid.UUID        `json:"tenant_id"`
	PatientID       uuid.UUID        `json:"patient_id"`
	StaffMemberID   *uuid.UUID       `json:"staff_member_id,omitempty"`
	Kind            ConversationKind `json:"kind"`
	LastMessageAt   *time.Time       `json:"last_message_at,omitempty"`
	LastMessageText *string          `json:"last_message_text,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Message is one entry in a conversation's append-only log.
//
// Why int64 for ID (not UUID)?
//   - Messages are the highest-volume table; bigserial is smaller,
//     naturally ordered and index-friendly. It also gives a stable
//     tie-break when two messages share a created_at timestamp.
//
// SenderID is the patient id for patient messages and the staff account id
// otherwise. Content and ImageURL use "" for absent; the request validator
// guarantees at least one is present before a message reaches the store.
type Message struct {
	ID             int64      `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id"`
	SenderType     SenderType `json:"sender_type"`
	Content        string     `json:"content"`
	ImageURL       string     `json:"image_url,omitempty"`
	IsRead         bool       `json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ConversationScope is the normalized visibility filter built once per role
// and consumed uniformly by conversation listing and unread aggregation.
// Building it in exactly one place keeps the role rules from drifting
// between operations.
//
// Nil fields mean "no restriction". IncludeUnassigned widens a
// StaffMemberID filter to also match conversations with no assignee —
// the shared clinic inbox every doctor can see.
type ConversationScope struct {
	TenantID          *uuid.UUID
	PatientID         *uuid.UUID
	StaffMemberID     *uuid.UUID
	IncludeUnassigned bool
}
