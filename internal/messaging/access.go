// Package messaging is the conversation engine: it resolves which
// conversation a message belongs to across the three actor roles, gates
// every read and write, tracks read state, and keeps the denormalized
// previews honest. Handlers stay thin; everything with a rule in it
// lives here.
package messaging

import (
	"github.com/google/uuid"

	"github.com/careloop/careline/internal/models"
)

// CanAccessConversation is the access decision table, evaluated before
// every conversation read or mutation.
//
//	patient  — owns the thread: the conversation's patient must be the
//	           actor's resolved patient. If the actor carries a tenant it
//	           must also match; a tenant-less patient account is allowed
//	           through on patient identity alone.
//	doctor   — same clinic, and the thread is either assigned to them or
//	           unassigned (the shared clinic inbox). A colleague's
//	           assigned thread is off limits.
//	clinic   — full visibility within their clinic, for monitoring.
//
// resolvedPatientID is the patient identity resolution produced for this
// actor; uuid.Nil means "no clinical record", which can never own a
// conversation.
func CanAccessConversation(actor models.Actor, resolvedPatientID uuid.UUID, conv *models.Conversation) bool {
	switch actor.Role {
	case models.RolePatient:
		if resolvedPatientID == uuid.Nil || conv.PatientID != resolvedPatientID {
			return false
		}
		return actor.TenantID == nil || conv.TenantID == *actor.TenantID

	case models.RoleDoctor:
		if actor.TenantID == nil || conv.TenantID != *actor.TenantID {
			return false
		}
		return conv.StaffMemberID == nil || *conv.StaffMemberID == actor.UserID

	case models.RoleClinic:
		return actor.TenantID != nil && conv.TenantID == *actor.TenantID

	default:
		return false
	}
}

// CanDeleteMessage applies the message-level rule on top of conversation
// access: only the original sender may delete. Being able to read a thread
// never grants the right to delete someone else's message — a clinic admin
// can see a patient's message but cannot remove it.
//
// Sender identity per role: a patient's messages carry the patient id, a
// staff member's carry the account id.
func CanDeleteMessage(actor models.Actor, resolvedPatientID uuid.UUID, msg *models.Message) bool {
	if msg.SenderType != SenderTypeFor(actor.Role) {
		return false
	}
	if actor.Role == models.RolePatient {
		return resolvedPatientID != uuid.Nil && msg.SenderID == resolvedPatientID
	}
	return msg.SenderID == actor.UserID
}

// ScopeForPatient filters to the patient's own threads. A tenant-less
// patient account sees their threads in every clinic they exist in.
func ScopeForPatient(patientID uuid.UUID, tenantID *uuid.UUID) models.ConversationScope {
	return models.ConversationScope{
		TenantID:  tenantID,
		PatientID: &patientID,
	}
}

// ScopeForDoctor filters to the doctor's clinic, covering threads assigned
// to them plus the shared unassigned inbox.
func ScopeForDoctor(tenantID, staffMemberID uuid.UUID) models.ConversationScope {
	return models.ConversationScope{
		TenantID:          &tenantID,
		StaffMemberID:     &staffMemberID,
		IncludeUnassigned: true,
	}
}

// ScopeForClinic filters to everything in the clinic.
func ScopeForClinic(tenantID uuid.UUID) models.ConversationScope {
	return models.ConversationScope{
		TenantID: &tenantID,
	}
}
