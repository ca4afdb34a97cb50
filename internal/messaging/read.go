package messaging

import "github.com/careloop/careline/internal/models"

// SenderTypeFor is the total mapping from actor role to the sender type
// stamped on messages that actor writes.
func SenderTypeFor(role models.Role) models.SenderType {
	switch role {
	case models.RolePatient:
		return models.SenderPatient
	case models.RoleDoctor:
		return models.SenderDoctor
	default:
		return models.SenderClinic
	}
}

// InboundSenderTypes is the total mapping from actor role to the sender
// types that count as inbound for that actor — the messages a view marks
// read and an unread badge counts.
//
// It is one mapping shared by MarkRead and UnreadCount so the two
// operations cannot drift apart: a patient reads everything the clinic
// side wrote, the clinic side reads everything the patient wrote.
func InboundSenderTypes(role models.Role) []models.SenderType {
	if role == models.RolePatient {
		return []models.SenderType{models.SenderDoctor, models.SenderClinic}
	}
	return []models.SenderType{models.SenderPatient}
}
