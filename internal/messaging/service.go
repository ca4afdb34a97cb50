package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careloop/careline/internal/apperr"
	"github.com/careloop/careline/internal/events"
	"github.com/careloop/careline/internal/models"
	"github.com/careloop/careline/internal/repository"
)

// UnreadCache is what the service needs from the unread-count cache.
// Implemented by cache.Cache; nil disables caching entirely.
type UnreadCache interface {
	GetUnread(ctx context.Context, key string) (int64, bool)
	SetUnread(ctx context.Context, key string, count int64)
	Invalidate(ctx context.Context, keys ...string)
}

// Service orchestrates the conversation engine. It is stateless between
// requests: every operation re-reads current rows and leans on the
// store's transactional guarantees, never on in-process locks.
type Service struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	patients      repository.PatientRepository
	staff         repository.StaffRepository
	identity      *IdentityResolver
	cache         UnreadCache
	publisher     events.Publisher
	logger        *zap.Logger
}

func NewService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	patients repository.PatientRepository,
	staff repository.StaffRepository,
	identity *IdentityResolver,
	cache UnreadCache,
	publisher events.Publisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		conversations: conversations,
		messages:      messages,
		patients:      patients,
		staff:         staff,
		identity:      identity,
		cache:         cache,
		publisher:     publisher,
		logger:        logger,
	}
}

// ConversationPage is one page of a conversation listing plus the total
// for the actor's scope.
type ConversationPage struct {
	Conversations []models.Conversation
	Total         int
}

// actorScope builds the visibility scope for an actor, resolving patient
// identity on the way. A nil scope with no error means "patient with no
// clinical record" — callers degrade to empty results, never an error.
func (s *Service) actorScope(ctx context.Context, actor models.Actor) (*models.ConversationScope, uuid.UUID, error) {
	switch actor.Role {
	case models.RolePatient:
		patient, err := s.identity.Resolve(ctx, actor)
		if err != nil {
			return nil, uuid.Nil, err
		}
		if patient == nil {
			return nil, uuid.Nil, nil
		}
		scope := ScopeForPatient(patient.ID, actor.TenantID)
		return &scope, patient.ID, nil

	case models.RoleDoctor:
		if actor.TenantID == nil {
			return nil, uuid.Nil, apperr.ErrClinicIDRequired
		}
		scope := ScopeForDoctor(*actor.TenantID, actor.UserID)
		return &scope, uuid.Nil, nil

	default:
		if actor.TenantID == nil {
			return nil, uuid.Nil, apperr.ErrClinicIDRequired
		}
		scope := ScopeForClinic(*actor.TenantID)
		return &scope, uuid.Nil, nil
	}
}

// ListConversations returns the page of threads the actor may see.
func (s *Service) ListConversations(ctx context.Context, actor models.Actor, page, limit int) (*ConversationPage, error) {
	scope, _, err := s.actorScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if scope == nil {
		return &ConversationPage{Conversations: []models.Conversation{}, Total: 0}, nil
	}

	conversations, total, err := s.conversations.List(ctx, *scope, page, limit)
	if err != nil {
		return nil, err
	}
	return &ConversationPage{Conversations: conversations, Total: total}, nil
}

// GetConversation fetches one thread, access-checked.
func (s *Service) GetConversation(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Conversation, error) {
	conv, _, err := s.loadGuarded(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// loadGuarded fetches a conversation, resolves the actor's patient
// identity and runs the access table. Absence reports NOT_FOUND before
// the access check is ever reached; a thread that exists but isn't theirs
// reports ACCESS_DENIED.
func (s *Service) loadGuarded(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Conversation, uuid.UUID, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if conv == nil {
		return nil, uuid.Nil, apperr.ErrConversationNotFound
	}

	patientID := uuid.Nil
	if actor.Role == models.RolePatient {
		patient, err := s.identity.Resolve(ctx, actor)
		if err != nil {
			return nil, uuid.Nil, err
		}
		if patient != nil {
			patientID = patient.ID
		}
	}

	if !CanAccessConversation(actor, patientID, conv) {
		return nil, uuid.Nil, apperr.ErrAccessDenied
	}
	return conv, patientID, nil
}

// ListMessages returns one ascending page of a thread's log. before, when
// set, is the "load older" cursor: only messages strictly earlier than it
// are returned.
func (s *Service) ListMessages(ctx context.Context, actor models.Actor, conversationID uuid.UUID, page, limit int, before *time.Time) ([]models.Message, error) {
	if _, _, err := s.loadGuarded(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	return s.messages.List(ctx, conversationID, page, limit, before)
}

// SendInput is a compose request after shape validation. ConversationID
// nil means "implicitly find or create the thread": patients may address
// a specific staff member (StaffMemberID), staff must name the patient.
type SendInput struct {
	ConversationID *uuid.UUID
	PatientID      *uuid.UUID
	StaffMemberID  *uuid.UUID
	Content        string
	ImageURL       string
}

// Send appends a message, creating the patient record and the
// conversation on first contact when needed. The request-shape validator
// has already guaranteed content-or-image upstream; Send only trims.
func (s *Service) Send(ctx context.Context, actor models.Actor, input SendInput) (*models.Message, error) {
	content := strings.TrimSpace(input.Content)

	conv, senderID, err := s.resolveTarget(ctx, actor, input)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.Append(ctx, conv.ID, senderID, SenderTypeFor(actor.Role), content, input.ImageURL)
	if err != nil {
		return nil, err
	}

	s.invalidateUnread(ctx, actor)
	s.publish(ctx, events.KeyMessageCreated, conv, msg)
	return msg, nil
}

// resolveTarget finds the conversation a message belongs to and the
// sender identity to stamp on it.
func (s *Service) resolveTarget(ctx context.Context, actor models.Actor, input SendInput) (*models.Conversation, uuid.UUID, error) {
	// Existing thread: fetch and gate it; the sender identity for a
	// patient is their resolved record.
	if input.ConversationID != nil {
		conv, patientID, err := s.loadGuarded(ctx, actor, *input.ConversationID)
		if err != nil {
			return nil, uuid.Nil, err
		}
		if actor.Role == models.RolePatient {
			return conv, patientID, nil
		}
		return conv, actor.UserID, nil
	}

	// First contact from a patient: lazily provision their record, then
	// find or create the thread — addressed to a specific doctor when
	// requested, else to the clinic in general.
	if actor.Role == models.RolePatient {
		patient, err := s.identity.FindOrCreate(ctx, actor)
		if err != nil {
			return nil, uuid.Nil, err
		}

		staffID := input.StaffMemberID
		if staffID != nil {
			member, err := s.staff.GetByID(ctx, patient.TenantID, *staffID)
			if err != nil {
				return nil, uuid.Nil, err
			}
			if member == nil {
				return nil, uuid.Nil, apperr.ErrStaffNotFound
			}
		}

		conv, err := s.conversations.FindOrCreate(ctx, patient.TenantID, patient.ID, staffID)
		if err != nil {
			return nil, uuid.Nil, err
		}
		return conv, patient.ID, nil
	}

	// First contact from staff: clinic-scoped by definition, aimed at a
	// named patient. A doctor's new thread is assigned to them; a clinic
	// admin writes into the general thread.
	if actor.TenantID == nil {
		return nil, uuid.Nil, apperr.ErrClinicIDRequired
	}
	if input.PatientID == nil {
		return nil, uuid.Nil, apperr.ErrPatientIDRequired
	}

	patient, err := s.patients.GetByID(ctx, *input.PatientID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if patient == nil || patient.TenantID != *actor.TenantID {
		return nil, uuid.Nil, apperr.ErrPatientNotFound
	}

	var staffID *uuid.UUID
	if actor.Role == models.RoleDoctor {
		id := actor.UserID
		staffID = &id
	}

	conv, err := s.conversations.FindOrCreate(ctx, *actor.TenantID, patient.ID, staffID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return conv, actor.UserID, nil
}

// MarkRead flags the thread's inbound messages (per the role's inbound
// mapping) as read. Idempotent: a second call returns 0.
func (s *Service) MarkRead(ctx context.Context, actor models.Actor, conversationID uuid.UUID) (int64, error) {
	if _, _, err := s.loadGuarded(ctx, actor, conversationID); err != nil {
		return 0, err
	}

	count, err := s.messages.MarkRead(ctx, conversationID, InboundSenderTypes(actor.Role), time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.invalidateUnread(ctx, actor)
	}
	return count, nil
}

// UnreadCount aggregates unread inbound messages across every thread the
// actor can see. A patient without a clinical record gets 0, not an error.
func (s *Service) UnreadCount(ctx context.Context, actor models.Actor) (int64, error) {
	scope, _, err := s.actorScope(ctx, actor)
	if err != nil {
		return 0, err
	}
	if scope == nil {
		return 0, nil
	}

	key := unreadKey(actor)
	if s.cache != nil {
		if count, ok := s.cache.GetUnread(ctx, key); ok {
			return count, nil
		}
	}

	count, err := s.messages.CountUnread(ctx, *scope, InboundSenderTypes(actor.Role))
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache.SetUnread(ctx, key, count)
	}
	return count, nil
}

// DeleteMessage hard-deletes a message. Conversation access is necessary
// but not sufficient: only the original sender may delete, so a clinic
// admin monitoring a thread cannot remove a patient's message.
func (s *Service) DeleteMessage(ctx context.Context, actor models.Actor, messageID int64) (*models.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, apperr.ErrMessageNotFound
	}

	conv, patientID, err := s.loadGuarded(ctx, actor, msg.ConversationID)
	if err != nil {
		return nil, err
	}

	if !CanDeleteMessage(actor, patientID, msg) {
		return nil, apperr.ErrAccessDenied
	}

	deleted, err := s.messages.Delete(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		// Raced with another delete of the same message.
		return nil, apperr.ErrMessageNotFound
	}

	s.invalidateUnread(ctx, actor)
	s.publish(ctx, events.KeyMessageDeleted, conv, deleted)
	return deleted, nil
}

// invalidateUnread drops the acting user's own cached count. Counterpart
// actors' keys are left to expire by TTL — there is no cheap way to
// enumerate every doctor whose badge a patient's message touches.
func (s *Service) invalidateUnread(ctx context.Context, actor models.Actor) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, unreadKey(actor))
}

func unreadKey(actor models.Actor) string {
	return fmt.Sprintf("unread:%s:%s", actor.Role, actor.UserID)
}

// publish emits a lifecycle event; failures are logged and swallowed —
// the row change is already committed and must not be unwound by a
// broker hiccup.
func (s *Service) publish(ctx context.Context, key string, conv *models.Conversation, msg *models.Message) {
	event := events.MessageEvent{
		Kind:           key,
		OccurredAt:     time.Now(),
		TenantID:       conv.TenantID,
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		SenderType:     string(msg.SenderType),
	}
	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("key", key),
			zap.Int64("message_id", msg.ID),
			zap.Error(err),
		)
	}
}
