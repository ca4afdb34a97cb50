package messaging

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/careline/internal/models"
)

// In-memory fakes of the repository interfaces. They mirror the store
// contracts (nil for not-found, preview maintenance on append/delete,
// null-as-key triple matching) so service tests exercise real semantics
// without a database.

type fakeAccounts struct {
	accounts map[uuid.UUID]*models.Account
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[uuid.UUID]*models.Account)}
}

func (f *fakeAccounts) add(a *models.Account) {
	f.accounts[a.ID] = a
}

func (f *fakeAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	return f.accounts[id], nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

type fakeTenants struct {
	tenants map[uuid.UUID]*models.Tenant
}

func newFakeTenants(ids ...uuid.UUID) *fakeTenants {
	f := &fakeTenants{tenants: make(map[uuid.UUID]*models.Tenant)}
	for _, id := range ids {
		f.tenants[id] = &models.Tenant{ID: id, Name: "clinic-" + id.String()[:8]}
	}
	return f
}

func (f *fakeTenants) GetByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	return f.tenants[id], nil
}

type fakePatients struct {
	patients []*models.Patient
}

func (f *fakePatients) add(p *models.Patient) {
	f.patients = append(f.patients, p)
}

func (f *fakePatients) GetByID(_ context.Context, id uuid.UUID) (*models.Patient, error) {
	for _, p := range f.patients {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePatients) FindByContact(_ context.Context, tenantID *uuid.UUID, email, phone string) (*models.Patient, error) {
	for _, p := range f.patients {
		if tenantID != nil && p.TenantID != *tenantID {
			continue
		}
		if (email != "" && p.Email == email) || (phone != "" && p.Phone == phone) {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePatients) GetOrCreate(_ context.Context, tenantID uuid.UUID, fullName, email, phone string) (*models.Patient, error) {
	for _, p := range f.patients {
		if p.TenantID == tenantID && p.Email == email && p.Phone == phone {
			return p, nil
		}
	}
	p := &models.Patient{
		ID:        uuid.New(),
		TenantID:  tenantID,
		FullName:  fullName,
		Email:     email,
		Phone:     phone,
		CreatedAt: time.Now(),
	}
	f.patients = append(f.patients, p)
	return p, nil
}

type fakeStaff struct {
	staff map[uuid.UUID]*models.StaffMember
}

func newFakeStaff() *fakeStaff {
	return &fakeStaff{staff: make(map[uuid.UUID]*models.StaffMember)}
}

func (f *fakeStaff) add(m *models.StaffMember) {
	f.staff[m.ID] = m
}

func (f *fakeStaff) GetByID(_ context.Context, tenantID, id uuid.UUID) (*models.StaffMember, error) {
	m := f.staff[id]
	if m == nil || m.TenantID != tenantID {
		return nil, nil
	}
	return m, nil
}

func scopeMatches(scope models.ConversationScope, c *models.Conversation) bool {
	if scope.TenantID != nil && c.TenantID != *scope.TenantID {
		return false
	}
	if scope.PatientID != nil && c.PatientID != *scope.PatientID {
		return false
	}
	if scope.StaffMemberID != nil {
		if c.StaffMemberID == nil {
			return scope.IncludeUnassigned
		}
		return *c.StaffMemberID == *scope.StaffMemberID
	}
	return true
}

type fakeConversations struct {
	conversations []*models.Conversation
}

func (f *fakeConversations) GetByID(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	for _, c := range f.conversations {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeConversations) FindOrCreate(_ context.Context, tenantID, patientID uuid.UUID, staffMemberID *uuid.UUID) (*models.Conversation, error) {
	for _, c := range f.conversations {
		if c.TenantID != tenantID || c.PatientID != patientID {
			continue
		}
		if (c.StaffMemberID == nil) != (staffMemberID == nil) {
			continue
		}
		if c.StaffMemberID == nil || *c.StaffMemberID == *staffMemberID {
			return c, nil
		}
	}
	c := &models.Conversation{
		ID:        uuid.New(),
		TenantID:  tenantID,
		PatientID: patientID,
		Kind:      models.KindFor(staffMemberID),
		CreatedAt: time.Now(),
	}
	if staffMemberID != nil {
		id := *staffMemberID
		c.StaffMemberID = &id
	}
	f.conversations = append(f.conversations, c)
	return c, nil
}

func (f *fakeConversations) List(_ context.Context, scope models.ConversationScope, page, limit int) ([]models.Conversation, int, error) {
	matched := make([]models.Conversation, 0)
	for _, c := range f.conversations {
		if scopeMatches(scope, c) {
			matched = append(matched, *c)
		}
	}
	total := len(matched)

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// fakeMessages keeps the log and maintains previews the way the real
// store's transactions do. Its clock ticks one second per append so
// created_at values are distinct and ordered.
type fakeMessages struct {
	nextID        int64
	now           time.Time
	messages      []*models.Message
	conversations *fakeConversations
}

func newFakeMessages(convs *fakeConversations) *fakeMessages {
	return &fakeMessages{
		nextID:        1,
		now:           time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		conversations: convs,
	}
}

func (f *fakeMessages) GetByID(_ context.Context, id int64) (*models.Message, error) {
	for _, m := range f.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeMessages) Append(_ context.Context, conversationID, senderID uuid.UUID, senderType models.SenderType, content, imageURL string) (*models.Message, error) {
	f.now = f.now.Add(time.Second)
	m := &models.Message{
		ID:             f.nextID,
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderType:     senderType,
		Content:        content,
		ImageURL:       imageURL,
		CreatedAt:      f.now,
	}
	f.nextID++
	f.messages = append(f.messages, m)

	for _, c := range f.conversations.conversations {
		if c.ID == conversationID {
			at := m.CreatedAt
			text := models.PreviewText(m.Content, m.ImageURL)
			c.LastMessageAt = &at
			c.LastMessageText = &text
		}
	}
	return m, nil
}

func (f *fakeMessages) List(_ context.Context, conversationID uuid.UUID, page, limit int, before *time.Time) ([]models.Message, error) {
	matched := make([]models.Message, 0)
	for _, m := range f.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		matched = append(matched, *m)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (f *fakeMessages) Delete(_ context.Context, id int64) (*models.Message, error) {
	var deleted *models.Message
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.ID == id {
			deleted = m
			continue
		}
		kept = append(kept, m)
	}
	f.messages = kept
	if deleted == nil {
		return nil, nil
	}

	var survivor *models.Message
	for _, m := range f.messages {
		if m.ConversationID != deleted.ConversationID {
			continue
		}
		if survivor == nil || m.CreatedAt.After(survivor.CreatedAt) ||
			(m.CreatedAt.Equal(survivor.CreatedAt) && m.ID > survivor.ID) {
			survivor = m
		}
	}
	for _, c := range f.conversations.conversations {
		if c.ID != deleted.ConversationID {
			continue
		}
		if survivor == nil {
			c.LastMessageAt = nil
			c.LastMessageText = nil
		} else {
			at := survivor.CreatedAt
			text := models.PreviewText(survivor.Content, survivor.ImageURL)
			c.LastMessageAt = &at
			c.LastMessageText = &text
		}
	}
	return deleted, nil
}

func (f *fakeMessages) MarkRead(_ context.Context, conversationID uuid.UUID, senderTypes []models.SenderType, readAt time.Time) (int64, error) {
	var count int64
	for _, m := range f.messages {
		if m.ConversationID != conversationID || m.IsRead {
			continue
		}
		for _, st := range senderTypes {
			if m.SenderType == st {
				at := readAt
				m.IsRead = true
				m.ReadAt = &at
				count++
				break
			}
		}
	}
	return count, nil
}

func (f *fakeMessages) CountUnread(_ context.Context, scope models.ConversationScope, senderTypes []models.SenderType) (int64, error) {
	var count int64
	for _, m := range f.messages {
		if m.IsRead {
			continue
		}
		conv, _ := f.conversations.GetByID(context.Background(), m.ConversationID)
		if conv == nil || !scopeMatches(scope, conv) {
			continue
		}
		for _, st := range senderTypes {
			if m.SenderType == st {
				count++
				break
			}
		}
	}
	return count, nil
}
