package messaging

import (
	"testing"

	"github.com/google/uuid"

	"github.com/careloop/careline/internal/models"
)

func TestCanAccessConversation(t *testing.T) {
	clinic1 := uuid.New()
	clinic2 := uuid.New()
	alice := uuid.New()
	bob := uuid.New()
	drSmith := uuid.New()
	drJones := uuid.New()
	admin := uuid.New()

	assigned := &models.Conversation{
		ID:            uuid.New(),
		TenantID:      clinic1,
		PatientID:     alice,
		StaffMemberID: &drSmith,
		Kind:          models.KindPatientDoctor,
	}
	unassigned := &models.Conversation{
		ID:        uuid.New(),
		TenantID:  clinic1,
		PatientID: alice,
		Kind:      models.KindPatientClinic,
	}
	otherClinic := &models.Conversation{
		ID:        uuid.New(),
		TenantID:  clinic2,
		PatientID: bob,
		Kind:      models.KindPatientClinic,
	}

	tests := []struct {
		name      string
		actor     models.Actor
		patientID uuid.UUID
		conv      *models.Conversation
		want      bool
	}{
		{
			name:      "patient owns the thread",
			actor:     models.Actor{UserID: uuid.New(), Role: models.RolePatient, TenantID: &clinic1},
			patientID: alice,
			conv:      assigned,
			want:      true,
		},
		{
			name:      "patient without tenant claim allowed on identity alone",
			actor:     models.Actor{UserID: uuid.New(), Role: models.RolePatient},
			patientID: alice,
			conv:      unassigned,
			want:      true,
		},
		{
			name:      "patient tenant mismatch denied",
			actor:     models.Actor{UserID: uuid.New(), Role: models.RolePatient, TenantID: &clinic2},
			patientID: alice,
			conv:      assigned,
			want:      false,
		},
		{
			name:      "patient with someone else's thread denied",
			actor:     models.Actor{UserID: uuid.New(), Role: models.RolePatient},
			patientID: bob,
			conv:      assigned,
			want:      false,
		},
		{
			name:  "unresolved patient denied",
			actor: models.Actor{UserID: uuid.New(), Role: models.RolePatient},
			conv:  unassigned,
			want:  false,
		},
		{
			name:  "doctor reads own assigned thread",
			actor: models.Actor{UserID: drSmith, Role: models.RoleDoctor, TenantID: &clinic1},
			conv:  assigned,
			want:  true,
		},
		{
			name:  "doctor denied colleague's assigned thread",
			actor: models.Actor{UserID: drJones, Role: models.RoleDoctor, TenantID: &clinic1},
			conv:  assigned,
			want:  false,
		},
		{
			name:  "doctor reads shared unassigned thread",
			actor: models.Actor{UserID: drJones, Role: models.RoleDoctor, TenantID: &clinic1},
			conv:  unassigned,
			want:  true,
		},
		{
			name:  "doctor denied across clinics",
			actor: models.Actor{UserID: drSmith, Role: models.RoleDoctor, TenantID: &clinic1},
			conv:  otherClinic,
			want:  false,
		},
		{
			name:  "doctor without tenant denied",
			actor: models.Actor{UserID: drSmith, Role: models.RoleDoctor},
			conv:  unassigned,
			want:  false,
		},
		{
			name:  "clinic admin sees everything in tenant",
			actor: models.Actor{UserID: admin, Role: models.RoleClinic, TenantID: &clinic1},
			conv:  assigned,
			want:  true,
		},
		{
			name:  "clinic admin denied across clinics",
			actor: models.Actor{UserID: admin, Role: models.RoleClinic, TenantID: &clinic1},
			conv:  otherClinic,
			want:  false,
		},
		{
			name:  "unknown role denied",
			actor: models.Actor{UserID: uuid.New(), Role: "intruder", TenantID: &clinic1},
			conv:  unassigned,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanAccessConversation(tt.actor, tt.patientID, tt.conv)
			if got != tt.want {
				t.Errorf("CanAccessConversation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanDeleteMessage(t *testing.T) {
	clinic1 := uuid.New()
	alice := uuid.New()
	drSmith := uuid.New()
	admin := uuid.New()

	patientMsg := &models.Message{ID: 1, SenderID: alice, SenderType: models.SenderPatient}
	doctorMsg := &models.Message{ID: 2, SenderID: drSmith, SenderType: models.SenderDoctor}

	tests := []struct {
		name      string
		actor     models.Actor
		patientID uuid.UUID
		msg       *models.Message
		want      bool
	}{
		{
			name:      "patient deletes own message",
			actor:     models.Actor{UserID: uuid.New(), Role: models.RolePatient},
			patientID: alice,
			msg:       patientMsg,
			want:      true,
		},
		{
			name:      "different patient denied",
			actor:     models.Actor{UserID: uuid.New(), Role: models.RolePatient},
			patientID: uuid.New(),
			msg:       patientMsg,
			want:      false,
		},
		{
			name:  "doctor deletes own message",
			actor: models.Actor{UserID: drSmith, Role: models.RoleDoctor, TenantID: &clinic1},
			msg:   doctorMsg,
			want:  true,
		},
		{
			// Conversation access is not enough: the admin can read the
			// thread but is not the sender.
			name:  "clinic admin cannot delete patient message",
			actor: models.Actor{UserID: admin, Role: models.RoleClinic, TenantID: &clinic1},
			msg:   patientMsg,
			want:  false,
		},
		{
			name:  "doctor cannot delete patient message",
			actor: models.Actor{UserID: drSmith, Role: models.RoleDoctor, TenantID: &clinic1},
			msg:   patientMsg,
			want:  false,
		},
		{
			name:      "unresolved patient cannot delete",
			actor:     models.Actor{UserID: uuid.New(), Role: models.RolePatient},
			patientID: uuid.Nil,
			msg:       patientMsg,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanDeleteMessage(tt.actor, tt.patientID, tt.msg)
			if got != tt.want {
				t.Errorf("CanDeleteMessage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScopeBuilders(t *testing.T) {
	clinic := uuid.New()
	patient := uuid.New()
	doctor := uuid.New()

	t.Run("patient scope", func(t *testing.T) {
		scope := ScopeForPatient(patient, &clinic)
		if scope.PatientID == nil || *scope.PatientID != patient {
			t.Error("patient scope must pin the patient")
		}
		if scope.TenantID == nil || *scope.TenantID != clinic {
			t.Error("patient scope must keep the tenant when known")
		}
		if scope.StaffMemberID != nil {
			t.Error("patient scope must not filter by staff")
		}
	})

	t.Run("tenant-less patient scope", func(t *testing.T) {
		scope := ScopeForPatient(patient, nil)
		if scope.TenantID != nil {
			t.Error("unknown tenant must stay unrestricted")
		}
	})

	t.Run("doctor scope includes shared inbox", func(t *testing.T) {
		scope := ScopeForDoctor(clinic, doctor)
		if !scope.IncludeUnassigned {
			t.Error("doctor scope must include unassigned threads")
		}
		if scope.StaffMemberID == nil || *scope.StaffMemberID != doctor {
			t.Error("doctor scope must pin the staff member")
		}
	})

	t.Run("clinic scope is tenant-wide", func(t *testing.T) {
		scope := ScopeForClinic(clinic)
		if scope.PatientID != nil || scope.StaffMemberID != nil {
			t.Error("clinic scope must only filter by tenant")
		}
	})
}
