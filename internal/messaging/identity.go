package messaging

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careloop/careline/internal/apperr"
	"github.com/careloop/careline/internal/models"
	"github.com/careloop/careline/internal/repository"
)

// IdentityResolver maps an authenticated patient actor to their clinical
// Patient record. The two are created independently (accounts by signup,
// patients by the clinic's admissions flow) with no foreign key between
// them — matching runs on email/phone, and the Patient row is provisioned
// lazily on a patient's first message if the clinic never registered one.
type IdentityResolver struct {
	accounts repository.AccountRepository
	patients repository.PatientRepository
	tenants  repository.TenantRepository
	logger   *zap.Logger
}

func NewIdentityResolver(
	accounts repository.AccountRepository,
	patients repository.PatientRepository,
	tenants repository.TenantRepository,
	logger *zap.Logger,
) *IdentityResolver {
	return &IdentityResolver{
		accounts: accounts,
		patients: patients,
		tenants:  tenants,
		logger:   logger,
	}
}

// Resolve finds the Patient record for a patient actor. Returns nil, nil
// when the actor is not a patient, the account is gone, or no record
// matches — "no clinical record yet" is a normal state and read paths
// must degrade to empty results, not errors.
func (r *IdentityResolver) Resolve(ctx context.Context, actor models.Actor) (*models.Patient, error) {
	if actor.Role != models.RolePatient {
		return nil, nil
	}

	account, err := r.accounts.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil
	}

	return r.patients.FindByContact(ctx, actor.TenantID, account.Email, account.Phone)
}

// FindOrCreate is the compose-first-message variant: it resolves the
// patient, provisioning the record if the clinic never created one.
//
// The effective clinic is decided by an ordered chain, each step tried in
// turn (kept as explicit steps so the fallback order stays auditable):
//
//  1. the actor's own tenant,
//  2. the tenant of the closest prior Patient match — in which case that
//     match IS the answer and nothing is created,
//  3. otherwise CLINIC_NOT_FOUND.
//
// The display name falls back account name → local part of the email →
// "Patient"; PATIENT_NAME_REQUIRED if even that leaves nothing.
func (r *IdentityResolver) FindOrCreate(ctx context.Context, actor models.Actor) (*models.Patient, error) {
	if actor.Role != models.RolePatient {
		return nil, apperr.ErrAccessDenied
	}

	account, err := r.accounts.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperr.ErrUserNotFound
	}

	// Closest match first: scoped to the actor's tenant when known.
	existing, err := r.patients.FindByContact(ctx, actor.TenantID, account.Email, account.Phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	tenantID, err := r.effectiveTenant(ctx, actor, account)
	if err != nil {
		return nil, err
	}
	if tenantID == nil {
		// Step 2 matched a patient in some clinic; that record is the
		// identity, no provisioning needed.
		return r.patients.FindByContact(ctx, nil, account.Email, account.Phone)
	}

	name, err := patientDisplayName(account)
	if err != nil {
		return nil, err
	}

	patient, err := r.patients.GetOrCreate(ctx, *tenantID, name, account.Email, account.Phone)
	if err != nil {
		return nil, err
	}

	r.logger.Info("provisioned patient record",
		zap.String("patient_id", patient.ID.String()),
		zap.String("tenant_id", patient.TenantID.String()),
	)
	return patient, nil
}

// effectiveTenant runs the resolution chain. A nil, nil return means "an
// existing patient match in another clinic settles it" — the caller
// re-reads that match instead of creating anything.
func (r *IdentityResolver) effectiveTenant(ctx context.Context, actor models.Actor, account *models.Account) (*uuid.UUID, error) {
	// 1. The actor's own clinic, if the account is clinic-scoped.
	if actor.TenantID != nil {
		tenant, err := r.tenants.GetByID(ctx, *actor.TenantID)
		if err != nil {
			return nil, err
		}
		if tenant == nil {
			return nil, apperr.ErrClinicNotFound
		}
		return &tenant.ID, nil
	}

	// 2. A prior Patient match anywhere decides the clinic.
	match, err := r.patients.FindByContact(ctx, nil, account.Email, account.Phone)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return nil, nil
	}

	// 3. Nothing to go on.
	return nil, apperr.ErrClinicNotFound
}

// patientDisplayName derives a name for a lazily provisioned record:
// account name, else the local part of the email, else a literal fallback.
func patientDisplayName(account *models.Account) (string, error) {
	for _, candidate := range []string{account.FullName, emailLocalPart(account.Email), "Patient"} {
		if name := strings.TrimSpace(candidate); name != "" {
			return name, nil
		}
	}
	return "", apperr.ErrPatientNameRequired
}

func emailLocalPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return ""
}
