package repository

import (
	"context"

	"github.com/NourhenHamza/TalentGo-sub002/internal/model"
	"github.com/gofrs/uuid/v5"
)

// CandidacyRepository provides single-document access to candidacies. Every
// mutation touches exactly one row; duplicate-identity races are resolved by
// the database uniqueness constraint, surfaced as errs.ErrConflict on Create.
type CandidacyRepository interface {
	// Create inserts a new candidacy. Returns errs.ErrConflict when the
	// (offer, provider, provider id) identity is already bound.
	Create(ctx context.Context, c *model.Candidacy) error

	// GetByID loads a candidacy by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Candidacy, error)

	// GetByIdentity loads the candidacy bound to the given external identity
	// for one offer.
	GetByIdentity(ctx context.Context, offerID uuid.UUID, provider, providerID string) (*model.Candidacy, error)

	// SaveForm stores personal info and document metadata.
	SaveForm(ctx context.Context, id uuid.UUID, info model.PersonalInfo, docs model.Documents) error

	// AppendStep appends one entry to the session audit trail.
	AppendStep(ctx context.Context, id uuid.UUID, entry model.StepEntry) error

	// FinalizeAttempt atomically checks the attempt limit, increments the
	// attempt counter, overwrites the test result, and appends the violation
	// batch. Returns the new attempt count, or errs.ErrAttemptsExhausted when
	// the limit is already reached (the counter is left unchanged).
	FinalizeAttempt(ctx context.Context, id uuid.UUID, maxAttempts *int, result model.TestResult, violations []model.SecurityViolation) (int, error)
}
