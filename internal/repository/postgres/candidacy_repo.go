package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NourhenHamza/TalentGo-sub002/internal/errs"
	"github.com/NourhenHamza/TalentGo-sub002/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// CandidacyRepo implements CandidacyRepository using PostgreSQL. Every
// candidacy is one row; jsonb columns hold the nested documents.
type CandidacyRepo struct{ db *DB }

// NewCandidacyRepo constructs a candidacy repository.
func NewCandidacyRepo(db *DB) *CandidacyRepo { return &CandidacyRepo{db: db} }

const candidacyCols = `id, offer_id, provider, provider_id, email, verified_at, provider_meta,
personal_info, documents, test_attempts, violations, test_result, status, session, created_at, updated_at`

// Create inserts a new candidacy row. A unique violation on the identity
// index maps to errs.ErrConflict so callers can refetch the winner.
func (r *CandidacyRepo) Create(ctx context.Context, c *model.Candidacy) error {
	meta, err := json.Marshal(c.Identity.Metadata)
	if err != nil {
		return fmt.Errorf("encode provider meta: %w", err)
	}
	docs, err := json.Marshal(c.Documents)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}
	session, err := json.Marshal(c.Session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	const q = `
INSERT INTO candidacies (id, offer_id, provider, provider_id, email, verified_at, provider_meta, documents, status, session)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.db.Pool.Exec(ctx, q,
		c.ID, c.OfferID, c.Identity.Provider, c.Identity.ProviderID,
		c.Identity.Email, c.Identity.VerifiedAt, meta, docs, string(c.Status), session)
	if isUniqueViolation(err) {
		return errs.ErrConflict
	}
	return err
}

// GetByID selects a candidacy by ID.
func (r *CandidacyRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Candidacy, error) {
	q := `SELECT ` + candidacyCols + ` FROM candidacies WHERE id=$1`
	return scanCandidacy(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByIdentity selects the candidacy bound to an external identity for one offer.
func (r *CandidacyRepo) GetByIdentity(ctx context.Context, offerID uuid.UUID, provider, providerID string) (*model.Candidacy, error) {
	q := `SELECT ` + candidacyCols + ` FROM candidacies WHERE offer_id=$1 AND provider=$2 AND provider_id=$3`
	return scanCandidacy(r.db.Pool.QueryRow(ctx, q, offerID, provider, providerID))
}

// SaveForm stores personal info and document metadata on one candidacy.
func (r *CandidacyRepo) SaveForm(ctx context.Context, id uuid.UUID, info model.PersonalInfo, docs model.Documents) error {
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode personal info: %w", err)
	}
	docsJSON, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}
	const q = `
UPDATE candidacies SET personal_info=$2, documents=$3, updated_at=now() WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, infoJSON, docsJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AppendStep appends one entry to the session step trail.
func (r *CandidacyRepo) AppendStep(ctx context.Context, id uuid.UUID, entry model.StepEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode step: %w", err)
	}
	const q = `
UPDATE candidacies
SET session = jsonb_set(session, '{completedSteps}', COALESCE(session->'completedSteps', '[]'::jsonb) || $2::jsonb),
    updated_at = now()
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, entryJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// FinalizeAttempt increments the attempt counter, overwrites the latest test
// result, and appends the violation batch in a single guarded UPDATE. The
// WHERE clause is the attempt governor's enforcement point: when the limit is
// reached no row matches and the counter stays untouched.
func (r *CandidacyRepo) FinalizeAttempt(ctx context.Context, id uuid.UUID, maxAttempts *int, result model.TestResult, violations []model.SecurityViolation) (int, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("encode result: %w", err)
	}
	if violations == nil {
		violations = []model.SecurityViolation{}
	}
	violJSON, err := json.Marshal(violations)
	if err != nil {
		return 0, fmt.Errorf("encode violations: %w", err)
	}
	const q = `
UPDATE candidacies
SET test_attempts = test_attempts + 1,
    test_result   = $2,
    violations    = violations || $3::jsonb,
    updated_at    = now()
WHERE id=$1 AND ($4::int IS NULL OR test_attempts < $4)
RETURNING test_attempts`
	var attempts int
	if err := r.db.Pool.QueryRow(ctx, q, id, resultJSON, violJSON, maxAttempts).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrAttemptsExhausted
		}
		return 0, err
	}
	return attempts, nil
}

// scanCandidacy decodes one candidacy row including its jsonb documents.
func scanCandidacy(row pgx.Row) (*model.Candidacy, error) {
	var (
		c          model.Candidacy
		status     string
		metaJSON   []byte
		infoJSON   []byte
		docsJSON   []byte
		violJSON   []byte
		resultJSON []byte
		sessJSON   []byte
	)
	if err := row.Scan(&c.ID, &c.OfferID, &c.Identity.Provider, &c.Identity.ProviderID,
		&c.Identity.Email, &c.Identity.VerifiedAt, &metaJSON,
		&infoJSON, &docsJSON, &c.TestAttempts, &violJSON, &resultJSON,
		&status, &sessJSON, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	c.Status = model.CandidacyStatus(status)
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &c.Identity.Metadata); err != nil {
			return nil, fmt.Errorf("decode provider meta: %w", err)
		}
	}
	if len(infoJSON) > 0 {
		var info model.PersonalInfo
		if err := json.Unmarshal(infoJSON, &info); err != nil {
			return nil, fmt.Errorf("decode personal info: %w", err)
		}
		c.Personal = &info
	}
	if len(docsJSON) > 0 {
		if err := json.Unmarshal(docsJSON, &c.Documents); err != nil {
			return nil, fmt.Errorf("decode documents: %w", err)
		}
	}
	if len(violJSON) > 0 {
		if err := json.Unmarshal(violJSON, &c.Violations); err != nil {
			return nil, fmt.Errorf("decode violations: %w", err)
		}
	}
	if len(resultJSON) > 0 {
		var res model.TestResult
		if err := json.Unmarshal(resultJSON, &res); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		c.Result = &res
	}
	if len(sessJSON) > 0 {
		if err := json.Unmarshal(sessJSON, &c.Session); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
	}
	return &c, nil
}
