package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NourhenHamza/TalentGo-sub002/internal/docstore"
	"github.com/NourhenHamza/TalentGo-sub002/internal/errs"
	"github.com/NourhenHamza/TalentGo-sub002/internal/model"
	"github.com/NourhenHamza/TalentGo-sub002/internal/repository"
	"github.com/NourhenHamza/TalentGo-sub002/internal/scoring"
	"github.com/gofrs/uuid/v5"
)

// FormInput is one form-step submission.
type FormInput struct {
	Personal    model.PersonalInfo
	CoverLetter string
	CV          *docstore.Upload
}

// ViolationInput is one client-reported anti-cheating event.
type ViolationInput struct {
	Type            string
	Description     string
	ClientTimestamp time.Time
}

// ResultInput is one test submission with its security telemetry batch.
type ResultInput struct {
	Answers            []scoring.Answer
	TimeSpentSeconds   int
	Violations         []ViolationInput
	TestLocked         bool
	SuspiciousActivity bool
}

// SubmitOutcome reports the finalized attempt back to the client.
type SubmitOutcome struct {
	Result      model.TestResult
	Attempts    model.AttemptStatus
	ShowResults bool
}

// AssessmentService defines form submission, test submission, and candidacy views.
type AssessmentService interface {
	// SubmitForm stores personal info and documents, returns the next step.
	SubmitForm(ctx context.Context, token string, candidacyID uuid.UUID, in FormInput) (model.Step, error)
	// SubmitResults finalizes one test attempt: governs the attempt limit,
	// records the security batch, scores the answers, persists the result.
	SubmitResults(ctx context.Context, token string, candidacyID uuid.UUID, in ResultInput) (*SubmitOutcome, error)
	// GetCandidacy loads a candidacy and its owning offer.
	GetCandidacy(ctx context.Context, candidacyID uuid.UUID) (*model.Candidacy, *model.Offer, error)
}

type AssessmentServiceImpl struct {
	resolver OfferResolver
	offers   repository.OfferRepository
	cands    repository.CandidacyRepository
	docs     docstore.Store

	// failLocked forces passed=false on testLocked attempts. Off by default:
	// a locked attempt is still scored and can pass.
	failLocked bool
}

// NewAssessmentService constructs AssessmentService with required dependencies.
func NewAssessmentService(
	resolver OfferResolver,
	offers repository.OfferRepository,
	cands repository.CandidacyRepository,
	docs docstore.Store,
	failLocked bool,
) *AssessmentServiceImpl {
	return &AssessmentServiceImpl{
		resolver:   resolver,
		offers:     offers,
		cands:      cands,
		docs:       docs,
		failLocked: failLocked,
	}
}

// loadFor resolves the offer (deadline guard included) and the candidacy, and
// checks the candidacy belongs to the token's offer.
func (s *AssessmentServiceImpl) loadFor(ctx context.Context, token string, candidacyID uuid.UUID) (*model.Offer, *model.Candidacy, error) {
	o, err := s.resolver.Resolve(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.cands.GetByID(ctx, candidacyID)
	if err != nil {
		return nil, nil, err
	}
	if c.OfferID != o.ID {
		return nil, nil, errs.ErrNotFound
	}
	return o, c, nil
}

// SubmitForm validates and stores the personal info form, optional cover
// letter, and optional CV upload.
func (s *AssessmentServiceImpl) SubmitForm(ctx context.Context, token string, candidacyID uuid.UUID, in FormInput) (model.Step, error) {
	if err := validatePersonalInfo(in.Personal); err != nil {
		return "", err
	}
	o, c, err := s.loadFor(ctx, token, candidacyID)
	if err != nil {
		return "", err
	}

	docs := c.Documents
	if in.CV != nil {
		meta, err := s.docs.Save(ctx, c.ID, *in.CV)
		if err != nil {
			return "", err
		}
		docs.CV = &meta
	}
	if in.CoverLetter != "" {
		docs.CoverLetter = in.CoverLetter
	}

	if err := s.cands.SaveForm(ctx, c.ID, in.Personal, docs); err != nil {
		return "", err
	}
	if !c.Session.HasStep(model.StepForm) {
		if err := s.cands.AppendStep(ctx, c.ID, model.StepEntry{Step: model.StepForm, CompletedAt: time.Now().UTC()}); err != nil {
			return "", err
		}
	}

	c.Personal = &in.Personal
	c.Documents = docs
	return NextStep(c, o.Test), nil
}

// SubmitResults finalizes one attempt. The attempt governor runs before any
// write; a submission past the limit is rejected and the counter unchanged.
// Submission is otherwise unconditional: zero or partial answers still score.
func (s *AssessmentServiceImpl) SubmitResults(ctx context.Context, token string, candidacyID uuid.UUID, in ResultInput) (*SubmitOutcome, error) {
	if in.TimeSpentSeconds < 0 {
		return nil, fmt.Errorf("%w: negative timeSpentSeconds", errs.ErrValidation)
	}
	for i, v := range in.Violations {
		if v.Type == "" {
			return nil, fmt.Errorf("%w: violation[%d] missing type", errs.ErrValidation, i)
		}
	}

	o, c, err := s.loadFor(ctx, token, candidacyID)
	if err != nil {
		return nil, err
	}
	t := o.Test
	if t == nil {
		return nil, fmt.Errorf("%w: offer has no test", errs.ErrValidation)
	}
	if !CanRetake(c.TestAttempts, t.MaxAttempts) {
		return nil, errs.ErrAttemptsExhausted
	}

	now := time.Now().UTC()
	attemptNo := c.TestAttempts + 1
	stamped := make([]model.SecurityViolation, 0, len(in.Violations))
	for _, v := range in.Violations {
		stamped = append(stamped, model.SecurityViolation{
			Type:            v.Type,
			Description:     v.Description,
			ClientTimestamp: v.ClientTimestamp,
			AttemptNumber:   attemptNo,
			RecordedAt:      now,
		})
	}

	graded := scoring.Score(t, in.Answers)
	passed := graded.Passed
	if s.failLocked && in.TestLocked {
		passed = false
	}
	status := model.ResultCompleted
	if in.TestLocked {
		status = model.ResultTerminated
	}

	result := model.TestResult{
		Score:            graded.Score,
		Passed:           passed,
		Answers:          graded.Checks,
		StartedAt:        now.Add(-time.Duration(in.TimeSpentSeconds) * time.Second),
		CompletedAt:      now,
		TimeSpentSeconds: in.TimeSpentSeconds,
		Status:           status,
		Security: model.SecurityData{
			Violations:         stamped,
			ViolationCount:     len(stamped),
			TestLocked:         in.TestLocked,
			SuspiciousActivity: in.SuspiciousActivity,
		},
	}

	attempts, err := s.cands.FinalizeAttempt(ctx, c.ID, t.MaxAttempts, result, stamped)
	if err != nil {
		return nil, err
	}
	for _, step := range []model.Step{model.StepTest, model.StepResults} {
		if !c.Session.HasStep(step) {
			if err := s.cands.AppendStep(ctx, c.ID, model.StepEntry{Step: step, CompletedAt: now}); err != nil {
				return nil, err
			}
		}
	}

	return &SubmitOutcome{
		Result:      result,
		Attempts:    AttemptStatusFor(attempts, t.MaxAttempts),
		ShowResults: t.Policy.ShowResults,
	}, nil
}

// GetCandidacy loads a candidacy and its owning offer, regardless of the
// offer's enabled state (an existing candidate may review a closed offer).
func (s *AssessmentServiceImpl) GetCandidacy(ctx context.Context, candidacyID uuid.UUID) (*model.Candidacy, *model.Offer, error) {
	c, err := s.cands.GetByID(ctx, candidacyID)
	if err != nil {
		return nil, nil, err
	}
	o, err := s.offers.GetByID(ctx, c.OfferID)
	if err != nil {
		return nil, nil, err
	}
	return c, o, nil
}

func validatePersonalInfo(p model.PersonalInfo) error {
	switch {
	case strings.TrimSpace(p.FirstName) == "":
		return fmt.Errorf("%w: firstName is required", errs.ErrValidation)
	case strings.TrimSpace(p.LastName) == "":
		return fmt.Errorf("%w: lastName is required", errs.ErrValidation)
	case strings.TrimSpace(p.Email) == "" || !strings.Contains(p.Email, "@"):
		return fmt.Errorf("%w: valid email is required", errs.ErrValidation)
	}
	return nil
}
