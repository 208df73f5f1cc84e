package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NourhenHamza/TalentGo-sub002/internal/errs"
	"github.com/NourhenHamza/TalentGo-sub002/internal/identity"
	"github.com/NourhenHamza/TalentGo-sub002/internal/limiter"
	"github.com/NourhenHamza/TalentGo-sub002/internal/model"
	"github.com/NourhenHamza/TalentGo-sub002/internal/repository"
	"github.com/gofrs/uuid/v5"
)

type fakeOffers struct {
	byToken map[string]*model.Offer
	getErr  error
}

var _ repository.OfferRepository = (*fakeOffers)(nil)

func (f *fakeOffers) GetByToken(_ context.Context, token string) (*model.Offer, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	o, ok := f.byToken[token]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return o, nil
}

func (f *fakeOffers) GetByID(_ context.Context, id uuid.UUID) (*model.Offer, error) {
	for _, o := range f.byToken {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, errs.ErrNotFound
}

type fakeCands struct {
	byID map[uuid.UUID]*model.Candidacy

	createErr   error
	createCalls int
	createHook  func() // runs at the top of Create, for race injection

	formSaved  bool
	stepsAdded []model.Step

	finalizeErr error
}

var _ repository.CandidacyRepository = (*fakeCands)(nil)

func (f *fakeCands) Create(_ context.Context, c *model.Candidacy) error {
	f.createCalls++
	if f.createHook != nil {
		f.createHook()
	}
	if f.createErr != nil {
		return f.createErr
	}
	if f.byID == nil {
		f.byID = map[uuid.UUID]*model.Candidacy{}
	}
	for _, ex := range f.byID {
		if ex.OfferID == c.OfferID && ex.Identity.Provider == c.Identity.Provider && ex.Identity.ProviderID == c.Identity.ProviderID {
			return errs.ErrConflict
		}
	}
	cpy := *c
	f.byID[c.ID] = &cpy
	return nil
}

func (f *fakeCands) GetByID(_ context.Context, id uuid.UUID) (*model.Candidacy, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := *c
	return &cpy, nil
}

func (f *fakeCands) GetByIdentity(_ context.Context, offerID uuid.UUID, provider, providerID string) (*model.Candidacy, error) {
	for _, c := range f.byID {
		if c.OfferID == offerID && c.Identity.Provider == provider && c.Identity.ProviderID == providerID {
			cpy := *c
			return &cpy, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeCands) SaveForm(_ context.Context, id uuid.UUID, info model.PersonalInfo, docs model.Documents) error {
	c, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	c.Personal = &info
	c.Documents = docs
	f.formSaved = true
	return nil
}

func (f *fakeCands) AppendStep(_ context.Context, id uuid.UUID, entry model.StepEntry) error {
	c, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	c.Session.CompletedSteps = append(c.Session.CompletedSteps, entry)
	f.stepsAdded = append(f.stepsAdded, entry.Step)
	return nil
}

func (f *fakeCands) FinalizeAttempt(_ context.Context, id uuid.UUID, maxAttempts *int, result model.TestResult, violations []model.SecurityViolation) (int, error) {
	if f.finalizeErr != nil {
		return 0, f.finalizeErr
	}
	c, ok := f.byID[id]
	if !ok {
		return 0, errs.ErrAttemptsExhausted
	}
	if maxAttempts != nil && c.TestAttempts >= *maxAttempts {
		return 0, errs.ErrAttemptsExhausted
	}
	c.TestAttempts++
	c.Result = &result
	c.Violations = append(c.Violations, violations...)
	return c.TestAttempts, nil
}

type fakeVerifier struct {
	p     identity.Principal
	err   error
	calls int
}

var _ identity.Verifier = (*fakeVerifier)(nil)

func (f *fakeVerifier) Verify(context.Context, string, string) (identity.Principal, error) {
	f.calls++
	return f.p, f.err
}

type fakeLimiter struct {
	allowOK     bool
	allowErr    error
	failBlocked bool

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return nil
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, nil
}

func openOffer(maxAttempts *int) *model.Offer {
	tdef := &model.Test{
		Name:         "backend basics",
		PassingScore: 60,
		MaxAttempts:  maxAttempts,
		Questions: []model.Question{
			{Prompt: "q0", Options: []string{"a", "b"}, Correct: 1, Points: 1},
			{Prompt: "q1", Options: []string{"a", "b"}, Correct: 0, Points: 1},
		},
	}
	return &model.Offer{
		ID:       uuid.Must(uuid.NewV4()),
		Token:    "tok",
		Title:    "Backend Intern",
		Company:  "Acme",
		Deadline: time.Now().Add(24 * time.Hour),
		Enabled:  true,
		Test:     tdef,
	}
}

func newAccess(offers *fakeOffers, cands *fakeCands, v *fakeVerifier, l *fakeLimiter) *AccessServiceImpl {
	return NewAccessService(offers, cands, v, l, nil, []byte("k"), time.Minute)
}

func TestResolve_UnknownToken(t *testing.T) {
	s := newAccess(&fakeOffers{byToken: map[string]*model.Offer{}}, &fakeCands{}, &fakeVerifier{}, &fakeLimiter{allowOK: true})
	if _, err := s.Resolve(context.Background(), "nope"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := s.Resolve(context.Background(), ""); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("empty token: want ErrNotFound, got %v", err)
	}
}

func TestResolve_ExpiredEvenIfEnabled(t *testing.T) {
	o := openOffer(nil)
	o.Deadline = time.Now().Add(-time.Hour)
	s := newAccess(&fakeOffers{byToken: map[string]*model.Offer{"tok": o}}, &fakeCands{}, &fakeVerifier{}, &fakeLimiter{allowOK: true})

	if _, err := s.Resolve(context.Background(), "tok"); !errors.Is(err, errs.ErrExpired) {
		t.Fatalf("want ErrExpired, got %v", err)
	}
}

func TestAuthenticate_CreatesCandidacyOnce(t *testing.T) {
	o := openOffer(nil)
	cands := &fakeCands{byID: map[uuid.UUID]*model.Candidacy{}}
	v := &fakeVerifier{p: identity.Principal{ProviderID: "p1", Email: "a@b.c", GivenName: "A", FamilyName: "B"}}
	s := newAccess(&fakeOffers{byToken: map[string]*model.Offer{"tok": o}}, cands, v, &fakeLimiter{allowOK: true})
	in := AuthInput{Token: "tok", Provider: "google", Credential: "cred", IP: "1.2.3.4", UserAgent: "ua"}

	res, err := s.Authenticate(context.Background(), in)
	if err != nil {
		t.Fatalf("first auth: %v", err)
	}
	if !res.IsNew {
		t.Fatalf("first auth must create")
	}
	if res.Candidacy.Status != model.StatusPending {
		t.Fatalf("status=%q, want pending", res.Candidacy.Status)
	}
	if !res.Candidacy.Session.HasStep(model.StepAuth) {
		t.Fatalf("auth step not recorded")
	}
	if res.NextStep != model.StepForm {
		t.Fatalf("nextStep=%q, want form", res.NextStep)
	}
	if res.SessionToken == "" || !res.ExpiresAt.After(time.Now()) {
		t.Fatalf("bad session token: %q exp=%v", res.SessionToken, res.ExpiresAt)
	}

	// Second login with the same identity: same candidacy, nothing reset.
	again, err := s.Authenticate(context.Background(), in)
	if err != nil {
		t.Fatalf("second auth: %v", err)
	}
	if again.IsNew {
		t.Fatalf("second auth must not create")
	}
	if again.Candidacy.ID != res.Candidacy.ID {
		t.Fatalf("candidacy id changed across logins")
	}
	if again.Candidacy.TestAttempts != 0 {
		t.Fatalf("attempts disturbed: %d", again.Candidacy.TestAttempts)
	}
	if cands.createCalls != 1 {
		t.Fatalf("createCalls=%d, want 1", cands.createCalls)
	}
}

func TestAuthenticate_ConflictRaceRecovered(t *testing.T) {
	o := openOffer(nil)
	winner := &model.Candidacy{
		ID:       uuid.Must(uuid.NewV4()),
		OfferID:  o.ID,
		Identity: model.Identity{Provider: "google", ProviderID: "p1"},
		Status:   model.StatusPending,
	}
	cands := &fakeCands{byID: map[uuid.UUID]*model.Candidacy{}}
	// The winner's row appears between this request's identity miss and its
	// insert, so Create reports a conflict exactly as the database would.
	cands.createHook = func() {
		if _, ok := cands.byID[winner.ID]; !ok {
			cpy := *winner
			cands.byID[winner.ID] = &cpy
			cands.createErr = errs.ErrConflict
		}
	}
	s := newAccess(&fakeOffers{byToken: map[string]*model.Offer{"tok": o}}, cands, &fakeVerifier{p: identity.Principal{ProviderID: "p1", Email: "a@b.c"}}, &fakeLimiter{allowOK: true})

	res, err := s.Authenticate(context.Background(), AuthInput{Token: "tok", Provider: "google", Credential: "c"})
	if err != nil {
		t.Fatalf("race must be recovered, got %v", err)
	}
	if res.IsNew {
		t.Fatalf("loser of the race must not report a new candidacy")
	}
	if res.Candidacy.ID != winner.ID {
		t.Fatalf("must return the winner's candidacy")
	}
}

func TestAuthenticate_BadCredential(t *testing.T) {
	o := openOffer(nil)
	lim := &fakeLimiter{allowOK: true}
	s := newAccess(&fakeOffers{byToken: map[string]*model.Offer{"tok": o}}, &fakeCands{}, &fakeVerifier{err: errs.ErrUnauthorized}, lim)

	_, err := s.Authenticate(context.Background(), AuthInput{Token: "tok", Provider: "google", Credential: "bad"})
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if lim.failureCalls != 1 {
		t.Fatalf("failure not recorded")
	}
}

func TestAuthenticate_RateLimited(t *testing.T) {
	o := openOffer(nil)
	s := newAccess(&fakeOffers{byToken: map[string]*model.Offer{"tok": o}}, &fakeCands{}, &fakeVerifier{}, &fakeLimiter{allowOK: false})

	_, err := s.Authenticate(context.Background(), AuthInput{Token: "tok", Provider: "google", Credential: "c"})
	if !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}

	// Threshold reached on this failure: blocked immediately.
	lim := &fakeLimiter{allowOK: true, failBlocked: true}
	s = newAccess(&fakeOffers{byToken: map[string]*model.Offer{"tok": o}}, &fakeCands{}, &fakeVerifier{err: errs.ErrUnauthorized}, lim)
	_, err = s.Authenticate(context.Background(), AuthInput{Token: "tok", Provider: "google", Credential: "c"})
	if !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited on block, got %v", err)
	}
}

func TestAuthenticate_ExpiredOffer(t *testing.T) {
	o := openOffer(nil)
	o.Deadline = time.Now().Add(-time.Minute)
	v := &fakeVerifier{}
	s := newAccess(&fakeOffers{byToken: map[string]*model.Offer{"tok": o}}, &fakeCands{}, v, &fakeLimiter{allowOK: true})

	_, err := s.Authenticate(context.Background(), AuthInput{Token: "tok", Provider: "google", Credential: "c"})
	if !errors.Is(err, errs.ErrExpired) {
		t.Fatalf("want ErrExpired, got %v", err)
	}
	if v.calls != 0 {
		t.Fatalf("deadline guard must run before credential verification")
	}
}

func TestAuthenticate_ValidationErrors(t *testing.T) {
	s := newAccess(&fakeOffers{}, &fakeCands{}, &fakeVerifier{}, &fakeLimiter{allowOK: true})
	if _, err := s.Authenticate(context.Background(), AuthInput{Token: "tok"}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}
