package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NourhenHamza/TalentGo-sub002/internal/cache"
	"github.com/NourhenHamza/TalentGo-sub002/internal/errs"
	"github.com/NourhenHamza/TalentGo-sub002/internal/identity"
	"github.com/NourhenHamza/TalentGo-sub002/internal/limiter"
	"github.com/NourhenHamza/TalentGo-sub002/internal/model"
	"github.com/NourhenHamza/TalentGo-sub002/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// OfferResolver resolves capability tokens to live offers with the deadline
// guard applied.
type OfferResolver interface {
	// Resolve returns the offer for an enabled token, errs.ErrNotFound for an
	// unknown/disabled one, errs.ErrExpired past the application deadline.
	Resolve(ctx context.Context, token string) (*model.Offer, error)
}

// AuthInput carries one authentication request.
type AuthInput struct {
	Token      string
	Provider   string
	Credential string
	IP         string
	UserAgent  string
}

// AuthResult is the outcome of identity binding.
type AuthResult struct {
	Candidacy    *model.Candidacy
	IsNew        bool
	NextStep     model.Step
	Attempts     model.AttemptStatus
	SessionToken string
	ExpiresAt    time.Time
}

// AccessService defines link resolution and identity binding.
type AccessService interface {
	OfferResolver
	// Authenticate verifies the external credential and binds the identity to
	// exactly one candidacy for the offer, creating it on first contact.
	Authenticate(ctx context.Context, in AuthInput) (*AuthResult, error)
}

type AccessServiceImpl struct {
	offers     repository.OfferRepository
	cands      repository.CandidacyRepository
	verifier   identity.Verifier
	lim        limiter.Limiter
	offerCache *cache.OfferCache // optional
	signKey    []byte
	sessionTTL time.Duration
}

// NewAccessService constructs AccessService with required dependencies.
// offerCache may be nil; resolution then always reads storage.
func NewAccessService(
	offers repository.OfferRepository,
	cands repository.CandidacyRepository,
	verifier identity.Verifier,
	lim limiter.Limiter,
	offerCache *cache.OfferCache,
	signKey []byte,
	sessionTTL time.Duration,
) *AccessServiceImpl {
	return &AccessServiceImpl{
		offers:     offers,
		cands:      cands,
		verifier:   verifier,
		lim:        lim,
		offerCache: offerCache,
		signKey:    signKey,
		sessionTTL: sessionTTL,
	}
}

// Resolve looks up an enabled offer by capability token and applies the
// deadline guard. The returned offer still carries answer keys; sanitization
// happens at the transport view.
func (s *AccessServiceImpl) Resolve(ctx context.Context, token string) (*model.Offer, error) {
	if token == "" {
		return nil, errs.ErrNotFound
	}
	o, err := s.lookupOffer(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := guardDeadline(o, time.Now()); err != nil {
		return nil, err
	}
	return o, nil
}

// lookupOffer reads through the cache when present. Cache failures degrade to
// a storage read.
func (s *AccessServiceImpl) lookupOffer(ctx context.Context, token string) (*model.Offer, error) {
	if s.offerCache != nil {
		if o, err := s.offerCache.Get(ctx, token); err == nil && o != nil {
			return o, nil
		}
	}
	o, err := s.offers.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.offerCache != nil {
		_ = s.offerCache.Set(ctx, o)
	}
	return o, nil
}

// Authenticate verifies the credential, then binds (offer, provider,
// provider id) to exactly one candidacy. Duplicate-identity races are resolved
// by the storage uniqueness constraint: a conflict on insert converts into a
// refetch of the winner, never a user-facing error.
func (s *AccessServiceImpl) Authenticate(ctx context.Context, in AuthInput) (*AuthResult, error) {
	if in.Provider == "" || in.Credential == "" {
		return nil, fmt.Errorf("%w: provider and credential are required", errs.ErrValidation)
	}

	o, err := s.Resolve(ctx, in.Token)
	if err != nil {
		return nil, err
	}

	ipHash := limiter.HashIP(in.IP)
	allowed, _, err := s.lim.Allow(ctx, in.Token, ipHash)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errs.ErrRateLimited
	}

	p, err := s.verifier.Verify(ctx, in.Provider, in.Credential)
	if err != nil {
		if blocked, _, ferr := s.lim.Failure(ctx, in.Token, ipHash); ferr == nil && blocked {
			return nil, errs.ErrRateLimited
		}
		if errors.Is(err, errs.ErrValidation) {
			return nil, err
		}
		return nil, errs.ErrUnauthorized
	}
	_ = s.lim.Success(ctx, in.Token, ipHash)

	c, err := s.cands.GetByIdentity(ctx, o.ID, in.Provider, p.ProviderID)
	isNew := false
	switch {
	case err == nil:
		// Already bound: same candidacy, counters untouched.
	case errors.Is(err, errs.ErrNotFound):
		c, isNew, err = s.createCandidacy(ctx, o, in, p)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	tok, exp, err := s.issueSessionToken(c.ID)
	if err != nil {
		return nil, err
	}
	var maxAttempts *int
	if o.Test != nil {
		maxAttempts = o.Test.MaxAttempts
	}
	return &AuthResult{
		Candidacy:    c,
		IsNew:        isNew,
		NextStep:     NextStep(c, o.Test),
		Attempts:     AttemptStatusFor(c.TestAttempts, maxAttempts),
		SessionToken: tok,
		ExpiresAt:    exp,
	}, nil
}

// createCandidacy inserts a fresh candidacy. Insert-first: losing the race
// surfaces as errs.ErrConflict and the winner's row is returned instead.
func (s *AccessServiceImpl) createCandidacy(ctx context.Context, o *model.Offer, in AuthInput, p identity.Principal) (*model.Candidacy, bool, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, false, err
	}
	now := time.Now().UTC()
	c := &model.Candidacy{
		ID:      id,
		OfferID: o.ID,
		Identity: model.Identity{
			Provider:   in.Provider,
			ProviderID: p.ProviderID,
			Email:      p.Email,
			VerifiedAt: now,
			Metadata: map[string]string{
				"givenName":  p.GivenName,
				"familyName": p.FamilyName,
			},
		},
		Status: model.StatusPending,
		Session: model.SessionData{
			AccessedAt:     now,
			CompletedSteps: []model.StepEntry{{Step: model.StepAuth, CompletedAt: now}},
			IPAddress:      in.IP,
			UserAgent:      in.UserAgent,
		},
	}
	switch err := s.cands.Create(ctx, c); {
	case err == nil:
		return c, true, nil
	case errors.Is(err, errs.ErrConflict):
		existing, gerr := s.cands.GetByIdentity(ctx, o.ID, in.Provider, p.ProviderID)
		return existing, false, gerr
	default:
		return nil, false, err
	}
}

// issueSessionToken creates a signed HS256 JWT whose subject is the candidacy
// ID. This is the sole session credential; no ambient header conventions.
func (s *AccessServiceImpl) issueSessionToken(candidacyID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.sessionTTL)
	claims := jwt.RegisteredClaims{
		Subject:   candidacyID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}
