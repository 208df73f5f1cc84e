// Package service contains application services for link resolution, identity
// binding, and assessment submission.
package service

import (
	"time"

	"github.com/NourhenHamza/TalentGo-sub002/internal/errs"
	"github.com/NourhenHamza/TalentGo-sub002/internal/model"
)

// NextStep resolves the candidate's next step from current candidacy state.
// Evaluated fresh on every entry point so an abandoned session resumes at the
// right place. Ordered steps: access → auth → form → test → results.
func NextStep(c *model.Candidacy, t *model.Test) model.Step {
	switch {
	case t == nil:
		// No test on the offer: the flow ends once auth is done.
		return model.StepComplete
	case !CanRetake(c.TestAttempts, t.MaxAttempts):
		return model.StepComplete
	case !c.FormComplete():
		return model.StepForm
	default:
		return model.StepTest
	}
}

// CanRetake is the attempt governor predicate. A nil limit means unlimited.
func CanRetake(attempts int, maxAttempts *int) bool {
	return maxAttempts == nil || attempts < *maxAttempts
}

// AttemptStatusFor builds the client-facing attempt status.
func AttemptStatusFor(attempts int, maxAttempts *int) model.AttemptStatus {
	return model.AttemptStatus{
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		CanRetake:   CanRetake(attempts, maxAttempts),
	}
}

// guardDeadline is the deadline guard, applied as the first check before every
// mutating operation. The offer's application deadline is the sole authority
// for expiry; there is no separate link TTL.
func guardDeadline(o *model.Offer, now time.Time) error {
	if o.Expired(now) {
		return errs.ErrExpired
	}
	return nil
}
