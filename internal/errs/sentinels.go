// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist or the
	// capability token is unknown/disabled.
	ErrNotFound = errors.New("not found")

	// ErrExpired indicates the offer's application deadline has passed.
	// Rendered differently from ErrNotFound ("closed" vs "broken link").
	ErrExpired = errors.New("expired")

	// ErrValidation indicates a structurally malformed payload
	// (missing required fields, bad shapes).
	ErrValidation = errors.New("validation")

	// ErrAttemptsExhausted indicates the maximum test attempt count is reached.
	ErrAttemptsExhausted = errors.New("attempts exhausted")

	// ErrConflict indicates a unique constraint violation (duplicate identity
	// for the same offer). Recovered internally, never shown to candidates.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized indicates failed credential verification or a bad
	// session token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates a temporary block after repeated failed
	// credential verifications.
	ErrRateLimited = errors.New("rate limited")
)
