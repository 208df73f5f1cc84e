// Package limiter throttles failed credential verifications per (token, ip).
package limiter

import (
	"context"
	"time"
)

// Limiter controls verification attempts and temporary lockouts for one
// capability token and client address.
type Limiter interface {
	// Allow reports whether verification is currently allowed and optional retry-after.
	Allow(ctx context.Context, token string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful verification.
	Success(ctx context.Context, token string, ipHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, token string, ipHash []byte) (bool, time.Duration, error)
}
