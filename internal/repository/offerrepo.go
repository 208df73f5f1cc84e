// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/NourhenHamza/TalentGo-sub002/internal/model"
	"github.com/gofrs/uuid/v5"
)

// OfferRepository provides read-only access to the offer directory.
type OfferRepository interface {
	// GetByToken loads an enabled offer by its capability token.
	GetByToken(ctx context.Context, token string) (*model.Offer, error)
	// GetByID loads an offer by ID regardless of enabled state.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error)
}
