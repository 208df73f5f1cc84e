package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NourhenHamza/TalentGo-sub002/internal/errs"
	"github.com/NourhenHamza/TalentGo-sub002/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// OfferRepo implements OfferRepository using PostgreSQL.
type OfferRepo struct{ db *DB }

// NewOfferRepo constructs an offer repository.
func NewOfferRepo(db *DB) *OfferRepo { return &OfferRepo{db: db} }

// GetByToken selects an enabled offer by capability token.
func (r *OfferRepo) GetByToken(ctx context.Context, token string) (*model.Offer, error) {
	const q = `
SELECT id, token, title, company, application_deadline, enabled, test
FROM offers WHERE token=$1 AND enabled=true`
	return r.scanOffer(r.db.Pool.QueryRow(ctx, q, token))
}

// GetByID selects an offer by ID regardless of enabled state.
func (r *OfferRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	const q = `
SELECT id, token, title, company, application_deadline, enabled, test
FROM offers WHERE id=$1`
	return r.scanOffer(r.db.Pool.QueryRow(ctx, q, id))
}

func (r *OfferRepo) scanOffer(row pgx.Row) (*model.Offer, error) {
	var (
		o        model.Offer
		deadline time.Time
		testJSON []byte
	)
	if err := row.Scan(&o.ID, &o.Token, &o.Title, &o.Company, &deadline, &o.Enabled, &testJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	o.Deadline = deadline
	if len(testJSON) > 0 {
		var t model.Test
		if err := json.Unmarshal(testJSON, &t); err != nil {
			return nil, fmt.Errorf("decode test: %w", err)
		}
		t.Normalize()
		o.Test = &t
	}
	return &o, nil
}
