package store

import (
	"context"
	"errors"
	"time"

	"facet.views/internal/models"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrSlugTaken    = errors.New("slug already in use")
	ErrTokenInvalid = errors.New("share token invalid")
)

// Store persists views, share tokens and owner credentials.
//
// RedeemToken is the only mutating path for token usage and must apply the
// full validity predicate and the counter increment as one atomic unit:
// with a finite max-uses quota, concurrent redemptions must never exceed it.
type Store interface {
	SaveView(ctx context.Context, view *models.View) error
	ViewByID(ctx context.Context, id string) (*models.View, error)
	ViewBySlug(ctx context.Context, slug string) (*models.View, error)

	SaveToken(ctx context.Context, token *models.ShareToken) error
	TokenByID(ctx context.Context, id string) (*models.ShareToken, error)
	TokensByView(ctx context.Context, viewID string) ([]*models.ShareToken, error)
	RevokeToken(ctx context.Context, id string) error
	// ValidateToken is the read-only probe: it checks the validity
	// predicate without counting toward the usage quota.
	ValidateToken(ctx context.Context, digest string, now time.Time) (viewID string, err error)
	// RedeemToken atomically validates and increments the usage counter.
	// The expected viewID is part of the predicate: presenting a token
	// against another view fails without consuming a use.
	RedeemToken(ctx context.Context, digest, viewID string, now time.Time) error

	SaveOwner(ctx context.Context, owner *models.Owner) error
	OwnerByKeyDigest(ctx context.Context, digest string) (*models.Owner, error)

	Close() error
}

// tokenUsable is the shared validity predicate: active, not expired, under
// quota. Validate and Redeem apply exactly this check.
func tokenUsable(t *models.ShareToken, now time.Time) error {
	if !t.Active {
		return ErrTokenInvalid
	}
	if t.ExpiresAt != nil && now.After(*t.ExpiresAt) {
		return ErrTokenInvalid
	}
	if t.MaxUses > 0 && t.UseCount >= t.MaxUses {
		return ErrTokenInvalid
	}
	return nil
}
