// Package access decides, for one (view, requester) pair, whether content
// may be served. Verdicts are computed per request from current view state
// and the presented credentials; nothing is cached.
package access

import (
	"context"
	"time"

	"facet.views/internal/crypto"
	"facet.views/internal/models"
	"facet.views/internal/session"
	"facet.views/internal/store"
)

type Verdict int

const (
	// VerdictNotFound is deliberately uniform: private views, unlisted
	// views without a usable token, and infrastructure failures all look
	// identical from the outside.
	VerdictNotFound Verdict = iota
	VerdictRequirePassword
	VerdictAllow
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictRequirePassword:
		return "require_password"
	default:
		return "not_found"
	}
}

// Credentials carries everything the requester presented, already lifted
// out of the transport layer.
type Credentials struct {
	OwnerID         string // resolved owner id, empty if unauthenticated
	ShareToken      string // plaintext share token, empty if none
	PasswordSession string // signed password-session token, empty if none
}

type Resolver struct {
	store    store.Store
	codec    *crypto.Codec
	sessions *session.Issuer
}

func NewResolver(s store.Store, codec *crypto.Codec, sessions *session.Issuer) *Resolver {
	return &Resolver{store: s, codec: codec, sessions: sessions}
}

// Resolve applies the visibility decision table and redeems the share token
// when one is consumed. This is the point where content is actually served;
// exchange steps (cookie migration, probes) must use Peek instead so a
// single-use token survives the redirect hop.
func (r *Resolver) Resolve(ctx context.Context, view *models.View, creds Credentials) Verdict {
	return r.resolve(ctx, view, creds, true)
}

// Peek answers the same question as Resolve without mutating token state.
func (r *Resolver) Peek(ctx context.Context, view *models.View, creds Credentials) Verdict {
	return r.resolve(ctx, view, creds, false)
}

func (r *Resolver) resolve(ctx context.Context, view *models.View, creds Credentials, redeem bool) Verdict {
	if view == nil || !view.Active {
		return VerdictNotFound
	}

	if creds.OwnerID != "" && creds.OwnerID == view.OwnerID {
		return VerdictAllow
	}

	switch view.Visibility {
	case models.VisibilityPublic:
		return VerdictAllow

	case models.VisibilityPrivate:
		// Never reachable via tokens, so a token issued while the view
		// was unlisted cannot outlive a switch to private.
		return VerdictNotFound

	case models.VisibilityUnlisted:
		if creds.ShareToken == "" {
			return VerdictNotFound
		}
		digest := r.codec.Digest(creds.ShareToken)
		if redeem {
			// Store errors fail closed: any failure, including an
			// unavailable backend, collapses to NotFound.
			if err := r.store.RedeemToken(ctx, digest, view.ID, time.Now()); err != nil {
				return VerdictNotFound
			}
			return VerdictAllow
		}
		viewID, err := r.store.ValidateToken(ctx, digest, time.Now())
		if err != nil || viewID != view.ID {
			return VerdictNotFound
		}
		return VerdictAllow

	case models.VisibilityPassword:
		if creds.PasswordSession == "" {
			return VerdictRequirePassword
		}
		viewID, err := r.sessions.Verify(creds.PasswordSession)
		if err != nil || viewID != view.ID {
			return VerdictRequirePassword
		}
		return VerdictAllow
	}

	return VerdictNotFound
}
