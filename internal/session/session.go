// Package session issues and verifies the signed, self-contained
// credentials minted after a successful password check. Sessions are not
// persisted; revocation happens by rotating the signing secret or the
// view's password.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	tokenIssuer   = "facet"
	tokenAudience = "view-access"
)

// ErrInvalid covers every verification failure: malformed, tampered,
// expired, wrong key. Callers must not be able to distinguish them.
var ErrInvalid = errors.New("invalid session token")

type claims struct {
	ViewID string `json:"vid"`
	jwt.RegisteredClaims
}

type Issuer struct {
	key []byte
}

func NewIssuer(key []byte) *Issuer {
	return &Issuer{key: key}
}

// Issue mints an HS256 session scoped to a single view.
func (i *Issuer) Issue(viewID string, ttl time.Duration) (string, time.Time, error) {
	jtiBytes := make([]byte, 16)
	if _, err := rand.Read(jtiBytes); err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ViewID: viewID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        base64.RawURLEncoding.EncodeToString(jtiBytes),
		},
	})

	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature, expiry, issuer and audience, returning the view
// the session is scoped to. All failures collapse to ErrInvalid.
func (i *Issuer) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalid
	}

	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return i.key, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalid
	}

	c, ok := token.Claims.(*claims)
	if !ok || c.ViewID == "" {
		return "", ErrInvalid
	}
	if c.Issuer != tokenIssuer {
		return "", ErrInvalid
	}
	if !c.VerifyAudience(tokenAudience, true) {
		return "", ErrInvalid
	}

	return c.ViewID, nil
}
