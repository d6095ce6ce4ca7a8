package models

import "time"

// ShareToken grants access to one unlisted view. Only the keyed digest of
// the plaintext is stored; the plaintext is returned once at creation.
// Tokens are never deleted, only deactivated.
type ShareToken struct {
	ID         string     `json:"id"`
	ViewID     string     `json:"view_id"`
	Digest     string     `json:"-"`
	Prefix     string     `json:"prefix"`
	Name       string     `json:"name,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"` // nil = never expires
	MaxUses    int        `json:"max_uses,omitempty"`   // 0 = unlimited
	UseCount   int        `json:"use_count"`
	Active     bool       `json:"active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Owner holds a pre-issued management credential. The API key itself is
// never stored, only its digest.
type Owner struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	KeyDigest string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
