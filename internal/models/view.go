package models

import "time"

// Visibility governs which credential type grants access to a view.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
	VisibilityPassword Visibility = "password"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate, VisibilityPassword:
		return true
	}
	return false
}

// View is a curated slice of a profile published under a slug.
// The slug is immutable once created: it is embedded in share links,
// cookies and redirect targets.
type View struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Name         string     `json:"name"`
	OwnerID      string     `json:"owner_id"`
	Visibility   Visibility `json:"visibility"`
	PasswordHash string     `json:"-"`
	Headline     string     `json:"headline,omitempty"`
	Content      string     `json:"content,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
