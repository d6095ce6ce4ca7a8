package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"facet.views/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type GenerateShareRequest struct {
	ViewID    string `json:"view_id"`
	Name      string `json:"name,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	ExpiresIn int    `json:"expires_in,omitempty"` // seconds
	MaxUses   int    `json:"max_uses,omitempty"`
}

type GenerateShareResponse struct {
	ID     string `json:"id"`
	Token  string `json:"token"` // only returned once
	Prefix string `json:"prefix"`
	Name   string `json:"name,omitempty"`
}

func (h *Handler) ShareGenerate(w http.ResponseWriter, r *http.Request) {
	owner := h.owner(r)
	if owner == nil {
		h.error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req GenerateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.store.ViewByID(r.Context(), req.ViewID)
	if err != nil {
		h.error(w, http.StatusNotFound, "view not found")
		return
	}
	if view.OwnerID != owner.ID {
		h.error(w, http.StatusForbidden, "not your view")
		return
	}

	expiresAt, err := parseExpiry(req.ExpiresAt, req.ExpiresIn)
	if err != nil {
		h.error(w, http.StatusBadRequest, "invalid expiration date format")
		return
	}
	expiresAt = h.capExpiry(expiresAt)
	maxUses := h.capUses(req.MaxUses)

	plaintext, digest, prefix, err := h.codec.IssueToken()
	if err != nil {
		h.error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	token := &models.ShareToken{
		ID:        uuid.NewString(),
		ViewID:    view.ID,
		Digest:    digest,
		Prefix:    prefix,
		Name:      req.Name,
		ExpiresAt: expiresAt,
		MaxUses:   maxUses,
		Active:    true,
		CreatedAt: time.Now(),
	}

	if err := h.store.SaveToken(r.Context(), token); err != nil {
		h.error(w, http.StatusInternalServerError, "failed to save token")
		return
	}

	h.json(w, http.StatusOK, GenerateShareResponse{
		ID:     token.ID,
		Token:  plaintext,
		Prefix: prefix,
		Name:   req.Name,
	})
}

func (h *Handler) ShareRevoke(w http.ResponseWriter, r *http.Request) {
	owner := h.owner(r)
	if owner == nil {
		h.error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	token, err := h.store.TokenByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.error(w, http.StatusNotFound, "token not found")
		return
	}

	view, err := h.store.ViewByID(r.Context(), token.ViewID)
	if err != nil || view.OwnerID != owner.ID {
		h.error(w, http.StatusForbidden, "not your token")
		return
	}

	if err := h.store.RevokeToken(r.Context(), token.ID); err != nil {
		h.error(w, http.StatusInternalServerError, "failed to revoke token")
		return
	}

	h.json(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// TokenMetadata is the owner-facing shape of a token: never the digest,
// never the plaintext, only the display prefix.
type TokenMetadata struct {
	ID         string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	Prefix     string     `json:"prefix"`
	Active     bool       `json:"active"`
	UseCount   int        `json:"use_count"`
	MaxUses    int        `json:"max_uses,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (h *Handler) ShareList(w http.ResponseWriter, r *http.Request) {
	owner := h.owner(r)
	if owner == nil {
		h.error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	view, err := h.store.ViewByID(r.Context(), chi.URLParam(r, "viewID"))
	if err != nil {
		h.error(w, http.StatusNotFound, "view not found")
		return
	}
	if view.OwnerID != owner.ID {
		h.error(w, http.StatusForbidden, "not your view")
		return
	}

	tokens, err := h.store.TokensByView(r.Context(), view.ID)
	if err != nil {
		h.error(w, http.StatusInternalServerError, "failed to list tokens")
		return
	}

	list := make([]TokenMetadata, 0, len(tokens))
	for _, t := range tokens {
		list = append(list, TokenMetadata{
			ID:         t.ID,
			Name:       t.Name,
			Prefix:     t.Prefix,
			Active:     t.Active,
			UseCount:   t.UseCount,
			MaxUses:    t.MaxUses,
			ExpiresAt:  t.ExpiresAt,
			LastUsedAt: t.LastUsedAt,
			CreatedAt:  t.CreatedAt,
		})
	}

	h.json(w, http.StatusOK, map[string]any{"tokens": list})
}

type ValidateShareRequest struct {
	Token  string `json:"token"`
	ViewID string `json:"view_id,omitempty"`
}

type ValidateShareResponse struct {
	Valid    bool   `json:"valid"`
	ViewID   string `json:"view_id,omitempty"`
	ViewSlug string `json:"view_slug,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ShareValidate is the read-only probe used by the exchange step; it never
// counts toward the usage quota. Every failure mode returns the same body
// so callers cannot distinguish expired from revoked from nonexistent.
func (h *Handler) ShareValidate(w http.ResponseWriter, r *http.Request) {
	invalid := ValidateShareResponse{Valid: false, Error: "invalid token"}

	var req ValidateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		h.error(w, http.StatusBadRequest, "token required")
		return
	}

	viewID, err := h.store.ValidateToken(r.Context(), h.codec.Digest(req.Token), time.Now())
	if err != nil {
		h.json(w, http.StatusOK, invalid)
		return
	}

	view, err := h.store.ViewByID(r.Context(), viewID)
	if err != nil || !view.Active || view.Visibility == models.VisibilityPrivate {
		h.json(w, http.StatusOK, invalid)
		return
	}

	if req.ViewID != "" && req.ViewID != view.ID {
		h.json(w, http.StatusOK, invalid)
		return
	}

	h.json(w, http.StatusOK, ValidateShareResponse{
		Valid:    true,
		ViewID:   view.ID,
		ViewSlug: view.Slug,
	})
}

// parseExpiry accepts either a relative lifetime in seconds or an absolute
// timestamp in the formats the admin UI has historically sent.
func parseExpiry(expiresAt string, expiresIn int) (*time.Time, error) {
	if expiresAt != "" {
		for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05", time.RFC3339} {
			if t, err := time.Parse(layout, expiresAt); err == nil {
				return &t, nil
			}
		}
		return nil, errors.New("unrecognized timestamp")
	}
	if expiresIn > 0 {
		t := time.Now().Add(time.Duration(expiresIn) * time.Second)
		return &t, nil
	}
	return nil, nil // never expires
}

func (h *Handler) capExpiry(expiresAt *time.Time) *time.Time {
	maxTTL := h.config.Tokens.MaxTTL
	if maxTTL <= 0 {
		return expiresAt
	}
	ceiling := time.Now().Add(maxTTL)
	if expiresAt == nil || expiresAt.After(ceiling) {
		return &ceiling
	}
	return expiresAt
}

func (h *Handler) capUses(maxUses int) int {
	limit := h.config.Tokens.MaxUses
	if maxUses <= 0 {
		if limit > 0 {
			return limit
		}
		return 0
	}
	if limit > 0 && maxUses > limit {
		return limit
	}
	return maxUses
}
