package api

import (
	"encoding/json"
	"net/http"
	"time"

	"facet.views/internal/crypto"
	"facet.views/internal/models"
)

type PasswordCheckRequest struct {
	ViewID   string `json:"view_id"`
	Password string `json:"password"`
}

type PasswordCheckResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// PasswordCheck verifies a candidate password and, on success, mints a
// signed session scoped to the view. The bcrypt comparison is the only
// timing signal; correctness leaks nothing beyond the boolean result.
func (h *Handler) PasswordCheck(w http.ResponseWriter, r *http.Request) {
	var req PasswordCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.store.ViewByID(r.Context(), req.ViewID)
	if err != nil || !view.Active {
		h.error(w, http.StatusNotFound, "view not found")
		return
	}

	if view.Visibility != models.VisibilityPassword {
		h.error(w, http.StatusBadRequest, "view is not password protected")
		return
	}
	if view.PasswordHash == "" {
		h.error(w, http.StatusInternalServerError, "password not configured")
		return
	}

	if !crypto.CheckPassword(req.Password, view.PasswordHash) {
		h.error(w, http.StatusUnauthorized, "incorrect password")
		return
	}

	token, expiresAt, err := h.sessions.Issue(view.ID, h.config.Auth.SessionTTL)
	if err != nil {
		h.error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	h.setPasswordCookie(w, token, expiresAt)
	h.json(w, http.StatusOK, PasswordCheckResponse{
		AccessToken: token,
		ExpiresIn:   int(time.Until(expiresAt).Seconds()),
	})
}

type PasswordSetRequest struct {
	ViewID   string `json:"view_id"`
	Password string `json:"password"`
}

// PasswordSet stores a new password hash and switches the view to the
// password tier. Changing the password invalidates nothing server-side;
// outstanding sessions die with the signing secret or their own expiry.
func (h *Handler) PasswordSet(w http.ResponseWriter, r *http.Request) {
	owner := h.owner(r)
	if owner == nil {
		h.error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req PasswordSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		h.error(w, http.StatusBadRequest, "password is required")
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

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		h.error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	view.PasswordHash = hash
	view.Visibility = models.VisibilityPassword
	view.UpdatedAt = time.Now()

	if err := h.store.SaveView(r.Context(), view); err != nil {
		h.error(w, http.StatusInternalServerError, "failed to save view")
		return
	}

	h.json(w, http.StatusOK, map[string]string{"status": "password set"})
}
