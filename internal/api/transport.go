package api

import (
	"net/http"
	"strings"
	"time"

	"facet.views/internal/access"
	"facet.views/internal/models"
)

// Wire-level credential channels. Share tokens ride a dedicated header so
// they never collide with owner keys or password sessions on Authorization.
const (
	ShareTokenCookie      = "me_share_token"
	PasswordSessionCookie = "me_password_token"
	ShareTokenHeader      = "X-Share-Token"
)

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// owner resolves the Authorization bearer value against stored owner key
// digests. A miss is not an error: the value may be a password session.
func (h *Handler) owner(r *http.Request) *models.Owner {
	key := bearerToken(r)
	if key == "" {
		return nil
	}
	owner, err := h.store.OwnerByKeyDigest(r.Context(), h.codec.Digest(key))
	if err != nil {
		return nil
	}
	return owner
}

// credentials lifts cookies and headers into the resolver's typed inputs.
func (h *Handler) credentials(r *http.Request) access.Credentials {
	var creds access.Credentials

	if owner := h.owner(r); owner != nil {
		creds.OwnerID = owner.ID
	}

	if token := r.Header.Get(ShareTokenHeader); token != "" {
		creds.ShareToken = token
	} else if cookie, err := r.Cookie(ShareTokenCookie); err == nil {
		creds.ShareToken = cookie.Value
	}

	// A bearer value that is not an owner key is treated as a password
	// session; the cookie is the fallback channel.
	if creds.OwnerID == "" {
		creds.PasswordSession = bearerToken(r)
	}
	if creds.PasswordSession == "" {
		if cookie, err := r.Cookie(PasswordSessionCookie); err == nil {
			creds.PasswordSession = cookie.Value
		}
	}

	return creds
}

func (h *Handler) secureCookies() bool {
	return strings.HasPrefix(h.config.Server.BaseURL, "https://")
}

func (h *Handler) setShareCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     ShareTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.config.Auth.ShareCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies(),
	})
}

// setPasswordCookie bounds the cookie lifetime to the session's own expiry.
func (h *Handler) setPasswordCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     PasswordSessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies(),
	})
}
