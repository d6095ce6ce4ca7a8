package api

import (
	"net/http"
	"time"

	"facet.views/internal/access"
	"facet.views/internal/models"
	"facet.views/web"

	"github.com/go-chi/chi/v5"
)

// legacyTokenParam is the query parameter old share links carried before
// the /s/{token} entry point existed.
const legacyTokenParam = "t"

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	content, err := web.GetFile("index.html")
	if err != nil {
		h.notFoundPage(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(content)
}

// ShareEntry is the canonical share link: /s/{token}. The token is checked
// with a validate-only probe, exchanged for a cookie, and the client is
// redirected to the slug-only URL. Redemption is deferred to the page that
// actually serves content, so a single-use token survives this hop and the
// secret never lands in history, referrers or search indexes.
func (h *Handler) ShareEntry(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	viewID, err := h.store.ValidateToken(r.Context(), h.codec.Digest(token), time.Now())
	if err != nil {
		h.notFoundPage(w)
		return
	}

	view, err := h.store.ViewByID(r.Context(), viewID)
	if err != nil || !view.Active || view.Visibility == models.VisibilityPrivate {
		h.notFoundPage(w)
		return
	}

	h.setShareCookie(w, token)
	http.Redirect(w, r, "/"+view.Slug, http.StatusFound)
}

// LegacyView permanently redirects the old /v/{slug} URLs to the canonical
// /{slug}. Cookies survive the redirect, so credentials keep working.
func (h *Handler) LegacyView(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/"+chi.URLParam(r, "slug"), http.StatusMovedPermanently)
}

// ViewPage serves /{slug}: the point where content is actually rendered
// and where a cookie-borne share token is redeemed.
func (h *Handler) ViewPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !isValidSlug(slug) {
		h.notFoundPage(w)
		return
	}

	// Legacy bookmarked URLs may still carry the token as a query
	// parameter. Exchange it for a cookie (validate-only, no redemption)
	// and canonicalize; the redirect target never contains the token.
	if token := r.URL.Query().Get(legacyTokenParam); token != "" {
		viewID, err := h.store.ValidateToken(r.Context(), h.codec.Digest(token), time.Now())
		if err == nil {
			if view, err := h.store.ViewBySlug(r.Context(), slug); err == nil && view.ID == viewID {
				h.setShareCookie(w, token)
			}
		}
		http.Redirect(w, r, "/"+slug, http.StatusFound)
		return
	}

	view, err := h.store.ViewBySlug(r.Context(), slug)
	if err != nil {
		h.notFoundPage(w)
		return
	}

	switch h.resolver.Resolve(r.Context(), view, h.credentials(r)) {
	case access.VerdictAllow:
		h.render(w, http.StatusOK, "view.html", viewPayload(view))
	case access.VerdictRequirePassword:
		// The one tier that discloses its own existence: a name and a
		// prompt, never the content.
		h.render(w, http.StatusOK, "password.html", map[string]string{
			"Name":   view.Name,
			"ViewID": view.ID,
		})
	default:
		h.notFoundPage(w)
	}
}

// notFoundPage is the uniform 404: private views, invalid tokens and
// genuinely missing slugs are indistinguishable.
func (h *Handler) notFoundPage(w http.ResponseWriter) {
	h.render(w, http.StatusNotFound, "notfound.html", nil)
}
