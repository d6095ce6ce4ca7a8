package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"facet.views/config"
	"facet.views/internal/access"
	"facet.views/internal/crypto"
	"facet.views/internal/models"
	"facet.views/internal/session"
	"facet.views/internal/store"
	"facet.views/web"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	store    store.Store
	config   *config.Config
	codec    *crypto.Codec
	sessions *session.Issuer
	resolver *access.Resolver
}

func NewHandler(s store.Store, cfg *config.Config, codec *crypto.Codec, sessions *session.Issuer, resolver *access.Resolver) *Handler {
	return &Handler{
		store:    s,
		config:   cfg,
		codec:    codec,
		sessions: sessions,
		resolver: resolver,
	}
}

// Reserved slugs collide with routes or system paths and can never be
// claimed by a view.
var reservedSlugs = map[string]bool{
	"admin":       true,
	"api":         true,
	"s":           true,
	"v":           true,
	"assets":      true,
	"static":      true,
	"favicon.ico": true,
	"robots.txt":  true,
	"sitemap.xml": true,
	"health":      true,
	"healthz":     true,
	"ready":       true,
	"login":       true,
	"logout":      true,
	"auth":        true,
	"oauth":       true,
	"callback":    true,
	"home":        true,
	"index":       true,
	"default":     true,
	"profile":     true,
}

func isValidSlug(slug string) bool {
	if slug == "" || len(slug) > 100 {
		return false
	}
	if reservedSlugs[strings.ToLower(slug)] {
		return false
	}
	if slug[0] == '_' || slug[0] == '-' {
		return false
	}
	for _, c := range slug {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_') {
			return false
		}
	}
	return true
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ViewPayload is the external shape of a view; it never carries the owner
// reference or the password hash.
type ViewPayload struct {
	ID         string            `json:"id"`
	Slug       string            `json:"slug"`
	Name       string            `json:"name"`
	Visibility models.Visibility `json:"visibility"`
	Headline   string            `json:"headline,omitempty"`
	Content    string            `json:"content,omitempty"`
}

func viewPayload(v *models.View) ViewPayload {
	return ViewPayload{
		ID:         v.ID,
		Slug:       v.Slug,
		Name:       v.Name,
		Visibility: v.Visibility,
		Headline:   v.Headline,
		Content:    v.Content,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

type CreateViewRequest struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	Visibility string `json:"visibility,omitempty"`
	Headline   string `json:"headline,omitempty"`
	Content    string `json:"content,omitempty"`
	Password   string `json:"password,omitempty"`
}

func (h *Handler) CreateView(w http.ResponseWriter, r *http.Request) {
	owner := h.owner(r)
	if owner == nil {
		h.error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !isValidSlug(req.Slug) {
		h.error(w, http.StatusBadRequest, "invalid or reserved slug")
		return
	}
	if req.Name == "" {
		h.error(w, http.StatusBadRequest, "name is required")
		return
	}

	visibility := models.Visibility(req.Visibility)
	if req.Visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !visibility.Valid() {
		h.error(w, http.StatusBadRequest, "invalid visibility")
		return
	}

	var passwordHash string
	if visibility == models.VisibilityPassword {
		if req.Password == "" {
			h.error(w, http.StatusBadRequest, "password is required for password visibility")
			return
		}
		hash, err := crypto.HashPassword(req.Password)
		if err != nil {
			h.error(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
		passwordHash = hash
	}

	now := time.Now()
	view := &models.View{
		ID:           uuid.NewString(),
		Slug:         req.Slug,
		Name:         req.Name,
		OwnerID:      owner.ID,
		Visibility:   visibility,
		PasswordHash: passwordHash,
		Headline:     req.Headline,
		Content:      req.Content,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.store.SaveView(r.Context(), view); err != nil {
		if errors.Is(err, store.ErrSlugTaken) {
			h.error(w, http.StatusConflict, "slug already in use")
			return
		}
		h.error(w, http.StatusInternalServerError, "failed to save view")
		return
	}

	h.json(w, http.StatusCreated, viewPayload(view))
}

type UpdateViewRequest struct {
	Slug       *string `json:"slug,omitempty"`
	Name       *string `json:"name,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
	Headline   *string `json:"headline,omitempty"`
	Content    *string `json:"content,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

func (h *Handler) UpdateView(w http.ResponseWriter, r *http.Request) {
	owner := h.owner(r)
	if owner == nil {
		h.error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	view, err := h.store.ViewByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.error(w, http.StatusNotFound, "view not found")
		return
	}
	if view.OwnerID != owner.ID {
		h.error(w, http.StatusForbidden, "not your view")
		return
	}

	var req UpdateViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Slug != nil && *req.Slug != view.Slug {
		h.error(w, http.StatusBadRequest, "slug is immutable")
		return
	}
	if req.Visibility != nil {
		visibility := models.Visibility(*req.Visibility)
		if !visibility.Valid() {
			h.error(w, http.StatusBadRequest, "invalid visibility")
			return
		}
		if visibility == models.VisibilityPassword && view.PasswordHash == "" {
			h.error(w, http.StatusBadRequest, "set a password first")
			return
		}
		view.Visibility = visibility
	}
	if req.Name != nil {
		view.Name = *req.Name
	}
	if req.Headline != nil {
		view.Headline = *req.Headline
	}
	if req.Content != nil {
		view.Content = *req.Content
	}
	if req.Active != nil {
		view.Active = *req.Active
	}
	view.UpdatedAt = time.Now()

	if err := h.store.SaveView(r.Context(), view); err != nil {
		h.error(w, http.StatusInternalServerError, "failed to save view")
		return
	}

	h.json(w, http.StatusOK, viewPayload(view))
}

type AccessInfoResponse struct {
	ViewID           string            `json:"view_id"`
	ViewName         string            `json:"view_name"`
	Slug             string            `json:"slug"`
	Visibility       models.Visibility `json:"visibility"`
	RequiresPassword bool              `json:"requires_password"`
	RequiresToken    bool              `json:"requires_token"`
}

// ViewAccess exposes only what a client needs to pick the right credential
// prompt: the visibility tier and a display name.
func (h *Handler) ViewAccess(w http.ResponseWriter, r *http.Request) {
	view, err := h.store.ViewBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil || !view.Active || view.Visibility == models.VisibilityPrivate {
		h.error(w, http.StatusNotFound, "view not found")
		return
	}

	h.json(w, http.StatusOK, AccessInfoResponse{
		ViewID:           view.ID,
		ViewName:         view.Name,
		Slug:             view.Slug,
		Visibility:       view.Visibility,
		RequiresPassword: view.Visibility == models.VisibilityPassword,
		RequiresToken:    view.Visibility == models.VisibilityUnlisted,
	})
}

// ViewData serves the view payload to API clients. This is a redemption
// point: a share token presented here counts toward its usage quota.
func (h *Handler) ViewData(w http.ResponseWriter, r *http.Request) {
	view, err := h.store.ViewBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.error(w, http.StatusNotFound, "view not found")
		return
	}

	switch h.resolver.Resolve(r.Context(), view, h.credentials(r)) {
	case access.VerdictAllow:
		h.json(w, http.StatusOK, viewPayload(view))
	case access.VerdictRequirePassword:
		h.error(w, http.StatusUnauthorized, "password required")
	default:
		h.error(w, http.StatusNotFound, "view not found")
	}
}

func (h *Handler) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) error(w http.ResponseWriter, status int, message string) {
	h.json(w, status, ErrorResponse{Error: message})
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	web.Templates().ExecuteTemplate(w, name, data)
}
