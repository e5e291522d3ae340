package handlers

import (
	"net/http"

	"github.com/floorvault/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// PublicHandler serves the unauthenticated storefront endpoints.
type PublicHandler struct {
	catalog *services.CatalogService
	baseURL string
}

// NewPublicHandler constructs a handler. An empty baseURL makes preset URLs
// resolve against the request's own origin.
func NewPublicHandler(catalog *services.CatalogService, baseURL string) *PublicHandler {
	return &PublicHandler{catalog: catalog, baseURL: baseURL}
}

// PublicRouter registers public routes on the given router.
func PublicRouter(r chi.Router, catalog *services.CatalogService, baseURL string) {
	handler := NewPublicHandler(catalog, baseURL)

	r.Get("/catalog", handler.Catalog)
	r.Get("/presets", handler.Presets)
}

func (h *PublicHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	groups, err := h.catalog.Catalog(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *PublicHandler) Presets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.catalog.Presets(r.Context(), h.origin(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PresetsResponse{Presets: presets})
}

func (h *PublicHandler) origin(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host
}

type PresetsResponse struct {
	Presets []string `json:"presets"`
}
