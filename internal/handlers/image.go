package handlers

import (
	"net/http"

	"github.com/floorvault/apiserver/internal/services"
	"github.com/floorvault/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// ImageHandler provides HTTP handlers for images.
type ImageHandler struct {
	images *services.ImageService
}

// NewImageHandler constructs a handler with the provided service.
func NewImageHandler(images *services.ImageService) *ImageHandler {
	return &ImageHandler{images: images}
}

// ImageRouter registers image routes on the given router.
func ImageRouter(r chi.Router, images *services.ImageService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewImageHandler(images)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.Get("/", handler.ListImages)
	r.Route("/{imageID}", func(r chi.Router) {
		r.Get("/", handler.GetImage)
		r.Put("/", handler.UpdateImage)
		r.Delete("/", handler.DeleteImage)
	})
}

func (h *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}
	all, err := parseScope(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidScope)
		return
	}

	items, err := h.images.List(r.Context(), caller, all)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ImageListResponse{Items: items, Total: len(items)})
}

func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}

	view, err := h.images.Get(r.Context(), caller, chi.URLParam(r, "imageID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ImageHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}
	var req services.ImageInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	updated, err := h.images.Update(r.Context(), caller, chi.URLParam(r, "imageID"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}

	if err := h.images.Delete(r.Context(), caller, chi.URLParam(r, "imageID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImageListResponse is the image list payload.
type ImageListResponse struct {
	Items []types.ImageDetail `json:"items"`
	Total int                 `json:"total"`
}
