package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/floorvault/apiserver/internal/services"
	"github.com/floorvault/apiserver/internal/storage"
	"github.com/go-chi/chi/v5"
)

// BlobReader reads stored objects by key.
type BlobReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// UploadsHandler streams stored originals and thumbnails.
type UploadsHandler struct {
	blobs BlobReader
}

func NewUploadsHandler(blobs BlobReader) *UploadsHandler {
	return &UploadsHandler{blobs: blobs}
}

// Serve handles GET /uploads/*.
func (h *UploadsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")

	body, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			writeError(w, r, http.StatusNotFound, msgNotFound)
			return
		}
		slog.Error("read upload failed", "key", key, "error", err)
		writeError(w, r, http.StatusInternalServerError, services.MsgInternal)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(strings.ToLower(path.Ext(key)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", storage.CacheControl)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("stream upload failed", "key", key, "error", err)
	}
}
