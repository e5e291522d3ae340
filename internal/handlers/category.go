package handlers

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/floorvault/apiserver/internal/services"
	"github.com/floorvault/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	formFieldFiles    = "files"
	msgUploadSummary  = "uploaded %d of %d files"
	msgReadFileFailed = "failed to read file"
)

// UploadLimits bounds multipart uploads.
type UploadLimits struct {
	MaxFileBytes    int64
	MaxRequestBytes int64
}

// CategoryHandler provides HTTP handlers for categories and their images.
type CategoryHandler struct {
	categories *services.CategoryService
	images     *services.ImageService
	ingest     *services.IngestService
	limits     UploadLimits
}

// NewCategoryHandler constructs a handler with the provided services.
func NewCategoryHandler(
	categories *services.CategoryService,
	images *services.ImageService,
	ingest *services.IngestService,
	limits UploadLimits,
) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		images:     images,
		ingest:     ingest,
		limits:     limits,
	}
}

// CategoryRouter registers category routes on the given router.
func CategoryRouter(
	r chi.Router,
	categories *services.CategoryService,
	images *services.ImageService,
	ingest *services.IngestService,
	limits UploadLimits,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewCategoryHandler(categories, images, ingest, limits)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.Get("/", handler.ListCategories)
	r.Post("/", handler.CreateCategory)
	r.Route("/{categoryID}", func(r chi.Router) {
		r.Get("/", handler.GetCategory)
		r.Put("/", handler.UpdateCategory)
		r.Delete("/", handler.DeleteCategory)
		r.Get("/images", handler.ListCategoryImages)
		r.Post("/images", handler.UploadImages)
		r.Delete("/images/{imageID}", handler.DeleteCategoryImage)
	})
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}
	all, err := parseScope(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidScope)
		return
	}

	items, err := h.categories.List(r.Context(), caller, all)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CategoryListResponse{Items: items, Total: len(items)})
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}

	detail, err := h.categories.Get(r.Context(), caller, chi.URLParam(r, "categoryID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}
	var req services.CategoryInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	created, err := h.categories.Create(r.Context(), caller, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}
	var req services.CategoryInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	updated, err := h.categories.Update(r.Context(), caller, chi.URLParam(r, "categoryID"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}

	if err := h.categories.Delete(r.Context(), caller, chi.URLParam(r, "categoryID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CategoryHandler) ListCategoryImages(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}

	items, err := h.images.ListByCategory(r.Context(), caller, chi.URLParam(r, "categoryID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ImageListResponse{Items: items, Total: len(items)})
}

func (h *CategoryHandler) DeleteCategoryImage(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}

	err := h.images.DeleteFromCategory(r.Context(), caller, chi.URLParam(r, "categoryID"), chi.URLParam(r, "imageID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImages ingests every part of the repeatable "files" field.
func (h *CategoryHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}

	if h.limits.MaxRequestBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxRequestBytes)
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File[formFieldFiles]
	files, unreadable := h.readUploads(headers)

	result, err := h.ingest.Ingest(r.Context(), caller, chi.URLParam(r, "categoryID"), files)
	result.Rejected = append(unreadable, result.Rejected...)
	failures := translateRejections(r, result.Rejected)

	if err != nil {
		if services.KindOf(err) == services.KindBadRequest && len(failures) > 0 {
			var svcErr *services.Error
			errors.As(err, &svcErr)
			writeJSON(w, http.StatusBadRequest, UploadErrorResponse{
				Error:    translate(r, svcErr.Message),
				Failures: failures,
			})
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Message:  translate(r, msgUploadSummary, len(result.Accepted), len(headers)),
		Accepted: len(result.Accepted),
		Rejected: len(failures),
		Images:   result.Accepted,
		Failures: failures,
	})
}

// readUploads loads each part into memory. Parts larger than the per-file
// limit are passed on without data so the ingestion step rejects them.
func (h *CategoryHandler) readUploads(headers []*multipart.FileHeader) ([]services.UploadedFile, []services.Rejection) {
	files := make([]services.UploadedFile, 0, len(headers))
	var unreadable []services.Rejection

	for _, header := range headers {
		file := services.UploadedFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
		}
		if h.limits.MaxFileBytes > 0 && header.Size > h.limits.MaxFileBytes {
			files = append(files, file)
			continue
		}

		data, err := readPart(header, h.limits.MaxFileBytes)
		if err != nil {
			if errors.Is(err, errFileTooLarge) {
				file.Size = h.limits.MaxFileBytes + 1
				files = append(files, file)
				continue
			}
			slog.Warn("read upload part failed", "file", header.Filename, "error", err)
			unreadable = append(unreadable, services.Rejection{Filename: header.Filename, Reason: msgReadFileFailed})
			continue
		}
		file.Data = data
		files = append(files, file)
	}
	return files, unreadable
}

func readPart(header *multipart.FileHeader, limit int64) ([]byte, error) {
	part, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer part.Close()

	if limit <= 0 {
		limit = header.Size
	}
	return readFileLimited(part, limit)
}

func translateRejections(r *http.Request, rejections []services.Rejection) []services.Rejection {
	out := make([]services.Rejection, 0, len(rejections))
	for _, rejection := range rejections {
		out = append(out, services.Rejection{
			Filename: rejection.Filename,
			Reason:   translate(r, strings.TrimSpace(rejection.Reason)),
		})
	}
	return out
}

// CategoryListResponse is the category list payload.
type CategoryListResponse struct {
	Items []types.CategorySummary `json:"items"`
	Total int                     `json:"total"`
}

// UploadResponse reports the outcome of a batch upload.
type UploadResponse struct {
	Message  string               `json:"message"`
	Accepted int                  `json:"accepted"`
	Rejected int                  `json:"rejected"`
	Images   []types.Image        `json:"images"`
	Failures []services.Rejection `json:"failures"`
}

// UploadErrorResponse is returned when no file of a batch was accepted.
type UploadErrorResponse struct {
	Error    string               `json:"error"`
	Failures []services.Rejection `json:"failures"`
}
