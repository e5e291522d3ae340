package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/floorvault/apiserver/internal/access"
	"github.com/floorvault/apiserver/internal/i18n"
	"github.com/floorvault/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPage        = 1
	defaultLimit       = 20
	maxLimit           = 100
	maxMultipartMemory = 32 << 20
	maxJSONBodyBytes   = 1 << 20
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidID      = "invalid id"
	msgInvalidScope   = "invalid scope"
	msgNotFound       = "not found"
)

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges an action without returning a resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeError writes message translated for the caller's Accept-Language.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: translate(r, message)})
}

func translate(r *http.Request, key string, args ...any) string {
	return i18n.Translate(r.Header.Get("Accept-Language"), key, args...)
}

// writeServiceError maps a service error onto its HTTP status. Internal
// causes are logged and never exposed.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		slog.Error("unhandled service error", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, services.MsgInternal)
		return
	}

	status := statusForKind(svcErr.Kind)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, r, status, services.MsgInternal)
		return
	}
	writeError(w, r, status, svcErr.Message)
}

func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// subject returns the caller placed in the context by RequireAuth.
func subject(w http.ResponseWriter, r *http.Request) (access.Subject, bool) {
	s, ok := access.SubjectFrom(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, services.MsgUnauthorized)
	}
	return s, ok
}

// parseScope reads ?scope=mine|all. It defaults to mine.
func parseScope(r *http.Request) (all bool, err error) {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("scope"))) {
	case "", "mine":
		return false, nil
	case "all":
		return true, nil
	default:
		return false, errors.New(msgInvalidScope)
	}
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit == "" {
		rawLimit = strings.TrimSpace(r.URL.Query().Get("per_page"))
	}
	if rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

func parseIntParam(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id < 1 {
		return 0, errors.New(msgInvalidID)
	}
	return id, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errFileTooLarge
	}
	return data, nil
}

var errFileTooLarge = errors.New("uploaded file too large")
