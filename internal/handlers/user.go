package handlers

import (
	"net/http"

	"github.com/floorvault/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

const (
	msgInvalidPage      = "invalid page"
	msgPasswordWasReset = "password has been reset"
)

// UserHandler provides HTTP handlers for user accounts.
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler constructs a handler with the provided service.
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, users *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(users)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.Get("/", handler.ListUsers)
	r.Post("/", handler.CreateUser)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Patch("/", handler.UpdateUser)
		r.Delete("/", handler.DeleteUser)
		r.Post("/reset-password", handler.ResetPassword)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := subject(w, r); !ok {
		return
	}
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidPage)
		return
	}

	users, total, err := h.users.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]UserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, newUserResponse(user))
	}
	writeJSON(w, http.StatusOK, UserListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := subject(w, r); !ok {
		return
	}
	id, err := parseIntParam(r, "userID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidID)
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}
	var req services.UserCreateInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	created, err := h.users.Create(r.Context(), caller, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(created))
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}
	id, err := parseIntParam(r, "userID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidID)
		return
	}
	var req services.UserUpdateInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	updated, err := h.users.Update(r.Context(), caller, id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(updated))
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}
	id, err := parseIntParam(r, "userID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidID)
		return
	}

	if err := h.users.Delete(r.Context(), caller, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword sets the default password on another user's account.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}
	id, err := parseIntParam(r, "userID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidID)
		return
	}

	password, err := h.users.ResetPassword(r.Context(), caller, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResetPasswordResponse{
		Message:     translate(r, msgPasswordWasReset),
		NewPassword: password,
	})
}

type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Total int            `json:"total"`
}

type ResetPasswordResponse struct {
	Message     string `json:"message"`
	NewPassword string `json:"newPassword"`
}
