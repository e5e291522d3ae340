package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/floorvault/apiserver/internal/services"
	"github.com/floorvault/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRouter(env *testEnv) http.Handler {
	auth := services.NewAuthService(env.users)
	users := services.NewUserService(env.users, nil)

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		AuthRouter(r, auth, testSecret, time.Hour)
	})
	r.Route("/users", func(r chi.Router) {
		UserRouter(r, users, RequireAuth(auth, testSecret))
	})
	return r
}

func TestListUsersPaginates(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "a@example.com", "password123", "Editor")
	env.addUser(t, "b@example.com", "password123", "Editor")
	env.addUser(t, "c@example.com", "password123", "Editor")
	router := userRouter(env)

	rec := doRequest(t, router, http.MethodGet, "/users?page=2&limit=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UserListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Page)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "c@example.com", resp.Items[0].Email)
	assert.Equal(t, "Active", resp.Items[0].Status)

	rec = doRequest(t, router, http.MethodGet, "/users?page=-1", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/users/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	admin, adminToken := env.addUser(t, "admin@example.com", "password123", types.RoleAdmin)
	staff, staffToken := env.addUser(t, "staff@example.com", "password123", "Editor")
	other, _ := env.addUser(t, "root@example.com", "password123", types.RoleAdmin)
	router := userRouter(env)

	rec := doRequest(t, router, http.MethodPost, "/users/"+strconv.Itoa(staff.ID)+"/reset-password", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ResetPasswordResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, services.DefaultResetPassword, resp.NewPassword)

	rec = doRequest(t, router, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    staff.Email,
		Password: services.DefaultResetPassword,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/users/"+strconv.Itoa(admin.ID)+"/reset-password", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/users/"+strconv.Itoa(other.ID)+"/reset-password", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/users/"+strconv.Itoa(admin.ID)+"/reset-password", staffToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/users/999/reset-password", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.addUser(t, "admin@example.com", "password123", types.RoleAdmin)
	staff, staffToken := env.addUser(t, "staff@example.com", "password123", "Editor")
	router := userRouter(env)

	rec := doRequest(t, router, http.MethodDelete, "/users/"+strconv.Itoa(staff.ID), staffToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/users/"+strconv.Itoa(staff.ID), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/users/"+strconv.Itoa(staff.ID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
