package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/floorvault/apiserver/internal/access"
	"github.com/floorvault/apiserver/internal/services"
	"github.com/floorvault/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenTTL       = 24 * time.Hour
	msgMissingCredentials = "missing credentials"
	msgTokenFailed        = "failed to create token"
	msgPasswordChanged    = "password changed"
)

// AuthHandler provides JWT authentication endpoints.
type AuthHandler struct {
	auth     *services.AuthService
	secret   []byte
	tokenTTL time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(auth *services.AuthService, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthHandler{
		auth:     auth,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, auth *services.AuthService, jwtSecret string, tokenTTL time.Duration) {
	handler := NewAuthHandler(auth, jwtSecret, tokenTTL)

	r.Post("/login", handler.Login)
	r.Post("/change-password", handler.ChangePassword)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth enforces JWT authentication and injects the subject into context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return requireAuth(h.auth, h.secret)(next)
}

// RequireAuth constructs auth middleware for other routers.
func RequireAuth(auth *services.AuthService, jwtSecret string) func(http.Handler) http.Handler {
	return requireAuth(auth, []byte(jwtSecret))
}

// requireAuth resolves the token subject to a live account on every request
// so deactivation and role changes apply immediately.
func requireAuth(auth *services.AuthService, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, services.MsgUnauthorized)
				return
			}
			userID, err := tokenUserID(tokenString, secret)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, services.MsgUnauthorized)
				return
			}

			caller, _, err := auth.Identify(r.Context(), userID)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}

			ctx := access.WithSubject(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Login verifies credentials and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, msgMissingCredentials)
		return
	}

	user, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, err := issueToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, msgTokenFailed)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: newUserResponse(user)})
}

// ChangePassword replaces a password given the account email and old password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.OldPassword == "" {
		writeError(w, r, http.StatusBadRequest, msgMissingCredentials)
		return
	}

	if err := h.auth.ChangePassword(r.Context(), req.Email, req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: translate(r, msgPasswordChanged)})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}

	_, user, err := h.auth.Identify(r.Context(), caller.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	Email       string `json:"email"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse is a user with its derived status.
type UserResponse struct {
	types.User
	Status string `json:"status"`
}

func newUserResponse(user types.User) UserResponse {
	return UserResponse{User: user, Status: user.Status()}
}

// tokenIssuer is the iss claim of every session token.
const tokenIssuer = "floorvault"

var tokenParser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithIssuer(tokenIssuer),
	jwt.WithExpirationRequired(),
	jwt.WithIssuedAt(),
)

func issueToken(userID int, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}).SignedString(secret)
}

// tokenUserID verifies a session token and returns the user id it was
// issued for.
func tokenUserID(tokenString string, secret []byte) (int, error) {
	var claims jwt.RegisteredClaims
	if _, err := tokenParser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}); err != nil {
		return 0, err
	}
	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID < 1 {
		return 0, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	return userID, nil
}

func bearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("missing bearer token")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
