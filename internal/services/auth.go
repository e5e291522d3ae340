package services

import (
	"context"
	"errors"
	"strings"

	"github.com/floorvault/apiserver/internal/access"
	"github.com/floorvault/apiserver/internal/store"
	"github.com/floorvault/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgInvalidCredentials = "invalid credentials"
	msgAccountInactive    = "account is inactive"
	msgOldPasswordWrong   = "old password is incorrect"
	msgNewPasswordShort   = "new password must be at least 8 characters"
	msgNewPasswordSame    = "new password must differ from the old password"
)

// AuthService verifies credentials and resolves request identities.
type AuthService struct {
	users UserRepository
}

func NewAuthService(users UserRepository) *AuthService {
	return &AuthService{users: users}
}

// Authenticate checks an email/password pair. Inactive accounts are refused
// even with correct credentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return types.User{}, unauthorized(msgInvalidCredentials)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, unauthorized(msgInvalidCredentials)
		}
		return types.User{}, internal("load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, unauthorized(msgInvalidCredentials)
	}
	if !user.IsActive {
		return types.User{}, forbidden(msgAccountInactive)
	}
	return user, nil
}

// ChangePassword replaces the password of the account identified by email
// after verifying the old one.
func (s *AuthService) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	if len([]rune(newPassword)) < minPasswordLength {
		return badRequest(msgNewPasswordShort)
	}
	if len([]rune(newPassword)) > maxPasswordLength {
		return badRequest(msgPasswordLength)
	}
	if newPassword == oldPassword {
		return badRequest(msgNewPasswordSame)
	}

	user, err := s.Authenticate(ctx, email, oldPassword)
	if err != nil {
		if KindOf(err) == KindUnauthorized {
			return unauthorized(msgOldPasswordWrong)
		}
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return internal("hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return internal("update password", err)
	}
	return nil
}

// Identify loads the account behind a token subject. Missing and inactive
// accounts are unauthenticated.
func (s *AuthService) Identify(ctx context.Context, userID int) (access.Subject, types.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return access.Subject{}, types.User{}, unauthorized(MsgUnauthorized)
		}
		return access.Subject{}, types.User{}, internal("load user", err)
	}
	if !user.IsActive {
		return access.Subject{}, types.User{}, unauthorized(MsgUnauthorized)
	}
	return access.Subject{UserID: user.ID, Role: user.RoleName}, user, nil
}
