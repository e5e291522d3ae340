package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/floorvault/apiserver/internal/access"
	"github.com/floorvault/apiserver/internal/store"
	"github.com/floorvault/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// DefaultResetPassword is the password set by an administrative reset.
const DefaultResetPassword = "@0123456789@"

const (
	minPasswordLength = 8
	maxPasswordLength = 100
	dateLayout        = "2006-01-02"
)

const (
	msgEmailTaken         = "email already registered"
	msgInvalidEmail       = "invalid email"
	msgPasswordLength     = "password must be between 8 and 100 characters"
	msgUserNameLength     = "name must be between 1 and 150 characters"
	msgInvalidDateOfBirth = "invalid date of birth"
	msgRoleMissing        = "role does not exist"
	msgAdminOnlyFields    = "only admins can change role or status"
	msgUserOwnsCatalog    = "user still owns categories or images"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	Delete(ctx context.Context, id int) error
}

// UserProfile holds the optional profile fields shared by create and update.
type UserProfile struct {
	Gender      *bool   `json:"gender"`
	DateOfBirth *string `json:"dateOfBirth"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	FacebookURL *string `json:"facebookUrl"`
	LinkedInURL *string `json:"linkedinUrl"`
}

// UserCreateInput is the payload for provisioning a user.
type UserCreateInput struct {
	UserProfile
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	RoleID   int    `json:"roleId"`
	IsActive *bool  `json:"isActive"`
}

// UserUpdateInput is a partial update. Nil fields are left unchanged.
type UserUpdateInput struct {
	UserProfile
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	RoleID   *int    `json:"roleId"`
	IsActive *bool   `json:"isActive"`
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo  UserRepository
	roles RoleRepository
}

func NewUserService(repo UserRepository, roles RoleRepository) *UserService {
	return &UserService{repo: repo, roles: roles}
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	users, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, internal("list users", err)
	}
	return users, total, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, userLookupError(err)
	}
	return user, nil
}

// Create provisions an account. Only administrators may do so.
func (s *UserService) Create(ctx context.Context, subject access.Subject, input UserCreateInput) (types.User, error) {
	if !access.CanProvision(subject) {
		return types.User{}, forbidden(MsgForbidden)
	}

	email, err := normalizeEmail(input.Email)
	if err != nil {
		return types.User{}, err
	}
	if err := validatePassword(input.Password); err != nil {
		return types.User{}, err
	}
	name, err := validateUserName(input.Name)
	if err != nil {
		return types.User{}, err
	}
	if err := s.requireRole(ctx, input.RoleID); err != nil {
		return types.User{}, err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, conflict(msgEmailTaken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, internal("check email", err)
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return types.User{}, internal("hash password", err)
	}

	user := types.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		RoleID:       input.RoleID,
		IsActive:     true,
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if err := applyProfile(&user, input.UserProfile); err != nil {
		return types.User{}, err
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, userWriteError(err)
	}
	return created, nil
}

// Update edits a user. Callers may edit themselves; administrators may edit
// anyone and are the only ones allowed to change role or active status.
func (s *UserService) Update(ctx context.Context, subject access.Subject, id int, input UserUpdateInput) (types.User, error) {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, userLookupError(err)
	}
	caps := access.Evaluate(subject, access.Resource{Kind: access.KindUser, OwnerID: target.ID, Role: target.RoleName})
	if !caps.CanEdit {
		return types.User{}, forbidden(MsgForbidden)
	}

	changesRole := input.RoleID != nil && *input.RoleID != target.RoleID
	changesStatus := input.IsActive != nil && *input.IsActive != target.IsActive
	if (changesRole || changesStatus) && !subject.IsAdmin() {
		return types.User{}, forbidden(msgAdminOnlyFields)
	}

	if input.Email != nil {
		email, err := normalizeEmail(*input.Email)
		if err != nil {
			return types.User{}, err
		}
		if email != target.Email {
			if _, err := s.repo.GetByEmail(ctx, email); err == nil {
				return types.User{}, conflict(msgEmailTaken)
			} else if !errors.Is(err, store.ErrNotFound) {
				return types.User{}, internal("check email", err)
			}
			target.Email = email
		}
	}
	if input.Name != nil {
		name, err := validateUserName(*input.Name)
		if err != nil {
			return types.User{}, err
		}
		target.Name = name
	}
	if changesRole {
		if err := s.requireRole(ctx, *input.RoleID); err != nil {
			return types.User{}, err
		}
		target.RoleID = *input.RoleID
	}
	if changesStatus {
		target.IsActive = *input.IsActive
	}
	if err := applyProfile(&target, input.UserProfile); err != nil {
		return types.User{}, err
	}

	updated, err := s.repo.Update(ctx, target)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, notFound(MsgUserNotFound)
		}
		return types.User{}, userWriteError(err)
	}
	return updated, nil
}

// Delete removes a user. Users that still own catalog entries are kept.
func (s *UserService) Delete(ctx context.Context, subject access.Subject, id int) error {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return userLookupError(err)
	}
	caps := access.Evaluate(subject, access.Resource{Kind: access.KindUser, OwnerID: target.ID, Role: target.RoleName})
	if !caps.CanDelete {
		return forbidden(MsgForbidden)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return notFound(MsgUserNotFound)
		case errors.Is(err, store.ErrRestricted):
			return conflict(msgUserOwnsCatalog)
		}
		return internal("delete user", err)
	}
	return nil
}

// ResetPassword sets DefaultResetPassword on a non-admin account other than
// the caller's and returns it.
func (s *UserService) ResetPassword(ctx context.Context, subject access.Subject, id int) (string, error) {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", userLookupError(err)
	}
	caps := access.Evaluate(subject, access.Resource{Kind: access.KindUser, OwnerID: target.ID, Role: target.RoleName})
	if !caps.CanDelete {
		return "", forbidden(MsgForbidden)
	}

	hash, err := HashPassword(DefaultResetPassword)
	if err != nil {
		return "", internal("hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, target.ID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", notFound(MsgUserNotFound)
		}
		return "", internal("reset password", err)
	}
	return DefaultResetPassword, nil
}

func (s *UserService) requireRole(ctx context.Context, roleID int) error {
	if roleID < 1 {
		return badRequest(msgRoleMissing)
	}
	if _, err := s.roles.Get(ctx, roleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return badRequest(msgRoleMissing)
		}
		return internal("load role", err)
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", badRequest(msgInvalidEmail)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", badRequest(msgInvalidEmail)
	}
	return email, nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength || n > maxPasswordLength {
		return badRequest(msgPasswordLength)
	}
	return nil
}

func validateUserName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n < 1 || n > maxNameLength {
		return "", badRequest(msgUserNameLength)
	}
	return name, nil
}

func applyProfile(user *types.User, profile UserProfile) error {
	if profile.Gender != nil {
		gender := *profile.Gender
		user.Gender = &gender
	}
	if profile.DateOfBirth != nil {
		raw := strings.TrimSpace(*profile.DateOfBirth)
		if raw == "" {
			user.DateOfBirth = nil
		} else {
			dob, err := time.Parse(dateLayout, raw)
			if err != nil {
				return badRequest(msgInvalidDateOfBirth)
			}
			user.DateOfBirth = &dob
		}
	}
	if profile.Phone != nil {
		user.Phone = normalizeOptional(profile.Phone)
	}
	if profile.Address != nil {
		user.Address = normalizeOptional(profile.Address)
	}
	if profile.FacebookURL != nil {
		user.FacebookURL = normalizeOptional(profile.FacebookURL)
	}
	if profile.LinkedInURL != nil {
		user.LinkedInURL = normalizeOptional(profile.LinkedInURL)
	}
	return nil
}

func userLookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(MsgUserNotFound)
	}
	return internal("load user", err)
}

func userWriteError(err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return conflict(msgEmailTaken)
	case errors.Is(err, store.ErrRestricted):
		return badRequest(msgRoleMissing)
	}
	return internal("save user", err)
}
