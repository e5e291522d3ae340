package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/floorvault/apiserver/internal/access"
	"github.com/floorvault/apiserver/internal/store"
	"github.com/floorvault/apiserver/types"
)

const (
	msgRoleNameRequired = "role name is required"
	msgRoleNameTaken    = "role name already exists"
	msgRoleInUse        = "role is assigned to users"
	msgAdminRoleLocked  = "the Admin role cannot be renamed or deleted"
)

// RoleRepository defines persistence operations for roles.
type RoleRepository interface {
	List(ctx context.Context) ([]types.Role, error)
	Get(ctx context.Context, id int) (types.Role, error)
	FindByName(ctx context.Context, name string) (types.Role, error)
	Create(ctx context.Context, role types.Role) (types.Role, error)
	Update(ctx context.Context, role types.Role) (types.Role, error)
	Delete(ctx context.Context, id int) error
}

type RoleInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// RoleView is a role plus the caller's permissions on it.
type RoleView struct {
	types.Role
	Permissions access.Capabilities `json:"permissions"`
}

// RoleService encapsulates role use-cases.
type RoleService struct {
	repo RoleRepository
}

func NewRoleService(repo RoleRepository) *RoleService {
	return &RoleService{repo: repo}
}

func (s *RoleService) List(ctx context.Context) ([]types.Role, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal("list roles", err)
	}
	return roles, nil
}

func (s *RoleService) Get(ctx context.Context, subject access.Subject, id int) (RoleView, error) {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return RoleView{}, roleLookupError(err)
	}
	return RoleView{
		Role:        role,
		Permissions: access.Evaluate(subject, access.Resource{Kind: access.KindRole}),
	}, nil
}

func (s *RoleService) Create(ctx context.Context, subject access.Subject, input RoleInput) (types.Role, error) {
	if !access.CanProvision(subject) {
		return types.Role{}, forbidden(MsgForbidden)
	}

	name, err := validateRoleName(input.Name)
	if err != nil {
		return types.Role{}, err
	}
	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return types.Role{}, conflict(msgRoleNameTaken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Role{}, internal("check role name", err)
	}

	created, err := s.repo.Create(ctx, types.Role{
		Name:        name,
		Description: normalizeOptional(input.Description),
	})
	if err != nil {
		return types.Role{}, roleWriteError(err)
	}
	return created, nil
}

func (s *RoleService) Update(ctx context.Context, subject access.Subject, id int, input RoleInput) (types.Role, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Role{}, roleLookupError(err)
	}
	if !access.Evaluate(subject, access.Resource{Kind: access.KindRole}).CanEdit {
		return types.Role{}, forbidden(MsgForbidden)
	}

	name, err := validateRoleName(input.Name)
	if err != nil {
		return types.Role{}, err
	}
	// Admin rights are granted by role name.
	if current.Name == types.RoleAdmin && name != types.RoleAdmin {
		return types.Role{}, forbidden(msgAdminRoleLocked)
	}
	if !strings.EqualFold(name, current.Name) {
		if _, err := s.repo.FindByName(ctx, name); err == nil {
			return types.Role{}, conflict(msgRoleNameTaken)
		} else if !errors.Is(err, store.ErrNotFound) {
			return types.Role{}, internal("check role name", err)
		}
	}

	current.Name = name
	current.Description = normalizeOptional(input.Description)
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Role{}, notFound(MsgRoleNotFound)
		}
		return types.Role{}, roleWriteError(err)
	}
	return updated, nil
}

// Delete removes a role that no user holds.
func (s *RoleService) Delete(ctx context.Context, subject access.Subject, id int) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return roleLookupError(err)
	}
	if !access.Evaluate(subject, access.Resource{Kind: access.KindRole}).CanDelete {
		return forbidden(MsgForbidden)
	}
	if current.Name == types.RoleAdmin {
		return forbidden(msgAdminRoleLocked)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return notFound(MsgRoleNotFound)
		case errors.Is(err, store.ErrRestricted):
			return conflict(msgRoleInUse)
		}
		return internal("delete role", err)
	}
	return nil
}

func validateRoleName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", badRequest(msgRoleNameRequired)
	}
	return name, nil
}

func roleLookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(MsgRoleNotFound)
	}
	return internal("load role", err)
}

func roleWriteError(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return conflict(msgRoleNameTaken)
	}
	return internal("save role", err)
}
