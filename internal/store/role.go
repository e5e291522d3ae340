package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/floorvault/apiserver/types"
	"github.com/jmoiron/sqlx"
)

// RoleRepository handles persistence for roles.
type RoleRepository struct {
	db *sqlx.DB
}

func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) List(ctx context.Context) ([]types.Role, error) {
	const query = `
		SELECT id, name, description, created_at, updated_at
		FROM roles
		ORDER BY id`
	roles := []types.Role{}
	if err := r.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *RoleRepository) Get(ctx context.Context, id int) (types.Role, error) {
	const query = `
		SELECT id, name, description, created_at, updated_at
		FROM roles
		WHERE id = $1`
	var role types.Role
	if err := r.db.GetContext(ctx, &role, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Role{}, ErrNotFound
		}
		return types.Role{}, err
	}
	return role, nil
}

// FindByName looks a role up by name, ignoring case.
func (r *RoleRepository) FindByName(ctx context.Context, name string) (types.Role, error) {
	const query = `
		SELECT id, name, description, created_at, updated_at
		FROM roles
		WHERE LOWER(name) = LOWER($1)
		LIMIT 1`
	var role types.Role
	if err := r.db.GetContext(ctx, &role, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Role{}, ErrNotFound
		}
		return types.Role{}, err
	}
	return role, nil
}

func (r *RoleRepository) Create(ctx context.Context, role types.Role) (types.Role, error) {
	now := time.Now()
	role.CreatedAt = now
	role.UpdatedAt = now

	const query = `
		INSERT INTO roles (name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, role.Name, role.Description, role.CreatedAt, role.UpdatedAt).Scan(&role.ID); err != nil {
		return types.Role{}, translate(err)
	}
	return role, nil
}

func (r *RoleRepository) Update(ctx context.Context, role types.Role) (types.Role, error) {
	role.UpdatedAt = time.Now()

	const query = `
		UPDATE roles
		SET name = $1,
			description = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, role.Name, role.Description, role.UpdatedAt, role.ID)
	if err != nil {
		return types.Role{}, translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Role{}, err
	}
	if affected == 0 {
		return types.Role{}, ErrNotFound
	}
	return r.Get(ctx, role.ID)
}

func (r *RoleRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM roles WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
