package types

import "time"

// RoleAdmin is the name of the role with unrestricted rights across the catalog.
const RoleAdmin = "Admin"

// Role is a permission group assigned to users.
type Role struct {
	// ID is the unique identifier of the role.
	ID int `json:"id" db:"id"`

	// Name is the unique display name of the role (e.g., "Admin", "Editor").
	Name string `json:"name" db:"name"`

	// Description is an optional free-form explanation of the role.
	Description *string `json:"description" db:"description"`

	// CreatedAt is the timestamp when the role was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the role.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
