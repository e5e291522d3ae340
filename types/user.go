package types

import "time"

// User represents a staff account of the dashboard.
// It contains identity, contact details, role and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the unique, lower-cased login address of the user.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Gender is optional; true for male, false for female.
	Gender *bool `json:"gender" db:"gender"`

	// DateOfBirth is optional and only carries a calendar date.
	DateOfBirth *time.Time `json:"dateOfBirth" db:"date_of_birth"`

	Phone       *string `json:"phone" db:"phone"`
	Address     *string `json:"address" db:"address"`
	FacebookURL *string `json:"facebookUrl" db:"facebook_url"`
	LinkedInURL *string `json:"linkedinUrl" db:"linkedin_url"`

	// RoleID references the single role held by the user.
	RoleID int `json:"roleId" db:"role_id"`

	// RoleName is the joined name of the user's role.
	RoleName string `json:"role" db:"role_name"`

	// IsActive reports whether the account may sign in.
	IsActive bool `json:"isActive" db:"is_active"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IsAdmin reports whether the user holds the Admin role.
func (u User) IsAdmin() bool {
	return u.RoleName == RoleAdmin
}

// Status returns the human readable account state.
func (u User) Status() string {
	if u.IsActive {
		return "Active"
	}
	return "Inactive"
}
