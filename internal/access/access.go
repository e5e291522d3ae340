// Package access holds the single authorization predicate used by every
// catalog operation, together with the request identity it evaluates.
package access

import (
	"context"

	"github.com/floorvault/apiserver/types"
)

// Subject is the authenticated caller of a request.
type Subject struct {
	UserID int
	Role   string
}

// IsAdmin reports whether the subject holds the Admin role.
func (s Subject) IsAdmin() bool {
	return s.Role == types.RoleAdmin
}

// Kind identifies the type of resource being evaluated.
type Kind int

const (
	KindCategory Kind = iota + 1
	KindImage
	KindUser
	KindRole
)

// Resource describes the target of an operation. OwnerID is the owner of a
// category or image, or the id of a target user. Role is only meaningful for
// KindUser and carries the target user's role name.
type Resource struct {
	Kind    Kind
	OwnerID int
	Role    string
}

// Capabilities is the set of actions a subject may perform on a resource.
type Capabilities struct {
	CanView   bool `json:"canView"`
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
}

// Evaluate computes the capabilities of subject on res. A zero Subject
// (unauthenticated) gets no capabilities at all.
func Evaluate(subject Subject, res Resource) Capabilities {
	if subject.UserID < 1 {
		return Capabilities{}
	}

	admin := subject.IsAdmin()
	switch res.Kind {
	case KindCategory, KindImage:
		owns := admin || subject.UserID == res.OwnerID
		return Capabilities{CanView: true, CanEdit: owns, CanDelete: owns}
	case KindUser:
		self := subject.UserID == res.OwnerID
		return Capabilities{
			CanView:   true,
			CanEdit:   self || admin,
			CanDelete: admin && !self && res.Role != types.RoleAdmin,
		}
	case KindRole:
		return Capabilities{CanView: true, CanEdit: admin, CanDelete: admin}
	default:
		return Capabilities{}
	}
}

// CanProvision reports whether subject may create users and roles.
func CanProvision(subject Subject) bool {
	return subject.UserID > 0 && subject.IsAdmin()
}

type contextKey struct{}

// WithSubject returns a copy of ctx carrying subject.
func WithSubject(ctx context.Context, subject Subject) context.Context {
	return context.WithValue(ctx, contextKey{}, subject)
}

// SubjectFrom returns the subject stored in ctx, if any.
func SubjectFrom(ctx context.Context) (Subject, bool) {
	subject, ok := ctx.Value(contextKey{}).(Subject)
	if !ok || subject.UserID < 1 {
		return Subject{}, false
	}
	return subject, true
}
