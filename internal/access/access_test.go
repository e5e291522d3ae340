package access

import (
	"context"
	"testing"

	"github.com/floorvault/apiserver/types"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	admin := Subject{UserID: 1, Role: types.RoleAdmin}
	editor := Subject{UserID: 2, Role: "Editor"}
	other := Subject{UserID: 3, Role: "Editor"}

	tests := []struct {
		name    string
		subject Subject
		res     Resource
		want    Capabilities
	}{
		{"anonymous", Subject{}, Resource{Kind: KindCategory, OwnerID: 2}, Capabilities{}},
		{"owner category", editor, Resource{Kind: KindCategory, OwnerID: 2}, Capabilities{true, true, true}},
		{"stranger category", other, Resource{Kind: KindCategory, OwnerID: 2}, Capabilities{CanView: true}},
		{"admin category", admin, Resource{Kind: KindCategory, OwnerID: 2}, Capabilities{true, true, true}},
		{"stranger image", other, Resource{Kind: KindImage, OwnerID: 2}, Capabilities{CanView: true}},
		{"self user", editor, Resource{Kind: KindUser, OwnerID: 2, Role: "Editor"}, Capabilities{CanView: true, CanEdit: true}},
		{"admin on user", admin, Resource{Kind: KindUser, OwnerID: 2, Role: "Editor"}, Capabilities{true, true, true}},
		{"admin on admin", admin, Resource{Kind: KindUser, OwnerID: 4, Role: types.RoleAdmin}, Capabilities{CanView: true, CanEdit: true}},
		{"admin on self", admin, Resource{Kind: KindUser, OwnerID: 1, Role: types.RoleAdmin}, Capabilities{CanView: true, CanEdit: true}},
		{"editor on user", editor, Resource{Kind: KindUser, OwnerID: 3, Role: "Editor"}, Capabilities{CanView: true}},
		{"editor on role", editor, Resource{Kind: KindRole}, Capabilities{CanView: true}},
		{"admin on role", admin, Resource{Kind: KindRole}, Capabilities{true, true, true}},
		{"unknown kind", admin, Resource{}, Capabilities{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.subject, tt.res))
		})
	}
}

func TestCanProvision(t *testing.T) {
	assert.True(t, CanProvision(Subject{UserID: 1, Role: types.RoleAdmin}))
	assert.False(t, CanProvision(Subject{UserID: 2, Role: "Editor"}))
	assert.False(t, CanProvision(Subject{Role: types.RoleAdmin}))
}

func TestSubjectContext(t *testing.T) {
	_, ok := SubjectFrom(context.Background())
	assert.False(t, ok)

	ctx := WithSubject(context.Background(), Subject{UserID: 7, Role: "Editor"})
	subject, ok := SubjectFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, 7, subject.UserID)

	_, ok = SubjectFrom(WithSubject(context.Background(), Subject{}))
	assert.False(t, ok)
}
