package services

import (
	"context"
	"testing"

	"github.com/floorvault/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (*userFake, *AuthService) {
	t.Helper()
	roles := newRoleFake()
	users := newUserFake(roles)
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	users.add(types.User{ID: 10, Email: "staff@floor.vn", PasswordHash: hash, Name: "Staff", RoleID: 2, IsActive: true})
	users.add(types.User{ID: 11, Email: "gone@floor.vn", PasswordHash: hash, Name: "Gone", RoleID: 2, IsActive: false})
	return users, NewAuthService(users)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	_, svc := newAuthFixture(t)

	user, err := svc.Authenticate(ctx, " STAFF@floor.vn ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, 10, user.ID)

	_, err = svc.Authenticate(ctx, "staff@floor.vn", "wrong")
	assert.Equal(t, KindUnauthorized, KindOf(err))

	_, err = svc.Authenticate(ctx, "nobody@floor.vn", "correct horse")
	assert.Equal(t, KindUnauthorized, KindOf(err))

	_, err = svc.Authenticate(ctx, "gone@floor.vn", "correct horse")
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	_, svc := newAuthFixture(t)

	assert.Equal(t, KindBadRequest, KindOf(svc.ChangePassword(ctx, "staff@floor.vn", "correct horse", "short")))
	assert.Equal(t, KindBadRequest, KindOf(svc.ChangePassword(ctx, "staff@floor.vn", "correct horse", "correct horse")))
	assert.Equal(t, KindUnauthorized, KindOf(svc.ChangePassword(ctx, "staff@floor.vn", "wrong pass", "brand new pass")))
	assert.Equal(t, KindForbidden, KindOf(svc.ChangePassword(ctx, "gone@floor.vn", "correct horse", "brand new pass")))

	require.NoError(t, svc.ChangePassword(ctx, "staff@floor.vn", "correct horse", "brand new pass"))
	_, err := svc.Authenticate(ctx, "staff@floor.vn", "brand new pass")
	require.NoError(t, err)
}

func TestIdentify(t *testing.T) {
	ctx := context.Background()
	_, svc := newAuthFixture(t)

	subject, user, err := svc.Identify(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, subject.UserID)
	assert.Equal(t, "Editor", subject.Role)
	assert.Equal(t, "Staff", user.Name)

	_, _, err = svc.Identify(ctx, 11)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	_, _, err = svc.Identify(ctx, 404)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}
