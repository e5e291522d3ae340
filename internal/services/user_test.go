package services

import (
	"context"
	"testing"

	"github.com/floorvault/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func newUserFixture() (*userFake, *roleFake, *UserService) {
	roles := newRoleFake()
	users := newUserFake(roles)
	users.add(types.User{ID: admin.UserID, Email: "admin@floor.vn", Name: "Admin", RoleID: 1, IsActive: true})
	users.add(types.User{ID: alice.UserID, Email: "alice@floor.vn", Name: "Alice", RoleID: 2, IsActive: true})
	users.add(types.User{ID: bob.UserID, Email: "bob@floor.vn", Name: "Bob", RoleID: 2, IsActive: true})
	users.add(types.User{ID: 4, Email: "root@floor.vn", Name: "Second admin", RoleID: 1, IsActive: true})
	return users, roles, NewUserService(users, roles)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	users, _, svc := newUserFixture()

	password, err := svc.ResetPassword(ctx, admin, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, "@0123456789@", password)
	stored, _ := users.GetByID(ctx, alice.UserID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)))

	_, err = svc.ResetPassword(ctx, admin, admin.UserID)
	assert.Equal(t, KindForbidden, KindOf(err), "self")

	_, err = svc.ResetPassword(ctx, admin, 4)
	assert.Equal(t, KindForbidden, KindOf(err), "admin target")

	_, err = svc.ResetPassword(ctx, alice, bob.UserID)
	assert.Equal(t, KindForbidden, KindOf(err), "non-admin caller")

	_, err = svc.ResetPassword(ctx, admin, 999)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDeleteUserOwningCatalogFails(t *testing.T) {
	ctx := context.Background()
	users, _, svc := newUserFixture()
	users.owners[alice.UserID] = true

	assert.Equal(t, KindConflict, KindOf(svc.Delete(ctx, admin, alice.UserID)))
	assert.Equal(t, KindForbidden, KindOf(svc.Delete(ctx, bob, alice.UserID)))

	_, err := users.GetByID(ctx, alice.UserID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, admin, bob.UserID))
	assert.Equal(t, KindNotFound, KindOf(svc.Delete(ctx, admin, bob.UserID)))
}

func TestDeleteUserRules(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newUserFixture()

	assert.Equal(t, KindForbidden, KindOf(svc.Delete(ctx, admin, admin.UserID)))
	assert.Equal(t, KindForbidden, KindOf(svc.Delete(ctx, admin, 4)))
	assert.Equal(t, KindForbidden, KindOf(svc.Delete(ctx, alice, alice.UserID)))
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newUserFixture()

	valid := UserCreateInput{Email: "  New.User@Floor.VN ", Password: "s3cretpass", Name: "New User", RoleID: 2}

	_, err := svc.Create(ctx, alice, valid)
	assert.Equal(t, KindForbidden, KindOf(err))

	created, err := svc.Create(ctx, admin, valid)
	require.NoError(t, err)
	assert.Equal(t, "new.user@floor.vn", created.Email)
	assert.True(t, created.IsActive)
	assert.Equal(t, "Editor", created.RoleName)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("s3cretpass")))

	_, err = svc.Create(ctx, admin, valid)
	assert.Equal(t, KindConflict, KindOf(err))

	invalid := []UserCreateInput{
		{Email: "not-an-email", Password: "s3cretpass", Name: "X", RoleID: 2},
		{Email: "x@floor.vn", Password: "short", Name: "X", RoleID: 2},
		{Email: "x@floor.vn", Password: "s3cretpass", Name: " ", RoleID: 2},
		{Email: "x@floor.vn", Password: "s3cretpass", Name: "X", RoleID: 77},
		{Email: "x@floor.vn", Password: "s3cretpass", Name: "X", RoleID: 2, UserProfile: UserProfile{DateOfBirth: strPtr("31/12/1990")}},
	}
	for _, input := range invalid {
		_, err := svc.Create(ctx, admin, input)
		assert.Equal(t, KindBadRequest, KindOf(err), input)
	}
}

func TestUpdateUserAdminOnlyFields(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newUserFixture()

	_, err := svc.Update(ctx, alice, alice.UserID, UserUpdateInput{RoleID: intPtr(1)})
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = svc.Update(ctx, alice, alice.UserID, UserUpdateInput{IsActive: boolPtr(false)})
	assert.Equal(t, KindForbidden, KindOf(err))

	// repeating the current values is not a change
	_, err = svc.Update(ctx, alice, alice.UserID, UserUpdateInput{RoleID: intPtr(2), IsActive: boolPtr(true)})
	require.NoError(t, err)

	_, err = svc.Update(ctx, alice, bob.UserID, UserUpdateInput{Name: strPtr("Robert")})
	assert.Equal(t, KindForbidden, KindOf(err))

	updated, err := svc.Update(ctx, alice, alice.UserID, UserUpdateInput{
		Name:        strPtr("Alice Nguyen"),
		UserProfile: UserProfile{Phone: strPtr(" 0901 "), DateOfBirth: strPtr("1990-12-31")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Nguyen", updated.Name)
	assert.Equal(t, "0901", *updated.Phone)
	assert.Equal(t, 1990, updated.DateOfBirth.Year())

	promoted, err := svc.Update(ctx, admin, bob.UserID, UserUpdateInput{RoleID: intPtr(1), IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, promoted.RoleName)
	assert.False(t, promoted.IsActive)

	_, err = svc.Update(ctx, alice, alice.UserID, UserUpdateInput{Email: strPtr("BOB@floor.vn")})
	assert.Equal(t, KindConflict, KindOf(err))
}
