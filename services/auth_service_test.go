package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-reservations/apperrors"
	"github.com/yeremiapane/restaurant-reservations/models"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/testutil"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

func newAuthService(t *testing.T) (*services.AuthService, *utils.TokenManager) {
	tokens := utils.NewTokenManager("test-secret", 15*time.Minute, "reservations")
	return services.NewAuthService(testutil.NewDB(t), tokens), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newAuthService(t)

	user, err := svc.Register(ctx, services.RegisterInput{Name: "Ana", Email: " Ana@Example.com ", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, models.RoleClient, user.Role)
	assert.NotEqual(t, "s3cret-pass", user.HashedPassword)

	_, err = svc.Register(ctx, services.RegisterInput{Name: "Ana 2", Email: "ana@example.com", Password: "other-pass"})
	assertKind(t, err, apperrors.KindConflict, "Email already registered")

	_, err = svc.Login(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	issued, err := svc.Login(ctx, "ANA@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "bearer", issued.TokenType)

	claims, err := tokens.Parse(issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleClient, claims.Role)
	assert.Equal(t, "ana@example.com", claims.Subject)
	assert.False(t, claims.HasScope("admin:write"))

	me, err := svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", me.Name)

	_, err = svc.Me(ctx, 999)
	assertKind(t, err, apperrors.KindNotFound, "")
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	admin, created, err := svc.EnsureAdmin(ctx, "root@example.com", "admin-pass", "Root")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	again, created, err := svc.EnsureAdmin(ctx, "root@example.com", "different", "Root")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)

	issued, err := svc.Login(ctx, "root@example.com", "admin-pass")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, issued.User.Role)
	assert.Contains(t, services.ScopesFor(models.RoleAdmin), "admin:write")
}
