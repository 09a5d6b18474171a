package service

import (
	"context"
	"testing"

	"tiered_social/internal/domain/account/model"
	"tiered_social/pkg/apperr"
	"tiered_social/pkg/tier"
	"tiered_social/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newUserService() (UserService, *MockUserRepository, *utils.TokenIssuer) {
	repo := new(MockUserRepository)
	issuer := utils.NewTokenIssuer(testSecret, 1, 24)
	return NewUserService(repo, issuer, zap.NewNop()), repo, issuer
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("hashes password and starts at user tier", func(t *testing.T) {
		svc, repo, _ := newUserService()
		repo.On("Create", ctx, mock.AnythingOfType("*model.User")).Return(nil)

		u, err := svc.Register(ctx, " alice ", "Alice@Example.com", "s3cret-pass")

		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, "alice@example.com", u.Email)
		assert.Equal(t, tier.User, u.Tier)
		assert.NotEqual(t, "s3cret-pass", u.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("s3cret-pass")))
	})

	t.Run("duplicate maps to conflict", func(t *testing.T) {
		svc, repo, _ := newUserService()
		repo.On("Create", ctx, mock.Anything).Return(apperr.Conflict("already exists"))

		_, err := svc.Register(ctx, "alice", "a@example.com", "s3cret-pass")

		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := user("u1", tier.User)
	stored.Password = string(hash)

	t.Run("success issues token pair", func(t *testing.T) {
		svc, repo, issuer := newUserService()
		repo.On("GetByUsername", ctx, "alice").Return(stored, nil)
		repo.On("TouchLastActive", ctx, "u1", mock.Anything).Return(nil)

		pair, err := svc.Login(ctx, "alice", "s3cret-pass")

		require.NoError(t, err)
		claims, err := issuer.Parse(pair.Access, utils.TokenAccess)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.UserID)
		repo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, repo, _ := newUserService()
		repo.On("GetByUsername", ctx, "alice").Return(stored, nil)

		_, err := svc.Login(ctx, "alice", "nope")

		assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
		repo.AssertNotCalled(t, "TouchLastActive", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, repo, _ := newUserService()
		repo.On("GetByUsername", ctx, "bob").Return(nil, apperr.NotFound("user not found"))

		_, err := svc.Login(ctx, "bob", "whatever")

		assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	svc, repo, issuer := newUserService()
	pair, err := issuer.Issue("u1")
	require.NoError(t, err)

	repo.On("GetByID", ctx, "u1").Return(user("u1", tier.User), nil)

	fresh, err := svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.Access)

	_, err = svc.Refresh(ctx, pair.Access)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newUserService()
	bio := "hello"

	repo.On("UpdateProfile", ctx, "u1", mock.MatchedBy(func(f map[string]interface{}) bool {
		_, hasRegion := f["region"]
		return f["bio"] == "hello" && !hasRegion
	})).Return(nil)
	repo.On("GetByID", ctx, "u1").Return(&model.User{Bio: "hello"}, nil)

	u, err := svc.UpdateProfile(ctx, "u1", ProfileInput{Bio: &bio})

	require.NoError(t, err)
	assert.Equal(t, "hello", u.Bio)
	repo.AssertExpectations(t)
}

func TestSetTier(t *testing.T) {
	ctx := context.Background()

	t.Run("admin override can lower tier", func(t *testing.T) {
		svc, repo, _ := newUserService()
		repo.On("SetTier", ctx, "u1", tier.User).Return(nil)
		repo.On("GetByID", ctx, "u1").Return(user("u1", tier.User), nil)

		u, err := svc.SetTier(ctx, "u1", tier.User)

		require.NoError(t, err)
		assert.Equal(t, tier.User, u.Tier)
	})

	t.Run("invalid tier", func(t *testing.T) {
		svc, repo, _ := newUserService()

		_, err := svc.SetTier(ctx, "u1", tier.Tier("gold"))

		assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
		repo.AssertNotCalled(t, "SetTier", mock.Anything, mock.Anything, mock.Anything)
	})
}
