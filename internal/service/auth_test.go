package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/valhalla-auth/internal/apierrors"
	"github.com/dtroode/valhalla-auth/internal/mocks"
	"github.com/dtroode/valhalla-auth/internal/model"
	"github.com/dtroode/valhalla-auth/internal/password"
	"github.com/dtroode/valhalla-auth/internal/testutil"
	"github.com/dtroode/valhalla-auth/internal/token"
)

func TestAuth_Authenticate(t *testing.T) {
	userID := uuid.New()
	stored := model.User{ID: userID, Email: "a@b.com", PasswordHash: "$2a$10$stored", Role: model.RoleUser}
	dbErr := errors.New("connection refused")

	tests := []struct {
		name    string
		setup   func(us *mocks.UserStore, h *mocks.PasswordHasher, tm *mocks.TokenManager)
		login   string
		pass    string
		want    model.SignInResult
		wantErr error
	}{
		{
			name:  "valid credentials",
			login: "a@b.com",
			pass:  "goodpass",
			setup: func(us *mocks.UserStore, h *mocks.PasswordHasher, tm *mocks.TokenManager) {
				us.On("GetByEmail", mock.Anything, "a@b.com").Return(stored, nil)
				h.On("Compare", mock.Anything, "goodpass", stored.PasswordHash).Return(true, nil)
				tm.On("Issue", userID, "a@b.com").Return("signed-token", nil)
			},
			want: model.SignInResult{
				AccessToken: "signed-token",
				User:        model.PublicUser{ID: userID, Username: "a@b.com"},
			},
		},
		{
			name:  "wrong password",
			login: "a@b.com",
			pass:  "wrongpass",
			setup: func(us *mocks.UserStore, h *mocks.PasswordHasher, tm *mocks.TokenManager) {
				us.On("GetByEmail", mock.Anything, "a@b.com").Return(stored, nil)
				h.On("Compare", mock.Anything, "wrongpass", stored.PasswordHash).Return(false, nil)
			},
			wantErr: apierrors.ErrInvalidCredentials,
		},
		{
			name:  "unknown user",
			login: "nobody@b.com",
			pass:  "anything",
			setup: func(us *mocks.UserStore, h *mocks.PasswordHasher, tm *mocks.TokenManager) {
				us.On("GetByEmail", mock.Anything, "nobody@b.com").Return(model.User{}, model.ErrNotFound)
				h.On("Hash", mock.Anything, mock.Anything).Return("$2a$10$placeholder", nil).Once()
				h.On("Compare", mock.Anything, "anything", "$2a$10$placeholder").Return(false, nil)
			},
			wantErr: apierrors.ErrInvalidCredentials,
		},
		{
			name:  "identity without credential",
			login: "a@b.com",
			pass:  "anything",
			setup: func(us *mocks.UserStore, h *mocks.PasswordHasher, tm *mocks.TokenManager) {
				noCred := stored
				noCred.PasswordHash = ""
				us.On("GetByEmail", mock.Anything, "a@b.com").Return(noCred, nil)
				h.On("Hash", mock.Anything, mock.Anything).Return("", errors.New("pool closed")).Once()
			},
			wantErr: apierrors.ErrInvalidCredentials,
		},
		{
			name:  "store failure",
			login: "a@b.com",
			pass:  "goodpass",
			setup: func(us *mocks.UserStore, h *mocks.PasswordHasher, tm *mocks.TokenManager) {
				us.On("GetByEmail", mock.Anything, "a@b.com").Return(model.User{}, dbErr)
			},
			wantErr: apierrors.ErrInternal,
		},
		{
			name:  "malformed stored hash",
			login: "a@b.com",
			pass:  "goodpass",
			setup: func(us *mocks.UserStore, h *mocks.PasswordHasher, tm *mocks.TokenManager) {
				us.On("GetByEmail", mock.Anything, "a@b.com").Return(stored, nil)
				h.On("Compare", mock.Anything, "goodpass", stored.PasswordHash).Return(false, password.ErrComparison)
			},
			wantErr: apierrors.ErrInternal,
		},
		{
			name:  "signing failure",
			login: "a@b.com",
			pass:  "goodpass",
			setup: func(us *mocks.UserStore, h *mocks.PasswordHasher, tm *mocks.TokenManager) {
				us.On("GetByEmail", mock.Anything, "a@b.com").Return(stored, nil)
				h.On("Compare", mock.Anything, "goodpass", stored.PasswordHash).Return(true, nil)
				tm.On("Issue", userID, "a@b.com").Return("", errors.New("sign failed"))
			},
			wantErr: apierrors.ErrInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			us := mocks.NewUserStore(t)
			h := mocks.NewPasswordHasher(t)
			tm := mocks.NewTokenManager(t)
			tt.setup(us, h, tm)

			a := NewAuth(us, h, tm, testutil.MakeNoopLogger())
			got, err := a.Authenticate(context.Background(), tt.login, tt.pass)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, model.SignInResult{}, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuth_Authenticate_SameFailureShape(t *testing.T) {
	stored := model.User{ID: uuid.New(), Email: "a@b.com", PasswordHash: "$2a$10$stored"}

	us := mocks.NewUserStore(t)
	h := mocks.NewPasswordHasher(t)
	tm := mocks.NewTokenManager(t)
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(stored, nil)
	us.On("GetByEmail", mock.Anything, "nobody@b.com").Return(model.User{}, model.ErrNotFound)
	h.On("Compare", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	h.On("Hash", mock.Anything, mock.Anything).Return("$2a$10$placeholder", nil).Once()

	a := NewAuth(us, h, tm, testutil.MakeNoopLogger())

	_, wrongPass := a.Authenticate(context.Background(), "a@b.com", "wrongpass")
	_, unknown := a.Authenticate(context.Background(), "nobody@b.com", "wrongpass")

	require.Error(t, wrongPass)
	require.Error(t, unknown)
	assert.Equal(t, wrongPass, unknown)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

func TestAuth_Authenticate_WithRealCrypto(t *testing.T) {
	ctx := context.Background()
	hasher := password.NewHasher(bcrypt.MinCost, 2)
	tokens := token.NewJWT("0123456789abcdef0123456789abcdef")

	hash, err := hasher.Hash(ctx, "goodpass")
	require.NoError(t, err)

	user := model.User{ID: uuid.New(), Email: "a@b.com", PasswordHash: hash}
	us := mocks.NewUserStore(t)
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(user, nil)

	a := NewAuth(us, hasher, tokens, testutil.MakeNoopLogger())

	res, err := a.Authenticate(ctx, "a@b.com", "goodpass")
	require.NoError(t, err)
	assert.Equal(t, model.PublicUser{ID: user.ID, Username: "a@b.com"}, res.User)

	claims, err := tokens.Verify(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, "a@b.com", claims.Username)

	_, err = a.Authenticate(ctx, "a@b.com", "wrongpass")
	assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
}

func TestAuth_Authenticate_PlaceholderRetriedAfterFailure(t *testing.T) {
	us := mocks.NewUserStore(t)
	h := mocks.NewPasswordHasher(t)
	us.On("GetByEmail", mock.Anything, "nobody@b.com").Return(model.User{}, model.ErrNotFound)
	h.On("Hash", mock.Anything, mock.Anything).Return("", context.Canceled).Once()
	h.On("Hash", mock.Anything, mock.Anything).Return("$2a$10$placeholder", nil).Once()
	h.On("Compare", mock.Anything, "wrongpass", "$2a$10$placeholder").Return(false, nil).Once()

	a := NewAuth(us, h, mocks.NewTokenManager(t), testutil.MakeNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Authenticate(ctx, "nobody@b.com", "wrongpass")
	assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)

	_, err = a.Authenticate(context.Background(), "nobody@b.com", "wrongpass")
	assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
}

func TestAuth_Authenticate_PlaceholderSurvivesCancelledRequest(t *testing.T) {
	us := mocks.NewUserStore(t)
	us.On("GetByEmail", mock.Anything, "nobody@b.com").Return(model.User{}, model.ErrNotFound)

	a := NewAuth(us, password.NewHasher(bcrypt.MinCost, 1), mocks.NewTokenManager(t), testutil.MakeNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Authenticate(ctx, "nobody@b.com", "wrongpass")
	assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)

	hash := a.placeholderHash
	require.NotEmpty(t, hash, "placeholder must be computed despite the cancelled request")
	ok, err := password.NewHasher(bcrypt.MinCost, 1).Compare(context.Background(), timingPassword, hash)
	require.NoError(t, err)
	assert.True(t, ok)
}
