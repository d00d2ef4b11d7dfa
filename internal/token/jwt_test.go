package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/valhalla-auth/internal/model"
	"github.com/dtroode/valhalla-auth/internal/testutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWT_Roundtrip(t *testing.T) {
	j := NewJWT(testSecret)
	u := uuid.New()

	tok, err := j.Issue(u, "a@b.com")
	require.NoError(t, err)

	claims, err := j.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, u, claims.Subject)
	assert.Equal(t, "a@b.com", claims.Username)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, DefaultTTL, claims.ExpiresAt.Sub(claims.IssuedAt))
}

func TestJWT_SameClaimDifferentTokens(t *testing.T) {
	now := time.Now()
	u := uuid.New()

	first, err := NewJWT(testSecret, WithClock(testutil.FixedClock(now))).Issue(u, "a@b.com")
	require.NoError(t, err)
	second, err := NewJWT(testSecret, WithClock(testutil.FixedClock(now.Add(2*time.Second)))).Issue(u, "a@b.com")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestJWT_CustomTTL(t *testing.T) {
	j := NewJWT(testSecret, WithTTL(time.Hour))
	assert.Equal(t, time.Hour, j.TTL())

	tok, err := j.Issue(uuid.New(), "a@b.com")
	require.NoError(t, err)
	claims, err := j.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt))

	assert.Equal(t, DefaultTTL, NewJWT(testSecret, WithTTL(0)).TTL())
}

func TestJWT_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-48 * time.Hour)
	issuer := NewJWT(testSecret, WithClock(testutil.FixedClock(issuedAt)))

	tok, err := issuer.Issue(uuid.New(), "a@b.com")
	require.NoError(t, err)

	_, err = NewJWT(testSecret).Verify(tok)
	require.ErrorIs(t, err, model.ErrInvalidToken)
	assert.True(t, IsExpired(err))
}

func TestJWT_ValidUntilExpiry(t *testing.T) {
	issuedAt := time.Now().Truncate(time.Second)
	tok, err := NewJWT(testSecret, WithClock(testutil.FixedClock(issuedAt))).Issue(uuid.New(), "a@b.com")
	require.NoError(t, err)

	_, err = NewJWT(testSecret, WithClock(testutil.FixedClock(issuedAt.Add(DefaultTTL-time.Second)))).Verify(tok)
	require.NoError(t, err)

	_, err = NewJWT(testSecret, WithClock(testutil.FixedClock(issuedAt.Add(DefaultTTL+time.Second)))).Verify(tok)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestJWT_RejectsForeignTokens(t *testing.T) {
	now := time.Now()
	base := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	sign := func(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name: "different secret",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-00"), Claims{RegisteredClaims: base})
			},
		},
		{
			name: "none algorithm",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, Claims{RegisteredClaims: base})
			},
		},
		{
			name: "unexpected hmac algorithm",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS512, []byte(testSecret), Claims{RegisteredClaims: base})
			},
		},
		{
			name: "missing expiry",
			token: func(t *testing.T) string {
				noExp := base
				noExp.ExpiresAt = nil
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{RegisteredClaims: noExp})
			},
		},
		{
			name: "subject is not an identity id",
			token: func(t *testing.T) string {
				bad := base
				bad.Subject = "admin"
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{RegisteredClaims: bad})
			},
		},
		{
			name:  "malformed",
			token: func(t *testing.T) string { return "not.a.jwt" },
		},
		{
			name:  "empty",
			token: func(t *testing.T) string { return "" },
		},
	}

	j := NewJWT(testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := j.Verify(tt.token(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrInvalidToken)
		})
	}
}

func TestJWT_SecretRotationInvalidatesTokens(t *testing.T) {
	tok, err := NewJWT(testSecret).Issue(uuid.New(), "a@b.com")
	require.NoError(t, err)

	_, err = NewJWT(testSecret + "-rotated").Verify(tok)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}
