package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gstaudit/internal/config"
	"gstaudit/internal/domain"
	"gstaudit/internal/service"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "gstaudit", TokenExpiry: time.Hour}

func TestAuthService_Token(t *testing.T) {
	svc := service.NewAuthService(testJWT, nil)

	tok, err := svc.IssueToken("ap-automation")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, time.Minute)

	claims, err := svc.ValidateToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ap-automation", claims.Subject)
	assert.Equal(t, "gstaudit", claims.Issuer)

	t.Run("empty_subject", func(t *testing.T) {
		_, err := svc.IssueToken("")
		assert.Error(t, err)
	})

	t.Run("wrong_secret", func(t *testing.T) {
		other := service.NewAuthService(config.JWTConfig{Secret: "other", Issuer: "gstaudit"}, nil)
		_, err := other.ValidateToken(tok.AccessToken)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("wrong_issuer", func(t *testing.T) {
		other := service.NewAuthService(config.JWTConfig{Secret: "test-secret", Issuer: "someone-else"}, nil)
		_, err := other.ValidateToken(tok.AccessToken)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "x",
			Issuer:    "gstaudit",
			Audience:  jwt.ClaimStrings{"gstaudit-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = svc.ValidateToken(signed)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestAuthService_APIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("k-123"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := service.NewAuthService(testJWT, []string{string(hash)})

	assert.NoError(t, svc.ValidateAPIKey("k-123"))
	assert.ErrorIs(t, svc.ValidateAPIKey("k-124"), domain.ErrUnauthorized)
	assert.ErrorIs(t, svc.ValidateAPIKey(""), domain.ErrUnauthorized)
}
