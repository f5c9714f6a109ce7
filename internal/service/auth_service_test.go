package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/blocks-api/internal/models"
	"github.com/campuskit/blocks-api/pkg/config"
	appErrors "github.com/campuskit/blocks-api/pkg/errors"
)

const testJWTSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func staffClaims() models.JWTClaims {
	return models.JWTClaims{
		UserID:   "u1",
		Role:     models.RoleRegistrar,
		Email:    "registrar@campus.edu",
		FullName: "Sample Registrar",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "campus-identity",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: testJWTSecret, Issuer: "campus-identity"}, nil)
	token := signToken(t, jwt.SigningMethodHS256, testJWTSecret, staffClaims())

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleRegistrar, claims.Role)

	actor := models.ActorFromClaims(claims)
	assert.Equal(t, "u1", actor.UserID)
	assert.Equal(t, "Sample Registrar", actor.FullName)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: testJWTSecret}, nil)
	token := signToken(t, jwt.SigningMethodHS256, "other-secret", staffClaims())

	_, err := svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenWrongAlgorithm(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: testJWTSecret}, nil)
	token := signToken(t, jwt.SigningMethodHS512, testJWTSecret, staffClaims())

	_, err := svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: testJWTSecret}, nil)
	claims := staffClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	token := signToken(t, jwt.SigningMethodHS256, testJWTSecret, claims)

	_, err := svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenIssuerMismatch(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: testJWTSecret, Issuer: "campus-identity"}, nil)
	claims := staffClaims()
	claims.Issuer = "someone-else"
	token := signToken(t, jwt.SigningMethodHS256, testJWTSecret, claims)

	_, err := svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenUnknownRole(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: testJWTSecret}, nil)
	claims := staffClaims()
	claims.Role = "JANITOR"
	token := signToken(t, jwt.SigningMethodHS256, testJWTSecret, claims)

	_, err := svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: testJWTSecret}, nil)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
