package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "secret"})

	token, err := util.GenerateToken(UserClaims{ID: 7, Name: "Ada", Email: "ada@example.com", Role: "admin", Company: "Acme"})
	require.NoError(t, err)

	claims, err := util.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, uint(7), claims.ID)
	require.Equal(t, "Acme", claims.Company)
	require.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestValidateRejectsExpired(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "secret", Expiration: time.Hour})
	issued := time.Now().Add(-2 * time.Hour)
	util.now = func() time.Time { return issued }

	token, err := util.GenerateToken(UserClaims{ID: 1})
	require.NoError(t, err)

	util.now = time.Now
	_, err = util.ValidateToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateRejectsForeignKeyAndAlgorithm(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "secret"})
	other := NewJWTUtil(&JWTConfig{SigningKey: "other"})

	token, err := other.GenerateToken(UserClaims{ID: 1})
	require.NoError(t, err)
	_, err = util.ValidateToken(token)
	require.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, UserClaims{ID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = util.ValidateToken(none)
	require.Error(t, err)
}

func TestMissingSigningKey(t *testing.T) {
	_, err := NewJWTUtil(&JWTConfig{}).GenerateToken(UserClaims{ID: 1})
	require.Error(t, err)
}
