package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestAuthService_RoundTrip(t *testing.T) {
	svc := NewAuthService(testSecret, time.Hour)

	token, err := svc.GenerateToken("session-1")
	require.NoError(t, err)

	sub, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", sub)
}

func TestAuthService_RejectsEmptySession(t *testing.T) {
	_, err := NewAuthService(testSecret, time.Hour).GenerateToken("")
	assert.Error(t, err)
}

func TestAuthService_Expired(t *testing.T) {
	svc := NewAuthService(testSecret, time.Minute)
	base := time.Now()
	svc.now = func() time.Time { return base.Add(-time.Hour) }

	token, err := svc.GenerateToken("session-1")
	require.NoError(t, err)

	svc.now = func() time.Time { return base }
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_WrongSecret(t *testing.T) {
	token, err := NewAuthService(testSecret, time.Hour).GenerateToken("session-1")
	require.NoError(t, err)

	_, err = NewAuthService("ffffffffffffffffffffffffffffffff", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "session-1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewAuthService(testSecret, time.Hour).ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_Garbage(t *testing.T) {
	_, err := NewAuthService(testSecret, time.Hour).ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
