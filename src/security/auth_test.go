package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/finflow/backend/src/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestGenerateAndVerify(t *testing.T) {
	a := NewAuthService(testSecret, time.Hour)
	tok, err := a.GenerateToken(models.Identity{UID: "u-1", Email: "ann@example.com"})
	require.NoError(t, err)

	id, err := a.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.UID)
	assert.Equal(t, "ann@example.com", id.Email)
}

func TestVerifyRejects(t *testing.T) {
	a := NewAuthService(testSecret, time.Hour)
	good, err := a.GenerateToken(models.Identity{UID: "u-1", Email: "ann@example.com"})
	require.NoError(t, err)

	other := NewAuthService("ffffffffffffffffffffffffffffffff", time.Hour)
	forged, err := other.GenerateToken(models.Identity{UID: "u-1", Email: "ann@example.com"})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1", "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":     "",
		"garbage":   "not.a.token",
		"truncated": good[:len(good)-4],
		"forged":    forged,
		"alg none":  unsigned,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Verify(tok)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestVerifyExpired(t *testing.T) {
	a := NewAuthService(testSecret, time.Minute)
	issued := time.Now().Add(-time.Hour)
	a.now = func() time.Time { return issued }
	tok, err := a.GenerateToken(models.Identity{UID: "u-1", Email: "ann@example.com"})
	require.NoError(t, err)

	a.now = time.Now
	_, err = a.Verify(tok)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestPasswordHashing(t *testing.T) {
	a := NewAuthService(testSecret, time.Hour)
	hash, err := a.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.NoError(t, a.CompareHashAndPassword(hash, "correct horse"))
	assert.Error(t, a.CompareHashAndPassword(hash, "wrong horse"))
}
