package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestVerifier_Verify(t *testing.T) {
	verifier := NewVerifier(testSecret)

	t.Run("valid token", func(t *testing.T) {
		token, err := IssueToken(testSecret, Principal{ID: "user-1", Email: "a@example.com"}, time.Hour)
		require.NoError(t, err)

		p, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, Principal{ID: "user-1", Email: "a@example.com"}, p)
	})

	t.Run("numeric subject", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": 42,
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		p, err := verifier.Verify(signed)
		require.NoError(t, err)
		assert.Equal(t, "42", p.ID)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := IssueToken(testSecret, Principal{ID: "user-1"}, -time.Minute)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := IssueToken("other-secret", Principal{ID: "user-1"}, time.Hour)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unexpected signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "user-1"})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = verifier.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "a@example.com"})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = verifier.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage and empty", func(t *testing.T) {
		_, err := verifier.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)

		_, err = verifier.Verify("")
		assert.True(t, errors.Is(err, ErrMissingToken))
	})
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{ID: "7"})
	p, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "7", p.ID)
}
