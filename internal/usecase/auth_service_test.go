package usecase

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"felixmart/internal/domain"
)

func TestAuthService_IssueVerify(t *testing.T) {
	s := &AuthService{JWTSecret: "secret"}
	tok, err := s.Issue(domain.Principal{UserID: "u1", Email: "a@example.com"}, time.Hour)
	require.NoError(t, err)
	p, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{UserID: "u1", Email: "a@example.com"}, p)

	tok, err = s.Issue(domain.Principal{UserID: "root", Admin: true}, time.Hour)
	require.NoError(t, err)
	p, err = s.Verify(tok)
	require.NoError(t, err)
	assert.True(t, p.Admin)
}

func TestAuthService_Rejects(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &AuthService{JWTSecret: "secret", Now: func() time.Time { return now }}
	expired, err := s.Issue(domain.Principal{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)

	other, err := (&AuthService{JWTSecret: "other"}).Issue(domain.Principal{UserID: "u1"}, time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "x@example.com"})
	noSubTok, err := noSub.SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"expired":   expired,
		"wrong key": other,
		"alg none":  unsigned,
		"no sub":    noSubTok,
		"garbage":   "not-a-jwt",
	} {
		_, err := s.Verify(tok)
		assert.ErrorIs(t, err, ErrUnauthorized, name)
	}

	_, err = (&AuthService{}).Verify(expired)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
