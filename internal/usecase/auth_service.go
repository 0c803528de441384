package usecase

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"felixmart/internal/domain"
)

var ErrUnauthorized = errors.New("unauthorized")

// AuthService checks the HS256 access tokens the storefront's auth provider
// issues. Admins carry app_metadata.role == "admin".
type AuthService struct {
	JWTSecret string
	Now       func() time.Time
}

func (s *AuthService) Issue(p domain.Principal, ttl time.Duration) (string, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return "", ErrBadRequest("user id required")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   p.UserID,
		"email": p.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if p.Admin {
		claims["app_metadata"] = map[string]any{"role": "admin"}
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.JWTSecret))
}

func (s *AuthService) Verify(token string) (domain.Principal, error) {
	if s.JWTSecret == "" {
		return domain.Principal{}, ErrUnauthorized
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(s.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return domain.Principal{}, ErrUnauthorized
	}
	m, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Principal{}, ErrUnauthorized
	}
	sub, _ := m["sub"].(string)
	if sub == "" {
		return domain.Principal{}, ErrUnauthorized
	}
	email, _ := m["email"].(string)
	p := domain.Principal{UserID: sub, Email: email}
	if meta, ok := m["app_metadata"].(map[string]any); ok {
		role, _ := meta["role"].(string)
		p.Admin = role == "admin"
	}
	return p, nil
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
