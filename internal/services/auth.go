package services

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/campus-events/apiserver/config"
	"github.com/campus-events/apiserver/internal/clock"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const adminRole = "admin"

// AdminClaims are the claims carried by an admin token.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies admin tokens. With no secret configured
// authentication is disabled and every caller is treated as admin.
type AuthService struct {
	secret       []byte
	ttl          time.Duration
	username     string
	passwordHash []byte
	clock        clock.Clock
}

func NewAuthService(cfg config.AuthConfig, clk clock.Clock) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthService{
		secret:       []byte(strings.TrimSpace(cfg.JWTSecret)),
		ttl:          ttl,
		username:     cfg.AdminUsername,
		passwordHash: []byte(cfg.AdminPasswordHash),
		clock:        clk,
	}
}

// Enabled reports whether admin routes require a token.
func (s *AuthService) Enabled() bool {
	return len(s.secret) > 0
}

// Login checks the admin credentials and returns a signed token with its expiry.
func (s *AuthService) Login(username, password string) (string, time.Time, error) {
	if !s.Enabled() || len(s.passwordHash) == 0 {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(s.username)) != 1 {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.ttl)
	claims := AdminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify parses a token and returns the admin subject it was issued to.
func (s *AuthService) Verify(tokenString string) (string, error) {
	claims := AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Role != adminRole {
		return "", errors.New("not an admin token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}
