package stubserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/dashboard-client/internal/models"
)

const issuer = "dashboard-stub"

type accessClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// refreshEntry — серверная запись об opaque refresh-токене.
type refreshEntry struct {
	UserID    string
	ExpiresAt time.Time
	Revoked   bool
}

// generateAccessToken подписывает HS256 JWT для пользователя.
func (s *Server) generateAccessToken(u *models.User, now time.Time) (string, time.Time, error) {
	const op = "stubserver.generateAccessToken"

	exp := now.Add(s.opts.AccessTokenTTL)
	claims := accessClaims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   u.ID,
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

// validateAccessToken проверяет подпись, издателя и срок по часам сервера.
func (s *Server) validateAccessToken(tokenStr string) (string, error) {
	const op = "stubserver.validateAccessToken"

	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return []byte(s.opts.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims.UserID, nil
}

// issueRefreshToken создаёт opaque refresh-токен (uuid) и запоминает его.
func (s *Server) issueRefreshToken(userID string, now time.Time) string {
	token := uuid.NewString()

	s.mu.Lock()
	s.refresh[token] = &refreshEntry{UserID: userID, ExpiresAt: now.Add(s.opts.RefreshTokenTTL)}
	s.mu.Unlock()

	return token
}

// rotateRefreshToken отзывает предъявленный токен и возвращает владельца.
func (s *Server) rotateRefreshToken(token string, now time.Time) (string, error) {
	const op = "stubserver.rotateRefreshToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.refresh[token]
	switch {
	case !ok:
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	case e.Revoked:
		return "", fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	case now.After(e.ExpiresAt):
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	e.Revoked = true
	return e.UserID, nil
}

// revokeUserTokens отзывает все refresh-токены пользователя (logout).
func (s *Server) revokeUserTokens(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.refresh {
		if e.UserID == userID {
			e.Revoked = true
		}
	}
}

func (s *Server) hashPassword(password string) (string, error) {
	const op = "stubserver.hashPassword"

	if password == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
