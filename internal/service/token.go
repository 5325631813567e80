package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/user-manager/internal/models"
	"github.com/pribylovaa/user-manager/pkg/log"
)

// errInvalidToken — внутренняя причина отказа в разборе токена.
var errInvalidToken = errors.New("invalid token")

type sessionClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// issueSession подписывает токен сессии для пользователя.
// jti (ID) случайный: по нему сессия отзывается при logout.
func (s *Service) issueSession(ctx context.Context, user *models.User) (*models.Session, error) {
	const op = "service/token/issueSession"

	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.SessionTTL)
	id := uuid.NewString()

	claims := sessionClaims{
		UserID: user.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   user.ID.String(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		log.From(ctx).Error("session_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return &models.Session{
		Token:     signed,
		ID:        id,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}, nil
}

// parseSession проверяет подпись, алгоритм, issuer и срок действия токена.
func (s *Service) parseSession(tokenStr string) (*sessionClaims, uuid.UUID, error) {
	const op = "service/token/parseSession"

	if tokenStr == "" {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, errInvalidToken)
	}

	token, err := jwt.ParseWithClaims(tokenStr, &sessionClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w: %w", op, errInvalidToken, err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, errInvalidToken)
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, errInvalidToken)
	}

	return claims, uid, nil
}
