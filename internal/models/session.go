package models

import (
	"time"

	"github.com/google/uuid"
)

// Session — подписанный токен сессии, выдаваемый при входе/регистрации.
//   - Token — JWT, хранится у клиента в cookie;
//   - ID — jti токена, по нему сессия отзывается при logout;
//   - ExpiresAt — момент истечения (UTC).
type Session struct {
	Token     string
	ID        string
	UserID    uuid.UUID
	ExpiresAt time.Time
}
