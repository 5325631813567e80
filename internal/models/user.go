// models содержит доменные сущности user-manager.
// Эти типы используются слоями бизнес-логики, хранилища и HTTP.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User — учётная запись пользователя.
// BirthDate и RandomNumber опциональны: nil означает отсутствие значения.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	BirthDate    *time.Time
	RandomNumber *int
	IsStaff      bool
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DateLayout — текстовое представление даты рождения (как у колонки DATE).
const DateLayout = "2006-01-02"

// BirthDateString возвращает дату рождения в формате DateLayout или "".
func (u *User) BirthDateString() string {
	if u == nil || u.BirthDate == nil || u.BirthDate.IsZero() {
		return ""
	}

	return u.BirthDate.Format(DateLayout)
}
