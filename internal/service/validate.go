package service

import (
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	usernameMaxLen  = 150
	emailMaxLen     = 70
	passwordMinLen  = 8
	passwordMaxLen  = 72 // предел bcrypt в байтах
	randomNumberMin = 1
	randomNumberMax = 100
	storedIntMin    = math.MinInt32
	storedIntMax    = math.MaxInt32
)

// Сообщения валидации, которые видит пользователь.
const (
	MsgRequired          = "This field is required."
	MsgUsernameInvalid   = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	MsgUsernameTaken     = "A user with that username already exists."
	MsgEmailInvalid      = "Enter a valid email address."
	MsgEmailTaken        = "A user with that email already exists."
	MsgPasswordMismatch  = "The two password fields didn't match."
	MsgPasswordShort     = "This password is too short. It must contain at least 8 characters."
	MsgPasswordLong      = "This password is too long. It must contain at most 72 bytes."
	MsgPasswordNumeric   = "This password is entirely numeric."
	MsgPasswordSimilar   = "The password is too similar to the username."
	MsgOldPasswordWrong  = "Your old password was entered incorrectly. Please enter it again."
	MsgDateInvalid       = "Enter a valid date."
	MsgWholeNumber       = "Enter a whole number."
	MsgNumberOutOfBounds = "Ensure this value is between -2147483648 and 2147483647."
)

func maxLenMsg(n int) string {
	return fmt.Sprintf("Ensure this value has at most %d characters.", n)
}

// validateUsername возвращает нормализованный username и сообщение об ошибке ("" — ок).
// Разрешены буквы, цифры и символы @ . + - _.
func validateUsername(raw string) (string, string) {
	username := strings.TrimSpace(raw)
	if username == "" {
		return "", MsgRequired
	}

	if utf8.RuneCountInString(username) > usernameMaxLen {
		return username, maxLenMsg(usernameMaxLen)
	}

	for _, r := range username {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case strings.ContainsRune("@.+-_", r):
		default:
			return username, MsgUsernameInvalid
		}
	}

	return username, ""
}

// validateEmail проверяет формат и длину e-mail и приводит его к нижнему регистру.
func validateEmail(raw string) (string, string) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", MsgRequired
	}

	if utf8.RuneCountInString(email) > emailMaxLen {
		return email, maxLenMsg(emailMaxLen)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return email, MsgEmailInvalid
	}

	return strings.ToLower(email), ""
}

// validatePassword проверяет политику паролей: длина >= 8 рун и <= 72 байт,
// не только цифры, не совпадает с username.
func validatePassword(username, pw string) string {
	if utf8.RuneCountInString(pw) < passwordMinLen {
		return MsgPasswordShort
	}

	if len(pw) > passwordMaxLen {
		return MsgPasswordLong
	}

	numeric := true
	for _, r := range pw {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}

	if numeric {
		return MsgPasswordNumeric
	}

	if username != "" && strings.EqualFold(pw, username) {
		return MsgPasswordSimilar
	}

	return ""
}

// validatePasswordPair проверяет пару пароль/подтверждение в полях f1/f2.
// Ошибки политики, как и несовпадение, относятся к полю подтверждения.
func validatePasswordPair(fe FieldErrors, f1, f2, username, pw1, pw2 string) {
	if pw1 == "" {
		fe.add(f1, MsgRequired)
	}

	if pw2 == "" {
		fe.add(f2, MsgRequired)
	}

	if pw1 == "" || pw2 == "" {
		return
	}

	if pw1 != pw2 {
		fe.add(f2, MsgPasswordMismatch)
		return
	}

	fe.add(f2, validatePassword(username, pw2))
}

// validateStoredInt проверяет, что значение помещается в колонку INTEGER.
func validateStoredInt(n *int) string {
	if n == nil {
		return MsgRequired
	}

	if *n < storedIntMin || *n > storedIntMax {
		return MsgNumberOutOfBounds
	}

	return ""
}

// dateOnly отбрасывает время суток и зону: дата рождения хранится как DATE.
func dateOnly(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}

	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
