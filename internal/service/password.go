package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pribylovaa/user-manager/internal/storage"
	"github.com/pribylovaa/user-manager/pkg/log"
)

// ChangePasswordInput — данные формы смены пароля.
type ChangePasswordInput struct {
	OldPassword  string
	NewPassword1 string
	NewPassword2 string
}

// ChangePassword меняет пароль пользователя после проверки текущего.
//
// Валидация (FieldErrors):
//   - old_password: обязателен и совпадает с текущим;
//   - new_password1/new_password2: обязательны, совпадают, проходят политику.
//
// Текущая сессия остаётся действительной.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, in ChangePasswordInput) error {
	const op = "service/password/ChangePassword"

	lg := log.From(ctx).With("op", op, "user_id", userID.String())

	if userID == uuid.Nil {
		lg.Warn("invalid argument: empty user_id")

		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on UserByID", "err", err)

		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	fe := FieldErrors{}

	switch {
	case in.OldPassword == "":
		fe.add(FieldOldPassword, MsgRequired)
	case !checkPassword(user.PasswordHash, in.OldPassword):
		fe.add(FieldOldPassword, MsgOldPasswordWrong)
	}

	validatePasswordPair(fe, FieldNewPassword1, FieldNewPassword2, user.Username, in.NewPassword1, in.NewPassword2)

	if len(fe) > 0 {
		return fmt.Errorf("%s: %w", op, fe)
	}

	hash, err := hashPassword(in.NewPassword1)
	if err != nil {
		lg.Error("password hash failed", "err", err)

		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if _, err := s.storage.UpdateUser(ctx, userID, storage.UserUpdate{PasswordHash: &hash}); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on UpdateUser", "err", err)

		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	lg.Info("password_changed")

	return nil
}
