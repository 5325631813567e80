package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/user-manager/internal/models"
	"github.com/pribylovaa/user-manager/internal/storage"
	"github.com/pribylovaa/user-manager/pkg/log"
)

// UpdateProfileInput — данные формы редактирования профиля. Все поля обязательны.
type UpdateProfileInput struct {
	Username     string
	BirthDate    *time.Time
	RandomNumber *int
}

// listedUsers — выборка для списка и CSV: активные пользователи без staff.
func listedUsers() storage.UserFilter {
	staff, active := false, true
	return storage.UserFilter{IsStaff: &staff, IsActive: &active}
}

// UserByUsername возвращает активного пользователя по username.
//
// Поведение:
//   - пустой username — ErrInvalidArgument;
//   - отсутствующий или неактивный пользователь — ErrNotFound;
//   - иные ошибки стораджа маппятся в ErrInternal.
func (s *Service) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "service/users/UserByUsername"

	lg := log.From(ctx).With("op", op)

	username = strings.TrimSpace(username)
	if username == "" {
		lg.Warn("invalid argument: empty username")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		default:
			lg.Error("storage error on UserByUsername", "err", err)

			return nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return user, nil
}

// ListUsers возвращает активных пользователей без staff в порядке создания.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "service/users/ListUsers"

	users, err := s.storage.ListUsers(ctx, listedUsers())
	if err != nil {
		log.From(ctx).Error("storage error on ListUsers", "op", op, "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return users, nil
}

// UpdateProfile обновляет username, дату рождения и случайное число пользователя.
//
// Валидация (FieldErrors): username по правилам регистрации и уникален среди
// других пользователей; birth_date и random_number обязательны, число
// помещается в INTEGER.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*models.User, error) {
	const op = "service/users/UpdateProfile"

	lg := log.From(ctx).With("op", op, "user_id", userID.String())

	if userID == uuid.Nil {
		lg.Warn("invalid argument: empty user_id")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	fe := FieldErrors{}

	username, msg := validateUsername(in.Username)
	fe.add(FieldUsername, msg)

	birth := dateOnly(in.BirthDate)
	if birth == nil {
		fe.add(FieldBirthDate, MsgRequired)
	}

	fe.add(FieldRandomNumber, validateStoredInt(in.RandomNumber))

	if err := s.checkUnique(ctx, fe, username, "", userID); err != nil {
		lg.Error("storage error on uniqueness check", "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if len(fe) > 0 {
		return nil, fmt.Errorf("%s: %w", op, fe)
	}

	n := *in.RandomNumber
	updated, err := s.storage.UpdateUser(ctx, userID, storage.UserUpdate{
		Username:     &username,
		BirthDate:    birth,
		RandomNumber: &n,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			lg.Warn("user not found")

			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		case errors.Is(err, storage.ErrAlreadyExists):
			// Гонка: username заняли между проверкой и обновлением.
			return nil, fmt.Errorf("%s: %w", op, FieldErrors{FieldUsername: MsgUsernameTaken})
		default:
			lg.Error("storage error on UpdateUser", "err", err)

			return nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	lg.Info("profile_updated")

	return updated, nil
}

// DeleteUser удаляет учётную запись пользователя.
func (s *Service) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	const op = "service/users/DeleteUser"

	lg := log.From(ctx).With("op", op, "user_id", userID.String())

	if userID == uuid.Nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if err := s.storage.DeleteUser(ctx, userID); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		default:
			lg.Error("storage error on DeleteUser", "err", err)

			return fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	lg.Info("user_deleted")

	return nil
}
