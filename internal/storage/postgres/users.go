package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pribylovaa/user-manager/internal/models"
	"github.com/pribylovaa/user-manager/internal/storage"
)

// userColumns — единый список колонок таблицы users для SELECT/RETURNING,
// чтобы порядок сканирования всегда совпадал со scanUser.
const userColumns = `
id, username, email, password_hash, birth_date, random_number,
is_staff, is_active, is_superuser, created_at, updated_at
`

// scanUser сканирует одну строку в доменную модель.
// NULL в birth_date/random_number превращается в nil-указатели.
func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User

	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.BirthDate,
		&user.RandomNumber,
		&user.IsStaff,
		&user.IsActive,
		&user.IsSuperuser,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &user, nil
}

// CreateUser вставляет нового пользователя.
// Ошибки: storage.ErrAlreadyExists при конфликте username/email, иные — как есть.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage/postgres/users/CreateUser"

	q := `
	INSERT INTO users (id, username, email, password_hash, birth_date, random_number,
	                   is_staff, is_active, is_superuser)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING
	` + userColumns

	row := s.db.QueryRow(ctx, q,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.BirthDate,
		user.RandomNumber,
		user.IsStaff,
		user.IsActive,
		user.IsSuperuser,
	)

	result, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// UserByID возвращает пользователя по id.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage/postgres/users/UserByID"

	return s.userBy(ctx, op, `id = $1`, id)
}

// UserByUsername возвращает пользователя по username (точное совпадение).
func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage/postgres/users/UserByUsername"

	return s.userBy(ctx, op, `username = $1`, username)
}

// UserByEmail возвращает пользователя по email.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage/postgres/users/UserByEmail"

	return s.userBy(ctx, op, `email = $1`, email)
}

func (s *Storage) userBy(ctx context.Context, op, where string, arg any) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	result, err := scanUser(s.db.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// UpdateUser выполняет частичный апдейт: обновляет только поля,
// заданные непустыми указателями, и всегда сдвигает updated_at = now().
// Ошибки: storage.ErrNotFound, storage.ErrAlreadyExists (username занят).
func (s *Storage) UpdateUser(ctx context.Context, id uuid.UUID, update storage.UserUpdate) (*models.User, error) {
	const op = "storage/postgres/users/UpdateUser"

	sets := []string{"updated_at = now()"}
	args := make([]any, 0, 5)
	count := 0

	if update.Username != nil {
		count++
		sets = append(sets, fmt.Sprintf("username = $%d", count))
		args = append(args, *update.Username)
	}

	if update.BirthDate != nil {
		count++
		sets = append(sets, fmt.Sprintf("birth_date = $%d", count))
		args = append(args, *update.BirthDate)
	}

	if update.RandomNumber != nil {
		count++
		sets = append(sets, fmt.Sprintf("random_number = $%d", count))
		args = append(args, *update.RandomNumber)
	}

	if update.PasswordHash != nil {
		count++
		sets = append(sets, fmt.Sprintf("password_hash = $%d", count))
		args = append(args, *update.PasswordHash)
	}

	count++
	args = append(args, id)

	q := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), count, userColumns)

	result, err := scanUser(s.db.QueryRow(ctx, q, args...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		case isUniqueViolation(err):
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// DeleteUser удаляет пользователя по id.
// Ошибки: storage.ErrNotFound, если записи нет.
func (s *Storage) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const op = "storage/postgres/users/DeleteUser"

	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ListUsers возвращает пользователей по фильтру в порядке создания.
func (s *Storage) ListUsers(ctx context.Context, filter storage.UserFilter) ([]models.User, error) {
	const op = "storage/postgres/users/ListUsers"

	var (
		where []string
		args  []any
	)

	if filter.IsStaff != nil {
		args = append(args, *filter.IsStaff)
		where = append(where, fmt.Sprintf("is_staff = $%d", len(args)))
	}

	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}

	q := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
