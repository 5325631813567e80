// storage содержит контракты слоя хранилищ user-manager.
//
// UserStorage — учётные записи в БД (создание/чтение/частичное обновление/удаление/выборка).
// ExportArchive — архив выгрузок CSV в S3/MinIO.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/user-manager/internal/models"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email).
	ErrAlreadyExists = errors.New("already exists")
)

// UserFilter — условия выборки пользователей. nil-поле не фильтрует.
type UserFilter struct {
	IsStaff  *bool
	IsActive *bool
}

// UserUpdate — частичный апдейт пользователя.
// Обновляются только непустые указатели.
type UserUpdate struct {
	Username     *string
	BirthDate    *time.Time
	RandomNumber *int
	PasswordHash *string
}

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// CreateUser создаёт пользователя и возвращает запись с серверными полями.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByUsername находит пользователя по username.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateUser выполняет частичное обновление; updated_at сдвигается всегда.
	UpdateUser(ctx context.Context, id uuid.UUID, update UserUpdate) (*models.User, error)
	// DeleteUser удаляет пользователя.
	DeleteUser(ctx context.Context, id uuid.UUID) error
	// ListUsers возвращает пользователей по фильтру в порядке создания.
	ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error)
}

// Storage — верхнеуровневый интерфейс хранилища.
type Storage interface {
	UserStorage
	Close()
}

// ExportArchive сохраняет копии выгруженных CSV-документов.
type ExportArchive interface {
	// PutExport сохраняет документ под именем name и возвращает ключ объекта.
	PutExport(ctx context.Context, name string, data []byte) (string, error)
}
