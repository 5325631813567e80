package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pribylovaa/user-manager/internal/models"
	"github.com/pribylovaa/user-manager/internal/storage"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты пакета postgres (users.go):
// — поднимают реальный PostgreSQL через testcontainers-go (postgres:16-alpine);
// — применяют миграцию из ./migrations;
// — проверяют:
//    CreateUser: вставку, NULL-поля и ErrAlreadyExists на username/email;
//    UserByID/UserByUsername/UserByEmail: успех и ErrNotFound;
//    UpdateUser: частичное обновление (включая password_hash) и сдвиг updated_at;
//    DeleteUser: удаление и ErrNotFound на повторе;
//    ListUsers: фильтр is_staff/is_active и порядок создания.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// repoRootFromThisFile — корень репозитория относительно файла тестов.
func repoRootFromThisFile() string {
	// internal/storage/postgres/... -> подняться на 3 уровня до корня.
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

func readMigration(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(repoRootFromThisFile(), "migrations", name)
	b, err := os.ReadFile(path)
	require.NoError(t, err, "read migration %s", path)
	return string(b)
}

// startPostgres поднимает контейнер, применяет миграцию и возвращает хранилище.
// Без GO_TEST_INTEGRATION тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "docker.io/postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
		ProviderType:     tc.ProviderDocker,
	})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	var pool *pgxpool.Pool
	require.Eventually(t, func() bool {
		pool, err = pgxpool.New(ctx, dsn)
		return err == nil && pool.Ping(ctx) == nil
	}, 30*time.Second, 500*time.Millisecond)
	defer pool.Close()

	_, err = pool.Exec(ctx, readMigration(t, "1_init_users.up.sql"))
	require.NoError(t, err)

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

func newUser(name string) *models.User {
	birth := time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC)
	rnd := 42
	return &models.User{
		ID:           uuid.New(),
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		BirthDate:    &birth,
		RandomNumber: &rnd,
		IsActive:     true,
	}
}

func boolPtr(b bool) *bool { return &b }

func TestIntegration_CreateUser_And_Lookups_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	want := newUser("alice")

	created, err := st.CreateUser(ctx, want)
	require.NoError(t, err)
	require.Equal(t, want.ID, created.ID)
	require.Equal(t, "alice", created.Username)
	require.NotNil(t, created.BirthDate)
	require.Equal(t, "1990-05-17", created.BirthDateString())
	require.NotNil(t, created.RandomNumber)
	require.Equal(t, 42, *created.RandomNumber)
	require.True(t, created.IsActive)
	require.False(t, created.IsStaff)
	require.WithinDuration(t, time.Now().UTC(), created.CreatedAt, 5*time.Second)

	byID, err := st.UserByID(ctx, want.ID)
	require.NoError(t, err)
	require.Equal(t, created.Username, byID.Username)

	byName, err := st.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, want.ID, byName.ID)

	byEmail, err := st.UserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, want.ID, byEmail.ID)
}

func TestIntegration_CreateUser_NullableFields(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := newUser("nobirth")
	u.BirthDate = nil
	u.RandomNumber = nil

	created, err := st.CreateUser(context.Background(), u)
	require.NoError(t, err)
	require.Nil(t, created.BirthDate)
	require.Nil(t, created.RandomNumber)
	require.Equal(t, "", created.BirthDateString())
}

func TestIntegration_CreateUser_AlreadyExists(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	_, err := st.CreateUser(ctx, newUser("dup"))
	require.NoError(t, err)

	sameName := newUser("dup")
	sameName.Email = "other@example.com"
	_, err = st.CreateUser(ctx, sameName)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	sameEmail := newUser("other")
	sameEmail.Email = "dup@example.com"
	_, err = st.CreateUser(ctx, sameEmail)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_Lookups_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()

	_, err := st.UserByID(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByUsername(ctx, "ghost")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByEmail(ctx, "ghost@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_UpdateUser_Partial(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	created, err := st.CreateUser(ctx, newUser("bob"))
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	rnd := 15
	updated, err := st.UpdateUser(ctx, created.ID, storage.UserUpdate{RandomNumber: &rnd})
	require.NoError(t, err)
	require.Equal(t, "bob", updated.Username)
	require.Equal(t, 15, *updated.RandomNumber)
	require.Equal(t, created.BirthDateString(), updated.BirthDateString())
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	name := "robert"
	birth := time.Date(2015, time.January, 2, 0, 0, 0, 0, time.UTC)
	updated, err = st.UpdateUser(ctx, created.ID, storage.UserUpdate{Username: &name, BirthDate: &birth})
	require.NoError(t, err)
	require.Equal(t, "robert", updated.Username)
	require.Equal(t, "2015-01-02", updated.BirthDateString())

	_, err = st.UpdateUser(ctx, uuid.New(), storage.UserUpdate{Username: &name})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_UpdateUser_UsernameTaken(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	_, err := st.CreateUser(ctx, newUser("first"))
	require.NoError(t, err)
	second, err := st.CreateUser(ctx, newUser("second"))
	require.NoError(t, err)

	name := "first"
	_, err = st.UpdateUser(ctx, second.ID, storage.UserUpdate{Username: &name})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_UpdateUser_PasswordHash(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	created, err := st.CreateUser(ctx, newUser("carol"))
	require.NoError(t, err)

	hash := "$2a$10$new-hash"
	updated, err := st.UpdateUser(ctx, created.ID, storage.UserUpdate{PasswordHash: &hash})
	require.NoError(t, err)
	require.Equal(t, hash, updated.PasswordHash)
	require.Equal(t, created.Username, updated.Username)
	require.Equal(t, *created.RandomNumber, *updated.RandomNumber)
}

func TestIntegration_DeleteUser(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	created, err := st.CreateUser(ctx, newUser("gone"))
	require.NoError(t, err)

	require.NoError(t, st.DeleteUser(ctx, created.ID))
	require.ErrorIs(t, st.DeleteUser(ctx, created.ID), storage.ErrNotFound)

	_, err = st.UserByID(ctx, created.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_ListUsers_Filter(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()

	regular1 := newUser("regular1")
	regular2 := newUser("regular2")
	staff := newUser("staff")
	staff.IsStaff = true
	inactive := newUser("inactive")
	inactive.IsActive = false

	for _, u := range []*models.User{regular1, staff, inactive, regular2} {
		_, err := st.CreateUser(ctx, u)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	got, err := st.ListUsers(ctx, storage.UserFilter{IsStaff: boolPtr(false), IsActive: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "regular1", got[0].Username)
	require.Equal(t, "regular2", got[1].Username)

	all, err := st.ListUsers(ctx, storage.UserFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
}

func TestIntegration_ContextDeadline(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := st.ListUsers(ctx, storage.UserFilter{})
	require.Error(t, err)
}
