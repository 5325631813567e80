// service содержит бизнес-логику user-manager:
// регистрацию и вход, сессии (JWT в cookie), операции над профилем,
// выборку пользователей и CSV-выгрузку с производными полями.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования при потокобезопасном хранилище.
//   - Ошибки хранилища маппятся в ошибки сервиса (ниже), а HTTP-слой
//     маппит их на статусы (см. internal/http/errors).
//   - Кэш отозванных сессий, архив выгрузок и метрики опциональны.
package service

import (
	"errors"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/pribylovaa/user-manager/internal/cache"
	"github.com/pribylovaa/user-manager/internal/config"
	"github.com/pribylovaa/user-manager/internal/metrics"
	"github.com/pribylovaa/user-manager/internal/storage"
)

var (
	// ErrInvalidArgument — некорректные входные данные. HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound — сущность не найдена. HTTP 404.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — конфликт уникальности. HTTP 409.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidCredentials — неверная пара логин/пароль или неактивный пользователь. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated — токен сессии невалиден, истёк или отозван. HTTP 401.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInternal — внутренняя ошибка сервиса. HTTP 500.
	ErrInternal = errors.New("internal")
)

// Имена полей форм.
const (
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldBirthDate    = "birth_date"
	FieldRandomNumber = "random_number"
	FieldPassword1    = "password1"
	FieldPassword2    = "password2"
	FieldOldPassword  = "old_password"
	FieldNewPassword1 = "new_password1"
	FieldNewPassword2 = "new_password2"
)

// FieldErrors — ошибки валидации по полям формы (поле -> сообщение).
// Оборачивает ErrInvalidArgument, поэтому errors.Is(err, ErrInvalidArgument) == true.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}

	return "invalid argument: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) Unwrap() error { return ErrInvalidArgument }

// add записывает первую ошибку поля; пустое сообщение игнорируется.
func (fe FieldErrors) add(field, msg string) {
	if msg == "" {
		return
	}

	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

func (fe FieldErrors) has(field string) bool {
	_, ok := fe[field]
	return ok
}

// Service описывает бизнес-логику user-manager.
type Service struct {
	storage  storage.Storage
	cfg      config.AuthConfig
	sessions cache.SessionCache    // может быть nil
	archive  storage.ExportArchive // может быть nil
	metrics  *metrics.Metrics      // может быть nil

	now          func() time.Time
	randomNumber func() int
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage:      storage,
		cfg:          cfg,
		now:          time.Now,
		randomNumber: func() int { return rand.IntN(randomNumberMax-randomNumberMin+1) + randomNumberMin },
	}
}

// SetSessionCache устанавливает кэш отозванных сессий (опционально).
func (s *Service) SetSessionCache(c cache.SessionCache) {
	s.sessions = c
}

// SetExportArchive устанавливает архив CSV-выгрузок (опционально).
func (s *Service) SetExportArchive(a storage.ExportArchive) {
	s.archive = a
}

// SetMetrics устанавливает метрики (опционально).
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetClock подменяет источник текущего времени (nil — time.Now).
func (s *Service) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}

	s.now = now
}

// Now возвращает текущее время сервиса (используется шаблонами).
func (s *Service) Now() time.Time {
	return s.now()
}
