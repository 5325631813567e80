package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/user-manager/internal/metrics"
	"github.com/pribylovaa/user-manager/internal/models"
	"github.com/pribylovaa/user-manager/internal/pkg/redact"
	"github.com/pribylovaa/user-manager/internal/storage"
	"github.com/pribylovaa/user-manager/pkg/log"
	"golang.org/x/crypto/bcrypt"
)

// SignupInput — данные формы регистрации.
type SignupInput struct {
	Username  string
	Email     string
	BirthDate *time.Time
	Password1 string
	Password2 string
}

// SuperuserInput — данные для создания суперпользователя.
// IsStaff/IsSuperuser: nil означает true, явный false отклоняется.
type SuperuserInput struct {
	Username    string
	Email       string
	Password    string
	IsStaff     *bool
	IsSuperuser *bool
}

// Signup регистрирует пользователя и открывает для него сессию.
//
// Валидация (ошибки по полям возвращаются как FieldErrors):
//   - username: обязателен, <= 150 символов, буквы/цифры/@.+-_, уникален;
//   - email: обязателен, <= 70 символов, корректный формат, уникален;
//   - birth_date: обязательна;
//   - password1/password2: обязательны, совпадают, проходят политику.
//
// RandomNumber назначается случайно из 1..100.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, *models.Session, error) {
	const op = "service/auth/Signup"

	lg := log.From(ctx).With("op", op, "email", redact.Email(in.Email))

	fe := FieldErrors{}

	username, msg := validateUsername(in.Username)
	fe.add(FieldUsername, msg)

	email, msg := validateEmail(in.Email)
	fe.add(FieldEmail, msg)

	if dateOnly(in.BirthDate) == nil {
		fe.add(FieldBirthDate, MsgRequired)
	}

	validatePasswordPair(fe, FieldPassword1, FieldPassword2, username, in.Password1, in.Password2)

	if err := s.checkUnique(ctx, fe, username, email, uuid.Nil); err != nil {
		lg.Error("storage error on uniqueness check", "err", err)

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if len(fe) > 0 {
		lg.Warn("signup validation failed", "fields", len(fe))

		return nil, nil, fmt.Errorf("%s: %w", op, fe)
	}

	hash, err := hashPassword(in.Password1)
	if err != nil {
		lg.Error("password hash failed", "err", err)

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	n := s.randomNumber()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		BirthDate:    dateOnly(in.BirthDate),
		RandomNumber: &n,
		IsActive:     true,
	}

	created, err := s.storage.CreateUser(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			// Гонка: username или email заняли между проверкой и вставкой.
			lg.Warn("user already exists")

			return nil, nil, fmt.Errorf("%s: %w", op, s.conflictFields(ctx, username, email))
		default:
			lg.Error("storage error on CreateUser", "err", err)

			return nil, nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	session, err := s.issueSession(ctx, created)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Signup()
	lg.Info("user_signed_up", "user_id", created.ID.String())

	return created, session, nil
}

// Login выполняет вход по username+пароль.
// Несуществующий, неактивный пользователь и неверный пароль неразличимы: ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, *models.Session, error) {
	const op = "service/auth/Login"

	lg := log.From(ctx).With("op", op)

	username, msg := validateUsername(username)
	if msg != "" || password == "" {
		s.metrics.Login(metrics.LoginRejected)

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.Login(metrics.LoginRejected)

			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		s.metrics.Login(metrics.LoginError)
		lg.Error("storage error on UserByUsername", "err", err)

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if !user.IsActive || !checkPassword(user.PasswordHash, password) {
		s.metrics.Login(metrics.LoginRejected)
		lg.Warn("login rejected", "user_id", user.ID.String())

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		s.metrics.Login(metrics.LoginError)

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Login(metrics.LoginOK)

	return user, session, nil
}

// Logout отзывает сессию до момента её естественного истечения.
// Невалидный токен или отсутствие кэша — no-op: клиенту достаточно удалить cookie.
func (s *Service) Logout(ctx context.Context, token string) error {
	const op = "service/auth/Logout"

	if s.sessions == nil {
		return nil
	}

	claims, _, err := s.parseSession(token)
	if err != nil {
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.sessions.Revoke(ctx, claims.ID, ttl); err != nil {
		log.From(ctx).Error("session revoke failed", "op", op, "err", err)

		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return nil
}

// Authenticate возвращает пользователя по токену сессии.
// Пользователь должен существовать и быть активным, сессия — не отозвана.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	const op = "service/auth/Authenticate"

	lg := log.From(ctx).With("op", op)

	claims, uid, err := s.parseSession(token)
	if err != nil {
		lg.Debug("session rejected", "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	if s.sessions != nil {
		revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
		if err != nil {
			lg.Error("session cache error", "err", err)

			return nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}

		if revoked {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
		}
	}

	user, err := s.storage.UserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
		}

		lg.Error("storage error on UserByID", "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	return user, nil
}

// CreateSuperuser создаёт активного пользователя с флагами staff и superuser.
func (s *Service) CreateSuperuser(ctx context.Context, in SuperuserInput) (*models.User, error) {
	const op = "service/auth/CreateSuperuser"

	lg := log.From(ctx).With("op", op, "email", redact.Email(in.Email))

	if (in.IsStaff != nil && !*in.IsStaff) || (in.IsSuperuser != nil && !*in.IsSuperuser) {
		lg.Warn("invalid argument: superuser must have is_staff and is_superuser")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	fe := FieldErrors{}

	username, msg := validateUsername(in.Username)
	fe.add(FieldUsername, msg)

	email, msg := validateEmail(in.Email)
	fe.add(FieldEmail, msg)

	if in.Password == "" {
		fe.add(FieldPassword1, MsgRequired)
	} else {
		fe.add(FieldPassword1, validatePassword(username, in.Password))
	}

	if err := s.checkUnique(ctx, fe, username, email, uuid.Nil); err != nil {
		lg.Error("storage error on uniqueness check", "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if len(fe) > 0 {
		return nil, fmt.Errorf("%s: %w", op, fe)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		lg.Error("password hash failed", "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	n := s.randomNumber()
	created, err := s.storage.CreateUser(ctx, &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		RandomNumber: &n,
		IsStaff:      true,
		IsActive:     true,
		IsSuperuser:  true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}

		lg.Error("storage error on CreateUser", "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	lg.Info("superuser_created", "user_id", created.ID.String())

	return created, nil
}

// checkUnique проверяет занятость username/email (если поля валидны).
// self — пользователь, которому разрешено уже владеть значением.
func (s *Service) checkUnique(ctx context.Context, fe FieldErrors, username, email string, self uuid.UUID) error {
	if username != "" && !fe.has(FieldUsername) {
		u, err := s.storage.UserByUsername(ctx, username)
		switch {
		case err == nil && u.ID != self:
			fe.add(FieldUsername, MsgUsernameTaken)
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}
	}

	if email != "" && !fe.has(FieldEmail) {
		u, err := s.storage.UserByEmail(ctx, email)
		switch {
		case err == nil && u.ID != self:
			fe.add(FieldEmail, MsgEmailTaken)
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}
	}

	return nil
}

// conflictFields повторяет проверку уникальности после конфликта вставки.
// Если занятое поле определить не удалось, ошибка относится к username.
func (s *Service) conflictFields(ctx context.Context, username, email string) FieldErrors {
	fe := FieldErrors{}
	if err := s.checkUnique(ctx, fe, username, email, uuid.Nil); err != nil || len(fe) == 0 {
		return FieldErrors{FieldUsername: MsgUsernameTaken}
	}

	return fe
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
