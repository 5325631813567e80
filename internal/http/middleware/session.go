package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/user-manager/internal/models"
	"github.com/pribylovaa/user-manager/internal/service"
	"github.com/pribylovaa/user-manager/pkg/log"
)

// Authenticator проверяет токен сессии и возвращает пользователя.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type userKey struct{}

// WithUser кладёт аутентифицированного пользователя в контекст.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom достаёт пользователя из контекста.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey{}).(*models.User)
	return u, ok && u != nil
}

// CookieSettings — параметры cookie сессии.
type CookieSettings struct {
	Name   string
	Secure bool
}

// Set выставляет cookie сессии до expires.
func (c CookieSettings) Set(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear удаляет cookie сессии у клиента.
func (c CookieSettings) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session читает cookie сессии и, если токен валиден, кладёт пользователя
// в контекст (и user_id в логгер). Невалидная cookie удаляется, запрос
// продолжается анонимно.
func Session(auth Authenticator, cookie CookieSettings) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookie.Name)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()

			user, err := auth.Authenticate(ctx, c.Value)
			if err != nil {
				if errors.Is(err, service.ErrUnauthenticated) {
					cookie.Clear(w)
				} else {
					log.From(ctx).Warn("session_check_failed", slog.String("err", err.Error()))
				}

				next.ServeHTTP(w, r)
				return
			}

			ctx = WithUser(ctx, user)
			ctx = log.With(ctx, slog.String("user_id", user.ID.String()))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth пропускает только аутентифицированные запросы,
// остальные перенаправляет (302) на loginURL?next=<исходный путь>.
func RequireAuth(loginURL string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserFrom(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			http.Redirect(w, r, LoginRedirect(loginURL, r.URL.RequestURI()), http.StatusFound)
		})
	}
}

// LoginRedirect строит адрес перенаправления на страницу входа.
// Слэши в next не экранируются: /login/?next=/users/.
func LoginRedirect(loginURL, next string) string {
	return loginURL + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}
