package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/user-manager/internal/http/handlers"
	"github.com/pribylovaa/user-manager/internal/http/middleware"
	"github.com/pribylovaa/user-manager/internal/metrics"
)

// Адреса перенаправления неаутентифицированных запросов.
const (
	loginURL = "/login/"
	homeURL  = "/home/"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	Metrics *metrics.Metrics
	Auth    middleware.Authenticator
	Cookie  middleware.CookieSettings
}

// NewRouter собирает http.Handler с chi, мидлварами и маршрутами страниц.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.RequestID(),                     // X-Request-Id до логирования
		middleware.Logging(opts.Logger),            // request-scoped логгер
		middleware.Recover(),                       // паника -> 500 (с логгером запроса)
		middleware.Metrics(opts.Metrics),           // счётчики по шаблону маршрута
		middleware.Timeout(opts.Timeout),           // общий дедлайн запроса
		middleware.Session(opts.Auth, opts.Cookie), // пользователь из cookie
	)

	registerRoutes(root, h)

	return root
}

// registerRoutes — единая точка регистрации страниц.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Get("/", h.Root)
	r.Get("/home/", h.Home)

	// auth
	r.Get("/signup/", h.SignupForm)
	r.Post("/signup/", h.Signup)
	r.Get("/login/", h.LoginForm)
	r.Post("/login/", h.Login)
	r.Post("/logout/", h.Logout)

	// users (только для вошедших)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(loginURL))

		r.Get("/users/", h.UserList)
		r.Get("/user/{username}/", h.UserDetails)
		r.Get("/edit/", h.EditForm)
		r.Post("/edit/", h.Edit)
		r.Get("/password_change/", h.PasswordChangeForm)
		r.Post("/password_change/", h.PasswordChange)
		r.Get("/password_change/done/", h.PasswordChangeDone)
		r.Get("/download/", h.Download)
	})

	// Удаление аккаунта перенаправляет анонимов на главную, а не на вход.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(homeURL))

		r.Get("/delete/", h.DeleteForm)
		r.Post("/delete/", h.Delete)
	})
}
