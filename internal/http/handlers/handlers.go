// handlers содержит HTTP-обработчики страниц user-manager.
// Страницы рендерятся через html/template с фильтрами derive
// (calculate_age, get_bizz_fuzz); ошибки вне форм отдаются через apierrors.
package handlers

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/user-manager/internal/derive"
	apierrors "github.com/pribylovaa/user-manager/internal/http/errors"
	"github.com/pribylovaa/user-manager/internal/http/middleware"
	"github.com/pribylovaa/user-manager/internal/models"
	"github.com/pribylovaa/user-manager/internal/service"
	"github.com/pribylovaa/user-manager/pkg/log"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Страницы (имена файлов в templates/).
const (
	pageHome    = "home.html"
	pageSignup  = "signup.html"
	pageLogin   = "login.html"
	pageList    = "user_list.html"
	pageDetails = "user_details.html"
	pageEdit    = "user_edit.html"
	pageDelete  = "user_delete.html"

	pagePasswordChange     = "password_change.html"
	pagePasswordChangeDone = "password_change_done.html"
)

var pages = []string{
	pageHome, pageSignup, pageLogin, pageList, pageDetails, pageEdit, pageDelete,
	pagePasswordChange, pagePasswordChangeDone,
}

// Service — операции сервисного слоя, нужные обработчикам.
type Service interface {
	Signup(ctx context.Context, in service.SignupInput) (*models.User, *models.Session, error)
	Login(ctx context.Context, username, password string) (*models.User, *models.Session, error)
	Logout(ctx context.Context, token string) error
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in service.UpdateProfileInput) (*models.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, in service.ChangePasswordInput) error
	ExportUsersCSV(ctx context.Context, w io.Writer) (service.ExportResult, error)
	Now() time.Time
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc    Service
	cookie middleware.CookieSettings
	tpl    map[string]*template.Template
}

// New парсит шаблоны страниц и возвращает обработчики.
func New(svc Service, cookie middleware.CookieSettings) (*Handlers, error) {
	const op = "http/handlers/New"

	funcs := derive.FuncMap(svc.Now)
	tpl := make(map[string]*template.Template, len(pages))

	for _, p := range pages {
		t, err := template.New(p).Funcs(funcs).ParseFS(templatesFS, "templates/base.html", "templates/"+p)
		if err != nil {
			return nil, fmt.Errorf("%s: parse %s: %w", op, p, err)
		}

		tpl[p] = t
	}

	return &Handlers{svc: svc, cookie: cookie, tpl: tpl}, nil
}

// Flash-уровни.
const (
	levelSuccess = "success"
	levelError   = "error"
)

// Message — одноразовое уведомление на странице.
type Message struct {
	Level string
	Text  string
}

// pageData — общий контекст шаблонов.
type pageData struct {
	Section  string
	User     *models.User
	Messages []Message
	Form     form
	Users    []models.User
	Details  *models.User
	Own      bool
	Next     string
}

// render исполняет шаблон в буфер и только затем пишет ответ:
// ошибка шаблона не оставляет клиенту половину страницы.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data *pageData) {
	if data.User == nil {
		data.User, _ = middleware.UserFrom(r.Context())
	}

	var buf bytes.Buffer
	if err := h.tpl[page].ExecuteTemplate(&buf, "base", data); err != nil {
		log.From(r.Context()).Error("template_render_failed",
			slog.String("page", page),
			slog.String("err", err.Error()),
		)
		apierrors.WriteError(w, r, service.ErrInternal)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// currentUser возвращает пользователя из контекста.
// Маршруты с RequireAuth гарантируют его наличие.
func currentUser(r *http.Request) *models.User {
	u, _ := middleware.UserFrom(r.Context())
	return u
}

// sessionToken возвращает значение cookie сессии или "".
func (h *Handlers) sessionToken(r *http.Request) string {
	c, err := r.Cookie(h.cookie.Name)
	if err != nil {
		return ""
	}

	return c.Value
}
