package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/user-manager/internal/metrics"
	"github.com/pribylovaa/user-manager/internal/models"
	"github.com/pribylovaa/user-manager/internal/service"
	"github.com/pribylovaa/user-manager/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// recHandler — slog.Handler, запоминающий последнюю запись и её attrs
// (включая накопленные через With). Без I/O.
type recHandler struct {
	base  []slog.Attr
	msg   string
	level slog.Level
	attrs map[string]any
	n     int
}

func (h *recHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recHandler) Handle(_ context.Context, r slog.Record) error {
	h.attrs = make(map[string]any)
	for _, a := range h.base {
		h.attrs[a.Key] = a.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		h.attrs[a.Key] = a.Value.Any()
		return true
	})

	h.n++
	h.msg = r.Message
	h.level = r.Level

	return nil
}

func (h *recHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.base = append(h.base, attrs...)
	return h
}

func (h *recHandler) WithGroup(string) slog.Handler { return h }

type authFunc func(ctx context.Context, token string) (*models.User, error)

func (f authFunc) Authenticate(ctx context.Context, token string) (*models.User, error) {
	return f(ctx, token)
}

var testCookie = CookieSettings{Name: "session"}

func TestChain_FirstMiddlewareIsOutermost(t *testing.T) {
	var trace []string

	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trace = append(trace, name+">")
				next.ServeHTTP(w, r)
				trace = append(trace, "<"+name)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trace = append(trace, "h")
		w.WriteHeader(http.StatusAccepted)
	}), mw("a"), mw("b"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"a>", "b>", "h", "<b", "<a"}, trace)
	require.Equal(t, http.StatusAccepted, rr.Code)
}

func TestStatusWriter(t *testing.T) {
	sw := newStatusWriter(httptest.NewRecorder())
	require.Equal(t, http.StatusOK, sw.Status())

	_, _ = sw.Write([]byte("abcd"))
	sw.WriteHeader(http.StatusTeapot) // после Write код уже зафиксирован

	require.Equal(t, http.StatusOK, sw.Status())
	require.Equal(t, 4, sw.bytes)
	require.NotNil(t, sw.Unwrap())
}

func TestRequestID(t *testing.T) {
	var fromCtx, fromHeader string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = RequestIDFrom(r.Context())
		fromHeader = r.Header.Get(HeaderRequestID)
	}), RequestID())

	// Генерация.
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	id := rr.Header().Get(HeaderRequestID)
	require.Len(t, id, 32)
	require.Equal(t, id, fromCtx)
	require.Equal(t, id, fromHeader)

	// Входящий id сохраняется.
	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "given-id")
	h.ServeHTTP(rr, req)
	require.Equal(t, "given-id", rr.Header().Get(HeaderRequestID))
	require.Equal(t, "given-id", fromCtx)

	require.Empty(t, RequestIDFrom(context.Background()))
}

func TestTimeout(t *testing.T) {
	var dl time.Time
	var has bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dl, has = r.Context().Deadline()
	})

	Chain(h, Timeout(time.Second)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, has)
	require.WithinDuration(t, time.Now().Add(time.Second), dl, 200*time.Millisecond)

	// Существующий deadline не переопределяется.
	parent, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	Chain(h, Timeout(time.Hour)).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/", nil).WithContext(parent))
	parentDL, _ := parent.Deadline()
	require.Equal(t, parentDL, dl)

	// d <= 0 — no-op.
	Chain(h, Timeout(0)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, has)
}

func TestRecover_PanicBecomes500(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), Recover())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/p", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "boom")

	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "internal", env.Error.Code)
}

func TestLogging_RecordAndRequestScopedLogger(t *testing.T) {
	rec := &recHandler{}

	var ctxLogger *slog.Logger
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxLogger = log.From(r.Context())
		_, _ = w.Write([]byte("0123456789"))
	})

	h := Chain(final, RequestID(), Logging(slog.New(rec)))

	req := httptest.NewRequest(http.MethodGet, "/home/", nil)
	req.Header.Set(HeaderRequestID, "rid-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, ctxLogger)
	require.Equal(t, 1, rec.n)
	require.Equal(t, "http", rec.msg)
	require.Equal(t, slog.LevelInfo, rec.level)
	require.Equal(t, "/home/", rec.attrs["path"])
	require.EqualValues(t, http.StatusOK, rec.attrs["status"])
	require.EqualValues(t, 10, rec.attrs["bytes"])
	require.Equal(t, "rid-1", rec.attrs["request_id"])
}

func TestLogging_ServerErrorsLoggedAsError(t *testing.T) {
	rec := &recHandler{}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), Logging(slog.New(rec)))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, slog.LevelError, rec.level)
}

func TestSession_PopulatesUser(t *testing.T) {
	alice := &models.User{ID: uuid.New(), Username: "alice", IsActive: true}
	auth := authFunc(func(_ context.Context, token string) (*models.User, error) {
		if token == "good" {
			return alice, nil
		}
		return nil, service.ErrUnauthenticated
	})

	var got *models.User
	var ok bool
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = UserFrom(r.Context())
	}), Session(auth, testCookie))

	// Валидная cookie.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "good"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, ok)
	require.Equal(t, alice, got)

	// Без cookie — аноним.
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, ok)

	// Невалидная cookie удаляется.
	rr := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "bad"})
	h.ServeHTTP(rr, req)
	require.False(t, ok)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "session", cookies[0].Name)
	require.Less(t, cookies[0].MaxAge, 0)
}

// Внутренняя ошибка проверки не удаляет cookie: сессия может быть валидной.
func TestSession_InternalErrorKeepsCookie(t *testing.T) {
	auth := authFunc(func(context.Context, string) (*models.User, error) {
		return nil, errors.New("redis down")
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "maybe"})

	Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), Session(auth, testCookie)).ServeHTTP(rr, req)
	require.Empty(t, rr.Result().Cookies())
}

func TestRequireAuth(t *testing.T) {
	called := false
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}), RequireAuth("/login/"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/", nil))
	require.False(t, called)
	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, "/login/?next=/users/", rr.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/users/", nil)
	req = req.WithContext(WithUser(req.Context(), &models.User{ID: uuid.New()}))
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, called)
}

func TestLoginRedirect(t *testing.T) {
	require.Equal(t, "/home/?next=/delete/", LoginRedirect("/home/", "/delete/"))
	require.Equal(t, "/login/?next=/user/a%26b/%3Fx%3D1", LoginRedirect("/login/", "/user/a&b/?x=1"))
}

func TestCookieSettings(t *testing.T) {
	c := CookieSettings{Name: "sid", Secure: true}
	rr := httptest.NewRecorder()
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	c.Set(rr, "tok", exp)

	got := rr.Result().Cookies()
	require.Len(t, got, 1)
	require.Equal(t, "tok", got[0].Value)
	require.True(t, got[0].HttpOnly)
	require.True(t, got[0].Secure)
	require.Equal(t, "/", got[0].Path)
	require.True(t, exp.Equal(got[0].Expires))
}

func TestMetrics_RoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/user/{username}/", func(w http.ResponseWriter, r *http.Request) {})

	for _, p := range []string{"/user/alice/", "/user/bob/", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "user_manager_http_requests_total" {
			continue
		}
		for _, mt := range f.GetMetric() {
			for _, l := range mt.GetLabel() {
				if l.GetName() == "route" {
					counts[l.GetValue()] += mt.GetCounter().GetValue()
				}
			}
		}
	}

	// chi отдаёт шаблон без завершающего слэша.
	require.Equal(t, 2.0, counts["/user/{username}"])
	require.Zero(t, counts["/user/{username}/"])
	require.Equal(t, 1.0, counts["unmatched"])
}
