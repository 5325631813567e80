package middleware

import (
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/user-manager/internal/http/errors"
	"github.com/pribylovaa/user-manager/internal/service"
	"github.com/pribylovaa/user-manager/pkg/log"
)

// Recover перехватывает panic и отвечает 500/internal; детали паники только в логе.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "panic",
					slog.String("path", r.URL.Path),
					slog.Any("reason", rec),
				)
				apierrors.WriteError(w, r, service.ErrInternal)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
