package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/user-manager/internal/cache"
	"github.com/pribylovaa/user-manager/internal/config"
	httpserver "github.com/pribylovaa/user-manager/internal/http"
	"github.com/pribylovaa/user-manager/internal/http/handlers"
	"github.com/pribylovaa/user-manager/internal/http/middleware"
	"github.com/pribylovaa/user-manager/internal/metrics"
	"github.com/pribylovaa/user-manager/internal/pkg/redact"
	"github.com/pribylovaa/user-manager/internal/service"
	"github.com/pribylovaa/user-manager/internal/storage/minio"
	"github.com/pribylovaa/user-manager/internal/storage/postgres"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	os.Exit(run())
}

// run поднимает сервис и возвращает код выхода; defer-ы отрабатывают до os.Exit.
func run() int {
	var (
		configPath      string
		createSuperuser bool
		username        string
		email           string
		password        string
	)

	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.BoolVar(&createSuperuser, "create-superuser", false, "create a superuser and exit")
	flag.StringVar(&username, "username", "", "superuser username (with --create-superuser)")
	flag.StringVar(&email, "email", "", "superuser email (with --create-superuser)")
	flag.StringVar(&password, "password", "", "superuser password (with --create-superuser)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting user-manager", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	usersStore, err := postgres.New(dbCtx, cfg.Postgres.URL)
	dbCancel()
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		return 1
	}
	defer usersStore.Close()
	log.Info("postgres_connected")

	svc := service.New(usersStore, cfg.Auth)

	if createSuperuser {
		return runCreateSuperuser(rootCtx, log, svc, username, email, password)
	}

	if cfg.Redis.URL != "" {
		redisCtx, redisCancel := context.WithTimeout(rootCtx, 5*time.Second)
		sessions, err := cache.NewRedisCache(redisCtx, cfg.Redis.URL, cfg.Redis.Prefix)
		redisCancel()
		if err != nil {
			log.Error("redis_connect_failed", slog.String("err", err.Error()))
			return 1
		}
		defer sessions.Close()

		svc.SetSessionCache(sessions)
		log.Info("redis_connected")
	} else {
		log.Warn("redis_disabled: logout only clears the cookie")
	}

	if cfg.Archive.Enabled {
		s3Ctx, s3Cancel := context.WithTimeout(rootCtx, 10*time.Second)
		archive, err := minio.New(s3Ctx, cfg.Archive)
		s3Cancel()
		if err != nil {
			log.Error("minio_connect_failed", slog.String("err", err.Error()))
			return 1
		}

		svc.SetExportArchive(archive)
		log.Info("minio_connected", slog.String("bucket", cfg.Archive.Bucket))
	}

	m := metrics.New(nil)
	svc.SetMetrics(m)
	log.Info("service_initialized")

	cookie := middleware.CookieSettings{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure}

	h, err := handlers.New(svc, cookie)
	if err != nil {
		log.Error("templates_parse_failed", slog.String("err", err.Error()))
		return 1
	}

	pages := httpserver.NewRouter(h, httpserver.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
		Metrics: m,
		Auth:    svc,
		Cookie:  cookie,
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		if err := usersStore.Ping(r.Context()); err != nil {
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", pages)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)

	code := 0

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
			code = 1
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	}

	log.Info("service_stopped")

	return code
}

// runCreateSuperuser создаёт суперпользователя и возвращает код выхода.
func runCreateSuperuser(ctx context.Context, log *slog.Logger, svc *service.Service, username, email, password string) int {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	u, err := svc.CreateSuperuser(ctx, service.SuperuserInput{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		log.Error("create_superuser_failed", slog.String("err", err.Error()))
		return 1
	}

	log.Info("superuser_created",
		slog.String("username", u.Username),
		slog.String("email", redact.Email(u.Email)),
	)

	return 0
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
