package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/dashboard-client/internal/config"
	"github.com/pribylovaa/dashboard-client/internal/models"
	"github.com/pribylovaa/dashboard-client/internal/stubserver"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var (
		configPath    string
		seedEmail     string
		seedPassword  string
		adminEmail    string
		adminPassword string
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.StringVar(&seedEmail, "seed-email", "demo@example.com", "email of the seeded user (empty to skip)")
	flag.StringVar(&seedPassword, "seed-password", "demo", "password of the seeded user")
	flag.StringVar(&adminEmail, "admin-email", "admin@example.com", "email of the seeded admin (empty to skip)")
	flag.StringVar(&adminPassword, "admin-password", "admin", "password of the seeded admin")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting stub-backend", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	stub := stubserver.New(stubserver.Options{
		Logger:          log,
		Timeout:         cfg.Timeouts.Request,
		JWTSecret:       cfg.Stub.JWTSecret,
		AccessTokenTTL:  cfg.Stub.AccessTokenTTL,
		RefreshTokenTTL: cfg.Stub.RefreshTokenTTL,
	})

	seed := func(email, password, name, role string) {
		if email == "" {
			return
		}

		id, err := stub.Seed(email, password, name, role)
		if err != nil {
			log.Error("seed_failed", slog.String("email", email), slog.String("err", err.Error()))
			os.Exit(1)
		}

		if role == models.RoleUser {
			stub.AddNotification(id, "Welcome", "Your dashboard is ready")
		}

		log.Info("seeded", slog.String("email", email), slog.String("role", role), slog.String("user_id", id))
	}
	seed(seedEmail, seedPassword, "Demo User", models.RoleUser)
	seed(adminEmail, adminPassword, "Admin", models.RoleAdmin)

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", stub.Handler())

	httpAddr := cfg.Stub.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr), slog.String("base_path", stubserver.BasePath))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("stub_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
