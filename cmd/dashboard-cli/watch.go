package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pribylovaa/dashboard-client/internal/poller"
)

// runWatch запускает оба поллера и локальный HTTP с /livez, /healthz и /metrics.
// Завершается по сигналу или когда сессия истекла.
func runWatch(ctx context.Context, a *app, _ []string) error {
	const op = "main.runWatch"

	access, err := a.store.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if access == "" {
		return fmt.Errorf("%s: not logged in", op)
	}

	m := a.metrics
	pollers := []*poller.Poller{
		poller.Messages(a.api, a.store, m, a.cfg.Polling.Messages),
		poller.Notifications(a.api, a.store, m, a.cfg.Polling.Notifications),
	}

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

	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	httpAddr := a.cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("%s: listen %s: %w", op, httpAddr, err)
	}

	a.log.Info("http_listen_start", slog.String("addr", httpAddr))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: serve: %w", op, err)
		}
		return nil
	})

	for _, p := range pollers {
		p := p
		g.Go(func() error { return p.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		atomic.StoreInt32(&ready, 0)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
		} else {
			a.log.Info("http_stopped")
		}
		return nil
	})

	atomic.StoreInt32(&ready, 1)
	a.log.Info("watch_ready")

	return g.Wait()
}
