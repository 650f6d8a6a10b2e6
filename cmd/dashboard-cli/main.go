// dashboard-cli — консольный клиент REST-бэкенда дашборда.
//
// Использование:
//
//	dashboard-cli [-config path] <command> [flags]
//
// Команды: login, logout, me, status, unread, search, watch.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/dashboard-client/internal/api"
	"github.com/pribylovaa/dashboard-client/internal/apiclient"
	"github.com/pribylovaa/dashboard-client/internal/config"
	"github.com/pribylovaa/dashboard-client/internal/metrics"
	logctx "github.com/pribylovaa/dashboard-client/internal/pkg/log"
	"github.com/pribylovaa/dashboard-client/internal/session"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// Коды выхода.
const (
	exitOK             = 0
	exitError          = 1
	exitUsage          = 2
	exitSessionExpired = 3
)

// app — собранные зависимости одной команды.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    *session.KVStore
	client   *apiclient.Client
	metrics  *metrics.Client
	api      *api.API
	registry *prometheus.Registry
	out      io.Writer

	expired atomic.Bool
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"login", "login -email E -password P [-admin]", runLogin},
	{"logout", "logout", runLogout},
	{"me", "me", runMe},
	{"status", "status", runStatus},
	{"unread", "unread", runUnread},
	{"search", "search -q QUERY [-type T] [-limit N]", runSearch},
	{"watch", "watch", runWatch},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("dashboard-cli", flag.ContinueOnError)
	var configPath string
	fs.StringVar(&configPath, "config", "", "path to config file")
	fs.Usage = func() { usage(fs.Output()) }

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if fs.NArg() == 0 {
		usage(os.Stderr)
		return exitUsage
	}

	cmd, ok := lookup(fs.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", fs.Arg(0))
		usage(os.Stderr)
		return exitUsage
	}

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	ctx, cancel := context.WithCancel(logctx.Into(rootCtx, log))
	defer cancel()

	a, err := newApp(ctx, cfg, log, out, cancel)
	if err != nil {
		log.Error("init_failed", slog.String("err", err.Error()))
		return exitError
	}
	defer a.close()

	err = cmd.run(ctx, a, fs.Args()[1:])

	switch {
	case a.expired.Load() || errors.Is(err, apiclient.ErrSessionExpired):
		fmt.Fprintln(os.Stderr, "session expired, please log in again")
		return exitSessionExpired
	case errors.Is(err, flag.ErrHelp):
		return exitUsage
	case err != nil:
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitError
	}

	return exitOK
}

// newApp собирает хранилище сессии, метрики и клиента. onExpired — общий
// слушатель истечения сессии: помечает приложение и отменяет ctx команды.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, out io.Writer, cancel context.CancelFunc) (*app, error) {
	const op = "main.newApp"

	store, err := session.New(ctx, cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		registry: prometheus.NewRegistry(),
		out:      out,
	}

	a.metrics, err = metrics.New(a.registry)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.client, err = apiclient.New(cfg.API.BaseURL, store, apiclient.Options{
		Logger:    log,
		Timeout:   cfg.Timeouts.Request,
		UserAgent: cfg.API.UserAgent,
		Metrics:   a.metrics,
		OnSessionExpired: func(context.Context) {
			a.expired.Store(true)
			log.Warn("session_expired_listener", slog.String("action", "exit"))
			cancel()
		},
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.api = api.New(a.client, store)

	return a, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("session_close_failed", slog.String("err", err.Error()))
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}

	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: dashboard-cli [-config path] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %s\n", c.usage)
	}
}

// setupLogger пишет в stderr: stdout занят выводом команд.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
