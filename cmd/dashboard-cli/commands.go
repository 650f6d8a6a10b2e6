package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/errgroup"

	"github.com/pribylovaa/dashboard-client/internal/models"
)

var errMissingFlag = errors.New("missing required flag")

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login", a.out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	admin := fs.Bool("admin", false, "log in through /admin/login")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" || *password == "" {
		return fmt.Errorf("login: -email and -password: %w", errMissingFlag)
	}

	req := models.LoginRequest{Email: *email, Password: *password}

	login := a.api.Auth.Login
	if *admin {
		login = a.api.Admin.Login
	}

	res, err := login(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "logged in as %s <%s> (%s)\n", res.User.Name, res.User.Email, res.User.Role)
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.api.Auth.Logout(ctx); err != nil {
		return err
	}

	// Истёкшая сессия при выходе не повод для exitSessionExpired.
	a.expired.Store(false)

	fmt.Fprintln(a.out, "logged out")
	return nil
}

func runMe(ctx context.Context, a *app, _ []string) error {
	u, err := a.api.Users.Me(ctx)
	if err != nil {
		return err
	}

	return printJSON(a.out, u)
}

// runStatus показывает сессию без сетевых вызовов. Срок токена читается
// из claims без проверки подписи: секрет есть только у бэкенда.
func runStatus(ctx context.Context, a *app, _ []string) error {
	access, err := a.store.AccessToken(ctx)
	if err != nil {
		return err
	}

	if access == "" {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}

	u, err := a.store.User(ctx)
	if err != nil {
		return err
	}
	if u != nil {
		fmt.Fprintf(a.out, "user:    %s <%s> (%s)\n", u.Name, u.Email, u.Role)
	}

	refresh, err := a.store.RefreshToken(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "refresh: %t\n", refresh != "")

	exp, ok := tokenExpiry(access)
	switch {
	case !ok:
		fmt.Fprintln(a.out, "access:  opaque token, expiry unknown")
	case time.Now().After(exp):
		fmt.Fprintf(a.out, "access:  expired at %s (will refresh on next call)\n", exp.Format(time.RFC3339))
	default:
		fmt.Fprintf(a.out, "access:  valid until %s\n", exp.Format(time.RFC3339))
	}

	return nil
}

func tokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.Time, true
}

// runUnread опрашивает оба счётчика параллельно.
func runUnread(ctx context.Context, a *app, _ []string) error {
	var messages, notifications int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := a.api.Messaging.UnreadCount(gctx)
		messages = n
		return err
	})
	g.Go(func() error {
		n, err := a.api.Notifications.UnreadCount(gctx)
		notifications = n
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "messages:      %d\nnotifications: %d\n", messages, notifications)
	return nil
}

func runSearch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("search", a.out)
	q := fs.String("q", "", "search query")
	typ := fs.String("type", "", "users|dashboard_items|messages|notifications|locations")
	limit := fs.Int("limit", 20, "max results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *q == "" {
		return fmt.Errorf("search: -q: %w", errMissingFlag)
	}

	res, err := a.api.Search.Search(ctx, models.SearchParams{Query: *q, Type: *typ, Limit: *limit})
	if err != nil {
		return err
	}

	return printJSON(a.out, res)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
