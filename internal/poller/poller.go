// poller — периодический опрос счётчиков непрочитанного.
//
// Каждый Poller — независимая горутина: между собой и с обновлением
// токена поллеры не координируются, общий у них только токен сессии
// внутри apiclient.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/dashboard-client/internal/api"
	"github.com/pribylovaa/dashboard-client/internal/apiclient"
	"github.com/pribylovaa/dashboard-client/internal/metrics"
	logctx "github.com/pribylovaa/dashboard-client/internal/pkg/log"
	"github.com/pribylovaa/dashboard-client/internal/session"
)

// Интервалы по умолчанию.
const (
	DefaultMessagesInterval      = 10 * time.Second
	DefaultNotificationsInterval = 15 * time.Second
)

var (
	ErrNoFetch      = errors.New("poller has no fetch func")
	ErrZeroInterval = errors.New("poller interval must be positive")
)

// Poller опрашивает один счётчик.
type Poller struct {
	Name     string
	Interval time.Duration
	Fetch    func(ctx context.Context) (int, error)
	// Enabled проверяется перед каждым тиком; nil — всегда включён.
	Enabled func(ctx context.Context) bool
	// OnCount вызывается после каждого успешного опроса.
	OnCount func(n int)
}

// Run опрашивает сразу и далее каждые Interval до отмены ctx.
// Ошибки опроса логируются и не прерывают цикл; исключение —
// apiclient.ErrSessionExpired: сессии больше нет, Run возвращает её.
func (p *Poller) Run(ctx context.Context) error {
	const op = "poller.Run"

	if p.Fetch == nil {
		return fmt.Errorf("%s: %w", op, ErrNoFetch)
	}
	if p.Interval <= 0 {
		return fmt.Errorf("%s: %w", op, ErrZeroInterval)
	}

	ctx = logctx.With(ctx, slog.String("poller", p.Name))
	lg := logctx.From(ctx)
	lg.Info("poll_start", slog.Duration("interval", p.Interval))

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		if err := p.tick(ctx, lg); err != nil {
			lg.Warn("poll_stop", slog.String("err", err.Error()))
			return fmt.Errorf("%s: %s: %w", op, p.Name, err)
		}

		select {
		case <-ctx.Done():
			lg.Info("poll_stop")
			return nil
		case <-ticker.C:
		}
	}
}

// tick — один опрос. Возвращает ошибку только если цикл надо остановить.
func (p *Poller) tick(ctx context.Context, lg *slog.Logger) error {
	if p.Enabled != nil && !p.Enabled(ctx) {
		lg.Debug("poll_disabled")
		return nil
	}

	n, err := p.Fetch(ctx)
	if err != nil {
		if errors.Is(err, apiclient.ErrSessionExpired) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		lg.Warn("poll_error", slog.String("err", err.Error()))
		return nil
	}

	lg.Debug("poll_ok", slog.Int("count", n))
	if p.OnCount != nil {
		p.OnCount(n)
	}

	return nil
}

// Messages — поллер непрочитанных сообщений; выключается флагом
// session.KeyMessagingEnabled.
func Messages(a *api.API, store session.Store, m *metrics.Client, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultMessagesInterval
	}

	return &Poller{
		Name:     metrics.KindMessages,
		Interval: interval,
		Fetch:    a.Messaging.UnreadCount,
		Enabled: func(ctx context.Context) bool {
			return session.Enabled(ctx, store, session.KeyMessagingEnabled)
		},
		OnCount: func(n int) { m.SetUnread(metrics.KindMessages, n) },
	}
}

// Notifications — поллер непрочитанных уведомлений; выключается флагом
// session.KeyNotificationsEnabled.
func Notifications(a *api.API, store session.Store, m *metrics.Client, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultNotificationsInterval
	}

	return &Poller{
		Name:     metrics.KindNotifications,
		Interval: interval,
		Fetch:    a.Notifications.UnreadCount,
		Enabled: func(ctx context.Context) bool {
			return session.Enabled(ctx, store, session.KeyNotificationsEnabled)
		},
		OnCount: func(n int) { m.SetUnread(metrics.KindNotifications, n) },
	}
}
