// metrics — Prometheus-коллекторы клиента: исходящие запросы, refresh и
// счётчики непрочитанного. Методы безопасны на nil-получателе, поэтому
// клиент без метрик просто передаёт nil.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dashboard_client"

// Результаты refresh.
const (
	RefreshOK      = "ok"
	RefreshFailed  = "failed"
	RefreshSkipped = "skipped" // нет сохранённого refresh-токена
)

// Виды счётчиков непрочитанного.
const (
	KindMessages      = "messages"
	KindNotifications = "notifications"
)

// StatusNetworkError — метка status для запросов, не получивших ответа.
const StatusNetworkError = "network_error"

type Client struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	refresh  *prometheus.CounterVec
	unread   *prometheus.GaugeVec
}

// New регистрирует коллекторы в reg. nil reg означает prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Client, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Client{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Outgoing API requests by method and HTTP status.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Outgoing API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Access token refresh attempts by result.",
		}, []string{"result"}),
		unread: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unread",
			Help:      "Last polled unread counter.",
		}, []string{"kind"}),
	}

	for _, col := range []prometheus.Collector{c.requests, c.duration, c.refresh, c.unread} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ObserveRequest учитывает один HTTP-обмен. status == 0 — ответа не было.
func (c *Client) ObserveRequest(method string, status int, dur time.Duration) {
	if c == nil {
		return
	}

	label := StatusNetworkError
	if status > 0 {
		label = strconv.Itoa(status)
	}

	c.requests.WithLabelValues(method, label).Inc()
	c.duration.WithLabelValues(method).Observe(dur.Seconds())
}

func (c *Client) ObserveRefresh(result string) {
	if c == nil {
		return
	}

	c.refresh.WithLabelValues(result).Inc()
}

func (c *Client) SetUnread(kind string, n int) {
	if c == nil {
		return
	}

	c.unread.WithLabelValues(kind).Set(float64(n))
}
