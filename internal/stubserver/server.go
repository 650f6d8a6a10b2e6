// stubserver — in-memory реализация REST-контракта бэкенда дашборда.
//
// Используется как stub-backend для локальной разработки CLI и как
// httptest-сервер в тестах пакетов api и poller. Все маршруты живут
// под /v1, загруженные файлы отдаются с корня (/uploads/{name}).
package stubserver

import (
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/dashboard-client/internal/models"
)

// BasePath — префикс REST-маршрутов.
const BasePath = "/v1"

// Options — параметры stub-сервера.
type Options struct {
	Logger          *slog.Logger
	Timeout         time.Duration
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
	// AdminCode — код приглашения для /admin/verify-code и /admin/create.
	AdminCode string
	// Now — часы сервера; nil означает time.Now.
	Now func() time.Time
}

type user struct {
	models.User
	PasswordHash string
}

type Server struct {
	opts Options
	now  func() time.Time

	mu            sync.Mutex
	users         map[string]*user // id -> user
	byEmail       map[string]string
	refresh       map[string]*refreshEntry
	notifications map[string][]*models.Notification
	messages      []*models.Message
	items         map[string][]*models.DashboardItem
	uploads       map[string][]byte
	settings      map[string]map[string]any
	history       map[string][]models.SearchHistoryEntry
}

// New создаёт пустой сервер; пустые параметры заменяются значениями по умолчанию.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.JWTSecret == "" {
		opts.JWTSecret = "stub-secret"
	}
	if opts.AccessTokenTTL <= 0 {
		opts.AccessTokenTTL = 15 * time.Minute
	}
	if opts.RefreshTokenTTL <= 0 {
		opts.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.AdminCode == "" {
		opts.AdminCode = "000000"
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Server{
		opts:          opts,
		now:           now,
		users:         make(map[string]*user),
		byEmail:       make(map[string]string),
		refresh:       make(map[string]*refreshEntry),
		notifications: make(map[string][]*models.Notification),
		items:         make(map[string][]*models.DashboardItem),
		uploads:       make(map[string][]byte),
		settings:      make(map[string]map[string]any),
		history:       make(map[string][]models.SearchHistoryEntry),
	}
}

// Handler собирает chi-роутер с middleware (внешний -> внутренний).
func (s *Server) Handler() http.Handler {
	root := chi.NewRouter()
	root.Use(
		recoverer(),
		requestID(),
		logging(s.opts.Logger),
		timeout(s.opts.Timeout),
	)

	v1 := chi.NewRouter()
	s.registerRoutes(v1)
	root.Mount(BasePath, v1)
	root.Get("/uploads/{name}", s.serveUpload)

	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func (s *Server) registerRoutes(r chi.Router) {
	// auth (публичные)
	r.Post("/auth/signup", s.signup)
	r.Post("/auth/login", s.login)
	r.Post("/auth/refresh", s.refreshTokens)
	r.Post("/auth/forgot-password", s.forgotPassword)
	r.Post("/admin/login", s.adminLogin)
	r.Post("/admin/verify-code", s.adminVerifyCode)
	r.Post("/admin/create", s.adminCreate)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth())

		r.Post("/auth/logout", s.logout)

		// users
		r.Get("/users/me", s.me)
		r.Put("/users/me", s.updateMe)
		r.Get("/users/me/settings", s.getSettings)
		r.Put("/users/me/settings/{section}", s.updateSettings)

		// messaging
		r.Post("/messages", s.sendMessage)
		r.Get("/messages", s.listMessages)
		r.Get("/messages/unread-count", s.unreadMessages)
		r.Post("/messages/read", s.readMessage)

		// notifications
		r.Get("/notifications", s.listNotifications)
		r.Delete("/notifications", s.deleteNotification)
		r.Get("/notifications/unread-count", s.unreadNotifications)
		r.Post("/notifications/read", s.readNotification)
		r.Post("/notifications/read-all", s.readAllNotifications)

		// dashboard
		r.Post("/dashboard/items", s.createItem)
		r.Get("/dashboard/items", s.listItems)
		r.Put("/dashboard/items/{id}", s.updateItem)
		r.Delete("/dashboard/items/{id}", s.deleteItem)

		// files
		r.Post("/files/upload/image", s.uploadImage)

		// search
		r.Get("/search", s.search)
		r.Get("/search/history", s.searchHistory)
		r.Delete("/search/history", s.clearSearchHistory)
	})
}

