package stubserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pribylovaa/dashboard-client/internal/models"
	logctx "github.com/pribylovaa/dashboard-client/internal/pkg/log"
	"github.com/pribylovaa/dashboard-client/internal/pkg/redact"
)

type sessionView struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if !strings.Contains(req.Email, "@") || req.Password == "" {
		writeError(w, r, ErrInvalidArgument)
		return
	}

	name := req.Name
	if name == "" {
		name = strings.TrimSpace(req.FirstName + " " + req.LastName)
	}

	id, err := s.Seed(req.Email, req.Password, name, models.RoleUser)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logctx.From(r.Context()).Info("signup_ok",
		slog.String("user_id", id),
		slog.String("email", redact.Email(req.Email)),
	)

	u, _ := s.snapshot(id)
	writeData(w, http.StatusCreated, map[string]any{"user": u})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	u, sess, err := s.authenticate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"session": sess, "user": u})
}

// adminLogin — как login, но только для admin/super_admin; профиль в data.admin.
func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	u, sess, err := s.authenticate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !u.IsAdmin() {
		s.revokeUserTokens(u.ID)
		writeError(w, r, ErrForbidden)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"session": sess, "admin": u})
}

// authenticate проверяет пару email/пароль и выпускает сессию.
func (s *Server) authenticate(r *http.Request) (models.User, sessionView, error) {
	lg := logctx.From(r.Context())

	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		return models.User{}, sessionView{}, err
	}

	u, ok := s.userByEmail(req.Email)
	if !ok || !checkPassword(u.PasswordHash, req.Password) {
		lg.Warn("login_failed", slog.String("email", redact.Email(req.Email)))
		return models.User{}, sessionView{}, ErrInvalidCredentials
	}

	sess, err := s.issueSession(&u.User)
	if err != nil {
		return models.User{}, sessionView{}, err
	}

	lg.Info("login_ok",
		slog.String("user_id", u.ID),
		slog.String("email", redact.Email(u.Email)),
	)

	view, _ := s.snapshot(u.ID)
	return view, sess, nil
}

func (s *Server) issueSession(u *models.User) (sessionView, error) {
	now := s.now()

	access, exp, err := s.generateAccessToken(u, now)
	if err != nil {
		return sessionView{}, err
	}

	return sessionView{
		Token:        access,
		RefreshToken: s.issueRefreshToken(u.ID, now),
		ExpiresAt:    exp.UTC(),
	}, nil
}

// refreshTokens — ротация: старый refresh-токен отзывается, выдаётся новая пара.
func (s *Server) refreshTokens(w http.ResponseWriter, r *http.Request) {
	lg := logctx.From(r.Context())

	var req models.RefreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, r, ErrInvalidToken)
		return
	}

	uid, err := s.rotateRefreshToken(req.RefreshToken, s.now())
	if err != nil {
		lg.Warn("refresh_rejected", slog.String("err", err.Error()))
		writeError(w, r, err)
		return
	}

	u, ok := s.snapshot(uid)
	if !ok {
		writeError(w, r, ErrInvalidToken)
		return
	}

	sess, err := s.issueSession(&u)
	if err != nil {
		writeError(w, r, err)
		return
	}

	lg.Info("refresh_ok", slog.String("user_id", uid))

	writeData(w, http.StatusOK, map[string]any{
		"access_token":  sess.Token,
		"refresh_token": sess.RefreshToken,
		"expires_at":    sess.ExpiresAt,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())
	s.revokeUserTokens(uid)

	logctx.From(r.Context()).Info("logout_ok", slog.String("user_id", uid))

	writeData(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

// forgotPassword всегда отвечает успехом, чтобы не раскрывать наличие email.
func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"message": "If the email exists, a reset link has been sent"})
}

func (s *Server) adminVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req models.AdminVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.VerificationCode != s.opts.AdminCode {
		writeError(w, r, ErrForbidden)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"valid": true})
}

func (s *Server) adminCreate(w http.ResponseWriter, r *http.Request) {
	var req models.AdminCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.VerificationCode != s.opts.AdminCode {
		writeError(w, r, ErrForbidden)
		return
	}

	id, err := s.Seed(req.Email, req.Password, req.Name, models.RoleAdmin)
	if err != nil {
		writeError(w, r, err)
		return
	}

	u, _ := s.snapshot(id)
	writeData(w, http.StatusCreated, map[string]any{"admin": u})
}
