package stubserver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/dashboard-client/internal/models"
)

// Seed заводит пользователя напрямую, минуя /auth/signup. Возвращает его id.
func (s *Server) Seed(email, password, name, role string) (string, error) {
	const op = "stubserver.Seed"

	hash, err := s.hashPassword(password)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if role == "" {
		role = models.RoleUser
	}

	u := &user{
		User: models.User{
			ID:     uuid.NewString(),
			Name:   name,
			Email:  strings.ToLower(strings.TrimSpace(email)),
			Role:   role,
			Status: "active",
		},
		PasswordHash: hash,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return "", fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}

	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID

	return u.ID, nil
}

// AddNotification кладёт непрочитанное уведомление пользователю.
func (s *Server) AddNotification(userID, title, message string) string {
	n := &models.Notification{
		ID:        uuid.NewString(),
		Type:      "system",
		Title:     title,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.notifications[userID] = append(s.notifications[userID], n)
	s.mu.Unlock()

	return n.ID
}

func (s *Server) userByEmail(email string) (*user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, false
	}

	return s.users[id], true
}

// snapshot — копия публичной части пользователя для ответа.
func (s *Server) snapshot(id string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, false
	}

	return u.User, true
}

func (s *Server) unreadNotificationCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, item := range s.notifications[userID] {
		if !item.IsRead {
			n++
		}
	}

	return n
}

func (s *Server) unreadMessageCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, m := range s.messages {
		if m.RecipientID == userID && !m.IsRead {
			n++
		}
	}

	return n
}

// conversationID — стабильный id диалога двух пользователей.
func conversationID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0] + ":" + ids[1]
}
