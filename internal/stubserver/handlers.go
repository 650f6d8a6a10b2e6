package stubserver

import (
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/dashboard-client/internal/models"
	logctx "github.com/pribylovaa/dashboard-client/internal/pkg/log"
)

const maxUploadSize = 5 << 20

// users

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, ok := s.snapshot(userIDFrom(r.Context()))
	if !ok {
		writeError(w, r, ErrNotFound)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	uid := userIDFrom(r.Context())

	s.mu.Lock()
	u, ok := s.users[uid]
	if ok {
		if name := strings.TrimSpace(req.FirstName + " " + req.LastName); req.Name == "" && name != "" {
			req.Name = name
		}
		if req.Name != "" {
			u.Name = req.Name
		}
		if req.PhotoURL != "" {
			u.PhotoURL = req.PhotoURL
		}
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, r, ErrNotFound)
		return
	}

	s.me(w, r)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())

	s.mu.Lock()
	out := make(map[string]any, len(s.settings[uid]))
	for k, v := range s.settings[uid] {
		out[k] = v
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, out)
}

// updateSettings сохраняет раздел настроек как есть; photo_url раздела
// profile дополнительно попадает в профиль пользователя.
func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	uid := userIDFrom(r.Context())
	section := chi.URLParam(r, "section")

	s.mu.Lock()
	if s.settings[uid] == nil {
		s.settings[uid] = make(map[string]any)
	}
	s.settings[uid][section] = body
	if photo, ok := body["photo_url"].(string); ok && section == "profile" {
		if u, ok := s.users[uid]; ok {
			u.PhotoURL = photo
		}
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, body)
}

// messaging

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.RecipientID == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, r, ErrInvalidArgument)
		return
	}

	if _, ok := s.snapshot(req.RecipientID); !ok {
		writeError(w, r, ErrNotFound)
		return
	}

	uid := userIDFrom(r.Context())
	m := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID(uid, req.RecipientID),
		SenderID:       uid,
		RecipientID:    req.RecipientID,
		Content:        req.Content,
		CreatedAt:      s.now().UTC(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()

	writeData(w, http.StatusCreated, m)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())
	conv := r.URL.Query().Get("conversation_id")
	limit := queryInt(r, "limit", 50)

	s.mu.Lock()
	out := make([]models.Message, 0)
	for _, m := range s.messages {
		if m.SenderID != uid && m.RecipientID != uid {
			continue
		}
		if conv != "" && m.ConversationID != conv {
			continue
		}
		out = append(out, *m)
	}
	s.mu.Unlock()

	if len(out) > limit {
		out = out[len(out)-limit:]
	}

	writeData(w, http.StatusOK, map[string]any{"messages": out})
}

// unreadMessages отдаёт счётчик в data.count, в отличие от уведомлений.
func (s *Server) unreadMessages(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]int{"count": s.unreadMessageCount(userIDFrom(r.Context()))})
}

func (s *Server) readMessage(w http.ResponseWriter, r *http.Request) {
	var req models.MarkMessageReadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	uid := userIDFrom(r.Context())
	now := s.now().UTC()
	found := false

	s.mu.Lock()
	for _, m := range s.messages {
		if m.ID == req.MessageID && m.RecipientID == uid {
			m.IsRead = true
			m.ReadAt = &now
			found = true
		}
	}
	s.mu.Unlock()

	if !found {
		writeError(w, r, ErrNotFound)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"id": req.MessageID})
}

// notifications

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread_only"))
	limit := queryInt(r, "limit", 10)

	s.mu.Lock()
	out := make([]models.Notification, 0)
	list := s.notifications[uid]
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		if unreadOnly && list[i].IsRead {
			continue
		}
		out = append(out, *list[i])
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{"notifications": out})
}

// unreadNotifications отдаёт счётчик в корне конверта.
func (s *Server) unreadNotifications(w http.ResponseWriter, r *http.Request) {
	writeCount(w, s.unreadNotificationCount(userIDFrom(r.Context())))
}

func (s *Server) readNotification(w http.ResponseWriter, r *http.Request) {
	var req models.NotificationIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	uid := userIDFrom(r.Context())
	found := false

	s.mu.Lock()
	for _, n := range s.notifications[uid] {
		if n.ID == req.ID {
			n.IsRead = true
			found = true
		}
	}
	s.mu.Unlock()

	if !found {
		writeError(w, r, ErrNotFound)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"id": req.ID})
}

func (s *Server) readAllNotifications(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())

	s.mu.Lock()
	for _, n := range s.notifications[uid] {
		n.IsRead = true
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{"message": "All notifications marked as read"})
}

func (s *Server) deleteNotification(w http.ResponseWriter, r *http.Request) {
	var req models.NotificationIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	uid := userIDFrom(r.Context())
	found := false

	s.mu.Lock()
	list := s.notifications[uid]
	for i, n := range list {
		if n.ID == req.ID {
			s.notifications[uid] = append(list[:i:i], list[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		writeError(w, r, ErrNotFound)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"id": req.ID})
}

// dashboard

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var req models.DashboardItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		writeError(w, r, ErrInvalidArgument)
		return
	}

	now := s.now().UTC()
	item := &models.DashboardItem{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Category:    req.Category,
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	uid := userIDFrom(r.Context())

	s.mu.Lock()
	s.items[uid] = append(s.items[uid], item)
	s.mu.Unlock()

	writeData(w, http.StatusCreated, item)
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())

	s.mu.Lock()
	out := make([]models.DashboardItem, 0, len(s.items[uid]))
	for _, it := range s.items[uid] {
		out = append(out, *it)
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	var req models.DashboardItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	uid := userIDFrom(r.Context())
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	var out *models.DashboardItem
	for _, it := range s.items[uid] {
		if it.ID != id {
			continue
		}
		if req.Title != "" {
			it.Title = req.Title
		}
		if req.Description != "" {
			it.Description = req.Description
		}
		if req.Status != "" {
			it.Status = req.Status
		}
		if req.Category != "" {
			it.Category = req.Category
		}
		if req.Metadata != nil {
			it.Metadata = req.Metadata
		}
		it.UpdatedAt = s.now().UTC()
		cp := *it
		out = &cp
	}
	s.mu.Unlock()

	if out == nil {
		writeError(w, r, ErrNotFound)
		return
	}

	writeData(w, http.StatusOK, out)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())
	id := chi.URLParam(r, "id")
	found := false

	s.mu.Lock()
	list := s.items[uid]
	for i, it := range list {
		if it.ID == id {
			s.items[uid] = append(list[:i:i], list[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		writeError(w, r, ErrNotFound)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"id": id})
}

// files

func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, ErrInvalidArgument)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, ErrInvalidArgument)
		return
	}

	ct := http.DetectContentType(content)
	if !strings.HasPrefix(ct, "image/") {
		writeError(w, r, ErrInvalidArgument)
		return
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(hdr.Filename))

	s.mu.Lock()
	s.uploads[name] = content
	s.mu.Unlock()

	logctx.From(r.Context()).Info("image_uploaded",
		slog.String("stored_name", name),
		slog.Int("size", len(content)),
	)

	writeData(w, http.StatusCreated, map[string]any{
		"stored_name":   name,
		"original_name": hdr.Filename,
		"size":          len(content),
		"content_type":  ct,
	})
}

func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	content, ok := s.uploads[chi.URLParam(r, "name")]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(content))
	_, _ = w.Write(content)
}

// search

// search ищет по подстроке в пользователях и элементах дашборда.
// Ответ вложенный: {"type":"search_results","data":{"results":[...]}}.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	typ := r.URL.Query().Get("type")
	limit := queryInt(r, "limit", 20)
	uid := userIDFrom(r.Context())

	results := make([]models.SearchResult, 0)

	s.mu.Lock()
	if typ == "" || typ == models.SearchTypeUsers {
		for _, u := range s.users {
			if q != "" && !strings.Contains(strings.ToLower(u.Name+" "+u.Email), q) {
				continue
			}
			results = append(results, models.SearchResult{
				Type: models.SearchTypeUsers, ID: u.ID, Title: u.Name, Snippet: u.Email,
			})
		}
	}
	if typ == "" || typ == models.SearchTypeDashboardItems {
		for _, it := range s.items[uid] {
			if q != "" && !strings.Contains(strings.ToLower(it.Title+" "+it.Description), q) {
				continue
			}
			results = append(results, models.SearchResult{
				Type: models.SearchTypeDashboardItems, ID: it.ID, Title: it.Title, Snippet: it.Description,
			})
		}
	}
	if q != "" {
		s.history[uid] = append(s.history[uid], models.SearchHistoryEntry{
			ID:        uuid.NewString(),
			Query:     q,
			Type:      typ,
			CreatedAt: s.now().UTC().Format(time.RFC3339),
		})
	}
	s.mu.Unlock()

	sort.Slice(results, func(i, j int) bool { return results[i].Title < results[j].Title })
	total := len(results)
	if len(results) > limit {
		results = results[:limit]
	}

	writeData(w, http.StatusOK, map[string]any{
		"type": "search_results",
		"data": models.SearchResponse{Results: results, Total: total, Query: q},
	})
}

func (s *Server) searchHistory(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())
	limit := queryInt(r, "limit", 50)

	s.mu.Lock()
	list := s.history[uid]
	out := make([]models.SearchHistoryEntry, 0, len(list))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{"history": out})
}

func (s *Server) clearSearchHistory(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())

	s.mu.Lock()
	delete(s.history, uid)
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{"message": "Search history cleared"})
}

// queryInt — положительное целое из query или def.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}

	return n
}
