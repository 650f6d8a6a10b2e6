// models — модели REST-контракта бэкенда дашборда и единая точка
// нормализации «плавающих» полей ответа (id/ID/user_id и т.п.).
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Роли пользователей.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// ErrNoUserID — в ответе нет ни одного из известных полей идентификатора.
var ErrNoUserID = errors.New("user record has no id")

// User — текущий пользователь, как его хранит сессия.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	PhotoURL string `json:"photo_url,omitempty"`
	Status   string `json:"status,omitempty"`
}

// IsAdmin — роль admin или super_admin.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// UpdateProfileRequest — PUT /users/me; пустые поля не отправляются.
type UpdateProfileRequest struct {
	Name      string `json:"name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
}

// ChangePasswordRequest — PUT /users/me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// NormalizeUser разбирает запись пользователя из data-ответа.
//
// Правила отката:
//   - id: "id" -> "ID" -> "user_id" -> "userId"; числа приводятся к строке;
//   - запись может быть обёрнута в {"user": {...}} (ответы /users/me и логина);
//   - name: "name" -> "first_name"+" "+"last_name" -> локальная часть email;
//   - role: пустая роль считается RoleUser.
func NormalizeUser(raw json.RawMessage) (User, error) {
	const op = "models.NormalizeUser"

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	if nested, ok := fields["user"]; ok && !hasAnyKey(fields, "id", "ID", "user_id", "userId") {
		return NormalizeUser(nested)
	}

	u := User{
		ID:       firstString(fields, "id", "ID", "user_id", "userId"),
		Email:    firstString(fields, "email", "Email"),
		Role:     firstString(fields, "role", "Role"),
		PhotoURL: firstString(fields, "photo_url", "photoUrl", "avatar_url"),
		Status:   firstString(fields, "status"),
		Name:     firstString(fields, "name", "Name", "full_name"),
	}

	if u.ID == "" {
		return User{}, fmt.Errorf("%s: %w", op, ErrNoUserID)
	}

	if u.Name == "" {
		u.Name = strings.TrimSpace(firstString(fields, "first_name") + " " + firstString(fields, "last_name"))
	}

	if u.Name == "" {
		if local, _, ok := strings.Cut(u.Email, "@"); ok {
			u.Name = local
		}
	}

	if u.Role == "" {
		u.Role = RoleUser
	}

	return u, nil
}

func hasAnyKey(fields map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := fields[k]; ok {
			return true
		}
	}

	return false
}

// firstString возвращает первое непустое строковое (или числовое) значение по ключам.
func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok {
			continue
		}

		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
			continue
		}

		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			if _, err := strconv.ParseFloat(n.String(), 64); err == nil {
				return n.String()
			}
		}
	}

	return ""
}
