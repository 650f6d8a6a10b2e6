package models

import (
	"encoding/json"
	"strings"
)

type SignupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	Name             string `json:"name"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Phone            string `json:"phone,omitempty"`
	MarketingConsent bool   `json:"marketing_consent"`
	TermsAccepted    bool   `json:"terms_accepted"`
	TermsVersion     string `json:"terms_version"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me,omitempty"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type VerifyRequest struct {
	Token string `json:"token,omitempty"`
	Code  string `json:"code,omitempty"`
	Email string `json:"email,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenPair — пара токенов сессии. RefreshToken может быть пустым:
// ротация refresh-токена опциональна и решается бэкендом.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokensFrom достаёт пару токенов из data-ответа логина или refresh.
//
// Порядок поиска access-токена: session.token -> session.access_token ->
// access_token -> token. Refresh-токен: session.refresh_token -> refresh_token.
func TokensFrom(data json.RawMessage) TokenPair {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return TokenPair{}
	}

	var pair TokenPair
	if raw, ok := fields["session"]; ok {
		var sess map[string]json.RawMessage
		if err := json.Unmarshal(raw, &sess); err == nil {
			pair.AccessToken = firstString(sess, "token", "access_token")
			pair.RefreshToken = firstString(sess, "refresh_token")
		}
	}

	if pair.AccessToken == "" {
		pair.AccessToken = firstString(fields, "access_token", "token")
	}

	if pair.RefreshToken == "" {
		pair.RefreshToken = firstString(fields, "refresh_token")
	}

	pair.AccessToken = strings.TrimSpace(pair.AccessToken)
	pair.RefreshToken = strings.TrimSpace(pair.RefreshToken)

	return pair
}

// LoginResult — итог логина, уже сохранённый в сессию.
type LoginResult struct {
	User   User
	Tokens TokenPair
}
