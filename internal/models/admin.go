package models

// AdminVerifyRequest — POST /admin/verify-code, первый шаг создания администратора.
type AdminVerifyRequest struct {
	VerificationCode string `json:"verification_code"`
}

// AdminCreateRequest — POST /admin/create; код из AdminVerifyRequest обязателен.
type AdminCreateRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	VerificationCode string `json:"verification_code"`
}

type AdminUserRequest struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	Status   string `json:"status,omitempty"`
}
