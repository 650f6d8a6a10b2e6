// redact предоставляет утилиты безопасного редактирования чувствительных
// данных для логов (e-mail, токены, заголовки авторизации).
package redact

import "strings"

// Email маскирует e-mail для логирования.
//
// Правила:
//   - строка должна содержать РОВНО один символ '@', иначе возвращается "***";
//   - локальная часть заменяется на первые два символа (по рунам) + "***";
//   - если длина локальной части ≤ 2 символов — возвращается "***@<domain>".
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := []rune(parts[0]), parts[1]
	if len(local) > 2 {
		return string(local[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// Token скрывает токен, оставляя хвост из 4 символов для сопоставления записей.
// Токены короче 12 символов скрываются целиком.
func Token(s string) string {
	if len(s) < 12 {
		return "[REDACTED_TOKEN]"
	}

	return "[REDACTED_TOKEN]…" + s[len(s)-4:]
}

// Authorization маскирует значение заголовка Authorization, сохраняя схему.
func Authorization(v string) string {
	scheme, token, ok := strings.Cut(v, " ")
	if !ok {
		return Token(v)
	}

	return scheme + " " + Token(token)
}

func Password() string { return "[REDACTED_PASSWORD]" }
