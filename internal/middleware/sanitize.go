package middleware

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxUtteranceLength limita o tamanho de um comando de voz/texto, em bytes
	MaxUtteranceLength = 500
	// MinPasswordLength e MaxPasswordBytes delimitam a senha no cadastro
	MinPasswordLength = 6
	MaxPasswordBytes  = 72

	maxCityLength  = 100
	maxIDLength    = 100
	maxEmailLength = 254
)

var (
	invalidID  = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	validEmail = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)
)

// SanitizeUtterance limpa um comando em texto livre.
// Não escapa HTML: o texto só alimenta o interpretador, que trabalha em minúsculas.
func SanitizeUtterance(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = removeControlChars(text)
	text = strings.TrimSpace(text)
	return truncate(text, MaxUtteranceLength)
}

// SanitizeCity limpa o nome da cidade vindo do formulário
func SanitizeCity(city string) string {
	city = removeControlChars(strings.ReplaceAll(city, "\x00", ""))
	city = strings.TrimSpace(city)
	return truncate(city, maxCityLength)
}

// SanitizeFilename sanitizes a filename by:
// - Removing path traversal attempts
// - Removing dangerous characters
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, "\x00", "")

	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.ReplaceAll(filename, "/", "")
	filename = strings.ReplaceAll(filename, "\\", "")

	filename = removeControlChars(filename)
	filename = strings.TrimSpace(filename)

	if filename == "" || filename == "." {
		return "unnamed_file"
	}

	return filename
}

// SanitizeID sanitizes an ID string (X-Client-ID, session IDs)
func SanitizeID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.ReplaceAll(id, "\x00", "")
	id = invalidID.ReplaceAllString(id, "")
	return truncate(id, maxIDLength)
}

// SanitizeEmail normaliza o email usado como identidade
func SanitizeEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.ReplaceAll(email, "\x00", "")
	email = removeControlChars(email)

	return truncate(email, maxEmailLength)
}

// ValidateEmail checa o formato mínimo local@domínio
func ValidateEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	return validEmail.MatchString(email)
}

// SanitizePassword sanitizes a password (minimal sanitization to preserve special chars)
func SanitizePassword(password string) string {
	password = strings.ReplaceAll(password, "\x00", "")

	var result strings.Builder
	for _, r := range password {
		if !unicode.IsControl(r) || r == '\t' || r == '\n' || r == '\r' {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// ValidatePassword validates password requirements.
// O limite superior é o do bcrypt, que recusa senhas acima de 72 bytes.
func ValidatePassword(password string) bool {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return false
	}

	if len(password) > MaxPasswordBytes {
		return false
	}

	return true
}

// truncate corta s em no máximo n bytes sem partir um caractere UTF-8
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// removeControlChars removes control characters from a string
func removeControlChars(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
