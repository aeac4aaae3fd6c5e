package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"saku/internal/models"
)

// MinPasswordLength is the shortest password accepted for new credentials.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateName trims name and rejects it if empty.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", models.Invalid("name", "must not be empty")
	}
	return name, nil
}

// ValidateEmail trims email and checks its shape.
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", models.Invalid("email", "must not be empty")
	}
	if !emailPattern.MatchString(email) {
		return "", models.Invalid("email", "is not a valid address")
	}
	return email, nil
}

// ValidatePassword checks a password chosen by the user.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return models.Invalid("password", "must be at least 6 characters")
	}
	return nil
}
