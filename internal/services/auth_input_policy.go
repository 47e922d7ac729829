package services

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/terraincognita07/liberate/internal/security"
)

var (
	ErrAuthCredentialsInvalid      = errors.New("auth credentials invalid")
	ErrAuthVerificationTokenFormat = errors.New("verification token format invalid")
)

func NormalizeAuthEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return ""
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ""
	}
	return email
}

func NormalizeCredentialsInput(emailRaw string, passwordRaw string) (string, string, error) {
	email := NormalizeAuthEmail(emailRaw)
	password := strings.TrimSpace(passwordRaw)
	if email == "" || password == "" {
		return "", "", ErrAuthCredentialsInvalid
	}
	return email, password, nil
}

func ValidateVerificationTokenFormat(token string) error {
	token = strings.TrimSpace(token)
	if len(token) != security.VerificationTokenLength {
		return ErrAuthVerificationTokenFormat
	}
	for _, char := range token {
		if !strings.ContainsRune(security.ReadableAlphabet, char) {
			return ErrAuthVerificationTokenFormat
		}
	}
	return nil
}
