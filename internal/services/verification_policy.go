package services

import (
	"context"
	"strings"

	"github.com/terraincognita07/liberate/internal/logging"
	"github.com/terraincognita07/liberate/internal/security"
	"golang.org/x/crypto/bcrypt"
)

// VerificationSender delivers an email verification token to its owner.
type VerificationSender interface {
	SendVerification(ctx context.Context, email string, token string) error
}

// LogMailer writes verification tokens to the log for self-hosted setups
// without outgoing mail.
type LogMailer struct{}

func (LogMailer) SendVerification(_ context.Context, email string, token string) error {
	logging.Info().Str("email", email).Str("verification_token", token).Msg("email verification requested")
	return nil
}

// GenerateVerificationToken returns a token and its bcrypt hash; only the
// hash is stored.
func GenerateVerificationToken() (string, string, error) {
	token, err := security.NewVerificationToken()
	if err != nil {
		return "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return token, string(hash), nil
}

func verificationTokenMatches(hash string, token string) bool {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(token))) == nil
}
