package cli

import (
	"fmt"
	"io"

	"github.com/terraincognita07/liberate/internal/identity"
)

type EmailVerifier interface {
	MarkVerifiedByEmail(email string) (identity.Identity, error)
}

func RunVerifyEmailCommand(verifier EmailVerifier, email string, out io.Writer) error {
	verified, err := verifier.MarkVerifiedByEmail(email)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	fmt.Fprintf(out, "✅ %s verified (%s)\n", verified.Email, verified.ID)
	return nil
}
