package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/terraincognita07/liberate/internal/logging"
)

var errPasswordRequired = errors.New("password is required")

// PromptPassword asks for a password on the terminal without echo. Piped
// input that is not a terminal is read as is.
func PromptPassword(out io.Writer, stdin *os.File) (string, error) {
	if stdin == nil {
		return "", errors.New("stdin unavailable")
	}

	fmt.Fprint(out, "Password: ")
	restore, err := disableEcho(stdin)
	if err != nil {
		logging.Debug().Err(err).Msg("terminal echo left on")
	} else {
		defer restore()
	}

	password, err := readPasswordLine(stdin)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return password, nil
}

func readPasswordLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	password := strings.TrimSpace(line)
	if password == "" {
		return "", errPasswordRequired
	}
	return password, nil
}
