// Package security generates the random identifiers and secrets handed to
// users: journal entry ids, verification tokens and temporary passwords.
package security

import (
	"crypto/rand"
	"errors"
	"io"
	"strings"
)

const (
	// ReadableAlphabet leaves out characters that are easy to misread
	// (0/O, 1/l/I).
	ReadableAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
	EntryIDAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"

	EntryIDLength           = 7
	VerificationTokenLength = 24
	minTemporaryPassword    = 8
)

var (
	errNegativeLength  = errors.New("length must be non-negative")
	errAlphabetSize    = errors.New("alphabet must hold 1 to 256 characters")
	errAlphabetNotUTF8 = errors.New("alphabet must be single-byte characters")
)

// RandomString draws length characters uniformly from alphabet using
// crypto/rand. Bytes at or above the largest multiple of len(alphabet) are
// rejected so no character is favoured.
func RandomString(length int, alphabet string) (string, error) {
	return randomString(rand.Reader, length, alphabet)
}

func randomString(source io.Reader, length int, alphabet string) (string, error) {
	if length < 0 {
		return "", errNegativeLength
	}
	if len(alphabet) == 0 || len(alphabet) > 256 {
		return "", errAlphabetSize
	}
	for index := 0; index < len(alphabet); index++ {
		if alphabet[index] >= 0x80 {
			return "", errAlphabetNotUTF8
		}
	}
	if length == 0 {
		return "", nil
	}

	size := len(alphabet)
	limit := 256 - 256%size
	out := make([]byte, 0, length)
	buffer := make([]byte, length+length/2+8)
	for len(out) < length {
		if _, err := io.ReadFull(source, buffer); err != nil {
			return "", err
		}
		for _, value := range buffer {
			if int(value) >= limit {
				continue
			}
			out = append(out, alphabet[int(value)%size])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

func NewEntryID() (string, error) {
	return RandomString(EntryIDLength, EntryIDAlphabet)
}

func NewVerificationToken() (string, error) {
	return RandomString(VerificationTokenLength, ReadableAlphabet)
}

// NewTemporaryPassword returns a readable password that always mixes upper
// case, lower case and digits.
func NewTemporaryPassword(length int) (string, error) {
	if length < minTemporaryPassword {
		length = minTemporaryPassword
	}
	for {
		password, err := RandomString(length, ReadableAlphabet)
		if err != nil {
			return "", err
		}
		if HasPasswordClasses(password) {
			return password, nil
		}
	}
}

// HasPasswordClasses reports whether password holds at least one upper case
// ASCII letter, one lower case ASCII letter and one digit.
func HasPasswordClasses(password string) bool {
	return strings.ContainsAny(password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") &&
		strings.ContainsAny(password, "abcdefghijklmnopqrstuvwxyz") &&
		strings.ContainsAny(password, "0123456789")
}
