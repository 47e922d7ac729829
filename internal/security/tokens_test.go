package security

import (
	"bytes"
	"strings"
	"testing"
)

func TestRandomStringRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		length   int
		alphabet string
	}{
		{name: "negative length", length: -1, alphabet: "abc"},
		{name: "empty alphabet", length: 1, alphabet: ""},
		{name: "multi-byte alphabet", length: 4, alphabet: "aé"},
	}
	for _, tc := range cases {
		if _, err := RandomString(tc.length, tc.alphabet); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}

	if got, err := RandomString(0, "abc"); err != nil || got != "" {
		t.Fatalf("zero length = %q, %v", got, err)
	}
}

func TestRandomStringStaysInAlphabet(t *testing.T) {
	t.Parallel()

	got, err := RandomString(256, ReadableAlphabet)
	if err != nil {
		t.Fatalf("random string: %v", err)
	}
	if len(got) != 256 {
		t.Fatalf("len = %d, want 256", len(got))
	}
	for _, char := range got {
		if !strings.ContainsRune(ReadableAlphabet, char) {
			t.Fatalf("char %q outside alphabet", char)
		}
	}

	if single, _ := RandomString(5, "X"); single != "XXXXX" {
		t.Fatalf("single character alphabet gave %q", single)
	}
}

func TestRandomStringSkipsBiasedBytes(t *testing.T) {
	t.Parallel()

	// For a 3 character alphabet byte 0xff is rejected, so the first read
	// yields nothing and the second starts with 0x01 0x02.
	source := bytes.NewReader(append(bytes.Repeat([]byte{0xff}, 11), 0x01, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00))
	got, err := randomString(source, 2, "abc")
	if err != nil {
		t.Fatalf("random string: %v", err)
	}
	if got != "bc" {
		t.Fatalf("got %q, want bc", got)
	}
}

func TestRandomStringSurfacesSourceError(t *testing.T) {
	t.Parallel()

	if _, err := randomString(bytes.NewReader(nil), 4, "abc"); err == nil {
		t.Fatal("expected error from exhausted source")
	}
}

func TestGenerators(t *testing.T) {
	t.Parallel()

	id, err := NewEntryID()
	if err != nil || len(id) != EntryIDLength {
		t.Fatalf("entry id %q, %v", id, err)
	}
	token, err := NewVerificationToken()
	if err != nil || len(token) != VerificationTokenLength {
		t.Fatalf("verification token %q, %v", token, err)
	}

	password, err := NewTemporaryPassword(4)
	if err != nil {
		t.Fatalf("temporary password: %v", err)
	}
	if len(password) != minTemporaryPassword || !HasPasswordClasses(password) {
		t.Fatalf("unexpected temporary password %q", password)
	}
}

func TestHasPasswordClasses(t *testing.T) {
	t.Parallel()

	for password, want := range map[string]bool{
		"Abcdefg1": true,
		"abcdefg1": false,
		"ABCDEFG1": false,
		"Abcdefgh": false,
	} {
		if got := HasPasswordClasses(password); got != want {
			t.Fatalf("HasPasswordClasses(%q) = %v, want %v", password, got, want)
		}
	}
}
