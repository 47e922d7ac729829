package services

import (
	"errors"
	"testing"

	"github.com/terraincognita07/liberate/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type stubAccountRepository struct {
	user       models.User
	found      bool
	deleted    bool
	mustChange bool
}

func (stub *stubAccountRepository) FindByID(uint) (models.User, error) {
	if !stub.found {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return stub.user, nil
}

func (stub *stubAccountRepository) UpdatePassword(_ uint, passwordHash string, mustChangePassword bool) error {
	stub.user.PasswordHash = passwordHash
	stub.mustChange = mustChangePassword
	return nil
}

func (stub *stubAccountRepository) DeleteAccountAndDocuments(uint) error {
	stub.deleted = true
	return nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func TestValidatePasswordChange(t *testing.T) {
	t.Parallel()

	service := NewAccountService(nil)
	hash := mustHash(t, "StrongPass1")

	cases := []struct {
		name    string
		current string
		next    string
		confirm string
		want    error
	}{
		{name: "blank", current: " ", next: "NewPass1", confirm: "NewPass1", want: ErrPasswordChangeInvalidInput},
		{name: "mismatch", current: "StrongPass1", next: "NewPass1", confirm: "OtherPass1", want: ErrPasswordMismatch},
		{name: "wrong current", current: "WrongPass1", next: "NewPass1", confirm: "NewPass1", want: ErrInvalidCurrentPassword},
		{name: "unchanged", current: "StrongPass1", next: "StrongPass1", confirm: "StrongPass1", want: ErrNewPasswordMustDiffer},
		{name: "weak", current: "StrongPass1", next: "12345678", confirm: "12345678", want: ErrWeakPassword},
		{name: "valid", current: "StrongPass1", next: "NewStrong2", confirm: "NewStrong2"},
	}
	for _, tc := range cases {
		err := service.ValidatePasswordChange(hash, tc.current, tc.next, tc.confirm)
		if tc.want == nil && err != nil {
			t.Fatalf("%s: expected nil, got %v", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestChangePasswordClearsForcedChange(t *testing.T) {
	t.Parallel()

	repo := &stubAccountRepository{found: true, user: models.User{ID: 1, PasswordHash: mustHash(t, "TempPass12"), MustChangePassword: true}}
	repo.mustChange = true
	service := NewAccountService(repo)

	if err := service.ChangePassword(1, "TempPass12", "NewStrong2", "NewStrong2"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if repo.mustChange {
		t.Fatal("expected forced change flag cleared")
	}
	if bcrypt.CompareHashAndPassword([]byte(repo.user.PasswordHash), []byte("NewStrong2")) != nil {
		t.Fatal("expected new password stored")
	}
}

func TestDeleteAccountRequiresPassword(t *testing.T) {
	t.Parallel()

	repo := &stubAccountRepository{found: true, user: models.User{ID: 1, PasswordHash: mustHash(t, "StrongPass1")}}
	service := NewAccountService(repo)

	if err := service.DeleteAccount(1, "   "); !errors.Is(err, ErrAccountPasswordMissing) {
		t.Fatalf("expected ErrAccountPasswordMissing, got %v", err)
	}
	if err := service.DeleteAccount(1, "WrongPass1"); !errors.Is(err, ErrAccountPasswordInvalid) {
		t.Fatalf("expected ErrAccountPasswordInvalid, got %v", err)
	}
	if repo.deleted {
		t.Fatal("account must not be deleted without the password")
	}
	if err := service.DeleteAccount(1, "  StrongPass1  "); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !repo.deleted {
		t.Fatal("expected account deleted")
	}

	missing := NewAccountService(&stubAccountRepository{})
	if err := missing.DeleteAccount(9, "StrongPass1"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
