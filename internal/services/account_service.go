package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/terraincognita07/liberate/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrPasswordChangeInvalidInput = errors.New("password change invalid input")
	ErrPasswordMismatch           = errors.New("password mismatch")
	ErrInvalidCurrentPassword     = errors.New("invalid current password")
	ErrNewPasswordMustDiffer      = errors.New("new password must differ")
	ErrAccountPasswordMissing     = errors.New("account password missing")
	ErrAccountPasswordInvalid     = errors.New("account password invalid")
)

type AccountUserRepository interface {
	FindByID(userID uint) (models.User, error)
	UpdatePassword(userID uint, passwordHash string, mustChangePassword bool) error
	DeleteAccountAndDocuments(userID uint) error
}

// AccountService covers the signed-in user's own credentials and account
// removal.
type AccountService struct {
	users AccountUserRepository
}

func NewAccountService(users AccountUserRepository) *AccountService {
	return &AccountService{users: users}
}

func (service *AccountService) ValidatePasswordChange(passwordHash string, currentPassword string, newPassword string, confirmPassword string) error {
	currentPassword = strings.TrimSpace(currentPassword)
	newPassword = strings.TrimSpace(newPassword)
	confirmPassword = strings.TrimSpace(confirmPassword)

	if currentPassword == "" || newPassword == "" || confirmPassword == "" {
		return ErrPasswordChangeInvalidInput
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(currentPassword)) != nil {
		return ErrInvalidCurrentPassword
	}
	if currentPassword == newPassword {
		return ErrNewPasswordMustDiffer
	}
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	return nil
}

// ChangePassword replaces the password and clears any pending forced
// change left by an operator reset.
func (service *AccountService) ChangePassword(userID uint, currentPassword string, newPassword string, confirmPassword string) error {
	user, err := service.loadUser(userID)
	if err != nil {
		return err
	}
	if err := service.ValidatePasswordChange(user.PasswordHash, currentPassword, newPassword, confirmPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(newPassword)), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return service.users.UpdatePassword(userID, string(hash), false)
}

func (service *AccountService) ValidateDeleteAccountPassword(passwordHash string, rawPassword string) error {
	password := strings.TrimSpace(rawPassword)
	if password == "" {
		return ErrAccountPasswordMissing
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return ErrAccountPasswordInvalid
	}
	return nil
}

// DeleteAccount removes the user and every document it owns once the
// password is confirmed.
func (service *AccountService) DeleteAccount(userID uint, password string) error {
	user, err := service.loadUser(userID)
	if err != nil {
		return err
	}
	if err := service.ValidateDeleteAccountPassword(user.PasswordHash, password); err != nil {
		return err
	}
	return service.users.DeleteAccountAndDocuments(userID)
}

func (service *AccountService) loadUser(userID uint) (models.User, error) {
	user, err := service.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (service *AccountService) RequiresPasswordChange(userID uint) (bool, error) {
	user, err := service.loadUser(userID)
	if err != nil {
		return false, err
	}
	return user.MustChangePassword, nil
}
