package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/liberate/internal/identity"
	"github.com/terraincognita07/liberate/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken               = errors.New("email already registered")
	ErrNotVerified              = errors.New("email not verified")
	ErrVerificationTokenInvalid = errors.New("verification token invalid")
	ErrUserNotFound             = errors.New("user not found")
)

type AuthUserRepository interface {
	ExistsByNormalizedEmail(email string) (bool, error)
	FindByNormalizedEmail(email string) (models.User, error)
	FindByID(userID uint) (models.User, error)
	Create(user *models.User) error
	ListPendingVerification() ([]models.User, error)
	MarkVerified(userID uint) error
	UpdateVerificationTokenHash(userID uint, tokenHash string) error
}

type AuthService struct {
	users  AuthUserRepository
	sender VerificationSender
	now    func() time.Time
}

func NewAuthService(users AuthUserRepository, sender VerificationSender) *AuthService {
	if sender == nil {
		sender = LogMailer{}
	}
	return &AuthService{users: users, sender: sender, now: time.Now}
}

func identityOf(user models.User) identity.Identity {
	return identity.Identity{
		ID:       user.PublicID(),
		Email:    user.Email,
		Verified: user.EmailVerified,
	}
}

// SignUp creates an unverified account and sends its verification token.
// Nobody is signed in afterwards.
func (service *AuthService) SignUp(ctx context.Context, emailRaw string, passwordRaw string) (identity.Identity, error) {
	email, password, err := NormalizeCredentialsInput(emailRaw, passwordRaw)
	if err != nil {
		return identity.Identity{}, err
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return identity.Identity{}, err
	}

	exists, err := service.users.ExistsByNormalizedEmail(email)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return identity.Identity{}, ErrEmailTaken
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	token, tokenHash, err := GenerateVerificationToken()
	if err != nil {
		return identity.Identity{}, fmt.Errorf("generate verification token: %w", err)
	}

	user := models.User{
		Email:                 email,
		PasswordHash:          string(passwordHash),
		VerificationTokenHash: tokenHash,
		CreatedAt:             service.now().UTC(),
	}
	if err := service.users.Create(&user); err != nil {
		return identity.Identity{}, fmt.Errorf("create user: %w", err)
	}
	if err := service.sender.SendVerification(ctx, email, token); err != nil {
		return identity.Identity{}, fmt.Errorf("send verification: %w", err)
	}
	return identityOf(user), nil
}

// SignIn checks credentials and signs session in. An unverified account is
// signed straight back out and reported as ErrNotVerified.
func (service *AuthService) SignIn(_ context.Context, session *identity.Session, emailRaw string, passwordRaw string) (identity.Identity, error) {
	email, password, err := NormalizeCredentialsInput(emailRaw, passwordRaw)
	if err != nil {
		return identity.Identity{}, err
	}

	user, err := service.users.FindByNormalizedEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return identity.Identity{}, ErrAuthCredentialsInvalid
		}
		return identity.Identity{}, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return identity.Identity{}, ErrAuthCredentialsInvalid
	}

	signedIn := identityOf(user)
	session.Set(signedIn)
	if !user.EmailVerified {
		session.Clear()
		return identity.Identity{}, ErrNotVerified
	}
	return signedIn, nil
}

func (service *AuthService) SignOut(session *identity.Session) {
	session.Clear()
}

func (service *AuthService) VerifyEmail(token string) (identity.Identity, error) {
	if err := ValidateVerificationTokenFormat(token); err != nil {
		return identity.Identity{}, ErrVerificationTokenInvalid
	}

	users, err := service.users.ListPendingVerification()
	if err != nil {
		return identity.Identity{}, fmt.Errorf("list pending users: %w", err)
	}
	for _, user := range users {
		if !verificationTokenMatches(user.VerificationTokenHash, token) {
			continue
		}
		if err := service.users.MarkVerified(user.ID); err != nil {
			return identity.Identity{}, fmt.Errorf("mark verified: %w", err)
		}
		user.EmailVerified = true
		return identityOf(user), nil
	}
	return identity.Identity{}, ErrVerificationTokenInvalid
}

// ResendVerification issues a fresh token for an unverified account. Unknown
// and already verified emails succeed silently.
func (service *AuthService) ResendVerification(ctx context.Context, emailRaw string) error {
	email := NormalizeAuthEmail(emailRaw)
	if email == "" {
		return ErrAuthCredentialsInvalid
	}

	user, err := service.users.FindByNormalizedEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}

	token, tokenHash, err := GenerateVerificationToken()
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}
	if err := service.users.UpdateVerificationTokenHash(user.ID, tokenHash); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}
	return service.sender.SendVerification(ctx, email, token)
}

// MarkVerifiedByEmail verifies an account without a token; operators use it
// from the CLI.
func (service *AuthService) MarkVerifiedByEmail(emailRaw string) (identity.Identity, error) {
	email := NormalizeAuthEmail(emailRaw)
	if email == "" {
		return identity.Identity{}, ErrAuthCredentialsInvalid
	}
	user, err := service.users.FindByNormalizedEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return identity.Identity{}, ErrUserNotFound
		}
		return identity.Identity{}, fmt.Errorf("load user: %w", err)
	}
	if err := service.users.MarkVerified(user.ID); err != nil {
		return identity.Identity{}, fmt.Errorf("mark verified: %w", err)
	}
	user.EmailVerified = true
	return identityOf(user), nil
}

func (service *AuthService) IdentityFor(userID uint) (identity.Identity, error) {
	user, err := service.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return identity.Identity{}, ErrUserNotFound
		}
		return identity.Identity{}, err
	}
	return identityOf(user), nil
}

func (service *AuthService) FindByNormalizedEmail(email string) (models.User, error) {
	return service.users.FindByNormalizedEmail(email)
}
