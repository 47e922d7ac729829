package api

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/liberate/internal/identity"
	"github.com/terraincognita07/liberate/internal/logging"
	"github.com/terraincognita07/liberate/internal/metrics"
	"github.com/terraincognita07/liberate/internal/models"
	"github.com/terraincognita07/liberate/internal/services"
)

type credentialsPayload struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

type verifyPayload struct {
	Token string `json:"token" validate:"required"`
}

type emailPayload struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (handler *Handler) Register(c *fiber.Ctx) error {
	var payload credentialsPayload
	if err := handler.parseBody(c, &payload); err != nil {
		return respondServiceError(c, err)
	}

	subject, err := handler.authService.SignUp(c.UserContext(), payload.Email, payload.Password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrAuthCredentialsInvalid):
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	case errors.Is(err, services.ErrWeakPassword):
		return apiError(c, fiber.StatusBadRequest, "weak password")
	case errors.Is(err, services.ErrPasswordTooLong):
		return apiError(c, fiber.StatusBadRequest, "password too long")
	case errors.Is(err, services.ErrEmailTaken):
		return apiError(c, fiber.StatusConflict, "email already exists")
	default:
		logging.Error().Err(err).Msg("sign up failed")
		return apiError(c, fiber.StatusInternalServerError, "failed to create account")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       subject.ID,
		"email":    subject.Email,
		"verified": subject.Verified,
	})
}

func (handler *Handler) Login(c *fiber.Ctx) error {
	var payload credentialsPayload
	if err := handler.parseBody(c, &payload); err != nil {
		return respondServiceError(c, err)
	}

	now := time.Now()
	limiterKey := loginLimiterKey(c, payload.Email)
	if blocked, retryAfter := handler.loginLimiter.blocked(limiterKey, now); blocked {
		metrics.LoginThrottled.Inc()
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		return apiError(c, fiber.StatusTooManyRequests, "too many login attempts")
	}

	session := identity.NewSession()
	subject, err := handler.authService.SignIn(c.UserContext(), session, payload.Email, payload.Password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrAuthCredentialsInvalid):
		handler.loginLimiter.fail(limiterKey, now)
		return apiError(c, fiber.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrNotVerified):
		return apiError(c, fiber.StatusForbidden, "email not verified")
	default:
		logging.Error().Err(err).Msg("sign in failed")
		return apiError(c, fiber.StatusInternalServerError, "failed to sign in")
	}
	handler.loginLimiter.reset(limiterKey)

	userID, err := models.ParseUserPublicID(subject.ID)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to create session")
	}
	token, expiresAt, err := handler.buildToken(userID)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to create session")
	}
	handler.setAuthCookie(c, token)

	mustChange, err := handler.accountService.RequiresPasswordChange(userID)
	if err != nil {
		logging.Warn().Err(err).Msg("load password change flag failed")
	}

	return c.JSON(fiber.Map{
		"token":                token,
		"expires_at":           expiresAt.UTC(),
		"identity":             subject,
		"must_change_password": mustChange,
	})
}

func (handler *Handler) Logout(c *fiber.Ctx) error {
	handler.clearAuthCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) VerifyEmail(c *fiber.Ctx) error {
	var payload verifyPayload
	if err := handler.parseBody(c, &payload); err != nil {
		return respondServiceError(c, err)
	}

	subject, err := handler.authService.VerifyEmail(payload.Token)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrVerificationTokenInvalid):
		return apiError(c, fiber.StatusBadRequest, "invalid verification token")
	default:
		logging.Error().Err(err).Msg("email verification failed")
		return apiError(c, fiber.StatusInternalServerError, "failed to verify email")
	}
	return c.JSON(fiber.Map{"id": subject.ID, "email": subject.Email, "verified": true})
}

// ResendVerification always answers ok so account existence is not
// disclosed.
func (handler *Handler) ResendVerification(c *fiber.Ctx) error {
	var payload emailPayload
	if err := handler.parseBody(c, &payload); err != nil {
		return respondServiceError(c, err)
	}
	if err := handler.authService.ResendVerification(c.UserContext(), payload.Email); err != nil {
		logging.Warn().Err(err).Msg("resend verification failed")
	}
	return c.JSON(fiber.Map{"ok": true})
}
