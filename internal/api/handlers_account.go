package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/liberate/internal/localstore"
	"github.com/terraincognita07/liberate/internal/logging"
	"github.com/terraincognita07/liberate/internal/models"
	"github.com/terraincognita07/liberate/internal/services"
)

type changePasswordPayload struct {
	CurrentPassword string `json:"current_password" validate:"required,max=256"`
	NewPassword     string `json:"new_password" validate:"required,max=256"`
	ConfirmPassword string `json:"confirm_password" validate:"required,max=256"`
}

type deleteAccountPayload struct {
	Password string `json:"password" validate:"max=256"`
}

func (handler *Handler) currentUserID(c *fiber.Ctx) (string, uint, bool) {
	subject, ok := currentIdentity(c)
	if !ok {
		return "", 0, false
	}
	userID, err := models.ParseUserPublicID(subject.ID)
	if err != nil {
		return "", 0, false
	}
	return subject.ID, userID, true
}

func (handler *Handler) ChangePassword(c *fiber.Ctx) error {
	var payload changePasswordPayload
	if err := handler.parseBody(c, &payload); err != nil {
		return respondServiceError(c, err)
	}
	_, userID, ok := handler.currentUserID(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	err := handler.accountService.ChangePassword(userID, payload.CurrentPassword, payload.NewPassword, payload.ConfirmPassword)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrPasswordChangeInvalidInput):
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	case errors.Is(err, services.ErrPasswordMismatch):
		return apiError(c, fiber.StatusBadRequest, "passwords do not match")
	case errors.Is(err, services.ErrInvalidCurrentPassword):
		return apiError(c, fiber.StatusUnauthorized, "invalid current password")
	case errors.Is(err, services.ErrNewPasswordMustDiffer):
		return apiError(c, fiber.StatusBadRequest, "new password must differ")
	case errors.Is(err, services.ErrWeakPassword):
		return apiError(c, fiber.StatusBadRequest, "weak password")
	case errors.Is(err, services.ErrPasswordTooLong):
		return apiError(c, fiber.StatusBadRequest, "password too long")
	default:
		logging.Error().Err(err).Msg("change password failed")
		return apiError(c, fiber.StatusInternalServerError, "failed to change password")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// DeleteAccount removes the user, its documents and its local mirrors, then
// ends the cookie session.
func (handler *Handler) DeleteAccount(c *fiber.Ctx) error {
	var payload deleteAccountPayload
	if err := handler.parseBody(c, &payload); err != nil {
		return respondServiceError(c, err)
	}
	identityID, userID, ok := handler.currentUserID(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	err := handler.accountService.DeleteAccount(userID, payload.Password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrAccountPasswordMissing):
		return apiError(c, fiber.StatusBadRequest, "password required")
	case errors.Is(err, services.ErrAccountPasswordInvalid):
		return apiError(c, fiber.StatusUnauthorized, "invalid password")
	default:
		logging.Error().Err(err).Msg("delete account failed")
		return apiError(c, fiber.StatusInternalServerError, "failed to delete account")
	}

	for _, feature := range []string{services.DayFeature, services.ChatFeature} {
		if err := handler.local.Remove(c.UserContext(), localstore.Key(feature, identityID)); err != nil {
			logging.Warn().Err(err).Str("feature", feature).Msg("remove local mirror failed")
		}
	}
	handler.clearAuthCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}
