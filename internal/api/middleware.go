package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/liberate/internal/identity"
)

const (
	authCookieName     = "liberate_auth"
	contextIdentityKey = "current_identity"
	bearerPrefix       = "Bearer "
	streamPath         = "/api/days/stream"
)

func currentIdentity(c *fiber.Ctx) (identity.Identity, bool) {
	subject, ok := c.Locals(contextIdentityKey).(identity.Identity)
	return subject, ok
}

// SkipStream tells body-rewriting middleware to leave the event stream alone.
func SkipStream(c *fiber.Ctx) bool {
	return c.Path() == streamPath
}
