package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/liberate/internal/models"
	"github.com/terraincognita07/liberate/internal/services"
)

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (handler *Handler) GetMoodOptions(c *fiber.Ctx) error {
	return c.JSON(models.DefaultMoodOptions())
}

func (handler *Handler) GetCrisisResources(c *fiber.Ctx) error {
	return c.JSON(services.DefaultCrisisResources())
}

func (handler *Handler) GetAffirmation(c *fiber.Ctx) error {
	affirmation := handler.affirmations.Random(c.UserContext())
	return c.JSON(fiber.Map{
		"text":   affirmation.Text,
		"author": affirmation.Author,
		"source": affirmation.Source,
		"share":  affirmation.ShareText(),
	})
}
