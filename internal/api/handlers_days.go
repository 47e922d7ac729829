package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type moodPayload struct {
	Mood string `json:"mood" validate:"required"`
}

type journalPayload struct {
	Text string `json:"text" validate:"required,max=10000"`
}

func (handler *Handler) GetDays(c *fiber.Ctx) error {
	scope, err := handler.scopeFor(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	entries, err := scope.journals.Range(c.UserContext(), c.Query("from"), c.Query("to"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(entries)
}

func (handler *Handler) GetDay(c *fiber.Ctx) error {
	scope, err := handler.scopeFor(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	record, found, err := scope.journals.Day(c.UserContext(), c.Params("date"))
	if err != nil {
		return respondServiceError(c, err)
	}
	if !found {
		return apiError(c, fiber.StatusNotFound, "no data for date")
	}
	return c.JSON(fiber.Map{"date": c.Params("date"), "record": record})
}

func (handler *Handler) SetMood(c *fiber.Ctx) error {
	var payload moodPayload
	if err := handler.parseBody(c, &payload); err != nil {
		return respondServiceError(c, err)
	}
	scope, err := handler.scopeFor(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := scope.journals.SetMood(c.UserContext(), c.Params("date"), payload.Mood); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) AppendJournal(c *fiber.Ctx) error {
	var payload journalPayload
	if err := handler.parseBody(c, &payload); err != nil {
		return respondServiceError(c, err)
	}
	scope, err := handler.scopeFor(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	entry, err := scope.journals.AppendJournal(c.UserContext(), c.Params("date"), payload.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func parseIndex(c *fiber.Ctx) (int, error) {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return 0, errInvalidInput
	}
	return index, nil
}

func (handler *Handler) EditJournal(c *fiber.Ctx) error {
	index, err := parseIndex(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	var payload journalPayload
	if err := handler.parseBody(c, &payload); err != nil {
		return respondServiceError(c, err)
	}
	scope, err := handler.scopeFor(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := scope.journals.EditJournal(c.UserContext(), c.Params("date"), index, payload.Text); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) DeleteJournal(c *fiber.Ctx) error {
	index, err := parseIndex(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	scope, err := handler.scopeFor(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := scope.journals.DeleteJournal(c.UserContext(), c.Params("date"), index); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) EditJournalByID(c *fiber.Ctx) error {
	var payload journalPayload
	if err := handler.parseBody(c, &payload); err != nil {
		return respondServiceError(c, err)
	}
	scope, err := handler.scopeFor(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := scope.journals.EditJournalByID(c.UserContext(), c.Params("date"), c.Params("id"), payload.Text); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) DeleteJournalByID(c *fiber.Ctx) error {
	scope, err := handler.scopeFor(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := scope.journals.DeleteJournalByID(c.UserContext(), c.Params("date"), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
