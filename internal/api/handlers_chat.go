package api

import "github.com/gofiber/fiber/v2"

type chatPayload struct {
	Text string `json:"text" validate:"required,max=4000"`
}

func (handler *Handler) GetChat(c *fiber.Ctx) error {
	scope, err := handler.scopeFor(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	messages, err := scope.chat.Load(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages})
}

func (handler *Handler) SendChat(c *fiber.Ctx) error {
	var payload chatPayload
	if err := handler.parseBody(c, &payload); err != nil {
		return respondServiceError(c, err)
	}
	scope, err := handler.scopeFor(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	exchange, err := scope.chat.Send(c.UserContext(), payload.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(exchange)
}

func (handler *Handler) ResetChat(c *fiber.Ctx) error {
	scope, err := handler.scopeFor(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	messages, err := scope.chat.Reset(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages})
}
