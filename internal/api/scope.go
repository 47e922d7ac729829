package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/liberate/internal/identity"
	"github.com/terraincognita07/liberate/internal/models"
	"github.com/terraincognita07/liberate/internal/services"
	"github.com/terraincognita07/liberate/internal/synccache"
)

// userScope is the per-request view of one signed-in identity. Locks are
// shared across requests so concurrent writes to one date still serialize.
type userScope struct {
	session  *identity.Session
	days     *synccache.Cache
	journals *services.JournalService
	chat     *services.ChatService
}

func (handler *Handler) newDayCache(session *identity.Session) (*synccache.Cache, error) {
	return synccache.New(synccache.Options{
		Feature:   services.DayFeature,
		Path:      models.DayDocumentPath,
		Documents: handler.documents,
		Local:     handler.local,
		Session:   session,
	})
}

func (handler *Handler) scopeFor(c *fiber.Ctx) (*userScope, error) {
	subject, ok := currentIdentity(c)
	if !ok {
		return nil, services.ErrUnauthenticated
	}
	session := identity.NewSessionFor(subject)

	days, err := handler.newDayCache(session)
	if err != nil {
		return nil, err
	}
	chatCache, err := synccache.New(synccache.Options{
		Feature:   services.ChatFeature,
		Path:      models.ChatDocumentPath,
		Documents: handler.documents,
		Local:     handler.local,
		Session:   session,
	})
	if err != nil {
		return nil, err
	}

	return &userScope{
		session:  session,
		days:     days,
		journals: services.NewJournalService(days, handler.locks, handler.location),
		chat:     services.NewChatService(chatCache, handler.documents, handler.local, handler.companion, handler.locks, handler.location),
	}, nil
}
