package api

import (
	"bufio"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/liberate/internal/identity"
	"github.com/terraincognita07/liberate/internal/logging"
	"github.com/terraincognita07/liberate/internal/services"
	"github.com/terraincognita07/liberate/internal/synccache"
)

const streamHeartbeat = 25 * time.Second

type daysEvent struct {
	IdentityID string              `json:"identity_id"`
	Source     string              `json:"source"`
	Generation uint64              `json:"generation"`
	Days       []services.DayEntry `json:"days"`
}

func encodeDaysEvent(snapshot synccache.Snapshot) ([]byte, error) {
	days, err := services.DecodeDays(snapshot.Document)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(daysEvent{
		IdentityID: snapshot.IdentityID,
		Source:     snapshot.Source.String(),
		Generation: snapshot.Generation,
		Days:       days,
	})
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, len(payload)+32)
	frame = append(frame, "event: days\ndata: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}

// offerLatest replaces any undelivered snapshot with the newer one.
func offerLatest(updates chan synccache.Snapshot, snapshot synccache.Snapshot) {
	for {
		select {
		case updates <- snapshot:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
	}
}

// StreamDays pushes the caller's day projection as Server-Sent Events: the
// local mirror first when one exists, then every remote change.
func (handler *Handler) StreamDays(c *fiber.Ctx) error {
	subject, ok := currentIdentity(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	cache, err := handler.newDayCache(identity.NewSessionFor(subject))
	if err != nil {
		return respondServiceError(c, err)
	}

	updates := make(chan synccache.Snapshot, 1)
	stopListening := cache.Listen(func(snapshot synccache.Snapshot) {
		offerLatest(updates, snapshot)
	})
	if err := cache.Attach(handler.streams, &subject); err != nil {
		stopListening()
		cache.Close()
		return respondServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cache.Close()
		defer stopListening()

		ticker := time.NewTicker(streamHeartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-handler.streams.Done():
				return
			case snapshot := <-updates:
				frame, err := encodeDaysEvent(snapshot)
				if err != nil {
					logging.Warn().Err(err).Str("user_id", subject.ID).Msg("encode day stream event failed")
					continue
				}
				if _, err := w.Write(frame); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}
