package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/terraincognita07/liberate/internal/companion"
	"github.com/terraincognita07/liberate/internal/docstore"
	"github.com/terraincognita07/liberate/internal/localstore"
	"github.com/terraincognita07/liberate/internal/logging"
	"github.com/terraincognita07/liberate/internal/metrics"
	"github.com/terraincognita07/liberate/internal/models"
)

const (
	ChatFeature       = "echo_messages"
	chatMessagesField = "messages"
)

const FallbackReply = "I'm having a little trouble connecting right now, but I'm still here for you. ❤"

type CompanionReplier interface {
	Reply(ctx context.Context, history []companion.Turn, message string) (string, error)
}

// DocumentReadWriter is the part of the document store the chat history
// log needs.
type DocumentReadWriter interface {
	Read(ctx context.Context, path string) (docstore.Document, bool, error)
	MergeWrite(ctx context.Context, path string, partial docstore.Document) error
}

type ChatExchange struct {
	Message models.ChatMessage `json:"message"`
	Reply   models.ChatMessage `json:"reply"`
}

type ChatService struct {
	cache     DocumentCache
	documents DocumentReadWriter
	local     localstore.Store
	companion CompanionReplier
	locks     *KeyedLocks
	location  *time.Location
	now       func() time.Time
}

func NewChatService(cache DocumentCache, documents DocumentReadWriter, local localstore.Store, replier CompanionReplier, locks *KeyedLocks, location *time.Location) *ChatService {
	if local == nil {
		local = localstore.NewMemoryStore()
	}
	if locks == nil {
		locks = NewKeyedLocks()
	}
	if location == nil {
		location = time.UTC
	}
	return &ChatService{
		cache:     cache,
		documents: documents,
		local:     local,
		companion: replier,
		locks:     locks,
		location:  location,
		now:       time.Now,
	}
}

// Load returns the transcript: the remote copy, else the local mirror, else
// the greeting.
func (service *ChatService) Load(ctx context.Context) ([]models.ChatMessage, error) {
	identityID, err := service.cache.CurrentIdentity()
	if err != nil {
		return nil, err
	}
	return service.load(ctx, identityID)
}

func (service *ChatService) load(ctx context.Context, identityID string) ([]models.ChatMessage, error) {
	document, fetchedFor, err := service.cache.Fetch(ctx)
	switch {
	case err == nil:
		if fetchedFor != identityID {
			return nil, ErrUnauthenticated
		}
		messages, decodeErr := decodeMessages(document)
		if decodeErr == nil && len(messages) > 0 {
			return messages, nil
		}
	case errors.Is(err, ErrRemoteReadFailed):
		logging.Warn().Err(err).Str("user_id", identityID).Msg("chat transcript unavailable, trying local mirror")
	default:
		return nil, err
	}

	if messages := service.loadLocal(ctx, identityID); len(messages) > 0 {
		return messages, nil
	}
	return []models.ChatMessage{models.GreetingMessage(service.now())}, nil
}

func (service *ChatService) loadLocal(ctx context.Context, identityID string) []models.ChatMessage {
	raw, found, err := service.local.Get(ctx, localstore.Key(ChatFeature, identityID))
	if err != nil || !found {
		return nil
	}
	document, err := docstore.Decode(raw)
	if err != nil {
		return nil
	}
	messages, err := decodeMessages(document)
	if err != nil {
		return nil
	}
	return messages
}

func decodeMessages(document docstore.Document) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	if _, err := document.Field(chatMessagesField, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Send appends text to the transcript and then the companion's reply. A
// companion failure produces FallbackReply instead of an error.
func (service *ChatService) Send(ctx context.Context, text string) (ChatExchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatExchange{}, fmt.Errorf("%w: message text is required", ErrValidation)
	}

	identityID, err := service.cache.CurrentIdentity()
	if err != nil {
		return ChatExchange{}, err
	}
	unlock := service.locks.Lock(identityID + "/chat")
	defer unlock()

	transcript, err := service.load(ctx, identityID)
	if err != nil {
		return ChatExchange{}, err
	}

	sentAt := service.now()
	messageID := nextMessageID(transcript, sentAt)
	message := models.ChatMessage{
		ID:        strconv.FormatInt(messageID, 10),
		Text:      text,
		Sender:    models.SenderUser,
		Timestamp: sentAt,
	}
	messages := append(transcript, message)
	if err := service.persist(ctx, identityID, messages); err != nil {
		return ChatExchange{}, err
	}
	service.recordHistory(ctx, identityID, message)

	replyText, err := service.companion.Reply(ctx, companionHistory(transcript), text)
	if err != nil {
		logging.Warn().Err(err).Str("user_id", identityID).Msg("companion reply failed, using fallback")
		metrics.CompanionReplies.WithLabelValues("fallback").Inc()
		replyText = FallbackReply
	} else {
		metrics.CompanionReplies.WithLabelValues("model").Inc()
	}

	repliedAt := service.now()
	reply := models.ChatMessage{
		ID:        strconv.FormatInt(nextMessageID(messages, repliedAt), 10),
		Text:      replyText,
		Sender:    models.SenderAssistant,
		Timestamp: repliedAt,
	}
	messages = append(messages, reply)
	if err := service.persist(ctx, identityID, messages); err != nil {
		return ChatExchange{}, err
	}
	return ChatExchange{Message: message, Reply: reply}, nil
}

// nextMessageID is at in unix millis, moved past every numeric id already in
// the transcript.
func nextMessageID(transcript []models.ChatMessage, at time.Time) int64 {
	next := at.UnixMilli()
	for _, message := range transcript {
		if id, err := strconv.ParseInt(message.ID, 10, 64); err == nil && id >= next {
			next = id + 1
		}
	}
	return next
}

// Reset replaces the transcript with the reset notice and drops the local
// mirror.
func (service *ChatService) Reset(ctx context.Context) ([]models.ChatMessage, error) {
	identityID, err := service.cache.CurrentIdentity()
	if err != nil {
		return nil, err
	}
	unlock := service.locks.Lock(identityID + "/chat")
	defer unlock()

	messages := []models.ChatMessage{models.ResetMessage(service.now())}
	patch := docstore.Document{}
	if err := patch.Set(chatMessagesField, messages); err != nil {
		return nil, err
	}
	if err := service.cache.MutateFor(ctx, identityID, patch); err != nil {
		return nil, err
	}
	if err := service.local.Remove(ctx, localstore.Key(ChatFeature, identityID)); err != nil {
		logging.Warn().Err(err).Str("user_id", identityID).Msg("remove chat mirror failed")
	}
	return messages, nil
}

func (service *ChatService) persist(ctx context.Context, identityID string, messages []models.ChatMessage) error {
	patch := docstore.Document{}
	if err := patch.Set(chatMessagesField, messages); err != nil {
		return err
	}
	if err := service.cache.MutateFor(ctx, identityID, patch); err != nil {
		return err
	}

	encoded, err := patch.Encode()
	if err == nil {
		err = service.local.Set(ctx, localstore.Key(ChatFeature, identityID), encoded)
	}
	if err != nil {
		metrics.SyncMirrorFailures.WithLabelValues(ChatFeature).Inc()
		logging.Warn().Err(err).Str("user_id", identityID).Msg("chat mirror write failed")
	}
	return nil
}

// recordHistory appends the user's message to the per-day log read by the
// external scoring service. Failures are logged only.
func (service *ChatService) recordHistory(ctx context.Context, identityID string, message models.ChatMessage) {
	if service.documents == nil {
		return
	}
	path := models.ChatHistoryDocumentPath(identityID)
	day := DayKey(message.Timestamp, service.location)

	err := func() error {
		document, _, err := service.documents.Read(ctx, path)
		if err != nil {
			return err
		}
		var entries []models.ChatHistoryEntry
		if _, err := document.Field(day, &entries); err != nil {
			return err
		}
		entries = append(entries, models.ChatHistoryEntry{
			Text:      message.Text,
			Sender:    models.SenderUser,
			Timestamp: message.Timestamp,
			Date:      day,
		})
		patch := docstore.Document{}
		if err := patch.Set(day, entries); err != nil {
			return err
		}
		return service.documents.MergeWrite(ctx, path, patch)
	}()
	if err != nil {
		logging.Warn().Err(err).Str("user_id", identityID).Msg("chat history append failed")
	}
}

func companionHistory(transcript []models.ChatMessage) []companion.Turn {
	turns := make([]companion.Turn, 0, len(transcript))
	for _, message := range transcript {
		if message.IsSystem() {
			continue
		}
		role := companion.RoleModel
		if message.Sender == models.SenderUser {
			role = companion.RoleUser
		}
		turns = append(turns, companion.TextTurn(role, message.Text))
	}
	return turns
}
