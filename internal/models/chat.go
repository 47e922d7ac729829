package models

import "time"

const (
	SenderUser      = "user"
	SenderAssistant = "echo"
)

const (
	GreetingMessageID = "1"
	ResetMessageID    = "reset"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// IsSystem reports whether the message is the canned greeting or reset
// notice; those never go to the companion model as history.
func (message ChatMessage) IsSystem() bool {
	return message.ID == GreetingMessageID || message.ID == ResetMessageID
}

func GreetingMessage(now time.Time) ChatMessage {
	return ChatMessage{
		ID:        GreetingMessageID,
		Text:      "Hi! I'm Echo. How are you today?",
		Sender:    SenderAssistant,
		Timestamp: now,
	}
}

func ResetMessage(now time.Time) ChatMessage {
	return ChatMessage{
		ID:        ResetMessageID,
		Text:      "The slate is clean.",
		Sender:    SenderAssistant,
		Timestamp: now,
	}
}

// ChatHistoryEntry is the copy of a user message kept for the external
// scoring service, grouped by calendar date.
type ChatHistoryEntry struct {
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"dateStr"`
}
