package models

import (
	"fmt"
	"strconv"
	"strings"
)

const DayKeyLayout = "2006-01-02"

// DayRecord is the per-date aggregate of mood and journal entries. A date
// with neither is absent from the day document, never stored empty.
type DayRecord struct {
	Mood     string         `json:"mood,omitempty"`
	Journals []JournalEntry `json:"journals,omitempty"`
}

type JournalEntry struct {
	Text string `json:"text"`
	Time string `json:"time"`
	ID   string `json:"id"`
}

func (record DayRecord) IsEmpty() bool {
	return strings.TrimSpace(record.Mood) == "" && len(record.Journals) == 0
}

// Clone copies the journal slice so callers can mutate it freely.
func (record DayRecord) Clone() DayRecord {
	journals := make([]JournalEntry, len(record.Journals))
	copy(journals, record.Journals)
	if len(journals) == 0 {
		journals = nil
	}
	return DayRecord{Mood: record.Mood, Journals: journals}
}

func UserPublicID(userID uint) string {
	return "u" + strconv.FormatUint(uint64(userID), 10)
}

func ParseUserPublicID(publicID string) (uint, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(publicID), "u")
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 || raw == strings.TrimSpace(publicID) {
		return 0, fmt.Errorf("invalid user id %q", publicID)
	}
	return uint(value), nil
}

func DayDocumentPath(identityID string) string {
	return "users/" + identityID + "/data/logs"
}

func ChatDocumentPath(identityID string) string {
	return "users/" + identityID + "/data/echo"
}

func ChatHistoryDocumentPath(identityID string) string {
	return "users/" + identityID + "/data/echo_history"
}
