package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/terraincognita07/liberate/internal/docstore"
	"github.com/terraincognita07/liberate/internal/models"
	"github.com/terraincognita07/liberate/internal/security"
)

// DayFeature names the day document's local mirror, @logs_<id>.
const DayFeature = "logs"

const journalTimeLayout = "15:04"

type DocumentCache interface {
	CurrentIdentity() (string, error)
	Fetch(ctx context.Context) (docstore.Document, string, error)
	MutateFor(ctx context.Context, identityID string, patch docstore.Document) error
}

type DayEntry struct {
	Date   string           `json:"date"`
	Record models.DayRecord `json:"record"`
}

// JournalService edits mood and journal entries inside the per-user day
// document. Every write re-reads the date map and writes it back whole, as
// the document store only merges at the root.
type JournalService struct {
	cache    DocumentCache
	locks    *KeyedLocks
	location *time.Location
	now      func() time.Time
}

func NewJournalService(cache DocumentCache, locks *KeyedLocks, location *time.Location) *JournalService {
	if locks == nil {
		locks = NewKeyedLocks()
	}
	if location == nil {
		location = time.UTC
	}
	return &JournalService{
		cache:    cache,
		locks:    locks,
		location: location,
		now:      time.Now,
	}
}

func (service *JournalService) SetMood(ctx context.Context, date string, symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if !models.IsMoodOption(symbol) {
		return fmt.Errorf("%w: unknown mood %q", ErrValidation, symbol)
	}
	return service.mutateDay(ctx, date, func(record *models.DayRecord) error {
		record.Mood = symbol
		return nil
	})
}

func (service *JournalService) AppendJournal(ctx context.Context, date string, text string) (models.JournalEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.JournalEntry{}, fmt.Errorf("%w: journal text is required", ErrValidation)
	}

	id, err := security.NewEntryID()
	if err != nil {
		return models.JournalEntry{}, fmt.Errorf("generate journal id: %w", err)
	}
	entry := models.JournalEntry{
		Text: text,
		Time: service.now().In(service.location).Format(journalTimeLayout),
		ID:   id,
	}

	err = service.mutateDay(ctx, date, func(record *models.DayRecord) error {
		record.Journals = append(record.Journals, entry)
		return nil
	})
	if err != nil {
		return models.JournalEntry{}, err
	}
	return entry, nil
}

// EditJournal replaces the text at index as found at commit time; time and
// id are kept.
func (service *JournalService) EditJournal(ctx context.Context, date string, index int, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: journal text is required", ErrValidation)
	}
	return service.mutateDay(ctx, date, func(record *models.DayRecord) error {
		if index < 0 || index >= len(record.Journals) {
			return ErrIndexOutOfRange
		}
		record.Journals[index].Text = text
		return nil
	})
}

func (service *JournalService) DeleteJournal(ctx context.Context, date string, index int) error {
	return service.mutateDay(ctx, date, func(record *models.DayRecord) error {
		if index < 0 || index >= len(record.Journals) {
			return ErrIndexOutOfRange
		}
		record.Journals = append(record.Journals[:index], record.Journals[index+1:]...)
		return nil
	})
}

func (service *JournalService) EditJournalByID(ctx context.Context, date string, id string, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: journal text is required", ErrValidation)
	}
	return service.mutateDay(ctx, date, func(record *models.DayRecord) error {
		index := journalIndex(record.Journals, id)
		if index < 0 {
			return ErrEntryNotFound
		}
		record.Journals[index].Text = text
		return nil
	})
}

func (service *JournalService) DeleteJournalByID(ctx context.Context, date string, id string) error {
	return service.mutateDay(ctx, date, func(record *models.DayRecord) error {
		index := journalIndex(record.Journals, id)
		if index < 0 {
			return ErrEntryNotFound
		}
		record.Journals = append(record.Journals[:index], record.Journals[index+1:]...)
		return nil
	})
}

func journalIndex(entries []models.JournalEntry, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for index, entry := range entries {
		if entry.ID == id {
			return index
		}
	}
	return -1
}

// Day returns the record for date; found is false when the date has no
// mood and no journals.
func (service *JournalService) Day(ctx context.Context, date string) (models.DayRecord, bool, error) {
	key, _, err := ParseDayKey(date, service.location)
	if err != nil {
		return models.DayRecord{}, false, err
	}
	document, _, err := service.cache.Fetch(ctx)
	if err != nil {
		return models.DayRecord{}, false, err
	}
	return decodeDay(document, key)
}

// Range lists stored days between from and to inclusive, ascending. An
// empty bound is open.
func (service *JournalService) Range(ctx context.Context, from string, to string) ([]DayEntry, error) {
	var fromKey, toKey string
	var err error
	if strings.TrimSpace(from) != "" {
		if fromKey, _, err = ParseDayKey(from, service.location); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(to) != "" {
		if toKey, _, err = ParseDayKey(to, service.location); err != nil {
			return nil, err
		}
	}
	if fromKey != "" && toKey != "" && fromKey > toKey {
		return nil, fmt.Errorf("%w: from must not be after to", ErrValidation)
	}

	document, _, err := service.cache.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := DecodeDays(document)
	if err != nil {
		return nil, err
	}

	filtered := entries[:0]
	for _, entry := range entries {
		if fromKey != "" && entry.Date < fromKey {
			continue
		}
		if toKey != "" && entry.Date > toKey {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered, nil
}

// DecodeDays lists every dated record of a day document, ascending. Root
// keys that are not dates are skipped.
func DecodeDays(document docstore.Document) ([]DayEntry, error) {
	entries := make([]DayEntry, 0, len(document))
	for key := range document {
		if _, err := time.Parse(models.DayKeyLayout, key); err != nil {
			continue
		}
		record, found, err := decodeDay(document, key)
		if err != nil {
			return nil, err
		}
		if found {
			entries = append(entries, DayEntry{Date: key, Record: record})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date < entries[j].Date
	})
	return entries, nil
}

func decodeDay(document docstore.Document, key string) (models.DayRecord, bool, error) {
	var record models.DayRecord
	found, err := document.Field(key, &record)
	if err != nil {
		return models.DayRecord{}, false, err
	}
	if !found || record.IsEmpty() {
		return models.DayRecord{}, false, nil
	}
	return record, true, nil
}

func (service *JournalService) mutateDay(ctx context.Context, date string, change func(record *models.DayRecord) error) error {
	key, day, err := ParseDayKey(date, service.location)
	if err != nil {
		return err
	}
	if IsFutureDay(day, service.now(), service.location) {
		return fmt.Errorf("%w: future dates are locked", ErrValidation)
	}

	identityID, err := service.cache.CurrentIdentity()
	if err != nil {
		return err
	}
	unlock := service.locks.Lock(identityID + "/" + key)
	defer unlock()

	document, fetchedFor, err := service.cache.Fetch(ctx)
	if err != nil {
		return err
	}
	if fetchedFor != identityID {
		return ErrUnauthenticated
	}

	current, _, err := decodeDay(document, key)
	if err != nil {
		return err
	}
	record := current.Clone()
	if err := change(&record); err != nil {
		return err
	}

	patch := docstore.Document{}
	if record.IsEmpty() {
		patch[key] = docstore.DeleteField()
	} else if err := patch.Set(key, record); err != nil {
		return err
	}
	return service.cache.MutateFor(ctx, identityID, patch)
}
