package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/liberate/internal/models"
)

func DateAtLocation(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	localized := value.In(location)
	year, month, day := localized.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

// ParseDayKey parses a yyyy-MM-dd key in location and returns the
// canonical key alongside the day start.
func ParseDayKey(raw string, location *time.Location) (string, time.Time, error) {
	if location == nil {
		location = time.UTC
	}
	parsed, err := time.ParseInLocation(models.DayKeyLayout, strings.TrimSpace(raw), location)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: date must be yyyy-mm-dd", ErrValidation)
	}
	return parsed.Format(models.DayKeyLayout), parsed, nil
}

func DayKey(value time.Time, location *time.Location) string {
	return DateAtLocation(value, location).Format(models.DayKeyLayout)
}

// IsFutureDay reports whether day falls after today in location.
func IsFutureDay(day time.Time, now time.Time, location *time.Location) bool {
	return DateAtLocation(day, location).After(DateAtLocation(now, location))
}
