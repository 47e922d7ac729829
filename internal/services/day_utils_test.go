package services

import (
	"errors"
	"testing"
	"time"
)

func TestParseDayKey(t *testing.T) {
	t.Parallel()

	location, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	key, day, err := ParseDayKey(" 2024-03-10 ", location)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if key != "2024-03-10" {
		t.Fatalf("key = %q, want 2024-03-10", key)
	}
	if day.Location() != location || day.Hour() != 0 {
		t.Fatalf("expected local midnight, got %v", day)
	}

	for _, raw := range []string{"", "2024-3-10", "2024-13-01", "10/03/2024"} {
		if _, _, err := ParseDayKey(raw, location); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation for %q, got %v", raw, err)
		}
	}
}

func TestIsFutureDayUsesLocation(t *testing.T) {
	t.Parallel()

	location := time.FixedZone("UTC+10", 10*60*60)
	now := time.Date(2024, time.March, 10, 20, 0, 0, 0, time.UTC)

	if IsFutureDay(time.Date(2024, time.March, 11, 0, 0, 0, 0, location), now, location) {
		t.Fatal("expected 03-11 to be today in UTC+10")
	}
	if !IsFutureDay(time.Date(2024, time.March, 12, 0, 0, 0, 0, location), now, location) {
		t.Fatal("expected 03-12 to be in the future")
	}
	if IsFutureDay(time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), now, nil) {
		t.Fatal("expected today in UTC not to be future")
	}
}

func TestDayKeyFormatsInLocation(t *testing.T) {
	t.Parallel()

	location := time.FixedZone("UTC-5", -5*60*60)
	instant := time.Date(2024, time.March, 10, 3, 0, 0, 0, time.UTC)
	if got := DayKey(instant, location); got != "2024-03-09" {
		t.Fatalf("DayKey = %q, want 2024-03-09", got)
	}
}
