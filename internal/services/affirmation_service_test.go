package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAffirmationFromFeed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"q":"Keep going.","a":"Someone Wise","h":"<p>ignored</p>"}]`))
	}))
	t.Cleanup(server.Close)

	affirmation := NewAffirmationService(server.URL, 0).Random(context.Background())
	if affirmation.Text != "Keep going." || affirmation.Author != "Someone Wise" || affirmation.Source != AffirmationSourceRemote {
		t.Fatalf("unexpected affirmation %+v", affirmation)
	}
	if got := affirmation.ShareText(); got != "\"Keep going.\" - Someone Wise | Found on Liberate Me ✨" {
		t.Fatalf("unexpected share text %q", got)
	}
}

func TestAffirmationFallsBackToBackupList(t *testing.T) {
	t.Parallel()

	handlers := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
		"empty list":   func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`[]`)) },
		"garbage":      func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`<html>`)) },
	}
	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			service := NewAffirmationService(server.URL, 0)
			service.pick = func(int) int { return 1 }
			affirmation := service.Random(context.Background())
			if affirmation.Text != "My peace is my power." || affirmation.Author != "Self" || affirmation.Source != AffirmationSourceBackup {
				t.Fatalf("unexpected backup affirmation %+v", affirmation)
			}
		})
	}
}

func TestBackupAffirmationsAreComplete(t *testing.T) {
	t.Parallel()

	backups := BackupAffirmations()
	if len(backups) != 8 {
		t.Fatalf("expected 8 backup affirmations, got %d", len(backups))
	}
	backups[0].Text = "mutated"
	if BackupAffirmations()[0].Text == "mutated" {
		t.Fatal("expected a copy of the backup list")
	}
}
