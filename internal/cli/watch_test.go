package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/terraincognita07/liberate/internal/db"
	"github.com/terraincognita07/liberate/internal/docstore"
	"github.com/terraincognita07/liberate/internal/identity"
	"github.com/terraincognita07/liberate/internal/localstore"
	"github.com/terraincognita07/liberate/internal/models"
)

type syncBuffer struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}

type stubSignIn struct {
	subject identity.Identity
	err     error
}

func (stub stubSignIn) SignIn(_ context.Context, session *identity.Session, _ string, _ string) (identity.Identity, error) {
	if stub.err != nil {
		return identity.Identity{}, stub.err
	}
	session.Set(stub.subject)
	return stub.subject, nil
}

func waitForOutput(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("output never contained %q:\n%s", want, out.String())
}

func TestRunWatchCommandPrintsRemoteChanges(t *testing.T) {
	t.Parallel()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "watch.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// The server and the watcher each own a hub over the same database.
	serverHub := docstore.NewHub(db.NewDocumentRepository(database))
	watchHub := docstore.NewHub(db.NewDocumentRepository(database))
	subject := identity.Identity{ID: "u7", Email: "watch@example.com", Verified: true}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- RunWatchCommand(ctx, WatchOptions{
			Auth:         stubSignIn{subject: subject},
			Documents:    watchHub,
			Local:        localstore.NewMemoryStore(),
			Email:        subject.Email,
			Password:     "irrelevant",
			Out:          out,
			PollInterval: 10 * time.Millisecond,
		})
	}()

	waitForOutput(t, out, "watching watch@example.com (u7)")
	waitForOutput(t, out, "remote] 0 day(s)")

	patch := docstore.Document{}
	if err := patch.Set("2024-03-01", models.DayRecord{Mood: "😊", Journals: []models.JournalEntry{{Text: "walked", Time: "08:00", ID: "abc1234"}}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := serverHub.MergeWrite(context.Background(), models.DayDocumentPath("u7"), patch); err != nil {
		t.Fatalf("merge write: %v", err)
	}
	waitForOutput(t, out, "08:00 walked")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	if active := watchHub.ActiveSubscriptions(models.DayDocumentPath("u7")); active != 0 {
		t.Fatalf("expected subscription released, got %d", active)
	}
}

func TestRunWatchCommandSignInFailure(t *testing.T) {
	t.Parallel()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "watch.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = RunWatchCommand(context.Background(), WatchOptions{
		Auth:      stubSignIn{err: errors.New("bad credentials")},
		Documents: docstore.NewHub(db.NewDocumentRepository(database)),
	})
	if err == nil || !strings.Contains(err.Error(), "sign in") {
		t.Fatalf("expected sign in error, got %v", err)
	}
}
