package synccache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/terraincognita07/liberate/internal/docstore"
	"github.com/terraincognita07/liberate/internal/identity"
	"github.com/terraincognita07/liberate/internal/localstore"
	"github.com/terraincognita07/liberate/internal/models"
)

type stubRepository struct {
	mu        sync.Mutex
	bodies    map[string]string
	findGate  chan struct{}
	updateErr error
}

func newStubRepository() *stubRepository {
	return &stubRepository{bodies: map[string]string{}}
}

func (repo *stubRepository) Find(path string) (models.StoredDocument, bool, error) {
	repo.mu.Lock()
	gate := repo.findGate
	repo.mu.Unlock()
	if gate != nil {
		<-gate
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	body, ok := repo.bodies[path]
	return models.StoredDocument{Path: path, Body: body}, ok, nil
}

func (repo *stubRepository) Update(path string, _ string, change func(string, bool) (string, error)) (string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.updateErr != nil {
		return "", repo.updateErr
	}
	current, found := repo.bodies[path]
	next, err := change(current, found)
	if err != nil {
		return "", err
	}
	repo.bodies[path] = next
	return next, nil
}

type failingLocalStore struct{}

func (failingLocalStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (failingLocalStore) Set(context.Context, string, string) error {
	return errors.New("quota exceeded")
}
func (failingLocalStore) Remove(context.Context, string) error { return nil }
func (failingLocalStore) Close() error                        { return nil }

type fixture struct {
	repo    *stubRepository
	hub     *docstore.Hub
	local   localstore.Store
	session *identity.Session
	cache   *Cache
}

func newFixture(t *testing.T, local localstore.Store) *fixture {
	t.Helper()

	repo := newStubRepository()
	hub := docstore.NewHub(repo)
	if local == nil {
		local = localstore.NewMemoryStore()
	}
	session := identity.NewSession()
	cache, err := New(Options{
		Feature:   "logs",
		Path:      models.DayDocumentPath,
		Documents: hub,
		Local:     local,
		Session:   session,
	})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	t.Cleanup(cache.Close)
	return &fixture{repo: repo, hub: hub, local: local, session: session, cache: cache}
}

func collect(cache *Cache) (<-chan Snapshot, func()) {
	received := make(chan Snapshot, 32)
	cancel := cache.Listen(func(snapshot Snapshot) { received <- snapshot })
	return received, cancel
}

func waitSnapshot(t *testing.T, received <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snapshot := <-received:
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func expectNoSnapshot(t *testing.T, received <-chan Snapshot) {
	t.Helper()
	select {
	case snapshot := <-received:
		t.Fatalf("expected no snapshot, got %+v", snapshot)
	case <-time.After(60 * time.Millisecond):
	}
}

func dayPatch(t *testing.T, date string, record models.DayRecord) docstore.Document {
	t.Helper()
	patch := docstore.Document{}
	if err := patch.Set(date, record); err != nil {
		t.Fatalf("patch: %v", err)
	}
	return patch
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{Feature: "logs"}); err == nil {
		t.Fatal("expected error for missing path and store")
	}
}

func TestAttachSameIdentityIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	received, cancel := collect(f.cache)
	defer cancel()

	user := &identity.Identity{ID: "u1"}
	if err := f.cache.Attach(context.Background(), user); err != nil {
		t.Fatalf("attach: %v", err)
	}
	first := waitSnapshot(t, received)
	if first.Source != SourceRemote || first.IdentityID != "u1" {
		t.Fatalf("unexpected first snapshot %+v", first)
	}
	generation := f.cache.Generation()

	if err := f.cache.Attach(context.Background(), &identity.Identity{ID: "u1"}); err != nil {
		t.Fatalf("re-attach: %v", err)
	}
	if got := f.hub.ActiveSubscriptions(models.DayDocumentPath("u1")); got != 1 {
		t.Fatalf("expected exactly one subscription, got %d", got)
	}
	if f.cache.Generation() != generation {
		t.Fatal("expected re-attach to keep the generation")
	}
	expectNoSnapshot(t, received)
	if _, source, ok := f.cache.Projection(); !ok || source != SourceRemote {
		t.Fatalf("expected remote projection kept, source=%v ok=%v", source, ok)
	}
}

func TestLocalFallbackShownUntilFirstRemoteEmission(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	if err := f.local.Set(ctx, localstore.Key("logs", "u1"), `{"2024-01-01":{"mood":"😐"}}`); err != nil {
		t.Fatalf("seed local: %v", err)
	}
	f.repo.bodies[models.DayDocumentPath("u1")] = `{"2024-01-01":{"mood":"😊"}}`
	gate := make(chan struct{})
	f.repo.findGate = gate

	received, cancel := collect(f.cache)
	defer cancel()

	attached := make(chan error, 1)
	go func() { attached <- f.cache.Attach(ctx, &identity.Identity{ID: "u1"}) }()

	local := waitSnapshot(t, received)
	if local.Source != SourceLocal || string(local.Document["2024-01-01"]) != `{"mood":"😐"}` {
		t.Fatalf("expected local fallback snapshot, got %+v", local)
	}

	f.repo.mu.Lock()
	f.repo.findGate = nil
	f.repo.mu.Unlock()
	close(gate)
	if err := <-attached; err != nil {
		t.Fatalf("attach: %v", err)
	}

	remote := waitSnapshot(t, received)
	if remote.Source != SourceRemote || string(remote.Document["2024-01-01"]) != `{"mood":"😊"}` {
		t.Fatalf("expected remote snapshot, got %+v", remote)
	}
}

func TestLocalFallbackIgnoredAfterRemoteEmission(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	received, cancel := collect(f.cache)
	defer cancel()
	if err := f.cache.Attach(ctx, &identity.Identity{ID: "u1"}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	waitSnapshot(t, received)
	generation := f.cache.Generation()
	f.cache.apply(generation, "u1", docstore.Document{"a": json.RawMessage(`1`)})

	if err := f.local.Set(ctx, localstore.Key("logs", "u1"), `{"a":0}`); err != nil {
		t.Fatalf("seed local: %v", err)
	}
	f.cache.loadLocal(ctx, generation, "u1")

	document, source, _ := f.cache.Projection()
	if source != SourceRemote || string(document["a"]) != "1" {
		t.Fatalf("expected remote projection to win, got %v from %v", document, source)
	}
}

func TestRemoteUpdateMirrorsToLocalStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	received, cancel := collect(f.cache)
	defer cancel()

	f.session.Set(identity.Identity{ID: "u1"})
	if err := f.cache.Attach(ctx, &identity.Identity{ID: "u1"}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	waitSnapshot(t, received)

	if err := f.cache.Mutate(ctx, dayPatch(t, "2024-01-01", models.DayRecord{Mood: "😊"})); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	snapshot := waitSnapshot(t, received)
	if string(snapshot.Document["2024-01-01"]) != `{"mood":"😊"}` {
		t.Fatalf("unexpected projection %v", snapshot.Document)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		body, ok, _ := f.local.Get(ctx, localstore.Key("logs", "u1"))
		if ok && body == `{"2024-01-01":{"mood":"😊"}}` {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected mirrored document, got %q ok=%v", body, ok)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMirrorFailureDoesNotBlockProjection(t *testing.T) {
	t.Parallel()

	f := newFixture(t, failingLocalStore{})
	received, cancel := collect(f.cache)
	defer cancel()

	if err := f.cache.Attach(context.Background(), &identity.Identity{ID: "u1"}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	waitSnapshot(t, received)
	f.cache.OnRemoteUpdate(docstore.Document{"a": json.RawMessage(`2`)})

	if last := waitSnapshot(t, received); string(last.Document["a"]) != "2" {
		t.Fatalf("expected snapshot with a=2, got %v", last.Document)
	}
	if document, _, _ := f.cache.Projection(); string(document["a"]) != "2" {
		t.Fatalf("expected projection applied despite mirror failure, got %v", document)
	}
}

func TestStaleGenerationEmissionIsDropped(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	if err := f.cache.Attach(ctx, &identity.Identity{ID: "u1"}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	stale := f.cache.Generation()

	if err := f.cache.Attach(ctx, &identity.Identity{ID: "u2"}); err != nil {
		t.Fatalf("attach u2: %v", err)
	}
	f.cache.apply(stale, "u1", docstore.Document{"leak": json.RawMessage(`true`)})

	document, _, ok := f.cache.Projection()
	if !ok {
		t.Fatal("expected u2 attached")
	}
	if _, leaked := document["leak"]; leaked {
		t.Fatal("expected stale emission for u1 to be dropped")
	}
	if f.hub.ActiveSubscriptions(models.DayDocumentPath("u1")) != 0 {
		t.Fatal("expected u1 subscription cancelled")
	}
}

func TestDetachIsSafeWhenIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.cache.Detach()
	f.cache.Detach()
	if _, _, ok := f.cache.Projection(); ok {
		t.Fatal("expected nothing attached")
	}

	if err := f.cache.Attach(context.Background(), &identity.Identity{ID: "u1"}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	f.cache.Detach()
	if _, _, ok := f.cache.Projection(); ok {
		t.Fatal("expected projection discarded after detach")
	}
	if f.hub.ActiveSubscriptions(models.DayDocumentPath("u1")) != 0 {
		t.Fatal("expected subscription cancelled after detach")
	}
}

func TestMutateWithoutIdentityIsUnauthenticated(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	err := f.cache.Mutate(context.Background(), dayPatch(t, "2024-01-01", models.DayRecord{Mood: "😊"}))
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if len(f.repo.bodies) != 0 {
		t.Fatalf("expected no write, got %v", f.repo.bodies)
	}
}

func TestMutateSurfacesRemoteWriteFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.session.Set(identity.Identity{ID: "u1"})
	f.repo.updateErr = errors.New("permission denied")

	err := f.cache.Mutate(context.Background(), dayPatch(t, "2024-01-01", models.DayRecord{Mood: "😊"}))
	if !errors.Is(err, ErrRemoteWriteFailed) {
		t.Fatalf("expected ErrRemoteWriteFailed, got %v", err)
	}
}

func TestFetchReturnsEmptyDocumentWhenAbsent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	if _, _, err := f.cache.Fetch(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	f.session.Set(identity.Identity{ID: "u3"})
	document, identityID, err := f.cache.Fetch(context.Background())
	if err != nil || identityID != "u3" || document == nil || len(document) != 0 {
		t.Fatalf("unexpected fetch %v %q %v", document, identityID, err)
	}
}

func TestSwitchingIdentityNeverLeaksPreviousPatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	received, cancel := collect(f.cache)
	defer cancel()
	f.cache.Follow(ctx)

	f.session.Set(identity.Identity{ID: "uA"})
	waitSnapshot(t, received)
	if err := f.cache.Mutate(ctx, dayPatch(t, "2024-01-01", models.DayRecord{Mood: "😊"})); err != nil {
		t.Fatalf("mutate as A: %v", err)
	}
	waitSnapshot(t, received)

	pending := dayPatch(t, "2024-01-02", models.DayRecord{Mood: "😔"})
	f.session.Clear()
	f.session.Set(identity.Identity{ID: "uB"})

	if err := f.cache.MutateFor(ctx, "uA", pending); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected A's late patch rejected, got %v", err)
	}

	bSnapshot := waitSnapshot(t, received)
	if bSnapshot.IdentityID != "uB" || len(bSnapshot.Document) != 0 {
		t.Fatalf("expected empty projection for B, got %+v", bSnapshot)
	}

	if err := f.hub.MergeWrite(ctx, models.DayDocumentPath("uA"), pending); err != nil {
		t.Fatalf("write to A directly: %v", err)
	}
	expectNoSnapshot(t, received)

	document, _, _ := f.cache.Projection()
	if _, leaked := document["2024-01-02"]; leaked {
		t.Fatal("expected B's projection to never contain A's patch")
	}
	if _, leaked := document["2024-01-01"]; leaked {
		t.Fatal("expected B's projection to never contain A's data")
	}
	if body, ok, _ := f.local.Get(ctx, localstore.Key("logs", "uB")); ok && body != "{}" {
		t.Fatalf("expected B's mirror to hold only B's data, got %q", body)
	}
}

func TestFollowDetachesOnSignOut(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	stop := f.cache.Follow(context.Background())
	defer stop()

	f.session.Set(identity.Identity{ID: "u1"})
	if id, ok := f.cache.AttachedIdentity(); !ok || id != "u1" {
		t.Fatalf("expected u1 attached, got %q ok=%v", id, ok)
	}
	f.session.Clear()
	if _, ok := f.cache.AttachedIdentity(); ok {
		t.Fatal("expected detach on sign out")
	}
}
