// Package synccache keeps an in-memory projection of one identity's remote
// document, mirrored to the local store for offline first paint.
package synccache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/terraincognita07/liberate/internal/docstore"
	"github.com/terraincognita07/liberate/internal/identity"
	"github.com/terraincognita07/liberate/internal/localstore"
	"github.com/terraincognita07/liberate/internal/logging"
	"github.com/terraincognita07/liberate/internal/metrics"
)

var (
	ErrUnauthenticated   = errors.New("no signed-in identity")
	ErrRemoteWriteFailed = errors.New("remote write failed")
	ErrRemoteReadFailed  = errors.New("remote read failed")
)

type Source int

const (
	SourceNone Source = iota
	SourceLocal
	SourceRemote
)

func (source Source) String() string {
	switch source {
	case SourceLocal:
		return "local"
	case SourceRemote:
		return "remote"
	default:
		return "none"
	}
}

type Snapshot struct {
	IdentityID string
	Document   docstore.Document
	Source     Source
	Generation uint64

	version uint64
}

type Remote interface {
	Read(ctx context.Context, path string) (docstore.Document, bool, error)
	MergeWrite(ctx context.Context, path string, partial docstore.Document) error
	Subscribe(path string, fn func(docstore.Document)) (*docstore.Subscription, error)
}

type Options struct {
	// Feature names the local mirror key, e.g. "logs" gives @logs_<id>.
	Feature   string
	Path      func(identityID string) string
	Documents Remote
	Local     localstore.Store
	Session   *identity.Session
}

type Cache struct {
	feature   string
	path      func(string) string
	documents Remote
	local     localstore.Store
	session   *identity.Session

	mu           sync.Mutex
	generation   uint64
	version      uint64
	attached     *identity.Identity
	subscription *docstore.Subscription
	projection   docstore.Document
	source       Source
	remoteSeen   bool
	listeners    map[int]func(Snapshot)
	nextListener int
	unfollow     func()

	notifyMu sync.Mutex
	notified uint64
}

func New(options Options) (*Cache, error) {
	switch {
	case options.Feature == "":
		return nil, errors.New("sync cache feature is required")
	case options.Path == nil:
		return nil, errors.New("sync cache path func is required")
	case options.Documents == nil:
		return nil, errors.New("sync cache document store is required")
	case options.Session == nil:
		return nil, errors.New("sync cache session is required")
	}

	local := options.Local
	if local == nil {
		local = localstore.NewMemoryStore()
	}
	return &Cache{
		feature:   options.Feature,
		path:      options.Path,
		documents: options.Documents,
		local:     local,
		session:   options.Session,
		listeners: make(map[int]func(Snapshot)),
	}, nil
}

func (cache *Cache) Feature() string {
	return cache.feature
}

// Attach binds the cache to subject. A nil subject detaches; attaching the
// identity already attached is a no-op.
func (cache *Cache) Attach(ctx context.Context, subject *identity.Identity) error {
	if subject == nil {
		cache.Detach()
		return nil
	}

	cache.mu.Lock()
	if cache.attached != nil && cache.attached.ID == subject.ID {
		cache.mu.Unlock()
		return nil
	}
	cache.detachLocked()
	attached := *subject
	cache.attached = &attached
	generation := cache.generation
	cache.mu.Unlock()

	go cache.loadLocal(context.WithoutCancel(ctx), generation, attached.ID)

	subscription, err := cache.documents.Subscribe(cache.path(attached.ID), func(document docstore.Document) {
		cache.apply(generation, attached.ID, document)
	})
	if err != nil {
		cache.mu.Lock()
		if cache.generation == generation {
			cache.detachLocked()
			cache.attached = nil
		}
		cache.mu.Unlock()
		return fmt.Errorf("subscribe %s: %w", cache.feature, err)
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.generation != generation {
		subscription.Cancel()
		return nil
	}
	cache.subscription = subscription
	logging.Debug().Str("feature", cache.feature).Str("identity_id", attached.ID).Uint64("generation", generation).Msg("sync cache attached")
	return nil
}

// Detach drops the subscription and the projection. Safe when idle.
func (cache *Cache) Detach() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.attached == nil && cache.subscription == nil {
		return
	}
	cache.detachLocked()
	cache.attached = nil
}

func (cache *Cache) detachLocked() {
	if cache.subscription != nil {
		cache.subscription.Cancel()
		cache.subscription = nil
	}
	cache.projection = nil
	cache.source = SourceNone
	cache.remoteSeen = false
	cache.generation++
}

// OnRemoteUpdate applies document as the authoritative snapshot for the
// attached identity.
func (cache *Cache) OnRemoteUpdate(document docstore.Document) {
	cache.mu.Lock()
	if cache.attached == nil {
		cache.mu.Unlock()
		return
	}
	generation, identityID := cache.generation, cache.attached.ID
	cache.mu.Unlock()

	cache.apply(generation, identityID, document)
}

func (cache *Cache) apply(generation uint64, identityID string, document docstore.Document) {
	if document == nil {
		document = docstore.Document{}
	}

	cache.mu.Lock()
	if generation != cache.generation {
		cache.mu.Unlock()
		metrics.SyncEmissions.WithLabelValues(cache.feature, "stale").Inc()
		return
	}
	cache.projection = document
	cache.source = SourceRemote
	cache.remoteSeen = true
	snapshot := cache.snapshotLocked()
	cache.mu.Unlock()

	metrics.SyncEmissions.WithLabelValues(cache.feature, "applied").Inc()
	cache.notify(snapshot)
	cache.mirror(identityID, document)
}

func (cache *Cache) mirror(identityID string, document docstore.Document) {
	key := localstore.Key(cache.feature, identityID)
	body, err := document.Encode()
	if err == nil {
		err = cache.local.Set(context.Background(), key, body)
	}
	if err != nil {
		metrics.SyncMirrorFailures.WithLabelValues(cache.feature).Inc()
		logging.Warn().Err(err).Str("feature", cache.feature).Str("key", key).Msg("local mirror write failed")
	}
}

func (cache *Cache) loadLocal(ctx context.Context, generation uint64, identityID string) {
	key := localstore.Key(cache.feature, identityID)
	body, found, err := cache.local.Get(ctx, key)
	if err != nil {
		logging.Warn().Err(err).Str("feature", cache.feature).Str("key", key).Msg("local mirror read failed")
		return
	}
	if !found {
		return
	}
	document, err := docstore.Decode(body)
	if err != nil {
		logging.Warn().Err(err).Str("feature", cache.feature).Str("key", key).Msg("local mirror is not a document")
		return
	}

	cache.mu.Lock()
	if generation != cache.generation || cache.remoteSeen {
		cache.mu.Unlock()
		return
	}
	cache.projection = document
	cache.source = SourceLocal
	snapshot := cache.snapshotLocked()
	cache.mu.Unlock()

	cache.notify(snapshot)
}

func (cache *Cache) snapshotLocked() Snapshot {
	cache.version++
	snapshot := Snapshot{
		Document:   cache.projection.Clone(),
		Source:     cache.source,
		Generation: cache.generation,
		version:    cache.version,
	}
	if cache.attached != nil {
		snapshot.IdentityID = cache.attached.ID
	}
	return snapshot
}

// notify delivers snapshots in projection order; one that lost a race to
// a newer projection is dropped.
func (cache *Cache) notify(snapshot Snapshot) {
	cache.notifyMu.Lock()
	defer cache.notifyMu.Unlock()
	if snapshot.version <= cache.notified {
		return
	}
	cache.notified = snapshot.version

	cache.mu.Lock()
	listeners := make([]func(Snapshot), 0, len(cache.listeners))
	for id := 0; id < cache.nextListener; id++ {
		if listener, ok := cache.listeners[id]; ok {
			listeners = append(listeners, listener)
		}
	}
	cache.mu.Unlock()

	for _, listener := range listeners {
		listener(snapshot)
	}
}

// Listen registers fn for projection changes and returns its cancel func.
func (cache *Cache) Listen(fn func(Snapshot)) func() {
	cache.mu.Lock()
	id := cache.nextListener
	cache.nextListener++
	cache.listeners[id] = fn
	cache.mu.Unlock()

	return func() {
		cache.mu.Lock()
		delete(cache.listeners, id)
		cache.mu.Unlock()
	}
}

// Projection returns a copy of the current projection; ok is false when
// nothing is attached.
func (cache *Cache) Projection() (docstore.Document, Source, bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.attached == nil {
		return nil, SourceNone, false
	}
	if cache.projection == nil {
		return nil, cache.source, true
	}
	return cache.projection.Clone(), cache.source, true
}

func (cache *Cache) Snapshot() (Snapshot, bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.attached == nil {
		return Snapshot{}, false
	}
	snapshot := Snapshot{
		IdentityID: cache.attached.ID,
		Source:     cache.source,
		Generation: cache.generation,
	}
	if cache.projection != nil {
		snapshot.Document = cache.projection.Clone()
	}
	return snapshot, true
}

func (cache *Cache) AttachedIdentity() (string, bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.attached == nil {
		return "", false
	}
	return cache.attached.ID, true
}

func (cache *Cache) Generation() uint64 {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.generation
}

// Follow attaches to the session's current identity and keeps the cache
// attached to whoever is signed in. The returned func stops following.
func (cache *Cache) Follow(ctx context.Context) func() {
	cancel := cache.session.OnChange(func(subject *identity.Identity) {
		if err := cache.Attach(ctx, subject); err != nil {
			logging.Error().Err(err).Str("feature", cache.feature).Msg("sync cache attach failed")
		}
	})
	if current, ok := cache.session.Current(); ok {
		if err := cache.Attach(ctx, &current); err != nil {
			logging.Error().Err(err).Str("feature", cache.feature).Msg("sync cache attach failed")
		}
	}

	cache.mu.Lock()
	cache.unfollow = cancel
	cache.mu.Unlock()
	return cancel
}

// Close stops following the session and detaches.
func (cache *Cache) Close() {
	cache.mu.Lock()
	unfollow := cache.unfollow
	cache.unfollow = nil
	cache.mu.Unlock()
	if unfollow != nil {
		unfollow()
	}
	cache.Detach()
}
