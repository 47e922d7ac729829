package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/liberate/internal/logging"
	"github.com/terraincognita07/liberate/internal/metrics"
	"github.com/terraincognita07/liberate/internal/models"
)

var ErrInvalidPath = errors.New("invalid document path")

type Repository interface {
	Find(path string) (models.StoredDocument, bool, error)
	Update(path string, ownerID string, change func(current string, found bool) (string, error)) (string, error)
}

// Hub serves reads and merge writes over a Repository and fans committed
// snapshots out to subscribers of the written path.
type Hub struct {
	repository Repository

	// writeMu orders commits and their notifications.
	writeMu sync.Mutex

	mu          sync.Mutex
	subscribers map[string]map[string]*Subscription
	// bodies holds the last stored body delivered per subscribed path.
	bodies map[string]string
}

func NewHub(repository Repository) *Hub {
	return &Hub{
		repository:  repository,
		subscribers: make(map[string]map[string]*Subscription),
		bodies:      make(map[string]string),
	}
}

func validatePath(path string) error {
	if strings.TrimSpace(path) == "" || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") || strings.Contains(path, "//") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}

// ownerOf extracts the identity id from users/<id>/... paths.
func ownerOf(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) >= 2 && parts[0] == "users" {
		return parts[1]
	}
	return ""
}

func (hub *Hub) Read(ctx context.Context, path string) (Document, bool, error) {
	if err := validatePath(path); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	stored, found, err := hub.repository.Find(path)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	if !found {
		return nil, false, nil
	}
	document, err := Decode(stored.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return document, true, nil
}

func (hub *Hub) MergeWrite(ctx context.Context, path string, partial Document) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	hub.writeMu.Lock()
	defer hub.writeMu.Unlock()

	var committed Document
	body, err := hub.repository.Update(path, ownerOf(path), func(current string, _ bool) (string, error) {
		document, err := Decode(current)
		if err != nil {
			return "", err
		}
		committed = Merge(document, partial)
		return committed.Encode()
	})
	if err != nil {
		return fmt.Errorf("merge write %s: %w", path, err)
	}

	hub.publish(path, committed, body)
	return nil
}

// Subscribe registers fn for full snapshots of path. The current snapshot
// (empty when absent) is delivered first.
func (hub *Hub) Subscribe(path string, fn func(Document)) (*Subscription, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, errors.New("subscription callback is required")
	}

	hub.writeMu.Lock()
	defer hub.writeMu.Unlock()

	stored, _, err := hub.repository.Find(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	current, err := Decode(stored.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	subscription := newSubscription(uuid.NewString(), path, hub, fn)
	hub.mu.Lock()
	if hub.subscribers[path] == nil {
		hub.subscribers[path] = make(map[string]*Subscription)
		hub.bodies[path] = stored.Body
	}
	hub.subscribers[path][subscription.id] = subscription
	hub.mu.Unlock()
	metrics.SyncActiveSubscriptions.Inc()

	subscription.offer(current)
	go subscription.run()

	logging.Debug().Str("path", path).Str("subscription", subscription.id).Msg("document subscription opened")
	return subscription, nil
}

func (hub *Hub) ActiveSubscriptions(path string) int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.subscribers[path])
}

// Refresh re-reads every subscribed path and publishes the ones whose stored
// body differs from the last snapshot this hub delivered. Commits made by
// another process sharing the repository only reach subscribers this way.
func (hub *Hub) Refresh(ctx context.Context) error {
	hub.mu.Lock()
	paths := make([]string, 0, len(hub.subscribers))
	for path := range hub.subscribers {
		paths = append(paths, path)
	}
	hub.mu.Unlock()

	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := hub.refreshPath(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (hub *Hub) refreshPath(path string) error {
	hub.writeMu.Lock()
	defer hub.writeMu.Unlock()

	stored, _, err := hub.repository.Find(path)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", path, err)
	}
	hub.mu.Lock()
	last, watched := hub.bodies[path]
	hub.mu.Unlock()
	if !watched || last == stored.Body {
		return nil
	}

	document, err := Decode(stored.Body)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", path, err)
	}
	hub.publish(path, document, stored.Body)
	return nil
}

// Poll runs Refresh every interval until ctx ends.
func (hub *Hub) Poll(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := hub.Refresh(ctx); err != nil && ctx.Err() == nil {
			logging.Warn().Err(err).Msg("document refresh failed")
		}
	}
}

func (hub *Hub) publish(path string, document Document, body string) {
	hub.mu.Lock()
	if _, watched := hub.subscribers[path]; watched {
		hub.bodies[path] = body
	}
	targets := make([]*Subscription, 0, len(hub.subscribers[path]))
	for _, subscription := range hub.subscribers[path] {
		targets = append(targets, subscription)
	}
	hub.mu.Unlock()

	for _, subscription := range targets {
		subscription.offer(document.Clone())
	}
}

func (hub *Hub) remove(subscription *Subscription) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	subscribers := hub.subscribers[subscription.path]
	if _, ok := subscribers[subscription.id]; !ok {
		return
	}
	delete(subscribers, subscription.id)
	if len(subscribers) == 0 {
		delete(hub.subscribers, subscription.path)
		delete(hub.bodies, subscription.path)
	}
	metrics.SyncActiveSubscriptions.Dec()
}
