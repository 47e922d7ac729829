package docstore

import (
	"sync"
	"sync/atomic"
)

// Subscription delivers snapshots on its own goroutine. Delivery coalesces:
// a slow callback skips intermediate snapshots and sees the newest one.
type Subscription struct {
	id   string
	path string
	hub  *Hub
	fn   func(Document)

	mu      sync.Mutex
	latest  Document
	pending bool

	signal    chan struct{}
	done      chan struct{}
	cancelled atomic.Bool
	once      sync.Once
}

func newSubscription(id string, path string, hub *Hub, fn func(Document)) *Subscription {
	return &Subscription{
		id:     id,
		path:   path,
		hub:    hub,
		fn:     fn,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (subscription *Subscription) ID() string {
	return subscription.id
}

func (subscription *Subscription) Path() string {
	return subscription.path
}

func (subscription *Subscription) offer(document Document) {
	subscription.mu.Lock()
	subscription.latest = document
	subscription.pending = true
	subscription.mu.Unlock()

	select {
	case subscription.signal <- struct{}{}:
	default:
	}
}

func (subscription *Subscription) run() {
	for {
		select {
		case <-subscription.done:
			return
		case <-subscription.signal:
		}

		subscription.mu.Lock()
		document, pending := subscription.latest, subscription.pending
		subscription.latest, subscription.pending = nil, false
		subscription.mu.Unlock()

		if !pending || subscription.cancelled.Load() {
			continue
		}
		subscription.fn(document)
	}
}

// Cancel stops delivery. It is idempotent and safe to call from inside the
// callback; a callback already running is allowed to finish.
func (subscription *Subscription) Cancel() {
	subscription.once.Do(func() {
		subscription.cancelled.Store(true)
		close(subscription.done)
		subscription.hub.remove(subscription)
	})
}
