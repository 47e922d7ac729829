package synccache

import (
	"context"
	"fmt"

	"github.com/terraincognita07/liberate/internal/docstore"
	"github.com/terraincognita07/liberate/internal/metrics"
)

// CurrentIdentity resolves the session's identity at call time.
func (cache *Cache) CurrentIdentity() (string, error) {
	current, ok := cache.session.Current()
	if !ok {
		return "", ErrUnauthenticated
	}
	return current.ID, nil
}

// Fetch reads the authoritative remote document for the current identity.
// An absent document is returned empty.
func (cache *Cache) Fetch(ctx context.Context) (docstore.Document, string, error) {
	identityID, err := cache.CurrentIdentity()
	if err != nil {
		return nil, "", err
	}
	document, found, err := cache.documents.Read(ctx, cache.path(identityID))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrRemoteReadFailed, err)
	}
	if !found {
		document = docstore.Document{}
	}
	return document, identityID, nil
}

// Mutate merge-writes patch into the current identity's document.
func (cache *Cache) Mutate(ctx context.Context, patch docstore.Document) error {
	identityID, err := cache.CurrentIdentity()
	if err != nil {
		metrics.Mutations.WithLabelValues(cache.feature, "unauthenticated").Inc()
		return err
	}
	return cache.MutateFor(ctx, identityID, patch)
}

// MutateFor writes patch only while identityID is still the signed-in
// identity; a patch computed for someone who has since signed out is
// dropped with ErrUnauthenticated. The projection is left to the next
// remote emission.
func (cache *Cache) MutateFor(ctx context.Context, identityID string, patch docstore.Document) error {
	current, ok := cache.session.Current()
	if !ok || current.ID != identityID {
		metrics.Mutations.WithLabelValues(cache.feature, "unauthenticated").Inc()
		return ErrUnauthenticated
	}

	if err := cache.documents.MergeWrite(ctx, cache.path(current.ID), patch); err != nil {
		metrics.Mutations.WithLabelValues(cache.feature, "failed").Inc()
		return fmt.Errorf("%w: %w", ErrRemoteWriteFailed, err)
	}
	metrics.Mutations.WithLabelValues(cache.feature, "ok").Inc()
	return nil
}
