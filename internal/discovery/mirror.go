// Package discovery maintains the read-side mirror of the settlement engine.
// It consumes the committed event stream and treats every notification as the
// sole signal to refresh its copy through the engine's read operations; it
// never writes back into the engine's record store.
package discovery

import (
	"context"

	"github.com/spf13/cast"

	"github.com/agora-market/agora/internal/market/types"
	"github.com/agora-market/agora/pkg/logger"
)

// CoreReader is the subset of engine read operations the mirror refreshes
// from. The keeper satisfies it.
type CoreReader interface {
	GetListing(listingID uint64) (types.Listing, error)
	GetReputation(provider string) (average, ratingCount, settlementCount uint64, err error)
}

// Invalidator drops cached reads after a refresh. The Redis cache satisfies
// it; a nil invalidator is fine.
type Invalidator interface {
	InvalidateListing(ctx context.Context, id uint64)
	InvalidateActive(ctx context.Context)
	InvalidateReputation(ctx context.Context, provider string)
}

// Mirror applies engine events to a Store.
type Mirror struct {
	core  CoreReader
	store Store
	inval Invalidator
	log   *logger.Logger
}

// NewMirror creates a mirror refreshing store from core on every event.
func NewMirror(core CoreReader, store Store, inval Invalidator, log *logger.Logger) *Mirror {
	return &Mirror{core: core, store: store, inval: inval, log: log}
}

// Run consumes events until the channel closes or ctx is cancelled.
func (m *Mirror) Run(ctx context.Context, events <-chan types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.Apply(ctx, event)
		}
	}
}

// Apply refreshes the mirrored records named by a single event.
func (m *Mirror) Apply(ctx context.Context, event types.Event) {
	switch event.Type {
	case types.EventTypeListingRegistered,
		types.EventTypeListingUpdated,
		types.EventTypeListingDeactivated,
		types.EventTypeRequestConfirmed,
		types.EventTypeTimeoutClaimed:
		// Settlement events carry the listing id too: they bump the sale
		// counter, so the listing snapshot is stale as well.
		if raw, ok := event.Attribute(types.AttributeKeyListingID); ok {
			m.refreshListing(ctx, cast.ToUint64(raw))
		}
		if provider, ok := event.Attribute(types.AttributeKeyProvider); ok {
			m.refreshReputation(ctx, provider)
		}

	case types.EventTypeReputationUpdated:
		if provider, ok := event.Attribute(types.AttributeKeyProvider); ok {
			m.refreshReputation(ctx, provider)
		}
	}
}

func (m *Mirror) refreshListing(ctx context.Context, id uint64) {
	if id == 0 {
		return
	}
	listing, err := m.core.GetListing(id)
	if err != nil {
		m.log.Warn("mirror refresh failed", "listing_id", id, "error", err.Error())
		return
	}
	if err := m.store.UpsertListing(listing); err != nil {
		m.log.Error("mirror store upsert failed", "listing_id", id, "error", err.Error())
		return
	}
	if m.inval != nil {
		m.inval.InvalidateListing(ctx, id)
		m.inval.InvalidateActive(ctx)
	}
}

func (m *Mirror) refreshReputation(ctx context.Context, provider string) {
	average, ratings, settlements, err := m.core.GetReputation(provider)
	if err != nil {
		m.log.Warn("mirror refresh failed", "provider", provider, "error", err.Error())
		return
	}
	rec := types.ReputationRecord{
		Provider:        provider,
		RatingCount:     ratings,
		AverageScaled:   average,
		SettlementCount: settlements,
	}
	if err := m.store.UpsertReputation(rec); err != nil {
		m.log.Error("mirror store upsert failed", "provider", provider, "error", err.Error())
		return
	}
	if m.inval != nil {
		m.inval.InvalidateReputation(ctx, provider)
	}
}
