package discovery

import (
	"sort"
	"sync"

	"github.com/agora-market/agora/internal/market/types"
)

// Store persists the mirrored read model. Implementations must tolerate
// upserts arriving more than once for the same record: the mirror re-reads
// the engine on every notification.
type Store interface {
	UpsertListing(listing types.Listing) error
	Listing(id uint64) (types.Listing, bool, error)
	ActiveListings(offset, limit int) ([]types.Listing, bool, error)
	UpsertReputation(rec types.ReputationRecord) error
	Reputation(provider string) (types.ReputationRecord, bool, error)
	Close() error
}

// MemStore is the in-memory Store used when no Postgres mirror is configured.
type MemStore struct {
	mu          sync.RWMutex
	listings    map[uint64]types.Listing
	reputations map[string]types.ReputationRecord
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		listings:    make(map[uint64]types.Listing),
		reputations: make(map[string]types.ReputationRecord),
	}
}

// UpsertListing stores a listing snapshot.
func (s *MemStore) UpsertListing(listing types.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[listing.ID] = listing
	return nil
}

// Listing returns the mirrored listing by id.
func (s *MemStore) Listing(id uint64) (types.Listing, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	listing, ok := s.listings[id]
	return listing, ok, nil
}

// ActiveListings pages over mirrored active listings ordered by id.
func (s *MemStore) ActiveListings(offset, limit int) ([]types.Listing, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]types.Listing, 0, len(s.listings))
	for _, listing := range s.listings {
		if listing.Active {
			active = append(active, listing)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	if offset < 0 || limit < 0 || offset >= len(active) {
		return []types.Listing{}, false, nil
	}
	end := offset + limit
	if end > len(active) {
		end = len(active)
	}
	return active[offset:end], end < len(active), nil
}

// UpsertReputation stores a reputation snapshot.
func (s *MemStore) UpsertReputation(rec types.ReputationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reputations[rec.Provider] = rec
	return nil
}

// Reputation returns the mirrored reputation record for provider.
func (s *MemStore) Reputation(provider string) (types.ReputationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.reputations[provider]
	return rec, ok, nil
}

// Close is a no-op for the in-memory store.
func (s *MemStore) Close() error { return nil }
