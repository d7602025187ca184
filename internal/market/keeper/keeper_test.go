package keeper_test

import (
	"sync"
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/agora-market/agora/internal/bank"
	"github.com/agora-market/agora/internal/market/keeper"
	"github.com/agora-market/agora/internal/market/types"
)

const (
	custodyAccount = "escrow-custody"
	adminAccount   = "admin"
	claimWindow    = 24 * time.Hour
)

// testClock is a settable engine clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSink captures committed events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []types.Event
}

func (s *recordingSink) Publish(events ...types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func (s *recordingSink) Events() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) Last(eventType string) (types.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Type == eventType {
			return s.events[i], true
		}
	}
	return types.Event{}, false
}

func newTestKeeper(t *testing.T) (*keeper.Keeper, *bank.Ledger, *testClock, *recordingSink) {
	t.Helper()
	ledger := bank.NewLedger()
	clock := newTestClock()
	sink := &recordingSink{}
	params := types.Params{
		ClaimTimeout: claimWindow,
		Admin:        adminAccount,
	}
	k := keeper.NewKeeper(log.NewNopLogger(), ledger, custodyAccount, params, clock.Now, sink)
	return k, ledger, clock, sink
}

// seedListing registers an active listing and returns its id.
func seedListing(t *testing.T, k *keeper.Keeper, owner string, price int64) uint64 {
	t.Helper()
	id, err := k.RegisterListing(owner, "code review", "thorough review of one PR", math.NewInt(price))
	require.NoError(t, err)
	return id
}

// seedRequest funds the buyer and opens a request against listingID.
func seedRequest(t *testing.T, k *keeper.Keeper, ledger *bank.Ledger, listingID uint64, buyer string, funds int64) uint64 {
	t.Helper()
	ledger.Mint(buyer, math.NewInt(funds))
	id, err := k.CreateRequest(listingID, buyer)
	require.NoError(t, err)
	return id
}

// attr resolves an event attribute, failing the test when absent.
func attr(t *testing.T, event types.Event, key string) string {
	t.Helper()
	value, ok := event.Attribute(key)
	require.True(t, ok, "event %s missing attribute %s", event.Type, key)
	return value
}

// requireInvariants fails the test if any engine invariant is broken.
func requireInvariants(t *testing.T, k *keeper.Keeper) {
	t.Helper()
	msg, broken := k.AllInvariants()
	require.False(t, broken, msg)
}
