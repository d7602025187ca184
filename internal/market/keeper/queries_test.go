package keeper_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeoutStatus_UnknownRequest(t *testing.T) {
	k, _, _, _ := newTestKeeper(t)

	remaining, claimable := k.TimeoutStatus(42)
	require.Zero(t, remaining)
	require.False(t, claimable)
}

func TestTimeoutStatus_NotCompleted(t *testing.T) {
	k, ledger, _, _ := newTestKeeper(t)
	listingID := seedListing(t, k, "alice", 300)
	requestID := seedRequest(t, k, ledger, listingID, "bob", 500)

	remaining, claimable := k.TimeoutStatus(requestID)
	require.Zero(t, remaining)
	require.False(t, claimable)
}

func TestTimeoutStatus_CountsDown(t *testing.T) {
	k, ledger, clock, _ := newTestKeeper(t)
	listingID := seedListing(t, k, "alice", 300)
	requestID := seedRequest(t, k, ledger, listingID, "bob", 500)
	require.NoError(t, k.MarkComplete(requestID, "alice"))

	remaining, claimable := k.TimeoutStatus(requestID)
	require.Equal(t, uint64(claimWindow/time.Second), remaining)
	require.False(t, claimable)

	clock.Advance(claimWindow / 2)
	remaining, claimable = k.TimeoutStatus(requestID)
	require.Equal(t, uint64(claimWindow/time.Second/2), remaining)
	require.False(t, claimable)
}

// A sub-second remainder still reads as one whole second to wait.
func TestTimeoutStatus_RoundsUp(t *testing.T) {
	k, ledger, clock, _ := newTestKeeper(t)
	listingID := seedListing(t, k, "alice", 300)
	requestID := seedRequest(t, k, ledger, listingID, "bob", 500)
	require.NoError(t, k.MarkComplete(requestID, "alice"))

	clock.Advance(claimWindow - 1500*time.Millisecond)
	remaining, claimable := k.TimeoutStatus(requestID)
	require.Equal(t, uint64(2), remaining)
	require.False(t, claimable)

	clock.Advance(1400 * time.Millisecond)
	remaining, claimable = k.TimeoutStatus(requestID)
	require.Equal(t, uint64(1), remaining)
	require.False(t, claimable)
}

func TestTimeoutStatus_ClaimableAtBoundary(t *testing.T) {
	k, ledger, clock, _ := newTestKeeper(t)
	listingID := seedListing(t, k, "alice", 300)
	requestID := seedRequest(t, k, ledger, listingID, "bob", 500)
	require.NoError(t, k.MarkComplete(requestID, "alice"))

	clock.Advance(claimWindow)
	remaining, claimable := k.TimeoutStatus(requestID)
	require.Zero(t, remaining)
	require.True(t, claimable)
	require.True(t, k.CanClaimTimeout(requestID))
}

func TestCanClaimTimeout_FalseBeforeWindow(t *testing.T) {
	k, ledger, clock, _ := newTestKeeper(t)
	listingID := seedListing(t, k, "alice", 300)
	requestID := seedRequest(t, k, ledger, listingID, "bob", 500)
	require.NoError(t, k.MarkComplete(requestID, "alice"))
	clock.Advance(claimWindow - time.Second)

	require.False(t, k.CanClaimTimeout(requestID))
}
