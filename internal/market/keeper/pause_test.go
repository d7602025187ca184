package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/agora-market/agora/internal/market/types"
)

func TestPause_AdminOnly(t *testing.T) {
	k, _, _, _ := newTestKeeper(t)

	require.ErrorIs(t, k.Pause("mallory"), types.ErrUnauthorized)
	require.False(t, k.Paused())

	require.NoError(t, k.Pause(adminAccount))
	require.True(t, k.Paused())
}

func TestPause_Idempotent(t *testing.T) {
	k, _, _, sink := newTestKeeper(t)

	require.NoError(t, k.Pause(adminAccount))
	require.NoError(t, k.Pause(adminAccount))
	require.True(t, k.Paused())

	// Only the first call emits.
	count := 0
	for _, event := range sink.Events() {
		if event.Type == types.EventTypePaused {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestPause_BlocksMutations(t *testing.T) {
	k, ledger, _, _ := newTestKeeper(t)
	listingID := seedListing(t, k, "alice", 300)
	requestID := seedRequest(t, k, ledger, listingID, "bob", 1000)
	require.NoError(t, k.MarkComplete(requestID, "alice"))

	require.NoError(t, k.Pause(adminAccount))

	_, err := k.RegisterListing("carol", "design", "", math.NewInt(50))
	require.ErrorIs(t, err, types.ErrPaused)
	require.ErrorIs(t, k.UpdateListing(listingID, "alice", "x", "", math.NewInt(1), true), types.ErrPaused)
	require.ErrorIs(t, k.DeactivateListing(listingID, "alice"), types.ErrPaused)
	_, err = k.CreateRequest(listingID, "carol")
	require.ErrorIs(t, err, types.ErrPaused)
	require.ErrorIs(t, k.MarkComplete(requestID, "alice"), types.ErrPaused)
	require.ErrorIs(t, k.ConfirmCompletion(requestID, "bob", 5), types.ErrPaused)
	require.ErrorIs(t, k.ClaimAfterTimeout(requestID, "alice"), types.ErrPaused)
}

func TestPause_QueriesStillServe(t *testing.T) {
	k, ledger, _, _ := newTestKeeper(t)
	listingID := seedListing(t, k, "alice", 300)
	seedRequest(t, k, ledger, listingID, "bob", 1000)
	require.NoError(t, k.Pause(adminAccount))

	_, err := k.GetListing(listingID)
	require.NoError(t, err)
	_, err = k.GetRequest(1)
	require.NoError(t, err)
	_, _, _, err = k.Totals()
	require.NoError(t, err)
}

// Cancellation is the one mutating escape hatch that stays open while paused,
// so nobody's funds can be stranded by a halted engine.
func TestPause_CancelStillWorks(t *testing.T) {
	k, ledger, _, _ := newTestKeeper(t)
	listingID := seedListing(t, k, "alice", 300)
	requestID := seedRequest(t, k, ledger, listingID, "bob", 1000)
	require.NoError(t, k.Pause(adminAccount))

	require.NoError(t, k.CancelRequest(requestID, "bob"))
	require.Equal(t, math.NewInt(1000), ledger.Balance("bob"))
	requireInvariants(t, k)
}

func TestUnpause_RestoresOperations(t *testing.T) {
	k, _, _, _ := newTestKeeper(t)
	require.NoError(t, k.Pause(adminAccount))

	require.ErrorIs(t, k.Unpause("mallory"), types.ErrUnauthorized)
	require.NoError(t, k.Unpause(adminAccount))
	require.False(t, k.Paused())

	_, err := k.RegisterListing("alice", "review", "", math.NewInt(100))
	require.NoError(t, err)
}

func TestEmergencyWithdraw_AdminOnly(t *testing.T) {
	k, _, _, _ := newTestKeeper(t)

	err := k.EmergencyWithdraw("mallory", "mallory", math.NewInt(100))
	require.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestEmergencyWithdraw_NonPositiveAmount(t *testing.T) {
	k, _, _, _ := newTestKeeper(t)

	require.ErrorIs(t, k.EmergencyWithdraw(adminAccount, "ops", math.NewInt(0)), types.ErrInvalidPrice)
	require.ErrorIs(t, k.EmergencyWithdraw(adminAccount, "ops", math.NewInt(-5)), types.ErrInvalidPrice)
}

// Only custody value in excess of what open requests are owed can leave; the
// escrowed sum itself is untouchable.
func TestEmergencyWithdraw_SurplusBound(t *testing.T) {
	k, ledger, _, _ := newTestKeeper(t)
	listingID := seedListing(t, k, "alice", 300)
	seedRequest(t, k, ledger, listingID, "bob", 1000)

	// Stray value lands in custody outside normal accounting.
	ledger.Mint(custodyAccount, math.NewInt(500))

	err := k.EmergencyWithdraw(adminAccount, "ops", math.NewInt(501))
	require.ErrorIs(t, err, types.ErrTransferFailed)

	require.NoError(t, k.EmergencyWithdraw(adminAccount, "ops", math.NewInt(500)))
	require.Equal(t, math.NewInt(500), ledger.Balance("ops"))
	require.Equal(t, math.NewInt(300), ledger.Balance(custodyAccount))
	requireInvariants(t, k)
}

func TestEmergencyWithdraw_WorksWhilePaused(t *testing.T) {
	k, ledger, _, _ := newTestKeeper(t)
	ledger.Mint(custodyAccount, math.NewInt(100))
	require.NoError(t, k.Pause(adminAccount))

	require.NoError(t, k.EmergencyWithdraw(adminAccount, "ops", math.NewInt(100)))
	require.Equal(t, math.NewInt(100), ledger.Balance("ops"))
}
