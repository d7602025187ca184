package keeper_test

import (
	"errors"
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/agora-market/agora/internal/bank"
	"github.com/agora-market/agora/internal/market/keeper"
	"github.com/agora-market/agora/internal/market/types"
)

// flakyPort delegates to a ledger until told to fail.
type flakyPort struct {
	ledger *bank.Ledger
	fail   bool
}

func (p *flakyPort) Transfer(from, to string, amount math.Int) error {
	if p.fail {
		return errors.New("payment backend unavailable")
	}
	return p.ledger.Transfer(from, to, amount)
}

func (p *flakyPort) Balance(account string) math.Int {
	return p.ledger.Balance(account)
}

func newFlakyKeeper(t *testing.T) (*keeper.Keeper, *flakyPort, *testClock) {
	t.Helper()
	port := &flakyPort{ledger: bank.NewLedger()}
	clock := newTestClock()
	params := types.Params{ClaimTimeout: claimWindow, Admin: adminAccount}
	k := keeper.NewKeeper(log.NewNopLogger(), port, custodyAccount, params, clock.Now, nil)
	return k, port, clock
}

// A release failure must abort the whole confirmation: state back to
// Completed, sale counter and reputation untouched, held value intact.
func TestConfirmCompletion_TransferFailureRestoresState(t *testing.T) {
	k, port, _ := newFlakyKeeper(t)
	listingID := seedListing(t, k, "alice", 300)
	port.ledger.Mint("bob", math.NewInt(500))
	requestID, err := k.CreateRequest(listingID, "bob")
	require.NoError(t, err)
	require.NoError(t, k.MarkComplete(requestID, "alice"))

	port.fail = true
	require.ErrorIs(t, k.ConfirmCompletion(requestID, "bob", 5), types.ErrTransferFailed)

	req, err := k.GetRequest(requestID)
	require.NoError(t, err)
	require.Equal(t, types.RequestStatusCompleted, req.Status)
	require.False(t, req.RatingSubmitted)

	listing, err := k.GetListing(listingID)
	require.NoError(t, err)
	require.Zero(t, listing.TotalSales)

	average, ratingCount, settlementCount, err := k.GetReputation("alice")
	require.NoError(t, err)
	require.Zero(t, average)
	require.Zero(t, ratingCount)
	require.Zero(t, settlementCount)

	require.Equal(t, math.NewInt(300), port.ledger.Balance(custodyAccount))
	requireInvariants(t, k)

	// The retry settles cleanly once the backend recovers.
	port.fail = false
	require.NoError(t, k.ConfirmCompletion(requestID, "bob", 5))
	require.Equal(t, math.NewInt(300), port.ledger.Balance("alice"))
	requireInvariants(t, k)
}

func TestClaimAfterTimeout_TransferFailureRestoresState(t *testing.T) {
	k, port, clock := newFlakyKeeper(t)
	listingID := seedListing(t, k, "alice", 300)
	port.ledger.Mint("bob", math.NewInt(500))
	requestID, err := k.CreateRequest(listingID, "bob")
	require.NoError(t, err)
	require.NoError(t, k.MarkComplete(requestID, "alice"))
	clock.Advance(claimWindow)

	port.fail = true
	require.ErrorIs(t, k.ClaimAfterTimeout(requestID, "alice"), types.ErrTransferFailed)

	req, err := k.GetRequest(requestID)
	require.NoError(t, err)
	require.Equal(t, types.RequestStatusCompleted, req.Status)

	_, _, settlementCount, err := k.GetReputation("alice")
	require.NoError(t, err)
	require.Zero(t, settlementCount)
	requireInvariants(t, k)
}

func TestCancelRequest_TransferFailureRestoresState(t *testing.T) {
	k, port, _ := newFlakyKeeper(t)
	listingID := seedListing(t, k, "alice", 300)
	port.ledger.Mint("bob", math.NewInt(500))
	requestID, err := k.CreateRequest(listingID, "bob")
	require.NoError(t, err)

	port.fail = true
	require.ErrorIs(t, k.CancelRequest(requestID, "bob"), types.ErrTransferFailed)

	req, err := k.GetRequest(requestID)
	require.NoError(t, err)
	require.Equal(t, types.RequestStatusInProgress, req.Status)
	require.Equal(t, math.NewInt(300), port.ledger.Balance(custodyAccount))
	requireInvariants(t, k)
}

// reentrantPort calls back into the engine mid-transfer, recording what each
// nested call returned, then lets the transfer proceed.
type reentrantPort struct {
	ledger *bank.Ledger
	engine *keeper.Keeper

	nestedErrs []error
}

func (p *reentrantPort) Transfer(from, to string, amount math.Int) error {
	_, err := p.engine.CreateRequest(1, "mallory")
	p.nestedErrs = append(p.nestedErrs, err)

	err = p.engine.CancelRequest(1, "bob")
	p.nestedErrs = append(p.nestedErrs, err)

	_, err = p.engine.GetRequest(1)
	p.nestedErrs = append(p.nestedErrs, err)

	return p.ledger.Transfer(from, to, amount)
}

// Every callback into the engine while a transfer is in flight must be
// rejected; the outer operation still settles normally.
func TestSettlement_ReentrantPortRejected(t *testing.T) {
	port := &reentrantPort{ledger: bank.NewLedger()}
	clock := newTestClock()
	params := types.Params{ClaimTimeout: claimWindow, Admin: adminAccount}
	k := keeper.NewKeeper(log.NewNopLogger(), port, custodyAccount, params, clock.Now, nil)
	port.engine = k

	listingID := seedListing(t, k, "alice", 300)
	port.ledger.Mint("bob", math.NewInt(500))

	requestID, err := k.CreateRequest(listingID, "bob")
	require.NoError(t, err)
	require.NoError(t, k.MarkComplete(requestID, "alice"))
	require.NoError(t, k.ConfirmCompletion(requestID, "bob", 5))

	// Two settlement transfers ran (hold and release), three nested calls each.
	require.Len(t, port.nestedErrs, 6)
	for _, nested := range port.nestedErrs {
		require.ErrorIs(t, nested, types.ErrReentrancy)
	}

	// The outer operations were unaffected by the attacker.
	req, err := k.GetRequest(requestID)
	require.NoError(t, err)
	require.Equal(t, types.RequestStatusFinalized, req.Status)
	require.Equal(t, math.NewInt(300), port.ledger.Balance("alice"))
	requireInvariants(t, k)
}
