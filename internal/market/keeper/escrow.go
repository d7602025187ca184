package keeper

import (
	"math/big"
	"strconv"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/agora-market/agora/internal/market/types"
)

// The escrow ledger is the only component that issues transfer instructions.
// Settlement paths follow check-effects-interactions: every check precedes
// any mutation, and all internal state reaches its terminal form before the
// value-transfer port is called. A failed transfer rolls the touched records
// back, so the whole operation commits or aborts as one unit.

// CreateRequest escrows the listing price from buyer and opens a request in
// state InProgress. The transfer happens before any record is created: if the
// port reports failure, no request exists and nothing changed.
func (k *Keeper) CreateRequest(listingID uint64, buyer string) (uint64, error) {
	if err := k.lockMutating(); err != nil {
		return 0, err
	}
	defer k.mu.Unlock()

	if err := k.checkPaused(); err != nil {
		return 0, err
	}

	listing, ok := k.listings[listingID]
	if !ok {
		return 0, sdkerrors.Wrapf(types.ErrNotFound, "listing %d", listingID)
	}
	if !listing.Active {
		return 0, sdkerrors.Wrapf(types.ErrNotActive, "listing %d", listingID)
	}
	if buyer == "" {
		return 0, sdkerrors.Wrap(types.ErrUnauthorized, "empty buyer identity")
	}
	if IsSelfService(*listing, buyer) {
		return 0, sdkerrors.Wrapf(types.ErrSelfService, "buyer %s owns listing %d", buyer, listingID)
	}

	price := listing.Price
	if err := k.transfer(buyer, k.custody, price); err != nil {
		k.metrics.RejectedOperations.WithLabelValues("transfer_failed").Inc()
		return 0, sdkerrors.Wrapf(types.ErrTransferFailed, "escrow hold: %v", err)
	}

	id := k.nextRequestID
	k.nextRequestID++

	k.requests[id] = &types.Request{
		ID:        id,
		ListingID: listingID,
		Buyer:     buyer,
		Provider:  listing.Owner, // frozen at creation, never re-read
		Price:     price,         // frozen at creation, never re-read
		Status:    types.RequestStatusInProgress,
		CreatedAt: k.now(),
	}
	k.heldTotal = k.heldTotal.Add(price)

	k.metrics.RequestsCreated.Inc()
	k.metrics.RequestsOpen.Inc()
	k.metrics.ValueHeld.Set(intToFloat(k.heldTotal))

	em := types.NewEventManager()
	em.EmitEvent(types.NewEvent(types.EventTypeRequestCreated,
		types.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(id, 10)),
		types.NewAttribute(types.AttributeKeyListingID, strconv.FormatUint(listingID, 10)),
		types.NewAttribute(types.AttributeKeyBuyer, buyer),
		types.NewAttribute(types.AttributeKeyProvider, listing.Owner),
		types.NewAttribute(types.AttributeKeyPrice, price.String()),
	))
	k.commit(em)

	k.log.Info("request created", "request_id", id, "listing_id", listingID, "buyer", buyer, "price", price.String())
	return id, nil
}

// MarkComplete lets the provider declare delivery, stamping the completion
// time and starting the confirmation window.
func (k *Keeper) MarkComplete(requestID uint64, caller string) error {
	if err := k.lockMutating(); err != nil {
		return err
	}
	defer k.mu.Unlock()

	if err := k.checkPaused(); err != nil {
		return err
	}

	req, ok := k.requests[requestID]
	if !ok {
		return sdkerrors.Wrapf(types.ErrNotFound, "request %d", requestID)
	}
	if !IsProvider(*req, caller) {
		return sdkerrors.Wrapf(types.ErrUnauthorized, "caller %s is not the provider on request %d", caller, requestID)
	}
	if req.Status != types.RequestStatusInProgress {
		return sdkerrors.Wrapf(types.ErrInvalidState, "request %d is %s", requestID, req.Status)
	}

	req.Status = types.RequestStatusCompleted
	req.CompletedAt = k.now()

	em := types.NewEventManager()
	em.EmitEvent(types.NewEvent(types.EventTypeRequestCompleted,
		types.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(requestID, 10)),
		types.NewAttribute(types.AttributeKeyProvider, req.Provider),
		types.NewAttribute(types.AttributeKeyTimestamp, req.CompletedAt.Format(time.RFC3339)),
	))
	k.commit(em)

	return nil
}

// ConfirmCompletion settles a completed request from the buyer side: the
// listing's sale counter and the provider's reputation are updated, the
// request becomes Finalized, and only then is the held value released. The
// terminal transition happens before the external transfer so a reentrant
// call cannot observe a non-terminal state.
func (k *Keeper) ConfirmCompletion(requestID uint64, caller string, rating uint32) error {
	if err := k.lockMutating(); err != nil {
		return err
	}
	defer k.mu.Unlock()

	if err := k.checkPaused(); err != nil {
		return err
	}

	if rating < types.MinRating || rating > types.MaxRating {
		return sdkerrors.Wrapf(types.ErrInvalidRating, "got %d", rating)
	}
	req, ok := k.requests[requestID]
	if !ok {
		return sdkerrors.Wrapf(types.ErrNotFound, "request %d", requestID)
	}
	if !IsBuyer(*req, caller) {
		return sdkerrors.Wrapf(types.ErrUnauthorized, "caller %s is not the buyer on request %d", caller, requestID)
	}
	if req.Status != types.RequestStatusCompleted {
		return sdkerrors.Wrapf(types.ErrInvalidState, "request %d is %s", requestID, req.Status)
	}
	if req.RatingSubmitted {
		return sdkerrors.Wrapf(types.ErrDuplicateRating, "request %d", requestID)
	}

	snap := k.snapshot(req)

	// Effects, in order: sale counter, reputation, rating flag, terminal state.
	em := types.NewEventManager()
	if listing, ok := k.listings[req.ListingID]; ok {
		listing.TotalSales++
	}
	k.recordSettlement(em, req.Provider, rating)
	req.RatingSubmitted = true
	req.Status = types.RequestStatusFinalized
	k.heldTotal = k.heldTotal.Sub(req.Price)

	// Interaction last: release held value to the provider.
	if err := k.transfer(k.custody, req.Provider, req.Price); err != nil {
		k.restore(snap)
		k.metrics.RejectedOperations.WithLabelValues("transfer_failed").Inc()
		return sdkerrors.Wrapf(types.ErrTransferFailed, "escrow release: %v", err)
	}

	k.metrics.RequestsSettled.WithLabelValues("confirmed").Inc()
	k.metrics.RequestsOpen.Dec()
	k.metrics.ValueHeld.Set(intToFloat(k.heldTotal))
	k.metrics.ValueReleased.Add(intToFloat(req.Price))

	em.EmitEvent(types.NewEvent(types.EventTypeRequestConfirmed,
		types.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(requestID, 10)),
		types.NewAttribute(types.AttributeKeyListingID, strconv.FormatUint(req.ListingID, 10)),
		types.NewAttribute(types.AttributeKeyBuyer, req.Buyer),
		types.NewAttribute(types.AttributeKeyProvider, req.Provider),
		types.NewAttribute(types.AttributeKeyRating, strconv.FormatUint(uint64(rating), 10)),
	))
	em.EmitEvent(types.NewEvent(types.EventTypeValueReleased,
		types.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(requestID, 10)),
		types.NewAttribute(types.AttributeKeyProvider, req.Provider),
		types.NewAttribute(types.AttributeKeyAmount, req.Price.String()),
	))
	k.commit(em)

	k.log.Info("request confirmed", "request_id", requestID, "provider", req.Provider, "rating", rating)
	return nil
}

// ClaimAfterTimeout lets the provider settle unilaterally once the
// confirmation window has elapsed after completion, so a non-responsive buyer
// never strands the provider's funds. The settlement counts toward the
// provider's history but folds in no rating.
func (k *Keeper) ClaimAfterTimeout(requestID uint64, caller string) error {
	if err := k.lockMutating(); err != nil {
		return err
	}
	defer k.mu.Unlock()

	if err := k.checkPaused(); err != nil {
		return err
	}

	req, ok := k.requests[requestID]
	if !ok {
		return sdkerrors.Wrapf(types.ErrNotFound, "request %d", requestID)
	}
	if !IsProvider(*req, caller) {
		return sdkerrors.Wrapf(types.ErrUnauthorized, "caller %s is not the provider on request %d", caller, requestID)
	}
	if req.Status != types.RequestStatusCompleted {
		return sdkerrors.Wrapf(types.ErrInvalidState, "request %d is %s", requestID, req.Status)
	}
	if elapsed := k.now().Sub(req.CompletedAt); elapsed < k.params.ClaimTimeout {
		return sdkerrors.Wrapf(types.ErrTimeoutNotReached, "%s of %s elapsed", elapsed, k.params.ClaimTimeout)
	}

	snap := k.snapshot(req)

	em := types.NewEventManager()
	if listing, ok := k.listings[req.ListingID]; ok {
		listing.TotalSales++
	}
	k.recordSettlement(em, req.Provider, 0)
	req.Status = types.RequestStatusFinalized
	k.heldTotal = k.heldTotal.Sub(req.Price)

	if err := k.transfer(k.custody, req.Provider, req.Price); err != nil {
		k.restore(snap)
		k.metrics.RejectedOperations.WithLabelValues("transfer_failed").Inc()
		return sdkerrors.Wrapf(types.ErrTransferFailed, "timeout claim: %v", err)
	}

	k.metrics.RequestsSettled.WithLabelValues("timeout").Inc()
	k.metrics.RequestsOpen.Dec()
	k.metrics.ValueHeld.Set(intToFloat(k.heldTotal))
	k.metrics.ValueReleased.Add(intToFloat(req.Price))

	em.EmitEvent(types.NewEvent(types.EventTypeTimeoutClaimed,
		types.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(requestID, 10)),
		types.NewAttribute(types.AttributeKeyListingID, strconv.FormatUint(req.ListingID, 10)),
		types.NewAttribute(types.AttributeKeyProvider, req.Provider),
	))
	em.EmitEvent(types.NewEvent(types.EventTypeValueReleased,
		types.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(requestID, 10)),
		types.NewAttribute(types.AttributeKeyProvider, req.Provider),
		types.NewAttribute(types.AttributeKeyAmount, req.Price.String()),
	))
	k.commit(em)

	k.log.Info("timeout claimed", "request_id", requestID, "provider", req.Provider)
	return nil
}

// CancelRequest aborts a non-terminal request and refunds the full price to
// the buyer. The buyer cannot cancel after the provider has delivered; the
// provider keeps a cancel escape from any pre-finalized state. Cancellation
// stays available while the engine is paused.
func (k *Keeper) CancelRequest(requestID uint64, caller string) error {
	if err := k.lockMutating(); err != nil {
		return err
	}
	defer k.mu.Unlock()

	req, ok := k.requests[requestID]
	if !ok {
		return sdkerrors.Wrapf(types.ErrNotFound, "request %d", requestID)
	}
	if !IsBuyer(*req, caller) && !IsProvider(*req, caller) {
		return sdkerrors.Wrapf(types.ErrUnauthorized, "caller %s is not a party to request %d", caller, requestID)
	}
	if req.Status.Terminal() {
		return sdkerrors.Wrapf(types.ErrInvalidState, "request %d is %s", requestID, req.Status)
	}
	if IsBuyer(*req, caller) && req.Status == types.RequestStatusCompleted {
		return sdkerrors.Wrapf(types.ErrInvalidState, "buyer cannot cancel a completed request; confirm or let the timeout run")
	}

	snap := k.snapshot(req)

	req.Status = types.RequestStatusCancelled
	k.heldTotal = k.heldTotal.Sub(req.Price)

	if err := k.transfer(k.custody, req.Buyer, req.Price); err != nil {
		k.restore(snap)
		k.metrics.RejectedOperations.WithLabelValues("transfer_failed").Inc()
		return sdkerrors.Wrapf(types.ErrTransferFailed, "escrow refund: %v", err)
	}

	k.metrics.RequestsCancelled.Inc()
	k.metrics.RequestsOpen.Dec()
	k.metrics.ValueHeld.Set(intToFloat(k.heldTotal))
	k.metrics.ValueRefunded.Add(intToFloat(req.Price))

	em := types.NewEventManager()
	em.EmitEvent(types.NewEvent(types.EventTypeRequestCancelled,
		types.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(requestID, 10)),
		types.NewAttribute(types.AttributeKeyCaller, caller),
	))
	em.EmitEvent(types.NewEvent(types.EventTypeValueRefunded,
		types.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(requestID, 10)),
		types.NewAttribute(types.AttributeKeyBuyer, req.Buyer),
		types.NewAttribute(types.AttributeKeyAmount, req.Price.String()),
	))
	k.commit(em)

	k.log.Info("request cancelled", "request_id", requestID, "caller", caller)
	return nil
}

// settlementSnapshot captures the records a settlement path may touch, so a
// failed transfer restores them and the operation aborts with zero effects.
type settlementSnapshot struct {
	request    types.Request
	listing    *types.Listing
	listingVal types.Listing
	reputation *types.ReputationRecord
	repVal     types.ReputationRecord
	hadRep     bool
	heldTotal  math.Int
}

func (k *Keeper) snapshot(req *types.Request) settlementSnapshot {
	snap := settlementSnapshot{
		request:   *req,
		heldTotal: k.heldTotal,
	}
	if listing, ok := k.listings[req.ListingID]; ok {
		snap.listing = listing
		snap.listingVal = *listing
	}
	if rep, ok := k.reputations[req.Provider]; ok {
		snap.reputation = rep
		snap.repVal = *rep
		snap.hadRep = true
	}
	return snap
}

func (k *Keeper) restore(snap settlementSnapshot) {
	*k.requests[snap.request.ID] = snap.request
	if snap.listing != nil {
		*snap.listing = snap.listingVal
	}
	if snap.hadRep {
		*snap.reputation = snap.repVal
	} else {
		delete(k.reputations, snap.request.Provider)
	}
	k.heldTotal = snap.heldTotal
}

// intToFloat converts a math.Int to a float64 for gauge exposition. Precision
// loss beyond 2^53 is acceptable for metrics.
func intToFloat(i math.Int) float64 {
	f, _ := new(big.Float).SetInt(i.BigInt()).Float64()
	return f
}
