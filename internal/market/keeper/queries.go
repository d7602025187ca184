package keeper

import (
	"time"

	sdkerrors "cosmossdk.io/errors"

	"github.com/agora-market/agora/internal/market/types"
)

// GetListing returns the listing by id. Id 0 is reserved as "no listing" and
// always resolves to ErrNotFound.
func (k *Keeper) GetListing(listingID uint64) (types.Listing, error) {
	if err := k.lockQuery(); err != nil {
		return types.Listing{}, err
	}
	defer k.mu.RUnlock()

	listing, ok := k.listings[listingID]
	if !ok {
		return types.Listing{}, sdkerrors.Wrapf(types.ErrNotFound, "listing %d", listingID)
	}
	return *listing, nil
}

// GetListings batch-resolves ids, skipping unknown ones.
func (k *Keeper) GetListings(ids []uint64) ([]types.Listing, error) {
	if err := k.lockQuery(); err != nil {
		return nil, err
	}
	defer k.mu.RUnlock()

	out := make([]types.Listing, 0, len(ids))
	for _, id := range ids {
		if listing, ok := k.listings[id]; ok {
			out = append(out, *listing)
		}
	}
	return out, nil
}

// ListActiveListings paginates over the active sequence in index order.
func (k *Keeper) ListActiveListings(offset, limit int) ([]uint64, bool, error) {
	if err := k.lockQuery(); err != nil {
		return nil, false, err
	}
	defer k.mu.RUnlock()

	ids, hasMore := k.activeIndex.Slice(offset, limit)
	return ids, hasMore, nil
}

// OwnerListings returns the ids of every listing ever registered by owner, in
// registration order.
func (k *Keeper) OwnerListings(owner string) ([]uint64, error) {
	if err := k.lockQuery(); err != nil {
		return nil, err
	}
	defer k.mu.RUnlock()

	ids := k.ownerListings[owner]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out, nil
}

// GetRequest returns the request by id.
func (k *Keeper) GetRequest(requestID uint64) (types.Request, error) {
	if err := k.lockQuery(); err != nil {
		return types.Request{}, err
	}
	defer k.mu.RUnlock()

	req, ok := k.requests[requestID]
	if !ok {
		return types.Request{}, sdkerrors.Wrapf(types.ErrNotFound, "request %d", requestID)
	}
	return *req, nil
}

// Totals reports listing count, request count and active listing count.
func (k *Keeper) Totals() (listings, requests, active uint64, err error) {
	if err := k.lockQuery(); err != nil {
		return 0, 0, 0, err
	}
	defer k.mu.RUnlock()

	return k.nextListingID - 1, k.nextRequestID - 1, uint64(k.activeIndex.Len()), nil
}

// TimeoutStatus reports the seconds remaining before ClaimAfterTimeout
// becomes eligible and whether it already is. Unknown ids and requests not in
// state Completed read as (0, false).
func (k *Keeper) TimeoutStatus(requestID uint64) (secondsRemaining uint64, claimable bool) {
	if err := k.lockQuery(); err != nil {
		return 0, false
	}
	defer k.mu.RUnlock()

	req, ok := k.requests[requestID]
	if !ok || req.Status != types.RequestStatusCompleted {
		return 0, false
	}

	elapsed := k.now().Sub(req.CompletedAt)
	if elapsed >= k.params.ClaimTimeout {
		return 0, true
	}
	remaining := k.params.ClaimTimeout - elapsed
	// Round up so a sub-second remainder still reads as one second to wait.
	return uint64((remaining + time.Second - 1) / time.Second), false
}

// CanClaimTimeout reports whether the claim window has elapsed for requestID.
func (k *Keeper) CanClaimTimeout(requestID uint64) bool {
	_, claimable := k.TimeoutStatus(requestID)
	return claimable
}
