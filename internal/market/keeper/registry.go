package keeper

import (
	"strconv"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/agora-market/agora/internal/market/types"
)

// RegisterListing creates an active listing owned by owner and indexes it for
// discovery. Returns the newly assigned listing id.
func (k *Keeper) RegisterListing(owner, name, description string, price math.Int) (uint64, error) {
	if err := k.lockMutating(); err != nil {
		return 0, err
	}
	defer k.mu.Unlock()

	if err := k.checkPaused(); err != nil {
		return 0, err
	}
	if owner == "" {
		return 0, sdkerrors.Wrap(types.ErrUnauthorized, "empty owner identity")
	}
	if price.IsNil() || !price.IsPositive() {
		return 0, sdkerrors.Wrapf(types.ErrInvalidPrice, "got %s", price)
	}
	if name == "" {
		return 0, types.ErrInvalidName
	}

	id := k.nextListingID
	k.nextListingID++

	listing := &types.Listing{
		ID:          id,
		Owner:       owner,
		Name:        name,
		Description: description,
		Price:       price,
		Active:      true,
		CreatedAt:   k.now(),
	}
	k.listings[id] = listing
	k.ownerListings[owner] = append(k.ownerListings[owner], id)
	k.activeIndex.Insert(id)

	k.metrics.ListingsRegistered.Inc()
	k.metrics.ListingsActive.Set(float64(k.activeIndex.Len()))

	em := types.NewEventManager()
	em.EmitEvent(types.NewEvent(types.EventTypeListingRegistered,
		types.NewAttribute(types.AttributeKeyListingID, strconv.FormatUint(id, 10)),
		types.NewAttribute(types.AttributeKeyOwner, owner),
		types.NewAttribute(types.AttributeKeyPrice, price.String()),
	))
	k.commit(em)

	k.log.Info("listing registered", "listing_id", id, "owner", owner, "price", price.String())
	return id, nil
}

// UpdateListing rewrites a listing's mutable fields. Only the owner may call
// it; toggling active keeps the discovery index in step, idempotently.
func (k *Keeper) UpdateListing(listingID uint64, caller, name, description string, price math.Int, active bool) error {
	if err := k.lockMutating(); err != nil {
		return err
	}
	defer k.mu.Unlock()

	if err := k.checkPaused(); err != nil {
		return err
	}

	listing, ok := k.listings[listingID]
	if !ok {
		return sdkerrors.Wrapf(types.ErrNotFound, "listing %d", listingID)
	}
	if !IsOwner(*listing, caller) {
		return sdkerrors.Wrapf(types.ErrUnauthorized, "caller %s is not the owner of listing %d", caller, listingID)
	}
	if price.IsNil() || !price.IsPositive() {
		return sdkerrors.Wrapf(types.ErrInvalidPrice, "got %s", price)
	}

	listing.Name = name
	listing.Description = description
	listing.Price = price
	if active != listing.Active {
		listing.Active = active
		if active {
			k.activeIndex.Insert(listingID)
		} else {
			k.activeIndex.Remove(listingID)
		}
		k.metrics.ListingsActive.Set(float64(k.activeIndex.Len()))
	}

	em := types.NewEventManager()
	em.EmitEvent(types.NewEvent(types.EventTypeListingUpdated,
		types.NewAttribute(types.AttributeKeyListingID, strconv.FormatUint(listingID, 10)),
		types.NewAttribute(types.AttributeKeyOwner, listing.Owner),
		types.NewAttribute(types.AttributeKeyPrice, price.String()),
		types.NewAttribute(types.AttributeKeyActive, strconv.FormatBool(active)),
	))
	k.commit(em)

	return nil
}

// DeactivateListing removes a listing from the purchasable set. Narrower and
// cheaper than UpdateListing with active=false; idempotent when already
// inactive.
func (k *Keeper) DeactivateListing(listingID uint64, caller string) error {
	if err := k.lockMutating(); err != nil {
		return err
	}
	defer k.mu.Unlock()

	if err := k.checkPaused(); err != nil {
		return err
	}

	listing, ok := k.listings[listingID]
	if !ok {
		return sdkerrors.Wrapf(types.ErrNotFound, "listing %d", listingID)
	}
	if !IsOwner(*listing, caller) {
		return sdkerrors.Wrapf(types.ErrUnauthorized, "caller %s is not the owner of listing %d", caller, listingID)
	}

	if listing.Active {
		listing.Active = false
		k.activeIndex.Remove(listingID)
		k.metrics.ListingsActive.Set(float64(k.activeIndex.Len()))
	}

	em := types.NewEventManager()
	em.EmitEvent(types.NewEvent(types.EventTypeListingDeactivated,
		types.NewAttribute(types.AttributeKeyListingID, strconv.FormatUint(listingID, 10)),
		types.NewAttribute(types.AttributeKeyOwner, listing.Owner),
	))
	k.commit(em)

	return nil
}
