package keeper

import (
	"fmt"

	"cosmossdk.io/math"

	"github.com/agora-market/agora/internal/market/types"
)

// Invariant checks. Each returns a human-readable report and whether the
// invariant is broken. Tests run them after every scenario; the admin API
// exposes AllInvariants for live verification.

// AllInvariants runs every invariant and stops at the first broken one.
func (k *Keeper) AllInvariants() (string, bool) {
	if msg, broken := k.ConservationInvariant(); broken {
		return msg, broken
	}
	if msg, broken := k.IndexConsistencyInvariant(); broken {
		return msg, broken
	}
	return k.ReputationBoundsInvariant()
}

// ConservationInvariant checks that the value owed to open requests matches
// both the ledger's running held-total and, when the port can report
// balances, the custody account itself (custody may exceed the sum only by
// unaccounted surplus, never fall below it).
func (k *Keeper) ConservationInvariant() (string, bool) {
	if err := k.lockQuery(); err != nil {
		return err.Error(), true
	}
	defer k.mu.RUnlock()

	sum := math.ZeroInt()
	for _, req := range k.requests {
		if !req.Status.Terminal() {
			sum = sum.Add(req.Price)
		}
	}

	if !sum.Equal(k.heldTotal) {
		return fmt.Sprintf(
			"conservation broken: open-request sum %s != held total %s",
			sum, k.heldTotal,
		), true
	}

	if reader, ok := k.port.(BalanceReader); ok {
		custody := reader.Balance(k.custody)
		if custody.LT(sum) {
			return fmt.Sprintf(
				"conservation broken: custody balance %s below open-request sum %s",
				custody, sum,
			), true
		}
	}

	return fmt.Sprintf("conservation holds: %s held across open requests", sum), false
}

// IndexConsistencyInvariant checks that the active sequence contains exactly
// the ids whose listing is active, with coherent stored positions.
func (k *Keeper) IndexConsistencyInvariant() (string, bool) {
	if err := k.lockQuery(); err != nil {
		return err.Error(), true
	}
	defer k.mu.RUnlock()

	for id, listing := range k.listings {
		if listing.Active != k.activeIndex.Contains(id) {
			return fmt.Sprintf(
				"index broken: listing %d active=%t but index membership=%t",
				id, listing.Active, k.activeIndex.Contains(id),
			), true
		}
	}
	for i, id := range k.activeIndex.IDs() {
		if _, ok := k.listings[id]; !ok {
			return fmt.Sprintf("index broken: sequence holds unknown listing %d", id), true
		}
		if k.activeIndex.Position(id) != i {
			return fmt.Sprintf(
				"index broken: listing %d at sequence position %d but stored position %d",
				id, i, k.activeIndex.Position(id),
			), true
		}
	}

	return fmt.Sprintf("index holds: %d active listings", k.activeIndex.Len()), false
}

// ReputationBoundsInvariant checks that every rated provider's average stays
// within [100, 500] and that settlements never undercount ratings.
func (k *Keeper) ReputationBoundsInvariant() (string, bool) {
	if err := k.lockQuery(); err != nil {
		return err.Error(), true
	}
	defer k.mu.RUnlock()

	for provider, rec := range k.reputations {
		if rec.RatingCount > 0 {
			min := uint64(types.MinRating) * types.RatingScale
			max := uint64(types.MaxRating) * types.RatingScale
			if rec.AverageScaled < min || rec.AverageScaled > max {
				return fmt.Sprintf(
					"reputation broken: provider %s average %d outside [%d, %d]",
					provider, rec.AverageScaled, min, max,
				), true
			}
		}
		if rec.SettlementCount < rec.RatingCount {
			return fmt.Sprintf(
				"reputation broken: provider %s settlements %d < ratings %d",
				provider, rec.SettlementCount, rec.RatingCount,
			), true
		}
	}

	return fmt.Sprintf("reputation holds for %d providers", len(k.reputations)), false
}
