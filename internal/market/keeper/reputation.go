package keeper

import (
	"strconv"

	"github.com/agora-market/agora/internal/market/types"
)

// recordSettlement folds one settlement into the provider's record. rating 0
// means the settlement carries no rating (timeout path); otherwise rating is
// 1-5, validated by the caller.
//
// The average is an O(1) weighted running mean: each new rating is folded in
// using the current rating count as its weight, with truncating integer
// division. Later ratings therefore carry the rolling weight of everything
// before them; no individual rating is kept and none is ever corrected
// retroactively. This is the single entry point that mutates reputation, and
// only the escrow ledger invokes it.
func (k *Keeper) recordSettlement(em *types.EventManager, provider string, rating uint32) {
	rec, ok := k.reputations[provider]
	if !ok {
		rec = &types.ReputationRecord{Provider: provider}
		k.reputations[provider] = rec
	}

	rec.SettlementCount++
	if rating > 0 {
		scaled := uint64(rating) * types.RatingScale
		if rec.RatingCount == 0 {
			rec.AverageScaled = scaled
		} else {
			rec.AverageScaled = (rec.AverageScaled*rec.RatingCount + scaled) / (rec.RatingCount + 1)
		}
		rec.RatingCount++
	}

	em.EmitEvent(types.NewEvent(types.EventTypeReputationUpdated,
		types.NewAttribute(types.AttributeKeyProvider, provider),
		types.NewAttribute(types.AttributeKeyAverage, strconv.FormatUint(rec.AverageScaled, 10)),
		types.NewAttribute(types.AttributeKeyRatingCount, strconv.FormatUint(rec.RatingCount, 10)),
		types.NewAttribute(types.AttributeKeySettlements, strconv.FormatUint(rec.SettlementCount, 10)),
	))
}

// GetReputation returns the provider's running average (scaled by 100),
// rating count and settlement count. A provider with no history reads as all
// zeros.
func (k *Keeper) GetReputation(provider string) (average, ratingCount, settlementCount uint64, err error) {
	if err := k.lockQuery(); err != nil {
		return 0, 0, 0, err
	}
	defer k.mu.RUnlock()

	rec, ok := k.reputations[provider]
	if !ok {
		return 0, 0, 0, nil
	}
	return rec.AverageScaled, rec.RatingCount, rec.SettlementCount, nil
}
