package keeper

import (
	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/agora-market/agora/internal/market/types"
)

// Pause gates every mutating operation except cancellation paths behind
// ErrPaused. Admin only. Idempotent.
func (k *Keeper) Pause(caller string) error {
	if err := k.lockMutating(); err != nil {
		return err
	}
	defer k.mu.Unlock()

	if err := k.requireAdmin(caller); err != nil {
		return err
	}
	if k.paused {
		return nil
	}
	k.paused = true

	em := types.NewEventManager()
	em.EmitEvent(types.NewEvent(types.EventTypePaused,
		types.NewAttribute(types.AttributeKeyCaller, caller),
	))
	k.commit(em)

	k.log.Warn("engine paused", "caller", caller)
	return nil
}

// Unpause lifts the pause gate. Admin only. Idempotent.
func (k *Keeper) Unpause(caller string) error {
	if err := k.lockMutating(); err != nil {
		return err
	}
	defer k.mu.Unlock()

	if err := k.requireAdmin(caller); err != nil {
		return err
	}
	if !k.paused {
		return nil
	}
	k.paused = false

	em := types.NewEventManager()
	em.EmitEvent(types.NewEvent(types.EventTypeUnpaused,
		types.NewAttribute(types.AttributeKeyCaller, caller),
	))
	k.commit(em)

	k.log.Info("engine unpaused", "caller", caller)
	return nil
}

// Paused reports whether the pause gate is active.
func (k *Keeper) Paused() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.paused
}

// EmergencyWithdraw moves custody value that sits outside normal accounting
// (custody balance in excess of the conservation sum) to recipient. Admin
// only, available while paused. When the port can report balances the surplus
// bound is enforced; escrow owed to open requests can never be drained.
func (k *Keeper) EmergencyWithdraw(caller, recipient string, amount math.Int) error {
	if err := k.lockMutating(); err != nil {
		return err
	}
	defer k.mu.Unlock()

	if err := k.requireAdmin(caller); err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkerrors.Wrapf(types.ErrInvalidPrice, "withdraw amount %s", amount)
	}

	if reader, ok := k.port.(BalanceReader); ok {
		surplus := reader.Balance(k.custody).Sub(k.heldTotal)
		if amount.GT(surplus) {
			return sdkerrors.Wrapf(types.ErrTransferFailed,
				"amount %s exceeds unaccounted surplus %s", amount, surplus)
		}
	}

	if err := k.transfer(k.custody, recipient, amount); err != nil {
		return sdkerrors.Wrapf(types.ErrTransferFailed, "emergency withdraw: %v", err)
	}

	em := types.NewEventManager()
	em.EmitEvent(types.NewEvent(types.EventTypeEmergencyWithdraw,
		types.NewAttribute(types.AttributeKeyCaller, caller),
		types.NewAttribute(types.AttributeKeyRecipient, recipient),
		types.NewAttribute(types.AttributeKeyAmount, amount.String()),
	))
	k.commit(em)

	k.log.Warn("emergency withdraw", "caller", caller, "recipient", recipient, "amount", amount.String())
	return nil
}

func (k *Keeper) requireAdmin(caller string) error {
	if k.params.Admin == "" || caller != k.params.Admin {
		return sdkerrors.Wrapf(types.ErrUnauthorized, "caller %s is not the admin", caller)
	}
	return nil
}
