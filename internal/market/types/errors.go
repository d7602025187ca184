package types

import (
	"errors"

	sdkerrors "cosmossdk.io/errors"
)

// Market engine sentinel errors. Every rejected operation resolves to exactly
// one of these; none of them leaves partial effects behind.

var (
	// Listing validation errors
	ErrInvalidPrice = sdkerrors.Register(ModuleName, 2, "price must be positive")
	ErrInvalidName  = sdkerrors.Register(ModuleName, 3, "listing name must not be empty")

	// Lookup errors
	ErrNotFound  = sdkerrors.Register(ModuleName, 10, "record not found")
	ErrNotActive = sdkerrors.Register(ModuleName, 11, "listing is not active")

	// Authorization errors
	ErrUnauthorized = sdkerrors.Register(ModuleName, 20, "unauthorized operation")
	ErrSelfService  = sdkerrors.Register(ModuleName, 21, "provider cannot buy their own listing")

	// Request lifecycle errors
	ErrInvalidState      = sdkerrors.Register(ModuleName, 30, "invalid request state for this transition")
	ErrInvalidRating     = sdkerrors.Register(ModuleName, 31, "rating must be between 1 and 5")
	ErrDuplicateRating   = sdkerrors.Register(ModuleName, 32, "rating already submitted for this request")
	ErrTimeoutNotReached = sdkerrors.Register(ModuleName, 33, "confirmation timeout window has not elapsed")

	// Settlement errors
	ErrTransferFailed = sdkerrors.Register(ModuleName, 40, "value transfer failed")
	ErrReentrancy     = sdkerrors.Register(ModuleName, 41, "reentrant call rejected while a transfer is in flight")

	// Administrative errors
	ErrPaused = sdkerrors.Register(ModuleName, 50, "engine is paused")
)

// RecoverySuggestions provides actionable recovery steps for each error type.
var RecoverySuggestions = map[error]string{
	ErrInvalidPrice: "Set a price greater than zero in the smallest currency unit.",
	ErrInvalidName:  "Provide a non-empty listing name.",

	ErrNotFound:  "Verify the listing or request ID. ID 0 is reserved and never resolves.",
	ErrNotActive: "The listing was deactivated by its owner. Pick another listing or wait for reactivation.",

	ErrUnauthorized: "Only the record owner may perform this operation. Check the caller identity.",
	ErrSelfService:  "A listing cannot be purchased by its own provider. Use a different buyer identity.",

	ErrInvalidState:      "Query the request to see its current lifecycle state; this transition is not legal from it.",
	ErrInvalidRating:     "Submit an integer rating between 1 and 5.",
	ErrDuplicateRating:   "A rating was already folded into the provider's average and cannot be changed.",
	ErrTimeoutNotReached: "Query timeout status for the remaining seconds before the claim becomes eligible.",

	ErrTransferFailed: "The value-transfer backend rejected the movement. Check the payer balance; no engine state was changed.",
	ErrReentrancy:     "A settlement transfer is in flight. Retry once the enclosing operation has returned.",

	ErrPaused: "The engine is administratively paused. Only cancellation paths are accepted until unpause.",
}

// GetRecoverySuggestion returns the recovery suggestion for an error,
// unwrapping to the registered sentinel first.
func GetRecoverySuggestion(err error) string {
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	if suggestion, ok := RecoverySuggestions[rootErr]; ok {
		return suggestion
	}
	return "No recovery suggestion available. Check error message for details."
}
