package types_test

import (
	"errors"
	"testing"

	sdkerrors "cosmossdk.io/errors"
	"github.com/stretchr/testify/require"

	"github.com/agora-market/agora/internal/market/types"
)

func TestGetRecoverySuggestion_Sentinel(t *testing.T) {
	suggestion := types.GetRecoverySuggestion(types.ErrInvalidRating)
	require.Contains(t, suggestion, "between 1 and 5")
}

func TestGetRecoverySuggestion_Wrapped(t *testing.T) {
	err := sdkerrors.Wrapf(types.ErrNotFound, "listing %d", 42)
	suggestion := types.GetRecoverySuggestion(err)
	require.Contains(t, suggestion, "ID 0 is reserved")
}

func TestGetRecoverySuggestion_Unknown(t *testing.T) {
	suggestion := types.GetRecoverySuggestion(errors.New("something else"))
	require.Contains(t, suggestion, "No recovery suggestion")
}

func TestEveryErrorHasSuggestion(t *testing.T) {
	for _, err := range []error{
		types.ErrInvalidPrice,
		types.ErrInvalidName,
		types.ErrNotFound,
		types.ErrNotActive,
		types.ErrUnauthorized,
		types.ErrSelfService,
		types.ErrInvalidState,
		types.ErrInvalidRating,
		types.ErrDuplicateRating,
		types.ErrTimeoutNotReached,
		types.ErrTransferFailed,
		types.ErrReentrancy,
		types.ErrPaused,
	} {
		_, ok := types.RecoverySuggestions[err]
		require.True(t, ok, "missing suggestion for %v", err)
	}
}

func TestWrappedErrorMatchesSentinel(t *testing.T) {
	err := sdkerrors.Wrap(types.ErrUnauthorized, "caller mallory")
	require.ErrorIs(t, err, types.ErrUnauthorized)
	require.True(t, sdkerrors.IsOf(err, types.ErrUnauthorized))
	require.False(t, sdkerrors.IsOf(err, types.ErrNotFound))
}
