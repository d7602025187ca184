package bank_test

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/agora-market/agora/internal/bank"
)

func TestMint_Accumulates(t *testing.T) {
	ledger := bank.NewLedger()

	ledger.Mint("alice", math.NewInt(100))
	ledger.Mint("alice", math.NewInt(50))

	require.Equal(t, math.NewInt(150), ledger.Balance("alice"))
}

func TestBalance_UnknownAccount(t *testing.T) {
	ledger := bank.NewLedger()

	require.True(t, ledger.Balance("nobody").IsZero())
}

func TestTransfer_Valid(t *testing.T) {
	ledger := bank.NewLedger()
	ledger.Mint("alice", math.NewInt(100))

	require.NoError(t, ledger.Transfer("alice", "bob", math.NewInt(60)))

	require.Equal(t, math.NewInt(40), ledger.Balance("alice"))
	require.Equal(t, math.NewInt(60), ledger.Balance("bob"))
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	ledger := bank.NewLedger()
	ledger.Mint("alice", math.NewInt(10))

	err := ledger.Transfer("alice", "bob", math.NewInt(11))
	require.ErrorIs(t, err, bank.ErrInsufficientFunds)

	// No partial effect.
	require.Equal(t, math.NewInt(10), ledger.Balance("alice"))
	require.True(t, ledger.Balance("bob").IsZero())
}

func TestTransfer_NonPositiveAmount(t *testing.T) {
	ledger := bank.NewLedger()
	ledger.Mint("alice", math.NewInt(10))

	require.ErrorIs(t, ledger.Transfer("alice", "bob", math.NewInt(0)), bank.ErrInvalidAmount)
	require.ErrorIs(t, ledger.Transfer("alice", "bob", math.NewInt(-5)), bank.ErrInvalidAmount)
	require.ErrorIs(t, ledger.Transfer("alice", "bob", math.Int{}), bank.ErrInvalidAmount)
}

func TestTransfer_SelfTransfer(t *testing.T) {
	ledger := bank.NewLedger()
	ledger.Mint("alice", math.NewInt(10))

	require.NoError(t, ledger.Transfer("alice", "alice", math.NewInt(10)))
	require.Equal(t, math.NewInt(10), ledger.Balance("alice"))
}
