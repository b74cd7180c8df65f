package ledger

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"gitlab.com/GigFlow/settlement-node/internal/lib"
)

func TestNativeMove(t *testing.T) {
	bank := NewBank(lib.NewTestLogger())
	alice, bob := lib.GetRandomAddr(), lib.GetRandomAddr()

	err := bank.Credit(Native(), alice, big.NewInt(10))
	require.NoError(t, err)

	err = bank.AsCaller(alice).MoveValue(Native(), alice, bob, big.NewInt(4))
	require.NoError(t, err)

	require.Equal(t, big.NewInt(6), bank.BalanceOf(Native(), alice))
	require.Equal(t, big.NewInt(4), bank.BalanceOf(Native(), bob))
}

func TestNativeInsufficientBalance(t *testing.T) {
	bank := NewBank(lib.NewTestLogger())
	alice, bob := lib.GetRandomAddr(), lib.GetRandomAddr()

	err := bank.AsCaller(alice).MoveValue(Native(), alice, bob, big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, big.NewInt(0), bank.BalanceOf(Native(), bob))
}

func TestNativePullRejected(t *testing.T) {
	bank := NewBank(lib.NewTestLogger())
	alice, bob, carol := lib.GetRandomAddr(), lib.GetRandomAddr(), lib.GetRandomAddr()

	require.NoError(t, bank.Credit(Native(), alice, big.NewInt(10)))

	err := bank.AsCaller(carol).MoveValue(Native(), alice, bob, big.NewInt(1))
	require.ErrorIs(t, err, ErrTransferRejected)
	require.Equal(t, big.NewInt(10), bank.BalanceOf(Native(), alice))
}

func TestTokenPullSpendsAllowance(t *testing.T) {
	bank := NewBank(lib.NewTestLogger())
	token := lib.GetRandomAddr()
	alice, spender, escrow := lib.GetRandomAddr(), lib.GetRandomAddr(), lib.GetRandomAddr()
	asset := Token(token)

	require.NoError(t, bank.Credit(asset, alice, big.NewInt(100)))
	require.NoError(t, bank.Approve(token, alice, spender, big.NewInt(30)))

	err := bank.AsCaller(spender).MoveValue(asset, alice, escrow, big.NewInt(30))
	require.NoError(t, err)

	require.Equal(t, big.NewInt(70), bank.BalanceOf(asset, alice))
	require.Equal(t, big.NewInt(30), bank.BalanceOf(asset, escrow))
	require.Equal(t, big.NewInt(0), bank.Allowance(token, alice, spender))
}

func TestTokenAllowanceExceeded(t *testing.T) {
	bank := NewBank(lib.NewTestLogger())
	token := lib.GetRandomAddr()
	alice, spender, escrow := lib.GetRandomAddr(), lib.GetRandomAddr(), lib.GetRandomAddr()
	asset := Token(token)

	require.NoError(t, bank.Credit(asset, alice, big.NewInt(100)))
	require.NoError(t, bank.Approve(token, alice, spender, big.NewInt(10)))

	err := bank.AsCaller(spender).MoveValue(asset, alice, escrow, big.NewInt(11))
	require.ErrorIs(t, err, ErrAllowanceExceeded)
	require.Equal(t, big.NewInt(100), bank.BalanceOf(asset, alice))
	require.Equal(t, big.NewInt(10), bank.Allowance(token, alice, spender))
}

func TestTokenBalanceShortDespiteAllowance(t *testing.T) {
	bank := NewBank(lib.NewTestLogger())
	token := lib.GetRandomAddr()
	alice, spender, escrow := lib.GetRandomAddr(), lib.GetRandomAddr(), lib.GetRandomAddr()
	asset := Token(token)

	require.NoError(t, bank.Credit(asset, alice, big.NewInt(5)))
	require.NoError(t, bank.Approve(token, alice, spender, big.NewInt(10)))

	err := bank.AsCaller(spender).MoveValue(asset, alice, escrow, big.NewInt(10))
	require.ErrorIs(t, err, ErrTransferRejected)
	require.Equal(t, big.NewInt(10), bank.Allowance(token, alice, spender))
}

func TestTokenPaused(t *testing.T) {
	bank := NewBank(lib.NewTestLogger())
	token := lib.GetRandomAddr()
	alice, bob := lib.GetRandomAddr(), lib.GetRandomAddr()
	asset := Token(token)

	require.NoError(t, bank.Credit(asset, alice, big.NewInt(10)))
	bank.Pause(token)

	err := bank.AsCaller(alice).MoveValue(asset, alice, bob, big.NewInt(1))
	require.ErrorIs(t, err, ErrTransferRejected)

	bank.Unpause(token)
	require.NoError(t, bank.AsCaller(alice).MoveValue(asset, alice, bob, big.NewInt(1)))
}

func TestReceiverRejectRevertsMovement(t *testing.T) {
	bank := NewBank(lib.NewTestLogger())
	alice, bob := lib.GetRandomAddr(), lib.GetRandomAddr()

	require.NoError(t, bank.Credit(Native(), alice, big.NewInt(10)))
	bank.SetReceiver(bob, func(asset Asset, from common.Address, amount *big.Int) error {
		return errors.New("not accepting payments")
	})

	err := bank.AsCaller(alice).MoveValue(Native(), alice, bob, big.NewInt(3))
	require.ErrorIs(t, err, ErrTransferRejected)
	require.Equal(t, big.NewInt(10), bank.BalanceOf(Native(), alice))
	require.Equal(t, big.NewInt(0), bank.BalanceOf(Native(), bob))
}

func TestReceiverObservesSettledBalance(t *testing.T) {
	bank := NewBank(lib.NewTestLogger())
	alice, bob := lib.GetRandomAddr(), lib.GetRandomAddr()

	require.NoError(t, bank.Credit(Native(), alice, big.NewInt(10)))

	var observed *big.Int
	bank.SetReceiver(bob, func(asset Asset, from common.Address, amount *big.Int) error {
		observed = bank.BalanceOf(Native(), bob)
		return nil
	})

	require.NoError(t, bank.AsCaller(alice).MoveValue(Native(), alice, bob, big.NewInt(3)))
	require.Equal(t, big.NewInt(3), observed)
}

func TestInvalidAmount(t *testing.T) {
	bank := NewBank(lib.NewTestLogger())
	alice, bob := lib.GetRandomAddr(), lib.GetRandomAddr()

	require.ErrorIs(t, bank.AsCaller(alice).MoveValue(Native(), alice, bob, nil), ErrInvalidAmount)
	require.ErrorIs(t, bank.AsCaller(alice).MoveValue(Native(), alice, bob, big.NewInt(0)), ErrInvalidAmount)
	require.ErrorIs(t, bank.AsCaller(alice).MoveValue(Native(), alice, bob, big.NewInt(-1)), ErrInvalidAmount)
	require.ErrorIs(t, bank.Credit(Native(), alice, big.NewInt(0)), ErrInvalidAmount)
}
