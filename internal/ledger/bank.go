package ledger

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/GigFlow/settlement-node/internal/interfaces"
	"gitlab.com/GigFlow/settlement-node/internal/lib"
)

// ReceiverFunc is an optional receiving hook of an account. It runs after
// balances are updated and outside of the bank lock, so it may call back
// into the engine. A non-nil error rejects the payment and the movement
// is reverted before MoveValue returns.
type ReceiverFunc func(asset Asset, from common.Address, amount *big.Int) error

// AssetMover is the uniform move-value primitive over both asset kinds.
// Exactly one value movement happens per successful call, no partials.
type AssetMover interface {
	MoveValue(asset Asset, from common.Address, to common.Address, amount *big.Int) error
}

type tokenState struct {
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
	paused     bool
}

func newTokenState() *tokenState {
	return &tokenState{
		balances:   map[common.Address]*big.Int{},
		allowances: map[common.Address]map[common.Address]*big.Int{},
	}
}

// Bank is the globally-ordered ledger of the settlement node. It custodies
// native coin balances and per-token balances with ERC20-style allowances.
type Bank struct {
	mutex     sync.Mutex
	native    map[common.Address]*big.Int
	tokens    map[common.Address]*tokenState
	receivers map[common.Address]ReceiverFunc
	log       interfaces.ILogger
}

func NewBank(log interfaces.ILogger) *Bank {
	return &Bank{
		native:    map[common.Address]*big.Int{},
		tokens:    map[common.Address]*tokenState{},
		receivers: map[common.Address]ReceiverFunc{},
		log:       log,
	}
}

// AsCaller binds a caller identity and returns the mover acting on its behalf
func (b *Bank) AsCaller(caller common.Address) AssetMover {
	return &callerMover{bank: b, caller: caller}
}

type callerMover struct {
	bank   *Bank
	caller common.Address
}

func (m *callerMover) MoveValue(asset Asset, from common.Address, to common.Address, amount *big.Int) error {
	return m.bank.moveValue(asset, m.caller, from, to, amount)
}

func (b *Bank) moveValue(asset Asset, caller, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	b.mutex.Lock()

	var undo func()

	if asset.IsNative() {
		if from != caller {
			b.mutex.Unlock()
			return lib.WrapError(ErrTransferRejected, errNativePull)
		}
		if b.balanceOfNative(from).Cmp(amount) < 0 {
			b.mutex.Unlock()
			return ErrInsufficientBalance
		}
		b.addNative(from, new(big.Int).Neg(amount))
		b.addNative(to, amount)
		undo = func() {
			b.addNative(from, amount)
			b.addNative(to, new(big.Int).Neg(amount))
		}
	} else {
		ts := b.tokenState(asset.Token)
		if from != caller {
			allowance := ts.allowanceOf(from, caller)
			if allowance.Cmp(amount) < 0 {
				b.mutex.Unlock()
				return ErrAllowanceExceeded
			}
		}
		if ts.paused {
			b.mutex.Unlock()
			return lib.WrapError(ErrTransferRejected, errTokenPaused)
		}
		if ts.balanceOf(from).Cmp(amount) < 0 {
			b.mutex.Unlock()
			return lib.WrapError(ErrTransferRejected, errTokenBalance)
		}
		if from != caller {
			// allowance is spent atomically with the movement
			ts.addAllowance(from, caller, new(big.Int).Neg(amount))
		}
		ts.addBalance(from, new(big.Int).Neg(amount))
		ts.addBalance(to, amount)
		undo = func() {
			ts.addBalance(from, amount)
			ts.addBalance(to, new(big.Int).Neg(amount))
			if from != caller {
				ts.addAllowance(from, caller, amount)
			}
		}
	}

	hook := b.receivers[to]
	b.mutex.Unlock()

	// balances are settled before the receiver runs, so a reentrant call
	// observes the post-transfer state
	if hook != nil {
		if err := hook(asset, from, amount); err != nil {
			b.mutex.Lock()
			undo()
			b.mutex.Unlock()
			return lib.WrapError(ErrTransferRejected, err)
		}
	}

	b.log.Debugf("moved %s %s: %s -> %s", amount.String(), asset, lib.AddrShort(from.Hex()), lib.AddrShort(to.Hex()))
	return nil
}

// Credit mints value into an account, the faucet path used to fund clients
func (b *Bank) Credit(asset Asset, account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if asset.IsNative() {
		b.addNative(account, amount)
	} else {
		b.tokenState(asset.Token).addBalance(account, amount)
	}
	return nil
}

func (b *Bank) BalanceOf(asset Asset, account common.Address) *big.Int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if asset.IsNative() {
		return new(big.Int).Set(b.balanceOfNative(account))
	}
	return new(big.Int).Set(b.tokenState(asset.Token).balanceOf(account))
}

// Approve sets the transfer authorization of spender over owner's token balance
func (b *Bank) Approve(token common.Address, owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.tokenState(token).setAllowance(owner, spender, amount)
	return nil
}

func (b *Bank) Allowance(token common.Address, owner, spender common.Address) *big.Int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return new(big.Int).Set(b.tokenState(token).allowanceOf(owner, spender))
}

func (b *Bank) Pause(token common.Address) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.tokenState(token).paused = true
}

func (b *Bank) Unpause(token common.Address) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.tokenState(token).paused = false
}

// SetReceiver registers the receiving hook of an account, nil removes it
func (b *Bank) SetReceiver(account common.Address, hook ReceiverFunc) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if hook == nil {
		delete(b.receivers, account)
		return
	}
	b.receivers[account] = hook
}

// callers must hold b.mutex

func (b *Bank) balanceOfNative(account common.Address) *big.Int {
	if bal, ok := b.native[account]; ok {
		return bal
	}
	return big.NewInt(0)
}

func (b *Bank) addNative(account common.Address, delta *big.Int) {
	b.native[account] = new(big.Int).Add(b.balanceOfNative(account), delta)
}

func (b *Bank) tokenState(token common.Address) *tokenState {
	ts, ok := b.tokens[token]
	if !ok {
		ts = newTokenState()
		b.tokens[token] = ts
	}
	return ts
}

func (ts *tokenState) balanceOf(account common.Address) *big.Int {
	if bal, ok := ts.balances[account]; ok {
		return bal
	}
	return big.NewInt(0)
}

func (ts *tokenState) addBalance(account common.Address, delta *big.Int) {
	ts.balances[account] = new(big.Int).Add(ts.balanceOf(account), delta)
}

func (ts *tokenState) allowanceOf(owner, spender common.Address) *big.Int {
	if spenders, ok := ts.allowances[owner]; ok {
		if allowance, ok := spenders[spender]; ok {
			return allowance
		}
	}
	return big.NewInt(0)
}

func (ts *tokenState) setAllowance(owner, spender common.Address, amount *big.Int) {
	spenders, ok := ts.allowances[owner]
	if !ok {
		spenders = map[common.Address]*big.Int{}
		ts.allowances[owner] = spenders
	}
	spenders[spender] = new(big.Int).Set(amount)
}

func (ts *tokenState) addAllowance(owner, spender common.Address, delta *big.Int) {
	ts.setAllowance(owner, spender, new(big.Int).Add(ts.allowanceOf(owner, spender), delta))
}
