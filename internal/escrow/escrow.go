package escrow

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/GigFlow/settlement-node/internal/interfaces"
	"gitlab.com/GigFlow/settlement-node/internal/ledger"
	"go.uber.org/atomic"
)

// CompletionHook is called exactly once when the last milestone is
// released. It drives reputation minting downstream; a hook failure never
// affects the escrow state.
type CompletionHook func(e *Escrow)

// ReleaseHook is called after every settled milestone payment, before any
// completion side effects, so observers see release and completion in
// chronological order.
type ReleaseHook func(e *Escrow, index int, amount *big.Int)

// CreateParams are the creation parameters of a single project escrow
type CreateParams struct {
	ID         common.Address
	Client     common.Address
	Freelancer common.Address
	Asset      ledger.Asset
	Milestones []*big.Int
	Funding    *big.Int
	OnRelease  ReleaseHook
	OnComplete CompletionHook
}

// Escrow custodies the funds of one project and releases them to the
// freelancer strictly in milestone order on client approval. Once funded
// the schedule is immutable; there is no refund or cancellation path.
type Escrow struct {
	id         common.Address
	client     common.Address
	freelancer common.Address
	asset      ledger.Asset
	milestones []*big.Int

	released int
	mutex    sync.RWMutex
	entered  atomic.Bool
	notified atomic.Bool

	onRelease  ReleaseHook
	onComplete CompletionHook
	mover      ledger.AssetMover
	log        interfaces.ILogger
}

// Create validates the schedule and atomically pulls the full funding from
// the client into the escrow's own account. The funding pull uses the
// client identity for native value (attached with the call) and spender's
// allowance for tokens. If the pull fails nothing is created.
func Create(params CreateParams, bank *ledger.Bank, spender common.Address, log interfaces.ILogger) (*Escrow, error) {
	if len(params.Milestones) == 0 {
		return nil, ErrEmptySchedule
	}

	sum := new(big.Int)
	milestones := make([]*big.Int, len(params.Milestones))
	for i, amount := range params.Milestones {
		if amount == nil || amount.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
		milestones[i] = new(big.Int).Set(amount)
		sum.Add(sum, amount)
	}

	if params.Funding == nil || params.Funding.Cmp(sum) != 0 {
		return nil, ErrScheduleMismatch
	}

	var fundingMover ledger.AssetMover
	if params.Asset.IsNative() {
		fundingMover = bank.AsCaller(params.Client)
	} else {
		fundingMover = bank.AsCaller(spender)
	}

	err := fundingMover.MoveValue(params.Asset, params.Client, params.ID, params.Funding)
	if err != nil {
		return nil, err
	}

	log.Infof("escrow funded with %s %s, %d milestones", params.Funding.String(), params.Asset, len(milestones))

	return &Escrow{
		id:         params.ID,
		client:     params.Client,
		freelancer: params.Freelancer,
		asset:      params.Asset,
		milestones: milestones,
		onRelease:  params.OnRelease,
		onComplete: params.OnComplete,
		mover:      bank.AsCaller(params.ID),
		log:        log,
	}, nil
}

// ApproveNextMilestone releases the next milestone amount to the
// freelancer. Callable only by the client. The cursor moves before the
// value leaves custody and is rolled back if the payment fails, so the
// instance never shows a milestone as released without a successful
// payment.
func (e *Escrow) ApproveNextMilestone(caller common.Address) error {
	// per-instance exclusive gate: a call arriving while one is in
	// flight (e.g. from a receiving hook) is rejected, not queued
	if !e.entered.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	defer e.entered.Store(false)

	if caller != e.client {
		return ErrUnauthorized
	}

	e.mutex.Lock()
	if e.released == len(e.milestones) {
		e.mutex.Unlock()
		return ErrAlreadyCompleted
	}
	index := e.released
	e.released++
	e.mutex.Unlock()

	amount := e.milestones[index]

	err := e.mover.MoveValue(e.asset, e.id, e.freelancer, amount)
	if err != nil {
		e.mutex.Lock()
		e.released--
		e.mutex.Unlock()
		return err
	}

	e.log.Infof("milestone %d/%d released, %s %s -> %s", index+1, len(e.milestones), amount.String(), e.asset, e.freelancer.Hex())

	if e.onRelease != nil {
		e.onRelease(e, index, amount)
	}

	if e.Completed() && e.notified.CompareAndSwap(false, true) {
		if e.onComplete != nil {
			e.onComplete(e)
		}
	}

	return nil
}

func (e *Escrow) GetID() string {
	return e.id.Hex()
}

func (e *Escrow) ID() common.Address {
	return e.id
}

func (e *Escrow) Client() common.Address {
	return e.client
}

func (e *Escrow) Freelancer() common.Address {
	return e.freelancer
}

func (e *Escrow) Asset() ledger.Asset {
	return e.asset
}

// Milestones returns a copy of the immutable schedule
func (e *Escrow) Milestones() []*big.Int {
	out := make([]*big.Int, len(e.milestones))
	for i, amount := range e.milestones {
		out[i] = new(big.Int).Set(amount)
	}
	return out
}

func (e *Escrow) ReleasedCount() int {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.released
}

func (e *Escrow) Completed() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.released == len(e.milestones)
}
