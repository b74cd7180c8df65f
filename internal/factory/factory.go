package factory

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gitlab.com/GigFlow/settlement-node/internal/escrow"
	"gitlab.com/GigFlow/settlement-node/internal/interfaces"
	"gitlab.com/GigFlow/settlement-node/internal/ledger"
	"gitlab.com/GigFlow/settlement-node/internal/lib"
	"gitlab.com/GigFlow/settlement-node/internal/reputation"
	"gitlab.com/GigFlow/settlement-node/internal/repositories/store"
)

// ProjectFactory instantiates and fully funds escrows and keeps the
// ordered append-only registry of everything it created. Escrow addresses
// are derived deterministically from the factory address and a creation
// nonce.
type ProjectFactory struct {
	addr       common.Address
	bank       *ledger.Bank
	reputation *reputation.Registry
	store      *store.Store
	feed       *EventFeed

	mutex   sync.Mutex
	escrows []*escrow.Escrow
	nonce   uint64
	byID    *lib.Collection[*escrow.Escrow]

	log interfaces.ILogger
}

// NewProjectFactory wires the factory. The store may be nil (no
// persistence); the factory authorizes itself as a reputation minter for
// the completion path.
func NewProjectFactory(addr common.Address, bank *ledger.Bank, rep *reputation.Registry, st *store.Store, feedSize int, log interfaces.ILogger) *ProjectFactory {
	rep.Authorize(addr)
	return &ProjectFactory{
		addr:       addr,
		bank:       bank,
		reputation: rep,
		store:      st,
		feed:       NewEventFeed(feedSize),
		byID:       lib.NewCollection[*escrow.Escrow](),
		log:        log,
	}
}

func (f *ProjectFactory) Address() common.Address {
	return f.addr
}

func (f *ProjectFactory) Feed() *EventFeed {
	return f.feed
}

// CreateProject creates and funds a new escrow with the funds attached or
// authorized by the client. Validation is delegated entirely to escrow
// creation; on any failure nothing is added to the registry.
func (f *ProjectFactory) CreateProject(ctx context.Context, client, freelancer common.Address, asset ledger.Asset, milestones []*big.Int, funding *big.Int) (*escrow.Escrow, int, error) {
	f.mutex.Lock()

	id := crypto.CreateAddress(f.addr, f.nonce)

	e, err := escrow.Create(escrow.CreateParams{
		ID:         id,
		Client:     client,
		Freelancer: freelancer,
		Asset:      asset,
		Milestones: milestones,
		Funding:    funding,
		OnRelease:  f.onMilestoneReleased,
		OnComplete: f.onProjectCompleted,
	}, f.bank, f.addr, f.log.Named("ESCROW "+lib.AddrShort(id.Hex())))
	if err != nil {
		f.mutex.Unlock()
		return nil, 0, err
	}

	f.nonce++
	index := len(f.escrows)
	f.escrows = append(f.escrows, e)
	f.byID.Store(e)
	f.mutex.Unlock()

	f.log.Infof("project %d created at %s, client %s, freelancer %s", index, id.Hex(), lib.AddrShort(client.Hex()), lib.AddrShort(freelancer.Hex()))

	evt := f.feed.Add(EventProjectCreated, id.Hex(), map[string]any{
		"index":      index,
		"client":     client.Hex(),
		"freelancer": freelancer.Hex(),
		"asset":      asset.String(),
	})
	f.persistProject(ctx, e, index)
	f.persistEvent(ctx, evt)

	return e, index, nil
}

// DeployedProjectAt returns the escrow address at the given creation index
func (f *ProjectFactory) DeployedProjectAt(index int) (common.Address, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if index < 0 || index >= len(f.escrows) {
		return common.Address{}, ErrIndexOutOfRange
	}
	return f.escrows[index].ID(), nil
}

func (f *ProjectFactory) Len() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.escrows)
}

func (f *ProjectFactory) GetProject(addr common.Address) (*escrow.Escrow, bool) {
	return f.byID.Load(addr.Hex())
}

func (f *ProjectFactory) Range(fn func(e *escrow.Escrow) bool) {
	f.byID.Range(fn)
}

// ApproveMilestone routes a client approval to the target escrow. The
// escrow enforces authorization, ordering and rollback; the factory
// observes the outcome through its release and completion hooks.
func (f *ProjectFactory) ApproveMilestone(ctx context.Context, escrowAddr, caller common.Address) error {
	e, ok := f.GetProject(escrowAddr)
	if !ok {
		return ErrProjectNotFound
	}

	return e.ApproveNextMilestone(caller)
}

// onMilestoneReleased fires after every settled milestone payment, before
// any completion side effects, keeping the feed in settlement order:
// release first, then completion and minting.
func (f *ProjectFactory) onMilestoneReleased(e *escrow.Escrow, index int, amount *big.Int) {
	evt := f.feed.Add(EventMilestoneReleased, e.GetID(), map[string]any{
		"released":  index + 1,
		"total":     len(e.Milestones()),
		"amount":    amount.String(),
		"completed": index+1 == len(e.Milestones()),
	})
	f.persistEvent(context.Background(), evt)
}

// onProjectCompleted fires exactly once per escrow, after its last
// milestone payment settled. Mint failure is recorded for external replay
// and never touches the escrow's completed state.
func (f *ProjectFactory) onProjectCompleted(e *escrow.Escrow) {
	ctx := context.Background()

	f.log.Infof("project %s completed", e.GetID())
	evt := f.feed.Add(EventProjectCompleted, e.GetID(), map[string]any{
		"freelancer": e.Freelancer().Hex(),
	})
	f.persistEvent(ctx, evt)

	tokenID, err := f.reputation.Mint(f.addr, e.Freelancer())
	if err != nil {
		f.log.Errorf("reputation mint failed for %s: %s", e.Freelancer().Hex(), err)
		evt := f.feed.Add(EventReputationMintFailed, e.GetID(), map[string]any{
			"freelancer": e.Freelancer().Hex(),
			"error":      err.Error(),
		})
		f.persistEvent(ctx, evt)
		if f.store != nil {
			if err := f.store.AddPendingMint(ctx, store.PendingMint{
				Project:   e.GetID(),
				Recipient: e.Freelancer().Hex(),
				FailedAt:  time.Now(),
				Error:     err.Error(),
			}); err != nil {
				f.log.Errorf("cannot record pending mint: %s", err)
			}
		}
		return
	}

	evt = f.feed.Add(EventReputationMinted, e.GetID(), map[string]any{
		"tokenId":    tokenID,
		"freelancer": e.Freelancer().Hex(),
	})
	f.persistEvent(ctx, evt)
	if f.store != nil {
		if err := f.store.InsertCredential(ctx, store.Credential{
			TokenID:  tokenID,
			Owner:    e.Freelancer().Hex(),
			Project:  e.GetID(),
			MintedAt: time.Now(),
		}); err != nil {
			f.log.Errorf("cannot persist credential %d: %s", tokenID, err)
		}
	}
}

func (f *ProjectFactory) persistProject(ctx context.Context, e *escrow.Escrow, index int) {
	if f.store == nil {
		return
	}
	milestones := []string{}
	for _, amount := range e.Milestones() {
		milestones = append(milestones, amount.String())
	}
	err := f.store.InsertProject(ctx, store.Project{
		Index:      index,
		Address:    e.GetID(),
		Client:     e.Client().Hex(),
		Freelancer: e.Freelancer().Hex(),
		Asset:      e.Asset().String(),
		Milestones: milestones,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		f.log.Errorf("cannot persist project %s: %s", e.GetID(), err)
	}
}

func (f *ProjectFactory) persistEvent(ctx context.Context, evt Event) {
	if f.store == nil {
		return
	}
	if err := f.store.AppendEvent(ctx, evt.ID, evt.Timestamp, evt.Kind, evt.Project, evt.Payload); err != nil {
		f.log.Errorf("cannot persist event %s: %s", evt.Kind, err)
	}
}
