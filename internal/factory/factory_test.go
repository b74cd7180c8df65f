package factory

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"gitlab.com/GigFlow/settlement-node/internal/escrow"
	"gitlab.com/GigFlow/settlement-node/internal/ledger"
	"gitlab.com/GigFlow/settlement-node/internal/lib"
	"gitlab.com/GigFlow/settlement-node/internal/reputation"
	"gitlab.com/GigFlow/settlement-node/internal/repositories/store"
)

type testEnv struct {
	bank       *ledger.Bank
	registry   *reputation.Registry
	factory    *ProjectFactory
	authority  common.Address
	client     common.Address
	freelancer common.Address
}

func newTestEnv(t *testing.T, st *store.Store) *testEnv {
	t.Helper()
	log := lib.NewTestLogger()
	env := &testEnv{
		bank:       ledger.NewBank(log),
		authority:  lib.GetRandomAddr(),
		client:     lib.GetRandomAddr(),
		freelancer: lib.GetRandomAddr(),
	}
	env.registry = reputation.NewRegistry(env.authority, log)
	env.factory = NewProjectFactory(lib.GetRandomAddr(), env.bank, env.registry, st, 16, log)
	require.NoError(t, env.bank.Credit(ledger.Native(), env.client, big.NewInt(1000)))
	return env
}

func milestones(amounts ...int64) []*big.Int {
	out := make([]*big.Int, len(amounts))
	for i, a := range amounts {
		out[i] = big.NewInt(a)
	}
	return out
}

func TestCreateProjectNative(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	e, index, err := env.factory.CreateProject(ctx, env.client, env.freelancer, ledger.Native(), milestones(1, 2), big.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, 0, index)
	require.Equal(t, 1, env.factory.Len())

	// addresses derive from the factory address and creation nonce
	require.Equal(t, crypto.CreateAddress(env.factory.Address(), 0), e.ID())

	addr, err := env.factory.DeployedProjectAt(0)
	require.NoError(t, err)
	require.Equal(t, e.ID(), addr)

	require.Equal(t, big.NewInt(3), env.bank.BalanceOf(ledger.Native(), e.ID()))

	events := env.factory.Feed().Recent()
	require.Len(t, events, 1)
	require.Equal(t, EventProjectCreated, events[0].Kind)
}

func TestCreateProjectMismatchLeavesNoEntry(t *testing.T) {
	env := newTestEnv(t, nil)

	_, _, err := env.factory.CreateProject(context.Background(), env.client, env.freelancer, ledger.Native(), milestones(1, 2), big.NewInt(2))
	require.ErrorIs(t, err, escrow.ErrScheduleMismatch)
	require.Equal(t, 0, env.factory.Len())
	require.Equal(t, 0, env.factory.Feed().Len())
	require.Equal(t, big.NewInt(1000), env.bank.BalanceOf(ledger.Native(), env.client))
}

func TestDeployedProjectAtOutOfRange(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.factory.DeployedProjectAt(0)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	_, _, err = env.factory.CreateProject(context.Background(), env.client, env.freelancer, ledger.Native(), milestones(5), big.NewInt(5))
	require.NoError(t, err)

	_, err = env.factory.DeployedProjectAt(1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = env.factory.DeployedProjectAt(-1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestDeterministicAddresses(t *testing.T) {
	log := lib.NewTestLogger()
	factoryAddr := lib.GetRandomAddr()

	build := func() *ProjectFactory {
		bank := ledger.NewBank(log)
		client := common.HexToAddress("0x01")
		require.NoError(t, bank.Credit(ledger.Native(), client, big.NewInt(100)))
		f := NewProjectFactory(factoryAddr, bank, reputation.NewRegistry(lib.GetRandomAddr(), log), nil, 16, log)
		for i := 0; i < 3; i++ {
			_, _, err := f.CreateProject(context.Background(), client, lib.GetRandomAddr(), ledger.Native(), milestones(1), big.NewInt(1))
			require.NoError(t, err)
		}
		return f
	}

	a, b := build(), build()
	for i := 0; i < 3; i++ {
		addrA, err := a.DeployedProjectAt(i)
		require.NoError(t, err)
		addrB, err := b.DeployedProjectAt(i)
		require.NoError(t, err)
		require.Equal(t, addrA, addrB)
	}
}

func TestApproveThroughFactoryMintsReputation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	e, _, err := env.factory.CreateProject(ctx, env.client, env.freelancer, ledger.Native(), milestones(1, 2), big.NewInt(3))
	require.NoError(t, err)

	require.NoError(t, env.factory.ApproveMilestone(ctx, e.ID(), env.client))
	require.Equal(t, uint64(0), env.registry.BalanceOf(env.freelancer))

	require.NoError(t, env.factory.ApproveMilestone(ctx, e.ID(), env.client))
	require.True(t, e.Completed())

	owner, err := env.registry.OwnerOf(0)
	require.NoError(t, err)
	require.Equal(t, env.freelancer, owner)
	require.Equal(t, uint64(1), env.registry.BalanceOf(env.freelancer))

	kinds := []string{}
	for _, evt := range env.factory.Feed().Recent() {
		kinds = append(kinds, evt.Kind)
	}
	// the final release is recorded before its completion side effects
	require.Equal(t, []string{
		EventProjectCreated,
		EventMilestoneReleased,
		EventMilestoneReleased,
		EventProjectCompleted,
		EventReputationMinted,
	}, kinds)
}

func TestApproveUnknownProject(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.factory.ApproveMilestone(context.Background(), lib.GetRandomAddr(), env.client)
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestFactoryPersistsToStore(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "settlement.db"), lib.NewTestLogger())
	require.NoError(t, err)
	defer st.Close()

	env := newTestEnv(t, st)
	ctx := context.Background()

	e, _, err := env.factory.CreateProject(ctx, env.client, env.freelancer, ledger.Native(), milestones(2), big.NewInt(2))
	require.NoError(t, err)
	require.NoError(t, env.factory.ApproveMilestone(ctx, e.ID(), env.client))

	p, err := st.GetProject(ctx, e.GetID())
	require.NoError(t, err)
	require.Equal(t, env.client.Hex(), p.Client)

	events, err := st.ListEvents(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, events)
}

func TestEventFeedBounded(t *testing.T) {
	feed := NewEventFeed(2)
	feed.Add("a", "", nil)
	feed.Add("b", "", nil)
	feed.Add("c", "", nil)

	recent := feed.Recent()
	require.Len(t, recent, 2)
	require.Equal(t, "b", recent[0].Kind)
	require.Equal(t, "c", recent[1].Kind)
}
