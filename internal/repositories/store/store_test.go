package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gitlab.com/GigFlow/settlement-node/internal/lib"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "settlement.db"), lib.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProjectRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := Project{
		Index:      0,
		Address:    lib.GetRandomAddr().Hex(),
		Client:     lib.GetRandomAddr().Hex(),
		Freelancer: lib.GetRandomAddr().Hex(),
		Asset:      "native",
		Milestones: []string{"1", "2"},
		CreatedAt:  time.Now(),
	}
	require.NoError(t, s.InsertProject(ctx, p))

	got, err := s.GetProject(ctx, p.Address)
	require.NoError(t, err)
	require.Equal(t, p.Client, got.Client)
	require.Equal(t, []string{"1", "2"}, got.Milestones)

	list, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = s.GetProject(ctx, lib.GetRandomAddr().Hex())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	addr := lib.GetRandomAddr().Hex()
	require.NoError(t, s.AppendEvent(ctx, uuid.NewString(), time.Now(), "ProjectCreated", addr, map[string]any{"index": 0}))
	require.NoError(t, s.AppendEvent(ctx, uuid.NewString(), time.Now(), "MilestoneReleased", addr, nil))

	events, err := s.ListEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestCredentialsAndPendingMints(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	project := lib.GetRandomAddr().Hex()
	recipient := lib.GetRandomAddr().Hex()

	require.NoError(t, s.AddPendingMint(ctx, PendingMint{
		Project:   project,
		Recipient: recipient,
		FailedAt:  time.Now(),
		Error:     "registry unavailable",
	}))

	pending, err := s.ListPendingMints(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, recipient, pending[0].Recipient)

	require.NoError(t, s.InsertCredential(ctx, Credential{TokenID: 0, Owner: recipient, Project: project, MintedAt: time.Now()}))
	require.NoError(t, s.ClearPendingMint(ctx, project))

	credentials, err := s.ListCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, credentials, 1)
	require.Equal(t, recipient, credentials[0].Owner)
	require.Equal(t, project, credentials[0].Project)

	pending, err = s.ListPendingMints(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 0)
}
