//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("secrethobby"),
		tcpostgres.WithUsername("secrethobby"),
		tcpostgres.WithPassword("secrethobby"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := NewStore(dsn, DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Integration(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Health(ctx))

	owl := &domain.Identity{ID: uuid.NewString(), Alias: "owl"}
	fox := &domain.Identity{ID: uuid.NewString(), Alias: "fox"}
	require.NoError(t, store.CreateIdentity(ctx, owl, &domain.Credential{IdentityID: owl.ID, Login: "owl@test", SecretHash: "h"}))
	require.NoError(t, store.CreateIdentity(ctx, fox, nil))

	t.Run("别名唯一约束", func(t *testing.T) {
		err := store.CreateIdentity(ctx, &domain.Identity{ID: uuid.NewString(), Alias: "owl"}, nil)
		assert.ErrorIs(t, err, storage.ErrDuplicate)
	})

	t.Run("凭据冲突时整体回滚", func(t *testing.T) {
		id := uuid.NewString()
		err := store.CreateIdentity(ctx, &domain.Identity{ID: id, Alias: "hare"}, &domain.Credential{IdentityID: id, Login: "owl@test", SecretHash: "h"})
		assert.ErrorIs(t, err, storage.ErrDuplicate)
		_, err = store.GetIdentityByAlias(ctx, "hare")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	listing := &domain.Listing{
		ID:          uuid.NewString(),
		OwnerID:     owl.ID,
		Title:       "Origami",
		Description: "Paper folding. Cranes.",
		Tags:        domain.Tags{"paper", "craft"},
		MysteryMode: true,
	}
	require.NoError(t, store.CreateListing(ctx, listing))

	got, err := store.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Tags{"paper", "craft"}, got.Tags)
	assert.True(t, got.MysteryMode)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "owl", got.Owner.Alias)

	req := &domain.CollaborationRequest{
		ID:               uuid.NewString(),
		ListingID:        listing.ID,
		RequesterID:      fox.ID,
		OfferDescription: "teach knitting",
	}
	require.NoError(t, store.CreateRequest(ctx, req))

	received, err := store.ListRequestsByListingOwner(ctx, owl.ID)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "fox", received[0].RequesterAlias())

	sent, err := store.ListRequestsByRequester(ctx, fox.ID)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].Listing)
	assert.Equal(t, "Origami", sent[0].Listing.Title)

	updated, err := store.UpdateRequestStatus(ctx, req.ID, domain.RequestPending, domain.RequestAccepted, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.RequestAccepted, updated.Status)

	_, err = store.UpdateRequestStatus(ctx, req.ID, domain.RequestPending, domain.RequestDeclined, time.Now())
	assert.ErrorIs(t, err, storage.ErrConflict)

	require.NoError(t, store.SetMysteryMode(ctx, listing.ID, false))
	assert.ErrorIs(t, store.SetMysteryMode(ctx, uuid.NewString(), true), storage.ErrNotFound)
}
