package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedIdentity(t *testing.T, store *Store, id, alias string) *domain.Identity {
	t.Helper()
	identity := &domain.Identity{ID: id, Alias: alias}
	require.NoError(t, store.CreateIdentity(context.Background(), identity, nil))
	return identity
}

func TestMemoryStore_IdentityOperations(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	identity := &domain.Identity{ID: "id-fox", Alias: "fox"}
	cred := &domain.Credential{IdentityID: "id-fox", Login: "fox@secrethobby.local", SecretHash: "hash"}
	require.NoError(t, store.CreateIdentity(ctx, identity, cred))
	assert.False(t, identity.CreatedAt.IsZero())

	got, err := store.GetIdentityByAlias(ctx, "fox")
	require.NoError(t, err)
	assert.Equal(t, "id-fox", got.ID)

	got, err = store.GetIdentity(ctx, "id-fox")
	require.NoError(t, err)
	assert.Equal(t, "fox", got.Alias)

	storedCred, err := store.GetCredential(ctx, "id-fox")
	require.NoError(t, err)
	assert.Equal(t, "hash", storedCred.SecretHash)

	t.Run("别名重复返回 ErrDuplicate", func(t *testing.T) {
		err := store.CreateIdentity(ctx, &domain.Identity{ID: "id-other", Alias: "fox"}, nil)
		assert.ErrorIs(t, err, storage.ErrDuplicate)
	})

	t.Run("不存在返回 ErrNotFound", func(t *testing.T) {
		_, err := store.GetIdentityByAlias(ctx, "owl")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = store.GetCredential(ctx, "id-owl")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("删除凭据", func(t *testing.T) {
		store.DeleteCredential("id-fox")
		_, err := store.GetCredential(ctx, "id-fox")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestMemoryStore_ListingOperations(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedIdentity(t, store, "id-owl", "owl")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := &domain.Listing{ID: "l1", OwnerID: "id-owl", Title: "Origami", Tags: domain.Tags{"paper"}, CreatedAt: base}
	second := &domain.Listing{ID: "l2", OwnerID: "id-owl", Title: "Chess", CreatedAt: base.Add(time.Hour)}
	require.NoError(t, store.CreateListing(ctx, first))
	require.NoError(t, store.CreateListing(ctx, second))

	listings, err := store.ListListings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "l2", listings[0].ID)
	require.NotNil(t, listings[0].Owner)
	assert.Equal(t, "owl", listings[0].Owner.Alias)

	got, err := store.GetListing(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, domain.Tags{"paper"}, got.Tags)

	require.NoError(t, store.SetMysteryMode(ctx, "l1", true))
	got, err = store.GetListing(ctx, "l1")
	require.NoError(t, err)
	assert.True(t, got.MysteryMode)

	assert.ErrorIs(t, store.SetMysteryMode(ctx, "missing", true), storage.ErrNotFound)
	assert.ErrorIs(t, store.CreateListing(ctx, &domain.Listing{ID: "l3", OwnerID: "nobody"}), storage.ErrNotFound)

	byOwner, err := store.ListListingsByOwner(ctx, "id-owl")
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	none, err := store.ListListingsByOwner(ctx, "id-fox")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_RequestOperations(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedIdentity(t, store, "id-owl", "owl")
	seedIdentity(t, store, "id-fox", "fox")
	require.NoError(t, store.CreateListing(ctx, &domain.Listing{ID: "l1", OwnerID: "id-owl", Title: "Origami"}))

	req := &domain.CollaborationRequest{ID: "r1", ListingID: "l1", RequesterID: "id-fox", OfferDescription: "teach knitting"}
	require.NoError(t, store.CreateRequest(ctx, req))
	assert.Equal(t, domain.RequestPending, req.Status)

	sent, err := store.ListRequestsByRequester(ctx, "id-fox")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "fox", sent[0].RequesterAlias())
	require.NotNil(t, sent[0].Listing)
	assert.Equal(t, "owl", sent[0].Listing.Owner.Alias)

	received, err := store.ListRequestsByListingOwner(ctx, "id-owl")
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "r1", received[0].ID)

	t.Run("条件更新", func(t *testing.T) {
		at := time.Now()
		updated, err := store.UpdateRequestStatus(ctx, "r1", domain.RequestPending, domain.RequestAccepted, at)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestAccepted, updated.Status)

		_, err = store.UpdateRequestStatus(ctx, "r1", domain.RequestPending, domain.RequestDeclined, at)
		assert.ErrorIs(t, err, storage.ErrConflict)

		_, err = store.UpdateRequestStatus(ctx, "missing", domain.RequestPending, domain.RequestDeclined, at)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestMemoryStore_Sessions(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	session := &domain.Session{ID: "s1", IdentityID: "id-fox", Alias: "fox"}
	require.NoError(t, store.SaveSession(ctx, session, time.Hour))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "fox", got.Alias)

	now = now.Add(2 * time.Hour)
	_, err = store.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.DeleteSession(ctx, "s1"))
	require.NoError(t, store.DeleteSession(ctx, "s1"))

	require.NoError(t, store.AddToBlacklist(ctx, "jti-1", time.Minute))
	revoked, err := store.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(time.Hour)
	revoked, err = store.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryStore_Failure(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SetFailure(errors.New("connection refused"))

	_, err := store.GetIdentityByAlias(ctx, "fox")
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Error(t, store.Health(ctx))

	store.SetFailure(nil)
	_, err = store.GetIdentityByAlias(ctx, "fox")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.ListListings(cancelled)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}
