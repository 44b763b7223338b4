package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secrethobby/backend/internal/cache"
	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/storage/memory"
)

func TestAliasDirectory_Register(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	dir := NewAliasDirectory(store, nil, nil, nil)

	identity, err := dir.Register(ctx, "  Fox ")
	require.NoError(t, err)
	assert.NotEmpty(t, identity.ID)
	assert.Equal(t, "fox", identity.Alias)

	tests := []struct {
		name  string
		alias string
		kind  domain.ErrorKind
	}{
		{"相同别名", "fox", domain.KindAliasTaken},
		{"大小写不同", "FOX", domain.KindAliasTaken},
		{"空别名", "", domain.KindValidation},
		{"只有空白", " \t", domain.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dir.Register(ctx, tt.alias)
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}
}

func TestAliasDirectory_RegisterWithCredential(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	dir := NewAliasDirectory(store, nil, nil, nil)

	identity, err := dir.RegisterWithCredential(ctx, "owl", func(id *domain.Identity) (*domain.Credential, error) {
		return &domain.Credential{IdentityID: id.ID, Login: id.Alias + "@test", SecretHash: "hash"}, nil
	})
	require.NoError(t, err)

	cred, err := store.GetCredential(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "owl@test", cred.Login)

	t.Run("凭据生成失败时不写入身份", func(t *testing.T) {
		bindErr := errors.New("hash failed")
		_, err := dir.RegisterWithCredential(ctx, "lynx", func(*domain.Identity) (*domain.Credential, error) {
			return nil, bindErr
		})
		assert.ErrorIs(t, err, bindErr)

		_, err = dir.Lookup(ctx, "lynx")
		assert.ErrorIs(t, err, domain.ErrAliasNotFound)
	})
}

func TestAliasDirectory_ConcurrentRegister(t *testing.T) {
	ctx := context.Background()
	dir := NewAliasDirectory(memory.NewStore(), nil, nil, nil)

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := dir.Register(ctx, "Fox")
			errs <- err
		}()
	}

	succeeded, taken := 0, 0
	for i := 0; i < workers; i++ {
		err := <-errs
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrAliasTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, taken)
}

func TestAliasDirectory_Lookup(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	identities := cache.NewLocalCache[domain.Identity](100, time.Minute)
	defer identities.Close()
	dir := NewAliasDirectory(store, identities, nil, nil)

	registered, err := dir.Register(ctx, "fox")
	require.NoError(t, err)

	found, err := dir.Lookup(ctx, " FOX ")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, found.ID)

	_, err = dir.Lookup(ctx, "owl")
	assert.ErrorIs(t, err, domain.ErrAliasNotFound)

	byID, err := dir.Get(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "fox", byID.Alias)

	_, err = dir.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	t.Run("存储不可用与不存在可以区分", func(t *testing.T) {
		store.SetFailure(errors.New("network down"))
		defer store.SetFailure(nil)

		_, err := dir.Lookup(ctx, "owl")
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		assert.False(t, errors.Is(err, domain.ErrAliasNotFound))

		// 已缓存的身份不依赖存储
		cached, err := dir.Lookup(ctx, "fox")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, cached.ID)
	})
}
