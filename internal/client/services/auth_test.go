package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/coevo/internal/client/client"
	"github.com/dmitrijs2005/coevo/internal/client/fakeapi"
	"github.com/dmitrijs2005/coevo/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/coevo/internal/client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	srv := fakeapi.New()
	aliceID := srv.AddUser("alice", "secret1", "user")
	base := fakeapi.Start(t, srv)

	repos := setupRepos(t)
	holder := session.NewHolder(session.NewMetadataStore(repos.Metadata), nil)
	svc := NewAuthService(newClient(t, base, holder), holder, repos, nil)

	pw := []byte("secret1")
	id, err := svc.Login(ctx, "alice", pw)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Handle)
	assert.Equal(t, aliceID, id.UserID)
	assert.Equal(t, aliceID, holder.UserID())
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0}, pw, "password must be wiped")

	stored, err := repos.Metadata.Get(ctx, metadata.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, id.Token, string(stored))
}

func TestAuthService_LoginInvalidCredentials(t *testing.T) {
	srv := fakeapi.New()
	srv.AddUser("alice", "secret1", "user")
	base := fakeapi.Start(t, srv)

	holder := session.NewHolder(session.NewMemoryStore(), nil)
	svc := NewAuthService(newClient(t, base, holder), holder, nil, nil)

	_, err := svc.Login(context.Background(), "alice", []byte("wrong"))
	require.ErrorIs(t, err, client.ErrUnauthorized)
	_, ok := holder.Current()
	assert.False(t, ok)
}

func TestAuthService_Register(t *testing.T) {
	srv := fakeapi.New()
	base := fakeapi.Start(t, srv)

	holder := session.NewHolder(session.NewMemoryStore(), nil)
	svc := NewAuthService(newClient(t, base, holder), holder, nil, nil)

	id, err := svc.Register(context.Background(), "bob", []byte("hunter22"), "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "bob", id.Handle)
	assert.NotZero(t, id.UserID)

	_, err = svc.Register(context.Background(), "bob", []byte("hunter22"), "")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Handle already taken", apiErr.Message)
}

func TestAuthService_Restore(t *testing.T) {
	ctx := context.Background()
	srv := fakeapi.New()
	aliceID := srv.AddUser("alice", "secret1", "user")
	base := fakeapi.Start(t, srv)

	store := session.NewMemoryStore()
	require.NoError(t, store.Save(ctx, srv.TokenFor("alice")))

	holder := session.NewHolder(store, nil)
	svc := NewAuthService(newClient(t, base, holder), holder, nil, nil)

	id, ok, err := svc.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, aliceID, id.UserID)
	assert.Equal(t, "alice", id.Handle)
}

func TestAuthService_RestoreNoSession(t *testing.T) {
	srv := fakeapi.New()
	base := fakeapi.Start(t, srv)

	holder := session.NewHolder(session.NewMemoryStore(), nil)
	svc := NewAuthService(newClient(t, base, holder), holder, nil, nil)

	_, ok, err := svc.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, srv.TotalCalls())
}

func TestAuthService_RestoreRejectedToken(t *testing.T) {
	ctx := context.Background()
	srv := fakeapi.New()
	base := fakeapi.Start(t, srv)

	store := session.NewMemoryStore()
	require.NoError(t, store.Save(ctx, "not-a-valid-token"))

	holder := session.NewHolder(store, nil)
	svc := NewAuthService(newClient(t, base, holder), holder, nil, nil)

	_, ok, err := svc.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	tok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestAuthService_RestoreOffline(t *testing.T) {
	ctx := context.Background()
	srv := fakeapi.New()
	srv.AddUser("alice", "secret1", "user")

	store := session.NewMemoryStore()
	require.NoError(t, store.Save(ctx, srv.TokenFor("alice")))

	holder := session.NewHolder(store, nil)
	svc := NewAuthService(newClient(t, "http://127.0.0.1:1", holder), holder, nil, nil)

	id, ok, err := svc.Restore(ctx)
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.True(t, ok)
	assert.Equal(t, "alice", id.Handle)
	assert.NotEmpty(t, holder.AccessToken())
}

func TestAuthService_LogoutWipesLocalData(t *testing.T) {
	ctx := context.Background()
	srv := fakeapi.New()
	srv.AddUser("alice", "secret1", "user")
	base := fakeapi.Start(t, srv)

	repos := setupRepos(t)
	holder := session.NewHolder(session.NewMetadataStore(repos.Metadata), nil)
	svc := NewAuthService(newClient(t, base, holder), holder, repos, nil)

	_, err := svc.Login(ctx, "alice", []byte("secret1"))
	require.NoError(t, err)
	require.NoError(t, metadata.SetJSON(ctx, repos.Metadata, metadata.KeyWalletSnapshot, map[string]int{"balance": 1}))

	require.NoError(t, svc.Logout(ctx))

	_, ok := holder.Current()
	assert.False(t, ok)
	all, err := repos.Metadata.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
