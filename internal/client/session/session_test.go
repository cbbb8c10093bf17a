package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/coevo/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/coevo/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func signToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: sub}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return s
}

func TestIdentityFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signToken(t, "alice", exp)

	id, err := IdentityFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Handle)
	assert.Zero(t, id.UserID, "user id is not part of the token")
	assert.Equal(t, tok, id.Token)
	assert.True(t, exp.Equal(id.ExpiresAt))
	assert.False(t, id.Expired(time.Now()))
	assert.True(t, id.Expired(exp.Add(time.Second)))
}

func TestIdentityFromToken_Invalid(t *testing.T) {
	_, err := IdentityFromToken("opaque-token")
	require.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = IdentityFromToken(signToken(t, "", time.Time{}))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestHolder_SetClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	h := NewHolder(store, nil)

	_, ok := h.Current()
	require.False(t, ok)
	assert.Empty(t, h.AccessToken())
	assert.Zero(t, h.UserID())

	require.NoError(t, h.Set(ctx, Identity{Token: "tok", UserID: 4}))
	assert.Equal(t, "tok", h.AccessToken())
	assert.Equal(t, int64(4), h.UserID())

	saved, _ := store.Load(ctx)
	assert.Equal(t, "tok", saved)

	require.NoError(t, h.Clear(ctx))
	assert.Empty(t, h.AccessToken())
	saved, _ = store.Load(ctx)
	assert.Empty(t, saved)
}

func TestHolder_InvalidateClearsStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	h := NewHolder(store, nil)
	require.NoError(t, h.Set(ctx, Identity{Token: "tok", UserID: 1}))

	h.Invalidate(ctx)

	_, ok := h.Current()
	assert.False(t, ok)
	saved, _ := store.Load(ctx)
	assert.Empty(t, saved)
}

func TestHolder_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		_, ok, err := NewHolder(NewMemoryStore(), nil).Restore(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("jwt", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, signToken(t, "bob", time.Now().Add(time.Hour))))
		h := NewHolder(store, nil)

		id, ok, err := h.Restore(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "bob", id.Handle)
		assert.Zero(t, h.UserID())

		h.SetUser(9, "bob")
		assert.Equal(t, int64(9), h.UserID())
	})

	t.Run("opaque token keeps unknown user", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, "opaque"))
		h := NewHolder(store, nil)

		_, ok, err := h.Restore(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Zero(t, h.UserID())

		h.SetUser(12, "carol")
		assert.Equal(t, int64(12), h.UserID())
		cur, _ := h.Current()
		assert.Equal(t, "carol", cur.Handle)
	})

	t.Run("expired token is dropped", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, signToken(t, "bob", time.Now().Add(-time.Hour))))
		h := NewHolder(store, nil)

		_, ok, err := h.Restore(ctx)
		require.ErrorIs(t, err, common.ErrTokenExpired)
		assert.False(t, ok)
		saved, _ := store.Load(ctx)
		assert.Empty(t, saved)
	})
}

func TestMetadataStore(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL)`)
	require.NoError(t, err)

	s := NewMetadataStore(metadata.NewSQLiteRepository(db))

	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Save(ctx, "abc"))
	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, s.Clear(ctx))
	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}
