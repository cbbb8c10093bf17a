package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/coevo/internal/client/client"
	"github.com/dmitrijs2005/coevo/internal/client/fakeapi"
	"github.com/dmitrijs2005/coevo/internal/client/repositories"
	"github.com/dmitrijs2005/coevo/internal/client/session"
	"github.com/stretchr/testify/require"
)

func setupRepos(t *testing.T) *repositories.Repositories {
	t.Helper()
	db, err := repositories.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repositories.New(db)
}

func newClient(t *testing.T, baseURL string, holder *session.Holder) *client.HTTPClient {
	t.Helper()
	c, err := client.NewHTTPClient(client.Options{BaseURL: baseURL, Tokens: holder, Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// loggedIn returns a client whose holder already carries a session for handle.
func loggedIn(t *testing.T, srv *fakeapi.Server, baseURL, handle string, userID int64) *client.HTTPClient {
	t.Helper()
	holder := session.NewHolder(session.NewMemoryStore(), nil)
	require.NoError(t, holder.Set(context.Background(), session.Identity{Token: srv.TokenFor(handle), Handle: handle}))
	holder.SetUser(userID, handle)
	return newClient(t, baseURL, holder)
}
