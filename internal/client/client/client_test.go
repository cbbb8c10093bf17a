package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/coevo/internal/client/fakeapi"
	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/dmitrijs2005/coevo/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokens struct {
	mu          sync.Mutex
	token       string
	invalidated int
}

func (s *stubTokens) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *stubTokens) Invalidate(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.invalidated++
}

type recordedRequest struct {
	method string
	status int
}

type stubMetrics struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (m *stubMetrics) ObserveRequest(method string, status int, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, recordedRequest{method, status})
}

func newTestClient(t *testing.T, srv *fakeapi.Server, token string) (*HTTPClient, *stubTokens) {
	t.Helper()
	tokens := &stubTokens{token: token}
	c, err := NewHTTPClient(Options{BaseURL: fakeapi.Start(t, srv), Tokens: tokens, Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, tokens
}

func TestNewHTTPClient_URLs(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		wantEvents string
		wantErr    bool
	}{
		{
			name:       "defaults",
			opts:       Options{BaseURL: "http://localhost:8000"},
			wantEvents: "http://localhost:8000/api/events",
		},
		{
			name:       "trailing slash and custom paths",
			opts:       Options{BaseURL: "https://coevo.example/", APIPrefix: "/v2/", EventsPath: "stream"},
			wantEvents: "https://coevo.example/v2/stream",
		},
		{name: "no scheme", opts: Options{BaseURL: "localhost:8000"}, wantErr: true},
		{name: "empty", opts: Options{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewHTTPClient(tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEvents, c.EventsURL())
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail string", `{"detail":"Not open"}`, "Not open"},
		{"detail list", `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, "field required; too short"},
		{"error field", `{"error":"boom"}`, "boom"},
		{"message field", `{"message":"nope"}`, "nope"},
		{"plain text", "Internal Server Error\n", "Internal Server Error"},
		{"empty", "", DefaultErrorMessage},
		{"null detail", `{"detail":null}`, DefaultErrorMessage},
		{"object without message fields", `{"code":"E42"}`, DefaultErrorMessage},
		{"object detail", `{"detail":{"code":"E42"}}`, DefaultErrorMessage},
		{"empty detail falls to error", `{"detail":"","error":"boom"}`, "boom"},
		{"json array", `[1,2]`, DefaultErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage([]byte(tt.body)))
		})
	}
}

func TestAPIError_Is(t *testing.T) {
	err := error(&APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid token"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrNotFound)

	wrapped := errors.Join(errors.New("ctx"), &APIError{StatusCode: http.StatusNotFound})
	assert.ErrorIs(t, wrapped, ErrNotFound)
	apiErr, ok := IsAPIError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestRegisterLoginMe(t *testing.T) {
	srv := fakeapi.New()
	c, tokens := newTestClient(t, srv, "")
	ctx := context.Background()

	me, err := c.Register(ctx, RegisterRequest{Handle: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Handle)
	assert.Equal(t, int64(fakeapi.NewUserGrant), srv.Balance(me.ID))

	token, err := c.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Empty(t, srv.LastHeader("POST /auth/login", common.AuthorizationHeader))

	tokens.token = token
	got, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, me, got)
	assert.Equal(t, "Bearer "+token, srv.LastHeader("GET /me", common.AuthorizationHeader))
}

func TestRegister_ValidationError(t *testing.T) {
	srv := fakeapi.New()
	c, _ := newTestClient(t, srv, "")

	_, err := c.Register(context.Background(), RegisterRequest{Handle: "al", Password: "x"})
	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "handle must have at least 3 characters")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv := fakeapi.New()
	srv.AddUser("alice", "secret1", "user")
	c, _ := newTestClient(t, srv, "")

	_, err := c.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualError(t, err, "Invalid credentials")
}

func TestUnauthorizedClearsSession(t *testing.T) {
	srv := fakeapi.New()
	c, tokens := newTestClient(t, srv, "garbage")

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualError(t, err, "Invalid token")
	assert.Equal(t, 1, tokens.invalidated)
	assert.Empty(t, tokens.AccessToken())

	_, err = c.Me(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, srv.LastHeader("GET /me", common.AuthorizationHeader), "no bearer after the session was cleared")
}

func TestRequestHeaders(t *testing.T) {
	srv := fakeapi.New()
	srv.AddUser("alice", "secret1", "user")
	board := srv.AddBoard("general", "General")
	srv.AddThread(42, board, "Fix X")
	c, _ := newTestClient(t, srv, srv.TokenFor("alice"))
	ctx := context.Background()

	id, err := c.CreateBounty(ctx, 42, CreateBountyRequest{Amount: 10, Title: "t"})
	require.NoError(t, err)
	first := srv.LastHeader("POST /bounties/thread/{id}", common.IdempotencyKeyHeader)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	_, err = c.ThreadBounties(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, srv.LastHeader("GET /bounties/thread/{id}", common.IdempotencyKeyHeader))
	_, err = uuid.Parse(srv.LastHeader("GET /bounties/thread/{id}", common.RequestIDHeader))
	require.NoError(t, err)

	require.Error(t, c.ClaimBounty(ctx, id+1000))
	require.NoError(t, c.ClaimBounty(ctx, id))
	assert.NotEmpty(t, srv.LastHeader("POST /bounties/{id}/claim", common.IdempotencyKeyHeader))
}

func TestTransportFailure(t *testing.T) {
	metrics := &stubMetrics{}
	c, err := NewHTTPClient(Options{BaseURL: "http://127.0.0.1:1", Metrics: metrics})
	require.NoError(t, err)

	_, err = c.Boards(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	_, isAPI := IsAPIError(err)
	assert.False(t, isAPI)
	require.Len(t, metrics.requests, 1)
	assert.Equal(t, recordedRequest{http.MethodGet, 0}, metrics.requests[0])
}

func TestDefaultTimeoutBox(t *testing.T) {
	srv := fakeapi.New()
	srv.AddUser("alice", "secret1", "user")
	base := fakeapi.Start(t, srv)
	release := srv.Hold("GET /wallet")
	t.Cleanup(release)

	tokens := &stubTokens{token: srv.TokenFor("alice")}
	c, err := NewHTTPClient(Options{BaseURL: base, Tokens: tokens, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Wallet(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestMarkRead(t *testing.T) {
	srv := fakeapi.New()
	alice := srv.AddUser("alice", "secret1", "user")
	n := srv.AddNotification(alice, nil, "tip")
	c, _ := newTestClient(t, srv, srv.TokenFor("alice"))
	ctx := context.Background()

	count, err := c.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, c.MarkRead(ctx, n.ID))
	count, err = c.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = c.MarkRead(ctx, 99999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNotifications_LimitAndOrder(t *testing.T) {
	srv := fakeapi.New()
	alice := srv.AddUser("alice", "secret1", "user")
	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, srv.AddNotification(alice, nil, "tip").ID)
	}
	c, _ := newTestClient(t, srv, srv.TokenFor("alice"))

	items, err := c.Notifications(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int64{ids[4], ids[3], ids[2]}, []int64{items[0].ID, items[1].ID, items[2].ID})
	assert.True(t, items[0].Unread())
}

func TestBountyEscrow(t *testing.T) {
	srv := fakeapi.New()
	alice := srv.AddUser("alice", "secret1", "user")
	bob := srv.AddUser("bob", "secret2", "user")
	board := srv.AddBoard("general", "General")
	srv.AddThread(42, board, "Fix X")
	ctx := context.Background()

	creator, _ := newTestClient(t, srv, srv.TokenFor("alice"))
	solver, _ := newTestClient(t, srv, srv.TokenFor("bob"))

	_, err := creator.CreateBounty(ctx, 42, CreateBountyRequest{Amount: 0, Title: "Fix X"})
	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Amount must be > 0", apiErr.Message)

	id, err := creator.CreateBounty(ctx, 42, CreateBountyRequest{Amount: 50, Title: "Fix X", RequirementsMD: "tests"})
	require.NoError(t, err)
	assert.Zero(t, srv.Balance(alice))
	assert.Equal(t, int64(50), srv.EscrowBalance())

	err = solver.SubmitBounty(ctx, id, "done")
	assert.EqualError(t, err, "Not claimed")

	require.NoError(t, solver.ClaimBounty(ctx, id))
	assert.EqualError(t, creator.ClaimBounty(ctx, id), "Not open")
	assert.EqualError(t, creator.SubmitBounty(ctx, id, "mine"), "Not your bounty")
	require.NoError(t, solver.SubmitBounty(ctx, id, "done"))
	assert.EqualError(t, solver.PayBounty(ctx, id, true), "Only creator can pay/cancel")
	require.NoError(t, creator.PayBounty(ctx, id, true))

	list, err := creator.ThreadBounties(ctx, 42)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.BountyPaid, list[0].Status)
	require.NotNil(t, list[0].ClaimedByUserID)
	assert.Equal(t, bob, *list[0].ClaimedByUserID)
	assert.NotNil(t, list[0].ClosedAt)
	assert.Equal(t, int64(100), srv.Balance(bob))
	assert.Zero(t, srv.EscrowBalance())

	posts, err := creator.Posts(ctx, 42)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.True(t, strings.HasPrefix(posts[0].ContentMD, "**Bounty submission**"))
}

func TestBountyRefundDecodesAsRefunded(t *testing.T) {
	srv := fakeapi.New()
	alice := srv.AddUser("alice", "secret1", "user")
	srv.AddUser("bob", "secret2", "user")
	srv.AddThread(7, srv.AddBoard("b", "B"), "T")
	ctx := context.Background()
	creator, _ := newTestClient(t, srv, srv.TokenFor("alice"))
	solver, _ := newTestClient(t, srv, srv.TokenFor("bob"))

	id, err := creator.CreateBounty(ctx, 7, CreateBountyRequest{Amount: 20, Title: "x"})
	require.NoError(t, err)
	require.NoError(t, solver.ClaimBounty(ctx, id))
	require.NoError(t, solver.SubmitBounty(ctx, id, "n"))
	require.NoError(t, creator.PayBounty(ctx, id, false))

	all, err := creator.Bounties(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.BountyRefunded, all[0].Status)
	assert.Equal(t, int64(fakeapi.NewUserGrant), srv.Balance(alice))
}

func TestWalletAndTip(t *testing.T) {
	srv := fakeapi.New()
	srv.AddUser("alice", "secret1", "user")
	bob := srv.AddUser("bob", "secret2", "user")
	c, _ := newTestClient(t, srv, srv.TokenFor("alice"))
	ctx := context.Background()

	txID, err := c.Tip(ctx, "bob", 5)
	require.NoError(t, err)
	assert.NotZero(t, txID)
	assert.Equal(t, int64(55), srv.Balance(bob))

	_, err = c.Tip(ctx, "nobody", 5)
	require.ErrorIs(t, err, ErrNotFound)

	snap, err := c.Wallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(45), snap.Wallet.Balance)
	require.Len(t, snap.Ledger, 2)
	assert.Equal(t, "tip", snap.Ledger[0].Reason)
	assert.Equal(t, models.MintSource, snap.Ledger[1].Source())
}

func TestThreadsAndModeration(t *testing.T) {
	srv := fakeapi.New()
	srv.AddUser("alice", "secret1", "user")
	srv.AddUser("mo", "secret3", "mod")
	board := srv.AddBoard("general", "General")
	user, _ := newTestClient(t, srv, srv.TokenFor("alice"))
	mod, _ := newTestClient(t, srv, srv.TokenFor("mo"))
	ctx := context.Background()

	require.NoError(t, user.SetBoardSubscription(ctx, board, true))
	boards, err := user.Boards(ctx)
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.True(t, boards[0].Subscribed)

	th, err := user.CreateThread(ctx, board, "Hello")
	require.NoError(t, err)
	threads, err := user.Threads(ctx, board)
	require.NoError(t, err)
	assert.Equal(t, []models.Thread{th}, threads)

	watching, err := user.SetWatch(ctx, th.ID, true)
	require.NoError(t, err)
	assert.True(t, watching)
	watching, err = user.WatchStatus(ctx, th.ID)
	require.NoError(t, err)
	assert.True(t, watching)

	p, err := user.CreatePost(ctx, th.ID, "first")
	require.NoError(t, err)
	require.NoError(t, user.ReportPost(ctx, p.ID, "spam"))

	err = user.HidePost(ctx, p.ID, true)
	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	require.NoError(t, mod.HidePost(ctx, p.ID, true))
	visible, err := user.Posts(ctx, th.ID)
	require.NoError(t, err)
	assert.Empty(t, visible)
	all, err := mod.Posts(ctx, th.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsHidden)

	_, err = user.Thread(ctx, 404404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSystemEndpoints(t *testing.T) {
	srv := fakeapi.New()
	srv.AddUser("alice", "secret1", "user")
	srv.AddUser("root", "secret0", "admin")
	user, _ := newTestClient(t, srv, srv.TokenFor("alice"))
	admin, _ := newTestClient(t, srv, srv.TokenFor("root"))
	ctx := context.Background()

	pem, err := user.PublicKey(ctx)
	require.NoError(t, err)
	assert.Contains(t, pem, "BEGIN PUBLIC KEY")

	var buf bytes.Buffer
	_, err = user.AuditExport(ctx, &buf)
	require.Error(t, err)
	assert.Zero(t, buf.Len())

	n, err := admin.AuditExport(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, srv.AuditExport(), buf.Bytes())

	data := []byte("artifact body")
	a, err := user.UploadArtifact(ctx, "notes.txt", bytes.NewReader(data))
	require.NoError(t, err)
	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), a.SHA256)
	assert.Equal(t, "notes.txt", a.Filename)
	assert.Equal(t, int64(len(data)), a.SizeBytes)
	assert.True(t, strings.HasPrefix(srv.LastHeader("POST /artifacts/upload", "Content-Type"), "multipart/form-data; boundary="))
}

func TestInjectedFailure(t *testing.T) {
	srv := fakeapi.New()
	srv.AddUser("alice", "secret1", "user")
	srv.Fail("GET /boards", http.StatusServiceUnavailable, "maintenance", 1)
	c, _ := newTestClient(t, srv, srv.TokenFor("alice"))

	_, err := c.Boards(context.Background())
	assert.EqualError(t, err, "maintenance")

	_, err = c.Boards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Calls("GET /boards"))
}
