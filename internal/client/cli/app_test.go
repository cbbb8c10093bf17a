package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/coevo/internal/client/config"
	"github.com/dmitrijs2005/coevo/internal/client/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getSecret
	// A fresh slice per call: the caller wipes it.
	getSecret = func(io.Writer, string) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getSecret = orig })
}

func testConfig(t *testing.T, base string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ServerURL = base
	cfg.DBPath = filepath.Join(t.TempDir(), "coevo.db")
	cfg.LogLevel = "error"
	cfg.RequestTimeout = 5 * time.Second
	cfg.ReconnectInterval = 20 * time.Millisecond
	return cfg
}

func openApp(t *testing.T, cfg *config.Config, input string) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	a, err := NewApp(context.Background(), cfg, strings.NewReader(input), &out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, &out
}

type testServer struct {
	*fakeapi.Server
	alice, bob int64
}

func newServer(t *testing.T) (*testServer, string) {
	t.Helper()
	srv := &testServer{Server: fakeapi.New()}
	srv.alice = srv.AddUser("alice", "secret1", "user")
	srv.bob = srv.AddUser("bob", "secret2", "user")
	board := srv.AddBoard("general", "General")
	srv.AddThread(42, board, "Bounties welcome")
	return srv, fakeapi.Start(t, srv.Server)
}

func TestApp_LoginStartsSession(t *testing.T) {
	_, base := newServer(t)
	stubPassword(t, "secret1")
	ctx := context.Background()

	a, out := openApp(t, testConfig(t, base), "")
	assert.False(t, a.isLoggedIn())

	require.NoError(t, a.Login(ctx, []string{"alice"}))
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, ModeOnline, a.Mode)
	assert.Contains(t, out.String(), "Logged in as alice")
	assert.Equal(t, "(alice, online)", a.getStatus())

	require.NoError(t, a.Wallet(ctx, nil))
	assert.Contains(t, out.String(), "Balance: 50 cr")
	assert.Contains(t, out.String(), "MINT")
}

func TestApp_SessionSurvivesRestart(t *testing.T) {
	_, base := newServer(t)
	stubPassword(t, "secret1")
	ctx := context.Background()
	cfg := testConfig(t, base)

	first, _ := openApp(t, cfg, "")
	require.NoError(t, first.Login(ctx, []string{"alice"}))
	require.NoError(t, first.Wallet(ctx, nil))
	require.NoError(t, first.Close())

	second, out := openApp(t, cfg, "")
	ok, err := second.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, second.Whoami(ctx, nil))
	assert.Contains(t, out.String(), "alice (id")

	require.NoError(t, second.Logout(ctx, nil))
	assert.False(t, second.isLoggedIn())
	require.NoError(t, second.Close())

	third, _ := openApp(t, cfg, "")
	ok, err = third.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApp_OfflineShowsCachedWallet(t *testing.T) {
	_, base := newServer(t)
	stubPassword(t, "secret1")
	ctx := context.Background()
	cfg := testConfig(t, base)

	online, _ := openApp(t, cfg, "")
	require.NoError(t, online.Login(ctx, []string{"alice"}))
	require.NoError(t, online.Wallet(ctx, nil))
	require.NoError(t, online.Close())

	cfg.ServerURL = "http://127.0.0.1:1"
	offline, out := openApp(t, cfg, "")
	ok, err := offline.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ModeOffline, offline.Mode)

	require.NoError(t, offline.Wallet(ctx, nil))
	assert.Contains(t, out.String(), "Server unavailable, showing cached data for alice")
	assert.Contains(t, out.String(), "(offline, cached wallet)")
	assert.Contains(t, out.String(), "Balance: 50 cr")
}

var createdRe = regexp.MustCompile(`Created bounty #(\d+)`)

func TestApp_BountyEscrowFlow(t *testing.T) {
	srv, base := newServer(t)
	ctx := context.Background()

	stubPassword(t, "secret1")
	alice, aliceOut := openApp(t, testConfig(t, base), "Make it faster\n\n")
	require.NoError(t, alice.Login(ctx, []string{"alice"}))

	require.ErrorIs(t, alice.CreateBounty(ctx, []string{"50", "Fix", "X"}), ErrNoThreadOpen)
	require.NoError(t, alice.Open(ctx, []string{"42"}))
	require.NoError(t, alice.CreateBounty(ctx, []string{"50", "Fix", "X"}))

	m := createdRe.FindStringSubmatch(aliceOut.String())
	require.Len(t, m, 2, aliceOut.String())
	id, err := strconv.ParseInt(m[1], 10, 64)
	require.NoError(t, err)

	b, ok := srv.Bounty(id)
	require.True(t, ok)
	assert.Equal(t, "Make it faster", b.RequirementsMD)
	assert.Equal(t, int64(0), srv.Balance(srv.alice))

	stubPassword(t, "secret2")
	bob, bobOut := openApp(t, testConfig(t, base), "")
	require.NoError(t, bob.Login(ctx, []string{"bob"}))
	require.NoError(t, bob.Claim(ctx, []string{m[1]}))
	require.NoError(t, bob.Submit(ctx, []string{m[1], "done,", "see", "PR"}))
	assert.Equal(t, "done, see PR", srv.Note(id))

	require.NoError(t, alice.Pay(ctx, []string{m[1]}))
	assert.Contains(t, aliceOut.String(), "Paid bounty #"+m[1])

	b, _ = srv.Bounty(id)
	assert.Equal(t, "paid", string(b.Status))

	require.NoError(t, bob.Wallet(ctx, nil))
	assert.Contains(t, bobOut.String(), "Balance: 100 cr")
}

func TestApp_ThreadCommands(t *testing.T) {
	_, base := newServer(t)
	stubPassword(t, "secret1")
	ctx := context.Background()

	a, out := openApp(t, testConfig(t, base), "first line\nsecond line\n\n")
	require.NoError(t, a.Login(ctx, []string{"alice"}))

	require.ErrorIs(t, a.Post(ctx, []string{"hi"}), ErrNoThreadOpen)
	require.NoError(t, a.Boards(ctx, nil))
	assert.Contains(t, out.String(), "general: General")

	require.NoError(t, a.Open(ctx, []string{"42"}))
	assert.Contains(t, out.String(), "(no posts)")
	assert.Equal(t, "(alice, online, thread 42)", a.getStatus())

	require.NoError(t, a.Post(ctx, nil))
	require.NoError(t, a.Post(ctx, []string{"inline", "reply"}))
	posts := a.view.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, "first line\nsecond line", posts[0].ContentMD)
	assert.Equal(t, "inline reply", posts[1].ContentMD)

	require.NoError(t, a.Watch(ctx, []string{"on"}))
	assert.Contains(t, out.String(), "Watching thread 42: true")

	var ue usageError
	require.ErrorAs(t, a.Hide(ctx, []string{"x"}), &ue)
	require.ErrorAs(t, a.Report(ctx, []string{"5"}), &ue)

	require.NoError(t, a.CloseThread(ctx, nil))
	assert.Nil(t, a.view)
}

func TestApp_TipValidation(t *testing.T) {
	_, base := newServer(t)
	stubPassword(t, "secret1")
	ctx := context.Background()

	a, out := openApp(t, testConfig(t, base), "")
	require.NoError(t, a.Login(ctx, []string{"alice"}))

	var ue usageError
	require.ErrorAs(t, a.Tip(ctx, []string{"bob"}), &ue)
	require.ErrorAs(t, a.Tip(ctx, []string{"bob", "lots"}), &ue)
	require.Error(t, a.Tip(ctx, []string{"bob", "0"}))

	require.NoError(t, a.Tip(ctx, []string{"bob", "12"}))
	assert.Contains(t, out.String(), "Sent 12 cr to bob")
}

func TestApp_RootREPL(t *testing.T) {
	_, base := newServer(t)
	stubPassword(t, "secret1")
	lines := capturePrintln(t)

	a, out := openApp(t, testConfig(t, base), "login alice\nwallet\nbogus\nn\nexit\n")
	require.NoError(t, a.Root(context.Background()))

	assert.Contains(t, out.String(), "Logged in as alice")
	assert.Contains(t, out.String(), "Balance: 50 cr")
	assert.Contains(t, out.String(), "0 unread")
	assert.Contains(t, *lines, "Unknown command: bogus")
	assert.Equal(t, "Bye!", (*lines)[len(*lines)-1])
}
