// Package fakeapi is an in-memory implementation of the CoEvo backend REST
// and event-stream API. It enforces the same authorization and bounty rules
// as the real server and lets tests inject failures, hold requests in
// flight, count calls and push arbitrary events.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

// NewUserGrant is minted into every registered user's wallet.
const NewUserGrant = 50

type user struct {
	id       int64
	handle   string
	password string
	role     string
	walletID int64
}

type failure struct {
	status int
	detail string
	times  int
}

type bountyRec struct {
	models.Bounty
	note string
}

// Server is the fake backend. Create with New and mount Handler on an
// httptest.Server.
type Server struct {
	mu     sync.Mutex
	router *mux.Router
	secret []byte
	nextID int64

	users         map[int64]*user
	byHandle      map[string]int64
	boards        map[int64]*models.Board
	subscriptions map[int64]map[int64]bool // user -> board
	threads       map[int64]*models.Thread
	posts         []*models.Post
	watches       map[int64]map[int64]bool // thread -> user
	notifications map[int64][]*models.Notification
	bounties      map[int64]*bountyRec
	wallets       map[int64]int64 // wallet id -> balance
	ledger        []models.LedgerTx
	systemWallet  int64
	auditZip      []byte

	calls    map[string]int
	headers  map[string]http.Header
	failures map[string]*failure
	gates    map[string]chan struct{}

	streams  map[int]chan []byte
	streamID int
	streamCh chan struct{}
}

func New() *Server {
	s := &Server{
		secret:        []byte("fakeapi-secret"),
		nextID:        1000,
		users:         map[int64]*user{},
		byHandle:      map[string]int64{},
		boards:        map[int64]*models.Board{},
		subscriptions: map[int64]map[int64]bool{},
		threads:       map[int64]*models.Thread{},
		watches:       map[int64]map[int64]bool{},
		notifications: map[int64][]*models.Notification{},
		bounties:      map[int64]*bountyRec{},
		wallets:       map[int64]int64{},
		calls:         map[string]int{},
		headers:       map[string]http.Header{},
		failures:      map[string]*failure{},
		gates:         map[string]chan struct{}{},
		streams:       map[int]chan []byte{},
		streamCh:      make(chan struct{}, 64),
		auditZip:      []byte("PK\x03\x04fake-audit"),
	}
	s.systemWallet = s.newWalletLocked()
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) newWalletLocked() int64 {
	id := s.id()
	s.wallets[id] = 0
	return id
}

// AddUser creates a user with a wallet holding NewUserGrant credits.
func (s *Server) AddUser(handle, password, role string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(handle, password, role)
}

func (s *Server) addUserLocked(handle, password, role string) int64 {
	u := &user{id: s.id(), handle: handle, password: password, role: role, walletID: s.newWalletLocked()}
	s.users[u.id] = u
	s.byHandle[handle] = u.id
	ref := "user"
	_, _ = s.transferLocked(nil, u.walletID, NewUserGrant, "mint", &ref, &u.id)
	return u.id
}

// TokenFor issues an access token for handle, the way /auth/login does.
func (s *Server) TokenFor(handle string) string {
	claims := jwt.RegisteredClaims{
		Subject:   handle,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return tok
}

func (s *Server) AddBoard(slug, title string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.boards[id] = &models.Board{ID: id, Slug: slug, Title: title}
	return id
}

// AddThread creates a thread with an explicit id.
func (s *Server) AddThread(id, boardID int64, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[id] = &models.Thread{ID: id, BoardID: boardID, Title: title}
}

// AddPost stores a post without publishing a push.
func (s *Server) AddPost(threadID int64, authorHandle, content string) models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Post{ID: s.id(), ThreadID: threadID, AuthorHandle: authorHandle, AuthorType: models.AuthorUser,
		ContentMD: content, CreatedAt: time.Now().UTC()}
	s.posts = append(s.posts, p)
	return *p
}

// AddNotification stores an unread notification without publishing a push.
func (s *Server) AddNotification(userID int64, threadID *int64, eventType string) models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addNotificationLocked(userID, threadID, eventType, json.RawMessage(`{}`))
}

func (s *Server) addNotificationLocked(userID int64, threadID *int64, eventType string, payload json.RawMessage) models.Notification {
	n := &models.Notification{ID: s.id(), ThreadID: threadID, EventType: eventType, Payload: payload, CreatedAt: time.Now().UTC()}
	s.notifications[userID] = append(s.notifications[userID], n)
	return *n
}

// Watch subscribes userID to notifications for threadID.
func (s *Server) Watch(userID, threadID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watches[threadID] == nil {
		s.watches[threadID] = map[int64]bool{}
	}
	s.watches[threadID][userID] = true
}

// Bounty returns the stored bounty.
func (s *Server) Bounty(id int64) (models.Bounty, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bounties[id]
	if !ok {
		return models.Bounty{}, false
	}
	return b.Bounty, true
}

// Balance returns the wallet balance of a user.
func (s *Server) Balance(userID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0
	}
	return s.wallets[u.walletID]
}

// EscrowBalance returns the system wallet balance.
func (s *Server) EscrowBalance() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[s.systemWallet]
}

// Calls returns how many requests reached route, e.g.
// "POST /bounties/{id}/submit". Paths are relative to /api.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of REST requests (the event stream excluded).
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for route, c := range s.calls {
		if route != "GET /events" {
			n += c
		}
	}
	return n
}

// LastHeader returns a header of the most recent request to route.
func (s *Server) LastHeader(route, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[route].Get(name)
}

// Fail makes the next times requests to route answer status with a FastAPI
// style {"detail": detail} body. times <= 0 fails until Reset.
func (s *Server) Fail(route string, status int, detail string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = &failure{status: status, detail: detail, times: times}
}

// Reset clears injected failures.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]*failure{}
}

// Hold blocks requests to route until the returned release is called.
// Requests are counted before they block.
func (s *Server) Hold(route string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[route] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, route)
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Start serves s on a local httptest server closed at test cleanup and
// returns its base URL.
func Start(tb testing.TB, s *Server) string {
	tb.Helper()
	ts := httptest.NewServer(s.Handler())
	tb.Cleanup(func() {
		s.DropStreams()
		ts.Close()
	})
	return ts.URL
}
