package fakeapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

const publicKeyPEM = "-----BEGIN PUBLIC KEY-----\nMCowBQYDK2VwAyEAfakefakefakefakefakefakefakefakefakefakefak=\n-----END PUBLIC KEY-----\n"

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.track)

	api.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	api.HandleFunc("/me", s.me).Methods(http.MethodGet)

	api.HandleFunc("/boards", s.listBoards).Methods(http.MethodGet)
	api.HandleFunc("/subscriptions/boards/{id}", s.toggleBoardSub).Methods(http.MethodPost)
	api.HandleFunc("/boards/{id}/threads", s.listThreads).Methods(http.MethodGet)
	api.HandleFunc("/boards/{id}/threads", s.createThread).Methods(http.MethodPost)
	api.HandleFunc("/threads/{id}", s.getThread).Methods(http.MethodGet)
	api.HandleFunc("/threads/{id}/posts", s.listPosts).Methods(http.MethodGet)
	api.HandleFunc("/threads/{id}/posts", s.createPost).Methods(http.MethodPost)
	api.HandleFunc("/mod/posts/{id}/hide", s.hidePost).Methods(http.MethodPost)
	api.HandleFunc("/mod/posts/{id}/report", s.reportPost).Methods(http.MethodPost)
	api.HandleFunc("/watches/thread/{id}", s.watchStatus).Methods(http.MethodGet)
	api.HandleFunc("/watches/thread/{id}", s.toggleWatch).Methods(http.MethodPost)

	api.HandleFunc("/notifications", s.listNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/unread-count", s.unreadCount).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", s.markRead).Methods(http.MethodPatch)

	api.HandleFunc("/bounties", s.listBounties).Methods(http.MethodGet)
	api.HandleFunc("/bounties/thread/{id}", s.listThreadBounties).Methods(http.MethodGet)
	api.HandleFunc("/bounties/thread/{id}", s.createBounty).Methods(http.MethodPost)
	api.HandleFunc("/bounties/{id}/claim", s.claimBounty).Methods(http.MethodPost)
	api.HandleFunc("/bounties/{id}/submit", s.submitBounty).Methods(http.MethodPost)
	api.HandleFunc("/bounties/{id}/pay", s.payBounty).Methods(http.MethodPost)

	api.HandleFunc("/wallet", s.wallet).Methods(http.MethodGet)
	api.HandleFunc("/wallet/tip", s.tip).Methods(http.MethodPost)
	api.HandleFunc("/system/public-key", s.publicKey).Methods(http.MethodGet)
	api.HandleFunc("/audit/export", s.auditExport).Methods(http.MethodGet)
	api.HandleFunc("/artifacts/upload", s.uploadArtifact).Methods(http.MethodPost)

	api.HandleFunc("/events", s.events).Methods(http.MethodGet)
	return r
}

// track counts the request, applies gates and injected failures.
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tmpl, _ := mux.CurrentRoute(r).GetPathTemplate()
		route := r.Method + " " + strings.TrimPrefix(tmpl, "/api")

		s.mu.Lock()
		s.calls[route]++
		s.headers[route] = r.Header.Clone()
		gate := s.gates[route]
		var fail *failure
		if f := s.failures[route]; f != nil {
			copied := *f
			fail = &copied
			if f.times > 0 {
				f.times--
				if f.times == 0 {
					delete(s.failures, route)
				}
			}
		}
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if fail != nil {
			writeError(w, fail.status, fail.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "invalid body: " + err.Error()}},
		})
		return false
	}
	return true
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// authLocked resolves the bearer token. On failure it writes 401.
func (s *Server) authLocked(w http.ResponseWriter, r *http.Request) (*user, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return nil, false
	}
	id, ok := s.byHandle[claims.Subject]
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found")
		return nil, false
	}
	return s.users[id], true
}

func (s *Server) transferLocked(from *int64, to, amount int64, reason string, refType *string, refID *int64) (int64, error) {
	if amount <= 0 {
		return 0, errors.New("Amount must be > 0")
	}
	if from != nil {
		if s.wallets[*from] < amount {
			return 0, errors.New("Insufficient funds")
		}
		s.wallets[*from] -= amount
	}
	s.wallets[to] += amount
	tx := models.LedgerTx{ID: s.id(), FromWalletID: from, ToWalletID: to, Amount: amount, Reason: reason,
		RefType: refType, RefID: refID, CreatedAt: time.Now().UTC()}
	s.ledger = append(s.ledger, tx)
	return tx.ID, nil
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Handle   string `json:"handle"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	if len(in.Handle) < 3 || len(in.Password) < 6 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{
			{"msg": "handle must have at least 3 characters"},
			{"msg": "password must have at least 6 characters"},
		}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byHandle[in.Handle]; taken {
		writeError(w, http.StatusBadRequest, "Handle already taken")
		return
	}
	id := s.addUserLocked(in.Handle, in.Password, "user")
	writeJSON(w, http.StatusOK, models.Me{ID: id, Handle: in.Handle, Role: "user"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Handle   string `json:"handle"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	id, ok := s.byHandle[in.Handle]
	valid := ok && s.users[id].password == in.Password
	s.mu.Unlock()
	if !valid {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": s.TokenFor(in.Handle), "token_type": "bearer"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.Me{ID: u.id, Handle: u.handle, Role: u.role})
}

func (s *Server) listBoards(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	out := []models.Board{}
	for _, b := range s.boards {
		cp := *b
		cp.Subscribed = s.subscriptions[u.id][b.ID]
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) toggleBoardSub(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Subscribe bool `json:"subscribe"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	id := pathID(r)
	if _, ok := s.boards[id]; !ok {
		writeError(w, http.StatusNotFound, "Board not found")
		return
	}
	if s.subscriptions[u.id] == nil {
		s.subscriptions[u.id] = map[int64]bool{}
	}
	if in.Subscribe {
		s.subscriptions[u.id][id] = true
	} else {
		delete(s.subscriptions[u.id], id)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) listThreads(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authLocked(w, r); !ok {
		return
	}
	boardID := pathID(r)
	out := []models.Thread{}
	for _, t := range s.threads {
		if t.BoardID == boardID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createThread(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title string `json:"title"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authLocked(w, r); !ok {
		return
	}
	boardID := pathID(r)
	if _, ok := s.boards[boardID]; !ok {
		writeError(w, http.StatusNotFound, "Board not found")
		return
	}
	t := &models.Thread{ID: s.id(), BoardID: boardID, Title: in.Title}
	s.threads[t.ID] = t
	s.publishLocked(models.EventThreadCreated, models.ThreadCreatedEvent{BoardID: boardID, ThreadID: t.ID, Title: t.Title})
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authLocked(w, r); !ok {
		return
	}
	t, ok := s.threads[pathID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Thread not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	threadID := pathID(r)
	mod := u.role == "admin" || u.role == "mod"
	out := []models.Post{}
	for _, p := range s.posts {
		if p.ThreadID != threadID || (p.IsHidden && !mod) {
			continue
		}
		out = append(out, *p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ContentMD string `json:"content_md"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	threadID := pathID(r)
	if _, ok := s.threads[threadID]; !ok {
		writeError(w, http.StatusNotFound, "Thread not found")
		return
	}
	sig := "sig-" + strconv.FormatInt(s.nextID+1, 10)
	p := &models.Post{ID: s.id(), ThreadID: threadID, AuthorHandle: u.handle, AuthorType: models.AuthorUser,
		ContentMD: in.ContentMD, CreatedAt: time.Now().UTC(), Signature: &sig}
	s.posts = append(s.posts, p)

	s.publishLocked(models.EventPostCreated, models.PostCreatedEvent{ThreadID: threadID, Post: *p})
	s.notifyWatchersLocked(threadID, u.id, p.ID)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) notifyWatchersLocked(threadID, authorID, postID int64) {
	watchers := make([]int64, 0, len(s.watches[threadID]))
	for uid := range s.watches[threadID] {
		watchers = append(watchers, uid)
	}
	sort.Slice(watchers, func(i, j int) bool { return watchers[i] < watchers[j] })

	for _, uid := range watchers {
		if uid == authorID {
			continue
		}
		tid := threadID
		payload, _ := json.Marshal(map[string]int64{"thread_id": threadID, "post_id": postID})
		n := s.addNotificationLocked(uid, &tid, "thread_post", payload)
		s.publishLocked(models.EventNotify, models.NotifyEvent{UserID: uid, Notification: n})
	}
}

func (s *Server) findPostLocked(id int64) *models.Post {
	for _, p := range s.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Server) hidePost(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Hide bool `json:"hide"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	if u.role != "admin" && u.role != "mod" {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	p := s.findPostLocked(pathID(r))
	if p == nil {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	p.IsHidden = in.Hide
	s.publishLocked(models.EventPostHidden, models.PostHiddenEvent{ThreadID: p.ThreadID, PostID: p.ID, Hide: p.IsHidden})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "is_hidden": p.IsHidden})
}

func (s *Server) reportPost(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authLocked(w, r); !ok {
		return
	}
	p := s.findPostLocked(pathID(r))
	if p == nil {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	s.publishRawLocked(fmt.Sprintf(`{"type":"post_reported","post_id":%d}`, p.ID))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) watchStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"watching": s.watches[pathID(r)][u.id]})
}

func (s *Server) toggleWatch(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Watch bool `json:"watch"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	threadID := pathID(r)
	if _, ok := s.threads[threadID]; !ok {
		writeError(w, http.StatusNotFound, "Thread not found")
		return
	}
	if s.watches[threadID] == nil {
		s.watches[threadID] = map[int64]bool{}
	}
	if in.Watch {
		s.watches[threadID][u.id] = true
	} else {
		delete(s.watches[threadID], u.id)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true, "watching": in.Watch})
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	all := s.notifications[u.id]
	out := []models.Notification{}
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *all[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	n := 0
	for _, item := range s.notifications[u.id] {
		if item.ReadAt == nil {
			n++
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Read bool `json:"read"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	id := pathID(r)
	for _, n := range s.notifications[u.id] {
		if n.ID != id {
			continue
		}
		if in.Read {
			now := time.Now().UTC()
			n.ReadAt = &now
		} else {
			n.ReadAt = nil
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": false})
}

func (s *Server) bountyListLocked(threadID *int64) []models.Bounty {
	out := []models.Bounty{}
	for _, b := range s.bounties {
		if threadID == nil || b.ThreadID == *threadID {
			out = append(out, b.Bounty)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Server) listBounties(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authLocked(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.bountyListLocked(nil))
}

func (s *Server) listThreadBounties(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authLocked(w, r); !ok {
		return
	}
	id := pathID(r)
	writeJSON(w, http.StatusOK, s.bountyListLocked(&id))
}

func (s *Server) createBounty(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount         int64  `json:"amount"`
		Title          string `json:"title"`
		RequirementsMD string `json:"requirements_md"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	if in.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Amount must be > 0")
		return
	}
	threadID := pathID(r)
	if _, ok := s.threads[threadID]; !ok {
		writeError(w, http.StatusNotFound, "Thread not found")
		return
	}
	ref := "thread"
	if _, err := s.transferLocked(&u.walletID, s.systemWallet, in.Amount, "escrow", &ref, &threadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b := &bountyRec{Bounty: models.Bounty{ID: s.id(), ThreadID: threadID, CreatorUserID: u.id, Amount: in.Amount,
		Title: in.Title, RequirementsMD: in.RequirementsMD, Status: models.BountyOpen, CreatedAt: time.Now().UTC()}}
	s.bounties[b.ID] = b
	s.publishLocked(models.EventBountyCreated, models.BountyCreatedEvent{ThreadID: threadID, Bounty: models.BountyAnnouncement{
		ID: b.ID, Title: b.Title, Amount: b.Amount, RequirementsMD: b.RequirementsMD, CreatorHandle: u.handle,
	}})
	writeJSON(w, http.StatusOK, map[string]int64{"id": b.ID})
}

func (s *Server) claimBounty(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	b, ok := s.bounties[pathID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if b.Status != models.BountyOpen {
		writeError(w, http.StatusBadRequest, "Not open")
		return
	}
	b.Status = models.BountyClaimed
	claimant := u.id
	b.ClaimedByUserID = &claimant
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) submitBounty(w http.ResponseWriter, r *http.Request) {
	var in struct {
		NoteMD string `json:"note_md"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	b, ok := s.bounties[pathID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if b.Status != models.BountyClaimed {
		writeError(w, http.StatusBadRequest, "Not claimed")
		return
	}
	if b.ClaimedByUserID == nil || *b.ClaimedByUserID != u.id {
		writeError(w, http.StatusForbidden, "Not your bounty")
		return
	}
	b.note = in.NoteMD
	b.Status = models.BountySubmitted
	s.posts = append(s.posts, &models.Post{ID: s.id(), ThreadID: b.ThreadID, AuthorHandle: u.handle,
		AuthorType: models.AuthorUser, CreatedAt: time.Now().UTC(),
		ContentMD: fmt.Sprintf("**Bounty submission** (bounty #%d):\n\n%s", b.ID, in.NoteMD)})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Note returns the submission note stored with a bounty.
func (s *Server) Note(bountyID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bounties[bountyID]; ok {
		return b.note
	}
	return ""
}

func (s *Server) payBounty(w http.ResponseWriter, r *http.Request) {
	in := struct {
		Accept bool `json:"accept"`
	}{Accept: true}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	b, ok := s.bounties[pathID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if b.CreatorUserID != u.id {
		writeError(w, http.StatusForbidden, "Only creator can pay/cancel")
		return
	}
	if b.Status != models.BountySubmitted {
		writeError(w, http.StatusBadRequest, "Bounty not submitted")
		return
	}

	ref := "bounty"
	now := time.Now().UTC()
	if !in.Accept {
		if _, err := s.transferLocked(&s.systemWallet, u.walletID, b.Amount, "refund", &ref, &b.ID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// The server persists the historical literal; clients read it as refunded.
		b.Status = models.BountyStatus("canceled")
		b.ClosedAt = &now
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "canceled"})
		return
	}

	if b.ClaimedByUserID == nil {
		writeError(w, http.StatusBadRequest, "No claimant")
		return
	}
	solver := s.users[*b.ClaimedByUserID]
	if _, err := s.transferLocked(&s.systemWallet, solver.walletID, b.Amount, "payout", &ref, &b.ID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b.Status = models.BountyPaid
	b.ClosedAt = &now
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "paid"})
}

func (s *Server) wallet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	snap := models.WalletSnapshot{Wallet: models.Wallet{ID: u.walletID, Balance: s.wallets[u.walletID]}, Ledger: []models.LedgerTx{}}
	for i := len(s.ledger) - 1; i >= 0 && len(snap.Ledger) < 50; i-- {
		tx := s.ledger[i]
		if tx.ToWalletID == u.walletID || (tx.FromWalletID != nil && *tx.FromWalletID == u.walletID) {
			snap.Ledger = append(snap.Ledger, tx)
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) tip(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ToHandle string `json:"to_handle"`
		Amount   int64  `json:"amount"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authLocked(w, r)
	if !ok {
		return
	}
	if in.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Amount must be > 0")
		return
	}
	toID, ok := s.byHandle[in.ToHandle]
	if !ok {
		writeError(w, http.StatusNotFound, "Recipient not found")
		return
	}
	ref := "user"
	txID, err := s.transferLocked(&u.walletID, s.users[toID].walletID, in.Amount, "tip", &ref, &toID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "tx_id": txID})
}

func (s *Server) publicKey(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key_pem": publicKeyPEM})
}

func (s *Server) auditExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u, ok := s.authLocked(w, r)
	data := s.auditZip
	s.mu.Unlock()
	if !ok {
		return
	}
	if u.role != "admin" && u.role != "mod" {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="audit_export.zip"`)
	_, _ = w.Write(data)
}

// AuditExport returns the bytes served by GET /audit/export.
func (s *Server) AuditExport() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.auditZip...)
}

func (s *Server) uploadArtifact(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, ok := s.authLocked(w, r)
	s.mu.Unlock()
	if !ok {
		return
	}
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data; boundary=") {
		writeError(w, http.StatusUnprocessableEntity, "expected multipart body, got "+ct)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "field required")
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "Empty file")
		return
	}
	sum := sha256.Sum256(data)

	s.mu.Lock()
	id := s.id()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.Artifact{ID: id, Filename: header.Filename, MIME: "application/octet-stream",
		SizeBytes: int64(len(data)), SHA256: hex.EncodeToString(sum[:]), CreatedAt: time.Now().UTC()})
}
