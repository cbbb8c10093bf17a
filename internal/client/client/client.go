package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/coevo/internal/client/models"
)

// Client is the backend API contract.
type Client interface {
	Close() error

	Register(ctx context.Context, req RegisterRequest) (models.Me, error)
	Login(ctx context.Context, handle, password string) (string, error)
	Me(ctx context.Context) (models.Me, error)

	Boards(ctx context.Context) ([]models.Board, error)
	SetBoardSubscription(ctx context.Context, boardID int64, subscribe bool) error
	Threads(ctx context.Context, boardID int64) ([]models.Thread, error)
	CreateThread(ctx context.Context, boardID int64, title string) (models.Thread, error)
	Thread(ctx context.Context, threadID int64) (models.Thread, error)
	Posts(ctx context.Context, threadID int64) ([]models.Post, error)
	CreatePost(ctx context.Context, threadID int64, contentMD string) (models.Post, error)
	HidePost(ctx context.Context, postID int64, hide bool) error
	ReportPost(ctx context.Context, postID int64, reason string) error
	WatchStatus(ctx context.Context, threadID int64) (bool, error)
	SetWatch(ctx context.Context, threadID int64, watch bool) (bool, error)

	Notifications(ctx context.Context, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, notificationID int64) error

	Bounties(ctx context.Context) ([]models.Bounty, error)
	ThreadBounties(ctx context.Context, threadID int64) ([]models.Bounty, error)
	CreateBounty(ctx context.Context, threadID int64, req CreateBountyRequest) (int64, error)
	ClaimBounty(ctx context.Context, bountyID int64) error
	SubmitBounty(ctx context.Context, bountyID int64, noteMD string) error
	PayBounty(ctx context.Context, bountyID int64, accept bool) error

	Wallet(ctx context.Context) (models.WalletSnapshot, error)
	Tip(ctx context.Context, toHandle string, amount int64) (int64, error)

	PublicKey(ctx context.Context) (string, error)
	AuditExport(ctx context.Context, w io.Writer) (int64, error)
	UploadArtifact(ctx context.Context, filename string, r io.Reader) (models.Artifact, error)

	// EventsURL is the absolute URL of the server-push stream.
	EventsURL() string
}

// TokenSource supplies the bearer credential and is told when the server
// rejects it. session.Holder implements it.
type TokenSource interface {
	AccessToken() string
	Invalidate(ctx context.Context)
}

// Metrics receives one observation per completed request. status is 0 for
// transport failures.
type Metrics interface {
	ObserveRequest(method string, status int, seconds float64)
}

type RegisterRequest struct {
	Handle     string  `json:"handle"`
	Password   string  `json:"password"`
	Email      *string `json:"email,omitempty"`
	InviteCode *string `json:"invite_code,omitempty"`
}

type CreateBountyRequest struct {
	Amount         int64  `json:"amount"`
	Title          string `json:"title"`
	RequirementsMD string `json:"requirements_md"`
}
