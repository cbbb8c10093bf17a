package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/coevo/internal/client/models"
)

func (c *HTTPClient) Bounties(ctx context.Context) ([]models.Bounty, error) {
	var list []models.Bounty
	err := c.doJSON(ctx, http.MethodGet, "/bounties", nil, &list)
	return list, err
}

func (c *HTTPClient) ThreadBounties(ctx context.Context, threadID int64) ([]models.Bounty, error) {
	var list []models.Bounty
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/bounties/thread/%d", threadID), nil, &list)
	return list, err
}

// CreateBounty escrows req.Amount from the caller's wallet and returns the
// new bounty id.
func (c *HTTPClient) CreateBounty(ctx context.Context, threadID int64, req CreateBountyRequest) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/bounties/thread/%d", threadID), req, &out, withIdempotencyKey())
	return out.ID, err
}

func (c *HTTPClient) ClaimBounty(ctx context.Context, bountyID int64) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/bounties/%d/claim", bountyID), nil, nil, withIdempotencyKey())
}

func (c *HTTPClient) SubmitBounty(ctx context.Context, bountyID int64, noteMD string) error {
	in := struct {
		NoteMD string `json:"note_md"`
	}{noteMD}
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/bounties/%d/submit", bountyID), in, nil, withIdempotencyKey())
}

// PayBounty releases escrow to the claimant (accept) or back to the
// creator (!accept).
func (c *HTTPClient) PayBounty(ctx context.Context, bountyID int64, accept bool) error {
	in := struct {
		Accept bool `json:"accept"`
	}{accept}
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/bounties/%d/pay", bountyID), in, nil, withIdempotencyKey())
}
