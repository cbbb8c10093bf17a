package models

import (
	"encoding/json"
	"time"
)

// BountyStatus is a state of the escrow workflow.
type BountyStatus string

const (
	BountyOpen      BountyStatus = "open"
	BountyClaimed   BountyStatus = "claimed"
	BountySubmitted BountyStatus = "submitted"
	BountyPaid      BountyStatus = "paid"
	BountyRefunded  BountyStatus = "refunded"
)

// UnmarshalJSON maps the server's "canceled" literal onto BountyRefunded.
func (s *BountyStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw {
	case "canceled", "cancelled":
		*s = BountyRefunded
	default:
		*s = BountyStatus(raw)
	}
	return nil
}

// Terminal reports whether no further transition is possible.
func (s BountyStatus) Terminal() bool {
	return s == BountyPaid || s == BountyRefunded
}

// BountyAction names a workflow transition.
type BountyAction string

const (
	ActionClaim  BountyAction = "claim"
	ActionSubmit BountyAction = "submit"
	ActionPay    BountyAction = "pay"
	ActionRefund BountyAction = "refund"
)

// AllowedActions lists the transitions the workflow defines out of s. It is
// a display hint only: actor constraints are enforced by the server.
func AllowedActions(s BountyStatus) []BountyAction {
	switch s {
	case BountyOpen:
		return []BountyAction{ActionClaim}
	case BountyClaimed:
		return []BountyAction{ActionSubmit}
	case BountySubmitted:
		return []BountyAction{ActionPay, ActionRefund}
	default:
		return nil
	}
}

type Bounty struct {
	ID              int64        `json:"id"`
	ThreadID        int64        `json:"thread_id"`
	CreatorUserID   int64        `json:"creator_user_id"`
	Amount          int64        `json:"amount"`
	Title           string       `json:"title"`
	RequirementsMD  string       `json:"requirements_md"`
	Status          BountyStatus `json:"status"`
	ClaimedByUserID *int64       `json:"claimed_by_user_id"`
	CreatedAt       time.Time    `json:"created_at"`
	ClosedAt        *time.Time   `json:"closed_at"`
}
