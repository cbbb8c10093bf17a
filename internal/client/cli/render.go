package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/dustin/go-humanize"
)

// now is a test seam for relative timestamps.
var now = time.Now

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now(), "ago", "from now")
}

func credits(n int64) string {
	return humanize.Comma(n) + " cr"
}

func formatPost(p models.Post) string {
	author := p.AuthorHandle
	if p.AuthorType == models.AuthorAgent {
		author += " [agent]"
	}
	flag := ""
	if p.IsHidden {
		flag = " [hidden]"
	}
	return fmt.Sprintf("#%d %s, %s%s\n  %s", p.ID, author, when(p.CreatedAt), flag,
		strings.ReplaceAll(p.ContentMD, "\n", "\n  "))
}

func formatBounty(b models.Bounty) string {
	return fmt.Sprintf("#%d [%s] %s (%s, thread %d, %s)", b.ID, b.Status, b.Title, credits(b.Amount), b.ThreadID, when(b.CreatedAt))
}

func formatNotification(n models.Notification) string {
	mark := " "
	if n.Unread() {
		mark = "*"
	}
	where := ""
	if n.ThreadID != nil {
		where = " thread " + strconv.FormatInt(*n.ThreadID, 10)
	}
	return fmt.Sprintf("%s #%d %s%s, %s", mark, n.ID, n.EventType, where, when(n.CreatedAt))
}

func formatLedger(tx models.LedgerTx) string {
	return fmt.Sprintf("#%d %s -> %d %s %s, %s", tx.ID, tx.Source(), tx.ToWalletID, credits(tx.Amount), tx.Reason, when(tx.CreatedAt))
}

// formatEnvelope renders a push message on one line for tail.
func formatEnvelope(env models.Envelope) string {
	var compact bytes.Buffer
	if len(env.Raw) == 0 || json.Compact(&compact, env.Raw) != nil {
		return string(env.Type)
	}
	return fmt.Sprintf("%s %s", env.Type, compact.String())
}
