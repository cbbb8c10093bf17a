package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/coevo/internal/client/models"
)

func (c *HTTPClient) Notifications(ctx context.Context, limit int) ([]models.Notification, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var items []models.Notification
	err := c.doJSON(ctx, http.MethodGet, "/notifications", nil, &items, withQuery(q))
	return items, err
}

func (c *HTTPClient) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/notifications/unread-count", nil, &out)
	return out.Count, err
}

// MarkRead marks one notification read. The server answers {"ok": false}
// for unknown or foreign ids, reported as ErrNotFound.
func (c *HTTPClient) MarkRead(ctx context.Context, notificationID int64) error {
	in := struct {
		Read bool `json:"read"`
	}{true}
	var out struct {
		OK *bool `json:"ok"`
	}
	path := fmt.Sprintf("/notifications/%d/read", notificationID)
	if err := c.doJSON(ctx, http.MethodPatch, path, in, &out); err != nil {
		return err
	}
	if out.OK != nil && !*out.OK {
		return fmt.Errorf("notification %d: %w", notificationID, ErrNotFound)
	}
	return nil
}
