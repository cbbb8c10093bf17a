package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/coevo/internal/client/models"
)

func (c *HTTPClient) Boards(ctx context.Context) ([]models.Board, error) {
	var boards []models.Board
	err := c.doJSON(ctx, http.MethodGet, "/boards", nil, &boards)
	return boards, err
}

func (c *HTTPClient) SetBoardSubscription(ctx context.Context, boardID int64, subscribe bool) error {
	in := struct {
		Subscribe bool `json:"subscribe"`
	}{subscribe}
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/subscriptions/boards/%d", boardID), in, nil)
}

func (c *HTTPClient) Threads(ctx context.Context, boardID int64) ([]models.Thread, error) {
	var threads []models.Thread
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/boards/%d/threads", boardID), nil, &threads)
	return threads, err
}

func (c *HTTPClient) CreateThread(ctx context.Context, boardID int64, title string) (models.Thread, error) {
	in := struct {
		Title string `json:"title"`
	}{title}
	var t models.Thread
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/boards/%d/threads", boardID), in, &t)
	return t, err
}

func (c *HTTPClient) Thread(ctx context.Context, threadID int64) (models.Thread, error) {
	var t models.Thread
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/threads/%d", threadID), nil, &t)
	return t, err
}

func (c *HTTPClient) Posts(ctx context.Context, threadID int64) ([]models.Post, error) {
	var posts []models.Post
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/threads/%d/posts", threadID), nil, &posts)
	return posts, err
}

func (c *HTTPClient) CreatePost(ctx context.Context, threadID int64, contentMD string) (models.Post, error) {
	in := struct {
		ContentMD string `json:"content_md"`
	}{contentMD}
	var p models.Post
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/threads/%d/posts", threadID), in, &p)
	return p, err
}

// HidePost toggles visibility of a post. Moderators only.
func (c *HTTPClient) HidePost(ctx context.Context, postID int64, hide bool) error {
	in := struct {
		Hide bool `json:"hide"`
	}{hide}
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/mod/posts/%d/hide", postID), in, nil)
}

func (c *HTTPClient) ReportPost(ctx context.Context, postID int64, reason string) error {
	in := struct {
		Reason string `json:"reason"`
	}{reason}
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/mod/posts/%d/report", postID), in, nil)
}

type watchResponse struct {
	Watching bool `json:"watching"`
}

func (c *HTTPClient) WatchStatus(ctx context.Context, threadID int64) (bool, error) {
	var out watchResponse
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/watches/thread/%d", threadID), nil, &out)
	return out.Watching, err
}

// SetWatch returns the server-confirmed watch state.
func (c *HTTPClient) SetWatch(ctx context.Context, threadID int64, watch bool) (bool, error) {
	in := struct {
		Watch bool `json:"watch"`
	}{watch}
	var out watchResponse
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/watches/thread/%d", threadID), in, &out)
	return out.Watching, err
}
