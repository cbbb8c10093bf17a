package client

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/coevo/internal/client/models"
)

func (c *HTTPClient) Register(ctx context.Context, req RegisterRequest) (models.Me, error) {
	var me models.Me
	err := c.doJSON(ctx, http.MethodPost, "/auth/register", req, &me)
	return me, err
}

// Login exchanges credentials for an access token. The token is returned,
// not installed: the caller owns the session store.
func (c *HTTPClient) Login(ctx context.Context, handle, password string) (string, error) {
	in := struct {
		Handle   string `json:"handle"`
		Password string `json:"password"`
	}{handle, password}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

func (c *HTTPClient) Me(ctx context.Context) (models.Me, error) {
	var me models.Me
	err := c.doJSON(ctx, http.MethodGet, "/me", nil, &me)
	return me, err
}
