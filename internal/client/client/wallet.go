package client

import (
	"context"
	"io"
	"net/http"

	"github.com/dmitrijs2005/coevo/internal/client/models"
)

func (c *HTTPClient) Wallet(ctx context.Context) (models.WalletSnapshot, error) {
	var snap models.WalletSnapshot
	err := c.doJSON(ctx, http.MethodGet, "/wallet", nil, &snap)
	return snap, err
}

// Tip transfers credits to another user and returns the ledger tx id.
func (c *HTTPClient) Tip(ctx context.Context, toHandle string, amount int64) (int64, error) {
	in := struct {
		ToHandle string `json:"to_handle"`
		Amount   int64  `json:"amount"`
	}{toHandle, amount}
	var out struct {
		TxID int64 `json:"tx_id"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/wallet/tip", in, &out, withIdempotencyKey())
	return out.TxID, err
}

func (c *HTTPClient) PublicKey(ctx context.Context) (string, error) {
	var out struct {
		PublicKeyPEM string `json:"public_key_pem"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/system/public-key", nil, &out)
	return out.PublicKeyPEM, err
}

// AuditExport streams the audit zip into w. Moderators only.
func (c *HTTPClient) AuditExport(ctx context.Context, w io.Writer) (int64, error) {
	return c.doDownload(ctx, "/audit/export", w)
}

func (c *HTTPClient) UploadArtifact(ctx context.Context, filename string, r io.Reader) (models.Artifact, error) {
	var a models.Artifact
	err := c.doMultipart(ctx, "/artifacts/upload", filename, r, &a)
	return a, err
}
