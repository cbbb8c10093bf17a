package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/coevo/internal/client/client"
	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/dmitrijs2005/coevo/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/coevo/internal/logging"
)

var (
	ErrInvalidAmount  = errors.New("amount must be greater than zero")
	ErrEmptyRecipient = errors.New("recipient handle is empty")
)

type WalletService interface {
	// Snapshot returns the wallet. When the server is unreachable the last
	// cached snapshot is returned with stale set.
	Snapshot(ctx context.Context) (snap models.WalletSnapshot, stale bool, err error)
	Tip(ctx context.Context, toHandle string, amount int64) (int64, error)
}

type walletService struct {
	client client.Client
	meta   metadata.Repository
	log    logging.Logger
}

// NewWalletService constructs a WalletService. meta may be nil to disable
// the offline cache.
func NewWalletService(c client.Client, meta metadata.Repository, log logging.Logger) WalletService {
	return &walletService{client: c, meta: meta, log: logging.OrNop(log)}
}

func (s *walletService) Snapshot(ctx context.Context) (models.WalletSnapshot, bool, error) {
	snap, err := s.client.Wallet(ctx)
	if err == nil {
		if s.meta != nil {
			if err := metadata.SetJSON(ctx, s.meta, metadata.KeyWalletSnapshot, snap); err != nil {
				s.log.Warn(ctx, "failed to cache wallet", "error", err)
			}
		}
		return snap, false, nil
	}
	if !errors.Is(err, client.ErrUnavailable) || s.meta == nil {
		return models.WalletSnapshot{}, false, err
	}

	var cached models.WalletSnapshot
	ok, cerr := metadata.GetJSON(ctx, s.meta, metadata.KeyWalletSnapshot, &cached)
	if cerr != nil {
		return models.WalletSnapshot{}, false, fmt.Errorf("read cached wallet: %w", cerr)
	}
	if !ok {
		return models.WalletSnapshot{}, false, client.ErrLocalDataNotAvailable
	}
	return cached, true, nil
}

func (s *walletService) Tip(ctx context.Context, toHandle string, amount int64) (int64, error) {
	toHandle = strings.TrimSpace(toHandle)
	if toHandle == "" {
		return 0, ErrEmptyRecipient
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.client.Tip(ctx, toHandle, amount)
}
