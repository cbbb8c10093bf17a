package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/coevo/internal/client/client"
	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/dmitrijs2005/coevo/internal/logging"
)

// Archiver stores a finished audit export remotely and returns its key.
type Archiver interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64) (string, error)
}

type ExportResult struct {
	Path       string
	Size       int64
	SHA256     string
	ArchiveKey string
}

type SystemService interface {
	PublicKey(ctx context.Context) (string, error)
	// ExportAudit downloads the audit zip to path and, when an archiver is
	// configured, uploads it.
	ExportAudit(ctx context.Context, path string) (ExportResult, error)
	UploadArtifact(ctx context.Context, path string) (models.Artifact, error)
}

type systemService struct {
	client   client.Client
	archiver Archiver
	log      logging.Logger
}

// NewSystemService constructs a SystemService. archiver may be nil.
func NewSystemService(c client.Client, archiver Archiver, log logging.Logger) SystemService {
	return &systemService{client: c, archiver: archiver, log: logging.OrNop(log)}
}

func (s *systemService) PublicKey(ctx context.Context) (string, error) {
	return s.client.PublicKey(ctx)
}

func (s *systemService) ExportAudit(ctx context.Context, path string) (ExportResult, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".audit-*.zip")
	if err != nil {
		return ExportResult{}, fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	n, err := s.client.AuditExport(ctx, io.MultiWriter(tmp, h))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return ExportResult{}, fmt.Errorf("download audit export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return ExportResult{}, fmt.Errorf("save audit export: %w", err)
	}

	res := ExportResult{Path: path, Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}
	s.log.Info(ctx, "audit export saved", "path", path, "bytes", n)

	if s.archiver == nil {
		return res, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("open audit export: %w", err)
	}
	defer f.Close()

	key, err := s.archiver.Upload(ctx, filepath.Base(path), f, n)
	if err != nil {
		return res, fmt.Errorf("archive audit export: %w", err)
	}
	res.ArchiveKey = key
	return res, nil
}

func (s *systemService) UploadArtifact(ctx context.Context, path string) (models.Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	return s.client.UploadArtifact(ctx, filepath.Base(path), f)
}
