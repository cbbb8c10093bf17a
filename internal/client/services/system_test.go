package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/coevo/internal/client/client"
	"github.com/dmitrijs2005/coevo/internal/client/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingArchiver struct {
	name string
	body []byte
	size int64
	err  error
}

func (a *recordingArchiver) Upload(_ context.Context, name string, r io.Reader, size int64) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	a.name, a.body, a.size = name, b, size
	return "audit/" + name, nil
}

func TestSystemService_PublicKey(t *testing.T) {
	srv := fakeapi.New()
	id := srv.AddUser("alice", "secret1", "user")
	base := fakeapi.Start(t, srv)

	svc := NewSystemService(loggedIn(t, srv, base, "alice", id), nil, nil)
	pem, err := svc.PublicKey(context.Background())
	require.NoError(t, err)
	assert.Contains(t, pem, "PUBLIC KEY")
}

func TestSystemService_ExportAudit(t *testing.T) {
	srv := fakeapi.New()
	id := srv.AddUser("mod", "secret1", "mod")
	base := fakeapi.Start(t, srv)

	arch := &recordingArchiver{}
	svc := NewSystemService(loggedIn(t, srv, base, "mod", id), arch, nil)

	path := filepath.Join(t.TempDir(), "audit.zip")
	res, err := svc.ExportAudit(context.Background(), path)
	require.NoError(t, err)

	want := srv.AuditExport()
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	sum := sha256.Sum256(want)
	assert.Equal(t, hex.EncodeToString(sum[:]), res.SHA256)
	assert.Equal(t, int64(len(want)), res.Size)
	assert.Equal(t, "audit/audit.zip", res.ArchiveKey)
	assert.Equal(t, want, arch.body)
	assert.Equal(t, int64(len(want)), arch.size)
}

func TestSystemService_ExportAuditForbiddenLeavesNoFile(t *testing.T) {
	srv := fakeapi.New()
	id := srv.AddUser("alice", "secret1", "user")
	base := fakeapi.Start(t, srv)

	svc := NewSystemService(loggedIn(t, srv, base, "alice", id), nil, nil)
	dir := t.TempDir()
	_, err := svc.ExportAudit(context.Background(), filepath.Join(dir, "audit.zip"))
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSystemService_ExportAuditArchiveFailureKeepsFile(t *testing.T) {
	srv := fakeapi.New()
	id := srv.AddUser("mod", "secret1", "mod")
	base := fakeapi.Start(t, srv)

	svc := NewSystemService(loggedIn(t, srv, base, "mod", id), &recordingArchiver{err: errors.New("bucket gone")}, nil)
	path := filepath.Join(t.TempDir(), "audit.zip")
	res, err := svc.ExportAudit(context.Background(), path)
	require.ErrorContains(t, err, "bucket gone")
	assert.Equal(t, path, res.Path)
	assert.FileExists(t, path)
}

func TestSystemService_UploadArtifact(t *testing.T) {
	srv := fakeapi.New()
	id := srv.AddUser("alice", "secret1", "user")
	base := fakeapi.Start(t, srv)

	content := bytes.Repeat([]byte("coevo"), 100)
	path := filepath.Join(t.TempDir(), "patch.diff")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	svc := NewSystemService(loggedIn(t, srv, base, "alice", id), nil, nil)
	art, err := svc.UploadArtifact(context.Background(), path)
	require.NoError(t, err)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), art.SHA256)

	_, err = svc.UploadArtifact(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
