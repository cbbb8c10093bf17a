package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/coevo/internal/client/repositories/metadata"
)

// Store is the credential-store collaborator. Load returns "" when nothing
// is stored.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token for the lifetime of the process.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// MetadataStore persists the token in the local cache database so a CLI
// session survives restarts.
type MetadataStore struct {
	repo metadata.Repository
}

func NewMetadataStore(repo metadata.Repository) *MetadataStore {
	return &MetadataStore{repo: repo}
}

func (s *MetadataStore) Load(ctx context.Context) (string, error) {
	b, err := s.repo.Get(ctx, metadata.KeyAccessToken)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *MetadataStore) Save(ctx context.Context, token string) error {
	return s.repo.Set(ctx, metadata.KeyAccessToken, []byte(token))
}

func (s *MetadataStore) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, metadata.KeyAccessToken)
}
