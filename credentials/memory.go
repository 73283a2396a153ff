package credentials

import (
	"context"
	"sync"
)

// MemoryVerifier keeps bcrypt hashes in memory. Safe for concurrent use.
type MemoryVerifier struct {
	mu     sync.RWMutex
	hashes map[string]string
}

var _ Verifier = (*MemoryVerifier)(nil)

func NewMemoryVerifier() *MemoryVerifier {
	return &MemoryVerifier{hashes: make(map[string]string)}
}

// Add hashes password and stores it for username, replacing any previous entry.
func (m *MemoryVerifier) Add(username, password string) error {
	h, err := HashPassword(password)
	if err != nil {
		return err
	}
	m.AddHash(username, h)
	return nil
}

// AddHash stores an already computed bcrypt hash for username.
func (m *MemoryVerifier) AddHash(username, hash string) {
	m.mu.Lock()
	m.hashes[username] = hash
	m.mu.Unlock()
}

// Remove forgets username.
func (m *MemoryVerifier) Remove(username string) {
	m.mu.Lock()
	delete(m.hashes, username)
	m.mu.Unlock()
}

func (m *MemoryVerifier) CheckLogin(ctx context.Context, username, password string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	h, ok := m.hashes[username]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return comparePassword(h, password), nil
}
