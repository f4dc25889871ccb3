package accounts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps accounts in process memory. Used in development and
// tests; contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Account
	byEmail map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Account),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryStore) Create(_ context.Context, acct Account) (Account, error) {
	acct.Email = NormalizeEmail(acct.Email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byEmail[acct.Email]; taken {
		return Account{}, ErrEmailTaken
	}
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	acct.CreatedAt = time.Now().UTC()

	m.byID[acct.ID] = acct
	m.byEmail[acct.Email] = acct.ID
	return acct, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return Account{}, ErrNotFound
	}
	return m.byID[id], nil
}

func (m *MemoryStore) List(_ context.Context) ([]Account, error) {
	m.mu.RLock()
	out := make([]Account, 0, len(m.byID))
	for _, acct := range m.byID {
		out = append(out, acct)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	delete(m.byEmail, acct.Email)
	return nil
}
