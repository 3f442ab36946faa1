package store

import (
	"encoding/json"
	"sync"

	"plagiax/pkg/domain"
)

// MemoryStore keeps users and history in-process. Used by tests and
// single-instance development setups.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User // key: user ID
	email   map[string]string      // email -> user ID
	history map[string][]byte      // email -> JSON blob of summaries
	sess    map[string]string      // token -> user ID
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		email:   make(map[string]string),
		history: make(map[string][]byte),
		sess:    make(map[string]string),
	}
}

// SaveUser stores or replaces a user record.
func (m *MemoryStore) SaveUser(user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.users[user.ID]; ok && old.Email != user.Email {
		delete(m.email, old.Email)
	}
	m.users[user.ID] = user
	m.email[user.Email] = user.ID
	return nil
}

// HasUserEmail checks whether a user exists for the email.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail fetches a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	user, ok := m.users[id]
	return user, ok, nil
}

// GetUserByID fetches a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	return user, ok, nil
}

// AppendHistory prepends a summary and truncates to the history limit.
func (m *MemoryStore) AppendHistory(email string, summary domain.ReportSummary) ([]domain.ReportSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := decodeHistory(m.history[email])
	items, evicted := prependCapped(items, summary)
	blob, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	m.history[email] = blob
	return evicted, nil
}

// ListHistory returns summaries newest first; corrupt data reads as empty.
func (m *MemoryStore) ListHistory(email string) ([]domain.ReportSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return decodeHistory(m.history[email]), nil
}

// CorruptHistory overwrites the stored blob with arbitrary bytes.
// Test helper for the corrupt-data-reads-as-empty contract.
func (m *MemoryStore) CorruptHistory(email string, blob []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[email] = blob
}

// NewSession issues an opaque token for the user ID.
func (m *MemoryStore) NewSession(userID string) (string, error) {
	token := newSessionToken()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess[token] = userID
	return token, nil
}

// GetUserIDByToken resolves a token to a user ID.
func (m *MemoryStore) GetUserIDByToken(token string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uid, ok := m.sess[token]
	return uid, ok, nil
}

// DeleteSession removes a token.
func (m *MemoryStore) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sess, token)
	return nil
}
