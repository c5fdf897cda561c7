package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type token struct {
	userID         string
	guest          bool
	issuedAt       time.Time
	lastActivityAt time.Time
}

// TokenManager issues opaque bearer tokens and expires them after a
// period of inactivity. Every successful Verify refreshes the clock.
type TokenManager struct {
	mu          sync.RWMutex
	tokens      map[string]*token
	tokenByUser map[string]string
	ttl         time.Duration
}

func NewTokenManager(inactivityTTL time.Duration) *TokenManager {
	if inactivityTTL <= 0 {
		inactivityTTL = 30 * time.Minute
	}
	return &TokenManager{
		tokens:      make(map[string]*token),
		tokenByUser: make(map[string]string),
		ttl:         inactivityTTL,
	}
}

// Issue mints a token for userID, replacing any previous one.
func (m *TokenManager) Issue(userID string, guest bool) string {
	now := time.Now().UTC()
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.tokenByUser[userID]; ok {
		delete(m.tokens, prev)
	}
	m.tokens[id] = &token{userID: userID, guest: guest, issuedAt: now, lastActivityAt: now}
	m.tokenByUser[userID] = id
	return id
}

// Verify resolves a token to its user and refreshes its activity clock.
func (m *TokenManager) Verify(tokenID string) (userID string, guest bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenID]
	if !ok {
		return "", false, ErrUnauthorized
	}
	if time.Since(t.lastActivityAt) >= m.ttl {
		delete(m.tokens, tokenID)
		delete(m.tokenByUser, t.userID)
		return "", false, ErrUnauthorized
	}
	t.lastActivityAt = time.Now().UTC()
	return t.userID, t.guest, nil
}

// Revoke invalidates a token. Unknown tokens are a no-op.
func (m *TokenManager) Revoke(tokenID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[tokenID]; ok {
		delete(m.tokenByUser, t.userID)
		delete(m.tokens, tokenID)
	}
}

// ActiveCount reports how many tokens are currently live.
func (m *TokenManager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

// StartJanitor periodically drops expired tokens until ctx is done.
func (m *TokenManager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *TokenManager) expireInactive() {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tokens {
		if now.Sub(t.lastActivityAt) < m.ttl {
			continue
		}
		delete(m.tokenByUser, t.userID)
		delete(m.tokens, id)
	}
}
