package utils

import (
	"sync"
	"time"
)

// TokenBlacklist holds revoked tokens until their own expiry.
type TokenBlacklist struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
	now    func() time.Time
}

func NewTokenBlacklist() *TokenBlacklist {
	return &TokenBlacklist{
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (b *TokenBlacklist) Add(token string, expiresAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = expiresAt
	b.pruneLocked()
}

func (b *TokenBlacklist) Contains(token string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	expiry, exists := b.tokens[token]
	return exists && b.now().Before(expiry)
}

func (b *TokenBlacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tokens)
}

func (b *TokenBlacklist) pruneLocked() {
	now := b.now()
	for token, expiry := range b.tokens {
		if !now.Before(expiry) {
			delete(b.tokens, token)
		}
	}
}
