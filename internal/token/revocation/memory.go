package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemory keeps revoked jtis in a map with lazy expiry. Suitable for single
// process deployments and tests.
type InMemory struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   func() time.Time
}

// InMemoryOption configures an InMemory list.
type InMemoryOption func(*InMemory)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(l *InMemory) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	l := &InMemory{
		revoked: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func (l *InMemory) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[jti] = l.clock().Add(ttl)
	return nil
}

func (l *InMemory) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	l.mu.RLock()
	expiresAt, ok := l.revoked[jti]
	l.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if l.clock().After(expiresAt) {
		// Expired entries are harmless; drop lazily.
		l.mu.Lock()
		delete(l.revoked, jti)
		l.mu.Unlock()
		return false, nil
	}
	return true, nil
}
