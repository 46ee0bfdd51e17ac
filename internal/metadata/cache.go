package metadata

import (
	"context"
	"sync"
	"time"

	"github.com/mtlprog/swapkit/internal/domain"
)

// DefaultCacheTTL bounds how stale a cached token list may be.
const DefaultCacheTTL = 30 * time.Second

// CachedStore serves token reads from memory for a short TTL. Any token write
// drops the cached list.
type CachedStore struct {
	Store

	ttl time.Duration
	now func() time.Time

	mu        sync.RWMutex
	tokens    []domain.Token
	expiresAt time.Time
}

// NewCachedStore wraps store with a token-list cache.
func NewCachedStore(store Store, ttl time.Duration) *CachedStore {
	if store == nil {
		panic("metadata: nil store")
	}
	return &CachedStore{Store: store, ttl: ttl, now: time.Now}
}

func (c *CachedStore) ListTokens(ctx context.Context) ([]domain.Token, error) {
	if tokens, ok := c.cached(); ok {
		return tokens, nil
	}
	tokens, err := c.Store.ListTokens(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.tokens = tokens
	c.expiresAt = c.now().Add(c.ttl)
	c.mu.Unlock()
	return tokens, nil
}

func (c *CachedStore) GetToken(ctx context.Context, coinType domain.CoinType) (domain.Token, error) {
	if tokens, ok := c.cached(); ok {
		for _, t := range tokens {
			if t.Type.Equal(coinType) {
				return t, nil
			}
		}
	}
	return c.Store.GetToken(ctx, coinType)
}

func (c *CachedStore) CreateToken(ctx context.Context, t domain.Token) error {
	defer c.Invalidate()
	return c.Store.CreateToken(ctx, t)
}

func (c *CachedStore) UpdateTokenStatus(ctx context.Context, coinType domain.CoinType, state domain.TokenState) error {
	defer c.Invalidate()
	return c.Store.UpdateTokenStatus(ctx, coinType, state)
}

func (c *CachedStore) UpdateTokenPool(ctx context.Context, coinType domain.CoinType, pool domain.PoolInfo) error {
	defer c.Invalidate()
	return c.Store.UpdateTokenPool(ctx, coinType, pool)
}

// Invalidate drops the cached token list.
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = nil
	c.expiresAt = time.Time{}
}

func (c *CachedStore) cached() ([]domain.Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil || c.now().After(c.expiresAt) {
		return nil, false
	}
	return c.tokens, true
}
