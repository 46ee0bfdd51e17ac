package metadata

import (
	"context"
	"fmt"
	"sync"

	"github.com/mtlprog/swapkit/internal/domain"
)

// memStore is an in-memory Store used to observe what the cache forwards.
type memStore struct {
	mu        sync.Mutex
	tokens    []domain.Token
	listCalls int
	getCalls  int
}

func (m *memStore) CreateToken(_ context.Context, t domain.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, t)
	return nil
}

func (m *memStore) ListTokens(context.Context) ([]domain.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return append([]domain.Token(nil), m.tokens...), nil
}

func (m *memStore) GetToken(_ context.Context, coinType domain.CoinType) (domain.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	for _, t := range m.tokens {
		if t.Type.Equal(coinType) {
			return t, nil
		}
	}
	return domain.Token{}, fmt.Errorf("token %s: %w", coinType, ErrNotFound)
}

func (m *memStore) UpdateTokenStatus(_ context.Context, coinType domain.CoinType, state domain.TokenState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tokens {
		if m.tokens[i].Type.Equal(coinType) {
			m.tokens[i].Status = state.Status
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) UpdateTokenPool(context.Context, domain.CoinType, domain.PoolInfo) error {
	return nil
}

func (m *memStore) GetTokenPool(context.Context, domain.CoinType) (domain.PoolInfo, error) {
	return domain.PoolInfo{}, ErrNotFound
}

func (m *memStore) CreateLending(context.Context, domain.Lending) error { return nil }

func (m *memStore) ListLendings(context.Context) ([]domain.Lending, error) { return nil, nil }

func (m *memStore) GetLending(context.Context, domain.CoinType) (domain.Lending, error) {
	return domain.Lending{}, ErrNotFound
}
