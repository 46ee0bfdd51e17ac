package worker

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/sui"
)

type mockLedger struct {
	objects map[string]sui.Object
	calls   atomic.Int32
}

func (m *mockLedger) GetObject(_ context.Context, id string) (sui.Object, error) {
	m.calls.Add(1)
	obj, ok := m.objects[id]
	if !ok {
		return sui.Object{}, sui.ErrObjectNotFound
	}
	return obj, nil
}

type mockStore struct {
	mu      sync.Mutex
	tokens  []domain.Token
	listErr error
	updates map[domain.CoinType]domain.TokenState
}

func (m *mockStore) ListTokens(context.Context) ([]domain.Token, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.Token(nil), m.tokens...), nil
}

func (m *mockStore) UpdateTokenStatus(_ context.Context, coinType domain.CoinType, state domain.TokenState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updates == nil {
		m.updates = make(map[domain.CoinType]domain.TokenState)
	}
	m.updates[coinType] = state
	return nil
}

type mockObserver struct {
	seen []domain.Token
}

func (m *mockObserver) ObserveTokens(tokens []domain.Token) { m.seen = tokens }

type mockHook struct {
	calls atomic.Int32
}

func (m *mockHook) ExportTokens(context.Context, []domain.Token) error {
	m.calls.Add(1)
	return nil
}

func poolObject(supply, collected, status string) sui.Object {
	q := func(s string) json.RawMessage { return json.RawMessage(`"` + s + `"`) }
	return sui.Object{Fields: map[string]json.RawMessage{
		"total_supply":  q(supply),
		"collected_sui": q(collected),
		"status":        json.RawMessage(status),
	}}
}

func TestStatusWorkerSync(t *testing.T) {
	ledger := &mockLedger{objects: map[string]sui.Object{
		"0xa1": poolObject("900", "1000", "1"),
	}}
	store := &mockStore{tokens: []domain.Token{
		{Symbol: "AAA", Type: "0x1::aaa::AAA", PoolID: "0xa1", Status: domain.TokenStatusFunding},
		{Symbol: "BBB", Type: "0x1::bbb::BBB", PoolID: "0xb1", Status: domain.TokenStatusLiquidityPoolCreated},
		{Symbol: "CCC", Type: "0x1::ccc::CCC", PoolID: "0xc1", Status: domain.TokenStatusFunding},
	}}
	observer := &mockObserver{}
	w := NewStatusWorker(ledger, store, time.Hour, observer, nil)

	tokens, err := w.Sync(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// BBB has graduated and is skipped; CCC's pool is missing and is left alone.
	if got := ledger.calls.Load(); got != 2 {
		t.Errorf("ledger calls = %d, want 2", got)
	}
	state, ok := store.updates["0x1::aaa::AAA"]
	if !ok {
		t.Fatal("expected AAA status to be written")
	}
	if state.Status != domain.TokenStatusLiquidityPoolPending || state.CollectedSUI.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("AAA state = %+v", state)
	}
	if len(store.updates) != 1 {
		t.Errorf("updates = %d, want 1", len(store.updates))
	}
	if tokens[0].Status != domain.TokenStatusLiquidityPoolPending {
		t.Errorf("returned AAA status = %s", tokens[0].Status)
	}
	if tokens[2].Status != domain.TokenStatusFunding {
		t.Errorf("returned CCC status = %s, want unchanged", tokens[2].Status)
	}
	if len(observer.seen) != 3 {
		t.Errorf("observer saw %d tokens, want 3", len(observer.seen))
	}
}

func TestStatusWorkerSyncListError(t *testing.T) {
	store := &mockStore{listErr: errors.New("db down")}
	w := NewStatusWorker(&mockLedger{}, store, time.Hour, nil, nil)
	if _, err := w.Sync(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestStatusWorkerRunsAndShutdown(t *testing.T) {
	store := &mockStore{}
	hook := &mockHook{}
	w := NewStatusWorker(&mockLedger{}, store, 50*time.Millisecond, nil, hook)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	// Should have run at least the initial sync
	if got := hook.calls.Load(); got < 1 {
		t.Errorf("hook calls = %d, want >= 1", got)
	}
}
