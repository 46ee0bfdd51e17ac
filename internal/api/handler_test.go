package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/metadata"
)

const (
	owner                    = "0x1"
	primary  domain.CoinType = "0xabc::testsui::TESTSUI"
	tokType  domain.CoinType = "0x7::tok::TOK"
	gigaMist                 = 1_000_000_000
)

type mockCoins struct {
	coins map[domain.CoinType][]domain.Coin
	err   error
}

func (m *mockCoins) ListCoins(_ context.Context, _ string, coinType domain.CoinType) ([]domain.Coin, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.coins[coinType], nil
}

type mockTokens struct {
	tokens []domain.Token
	err    error
}

func (m *mockTokens) ListTokens(context.Context) ([]domain.Token, error) {
	return m.tokens, m.err
}

func (m *mockTokens) GetToken(_ context.Context, coinType domain.CoinType) (domain.Token, error) {
	for _, t := range m.tokens {
		if t.Type.Equal(coinType) {
			return t, nil
		}
	}
	return domain.Token{}, fmt.Errorf("token %s: %w", coinType, metadata.ErrNotFound)
}

func coin(id string, t domain.CoinType, whole int64) domain.Coin {
	return domain.Coin{
		ObjectRef: domain.ObjectRef{ID: id, Version: 3, Digest: "d"},
		Type:      t,
		Amount:    new(big.Int).Mul(big.NewInt(whole), big.NewInt(gigaMist)),
	}
}

var tok = domain.Token{
	Symbol:              "TOK",
	Type:                tokType,
	Decimals:            9,
	PoolID:              "0xb001",
	TreasuryCapHolderID: "0xcafe",
	Status:              domain.TokenStatusFunding,
}

func TestPlanMergesAndSplits(t *testing.T) {
	coins := &mockCoins{coins: map[domain.CoinType][]domain.Coin{
		primary: {coin("0xc1", primary, 3), coin("0xc2", primary, 4)},
	}}
	h := NewHandler(coins, &mockTokens{}, primary)

	body := `{"owner":"0x1","coinType":"0xabc::testsui::TESTSUI","amount":"5"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Plan(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp planResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Primary.ID != "0xc1" || len(resp.MergeSources) != 1 || resp.MergeSources[0].ID != "0xc2" {
		t.Errorf("plan coins = %+v", resp)
	}
	if !resp.NeedsSplit || resp.Change == nil || *resp.Change != "2000000000" {
		t.Errorf("change = %v, want 2000000000", resp.Change)
	}
	if resp.Target != "5000000000" {
		t.Errorf("target = %s", resp.Target)
	}
}

func TestPlanDefaultsToPrimary(t *testing.T) {
	coins := &mockCoins{coins: map[domain.CoinType][]domain.Coin{
		primary: {coin("0xc1", primary, 5)},
	}}
	h := NewHandler(coins, &mockTokens{}, primary)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", strings.NewReader(`{"owner":"0x1","amount":"5"}`))
	w := httptest.NewRecorder()
	h.Plan(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp planResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.NeedsSplit || resp.Change != nil || len(resp.MergeSources) != 0 {
		t.Errorf("exact coin should be used as is: %+v", resp)
	}
}

func TestPlanInsufficientBalance(t *testing.T) {
	coins := &mockCoins{coins: map[domain.CoinType][]domain.Coin{
		primary: {coin("0xc1", primary, 1)},
	}}
	h := NewHandler(coins, &mockTokens{}, primary)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", strings.NewReader(`{"owner":"0x1","amount":"5"}`))
	w := httptest.NewRecorder()
	h.Plan(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestPlanBadInput(t *testing.T) {
	h := NewHandler(&mockCoins{}, &mockTokens{}, primary)
	for name, body := range map[string]string{
		"malformed":  `{"owner":`,
		"no owner":   `{"amount":"1"}`,
		"bad amount": `{"owner":"0x1","amount":"abc"}`,
		"unknown":    `{"owner":"0x1","amount":"1","extra":true}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", strings.NewReader(body))
			w := httptest.NewRecorder()
			h.Plan(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestPlanLedgerDown(t *testing.T) {
	h := NewHandler(&mockCoins{err: domain.ErrNetwork}, &mockTokens{}, primary)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", strings.NewReader(`{"owner":"0x1","amount":"1"}`))
	w := httptest.NewRecorder()
	h.Plan(w, req)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestListTokens(t *testing.T) {
	h := NewHandler(&mockCoins{}, &mockTokens{tokens: []domain.Token{tok}}, primary)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tokens", nil)
	w := httptest.NewRecorder()
	h.ListTokens(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(got) != 1 || got[0]["symbol"] != "TOK" {
		t.Errorf("tokens = %v", got)
	}
}

func TestListTokensEmptyIsArray(t *testing.T) {
	h := NewHandler(&mockCoins{}, &mockTokens{}, primary)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tokens", nil)
	w := httptest.NewRecorder()
	h.ListTokens(w, req)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", w.Body.String())
	}
}

func TestListTokensError(t *testing.T) {
	h := NewHandler(&mockCoins{}, &mockTokens{err: errors.New("db down")}, primary)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tokens", nil)
	w := httptest.NewRecorder()
	h.ListTokens(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{domain.NewAbortError("pumpsui_core", "buy", 1), http.StatusUnprocessableEntity},
		{domain.ErrSubmissionRejected, http.StatusBadGateway},
		{fmt.Errorf("listing: %w", domain.ErrNetwork), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeDomainError(w, tt.err)
		if w.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}
