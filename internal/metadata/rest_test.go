package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mtlprog/swapkit/internal/domain"
)

func TestRESTListTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tokens" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"id": "1", "name": "Meme", "symbol": "MEME", "type": "0xabc::meme::MEME",
			"icon": "", "decimals": 9, "treasuryCapHolderId": "0xcap", "collateralId": "",
			"metadataId": "0xmeta", "poolId": "0xbond", "totalSupply": "1000000000",
			"collectedSui": "250", "status": "LIQUIDITY_POOL_CREATED",
			"positionId": "0xpos", "tickLower": -443580, "tickUpper": 443580, "liquidity": "77"
		}]`))
	}))
	defer server.Close()

	c := NewRESTClient(server.URL+"/api", 0, 1)
	tokens, err := c.ListTokens(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("got %d tokens, want 1", len(tokens))
	}
	tok := tokens[0]
	if tok.TotalSupply.String() != "1000000000" || tok.CollectedSUI.String() != "250" {
		t.Errorf("amounts = %s/%s", tok.TotalSupply, tok.CollectedSUI)
	}
	if tok.Status != domain.TokenStatusLiquidityPoolCreated {
		t.Errorf("status = %s", tok.Status)
	}
	if tok.Liquidity == nil || tok.Liquidity.TickLower != -443580 || tok.Liquidity.Liquidity != "77" {
		t.Errorf("liquidity = %+v", tok.Liquidity)
	}
}

func TestRESTUpdateStatusEscapesType(t *testing.T) {
	var gotPath string
	var got statusRecord
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewRESTClient(server.URL, 0, 1)
	err := c.UpdateTokenStatus(context.Background(), "0xabc::meme::MEME", domain.TokenState{
		Status: domain.TokenStatusLiquidityPoolPending,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/tokens/0xabc::meme::MEME/status" {
		t.Errorf("path = %s", gotPath)
	}
	if got.Status != "LIQUIDITY_POOL_PENDING" || got.TotalSupply != "0" {
		t.Errorf("body = %+v", got)
	}
}

func TestRESTNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewRESTClient(server.URL, 0, 1)
	_, err := c.GetLending(context.Background(), "0xabc::meme::MEME")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRESTDuplicateLending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewRESTClient(server.URL, 0, 1)
	err := c.CreateLending(context.Background(), domain.Lending{Type: "0xabc::meme::MEME"})
	if !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
}

func TestRESTRetryOn429(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewRESTClient(server.URL, 10*time.Millisecond, 2)
	if _, err := c.ListLendings(context.Background()); err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRESTRateLimitExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewRESTClient(server.URL, time.Millisecond, 1)
	_, err := c.ListTokens(context.Background())
	if !errors.Is(err, domain.ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}

func TestRESTGetTokenMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewRESTClient(server.URL, 0, 1)
	_, err := c.GetToken(context.Background(), "0xabc::meme::MEME")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
