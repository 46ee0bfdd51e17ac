package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/swapkit/internal/domain"
)

// RESTClient talks to the registry HTTP service.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	maxRetries int
}

// NewRESTClient creates a registry client for baseURL, e.g. "http://localhost:3000/api".
func NewRESTClient(baseURL string, delay time.Duration, maxRetries int) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		delay:      delay,
		maxRetries: maxRetries,
	}
}

func (c *RESTClient) CreateToken(ctx context.Context, t domain.Token) error {
	return c.do(ctx, http.MethodPost, "/tokens", recordFromToken(t), nil)
}

func (c *RESTClient) ListTokens(ctx context.Context) ([]domain.Token, error) {
	var records []tokenRecord
	if err := c.do(ctx, http.MethodGet, "/tokens", nil, &records); err != nil {
		return nil, err
	}
	tokens := make([]domain.Token, 0, len(records))
	for _, r := range records {
		t, err := r.token()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// GetToken reads the full token list and picks coinType; the service has no
// single-token route.
func (c *RESTClient) GetToken(ctx context.Context, coinType domain.CoinType) (domain.Token, error) {
	tokens, err := c.ListTokens(ctx)
	if err != nil {
		return domain.Token{}, err
	}
	t, ok := lo.Find(tokens, func(t domain.Token) bool { return t.Type.Equal(coinType) })
	if !ok {
		return domain.Token{}, fmt.Errorf("token %s: %w", coinType, ErrNotFound)
	}
	return t, nil
}

func (c *RESTClient) UpdateTokenStatus(ctx context.Context, coinType domain.CoinType, state domain.TokenState) error {
	body := statusRecord{
		TotalSupply:  amountString(state.TotalSupply),
		CollectedSUI: amountString(state.CollectedSUI),
		Status:       string(state.Status),
	}
	return c.do(ctx, http.MethodPost, "/tokens/"+url.PathEscape(string(coinType))+"/status", body, nil)
}

func (c *RESTClient) UpdateTokenPool(ctx context.Context, coinType domain.CoinType, pool domain.PoolInfo) error {
	return c.do(ctx, http.MethodPost, "/tokens/"+url.PathEscape(string(coinType))+"/pool", pool, nil)
}

func (c *RESTClient) GetTokenPool(ctx context.Context, coinType domain.CoinType) (domain.PoolInfo, error) {
	var pool domain.PoolInfo
	if err := c.do(ctx, http.MethodGet, "/tokens/"+url.PathEscape(string(coinType))+"/pool", nil, &pool); err != nil {
		return domain.PoolInfo{}, err
	}
	if pool.PoolID == "" {
		return domain.PoolInfo{}, fmt.Errorf("pool of %s: %w", coinType, ErrNotFound)
	}
	return pool, nil
}

func (c *RESTClient) CreateLending(ctx context.Context, l domain.Lending) error {
	return c.do(ctx, http.MethodPost, "/lendings", l, nil)
}

func (c *RESTClient) ListLendings(ctx context.Context) ([]domain.Lending, error) {
	var lendings []domain.Lending
	if err := c.do(ctx, http.MethodGet, "/lendings", nil, &lendings); err != nil {
		return nil, err
	}
	return lendings, nil
}

func (c *RESTClient) GetLending(ctx context.Context, coinType domain.CoinType) (domain.Lending, error) {
	var l domain.Lending
	if err := c.do(ctx, http.MethodGet, "/lendings/"+url.PathEscape(string(coinType)), nil, &l); err != nil {
		return domain.Lending{}, err
	}
	return l, nil
}

// do sends one request, retrying on 429 with exponential backoff, and
// decodes the JSON response into dest when dest is non-nil.
func (c *RESTClient) do(ctx context.Context, method, path string, body, dest any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
	}

	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			delay := c.delay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating registry request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: registry %s %s: %w", domain.ErrNetwork, method, path, err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: reading registry response: %w", domain.ErrNetwork, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			if dest == nil {
				return nil
			}
			if err := json.Unmarshal(respBody, dest); err != nil {
				return fmt.Errorf("parsing registry response for %s: %w", path, err)
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: registry rate limited (attempt %d/%d)", domain.ErrNetwork, attempt+1, c.maxRetries+1)
			continue
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		case resp.StatusCode == http.StatusBadRequest && method == http.MethodPost && path == "/lendings":
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
		return fmt.Errorf("registry HTTP %d for %s %s: %s", resp.StatusCode, method, path, string(respBody))
	}
	return lastErr
}
