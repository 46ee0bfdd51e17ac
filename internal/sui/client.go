package sui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mtlprog/swapkit/internal/domain"
)

// Client is a JSON-RPC client for a Sui full node with retry on 429 and a
// circuit breaker around the transport.
type Client struct {
	rpcURL     string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	breaker    *gobreaker.CircuitBreaker
	nextID     atomic.Uint64
	gasBudget  uint64
	pollEvery  time.Duration
	finality   time.Duration
}

// DefaultGasBudget is used until SetGasBudget is called.
const DefaultGasBudget uint64 = 50_000_000

// DefaultFinalityTimeout bounds WaitForTransaction until SetFinalityTimeout is called.
const DefaultFinalityTimeout = time.Minute

// NewClient creates a new Sui RPC client.
func NewClient(rpcURL string, maxRetries int, baseDelay, timeout time.Duration) *Client {
	return &Client{
		rpcURL:     rpcURL,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		gasBudget:  DefaultGasBudget,
		pollEvery:  500 * time.Millisecond,
		finality:   DefaultFinalityTimeout,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "sui-rpc",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				// A superseded caller cancelling its context says nothing about node health.
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

// SetGasBudget sets the gas budget, in MIST, attached to every transaction.
func (c *Client) SetGasBudget(budget uint64) {
	if budget > 0 {
		c.gasBudget = budget
	}
}

// SetFinalityTimeout sets how long WaitForTransaction polls before giving up.
func (c *Client) SetFinalityTimeout(d time.Duration) {
	if d > 0 {
		c.finality = d
	}
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// call invokes method and unmarshals the result into dest.
// Transport failures are wrapped in domain.ErrNetwork; node errors are *RPCError.
func (c *Client) call(ctx context.Context, method string, params []any, dest any) error {
	return c.invoke(ctx, method, params, dest, c.maxRetries)
}

// callOnce is call without the 429 retry, for requests that must never be repeated.
func (c *Client) callOnce(ctx context.Context, method string, params []any, dest any) error {
	return c.invoke(ctx, method, params, dest, 0)
}

func (c *Client) invoke(ctx context.Context, method string, params []any, dest any, retries int) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", method, err)
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.post(ctx, payload, retries)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", domain.ErrNetwork, method, err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(out.([]byte), &resp); err != nil {
		return fmt.Errorf("%w: parsing %s response: %w", domain.ErrNetwork, method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, dest); err != nil {
		return fmt.Errorf("parsing %s result: %w", method, err)
	}
	return nil
}

// post sends one JSON-RPC payload, retrying on 429 with exponential backoff.
func (c *Client) post(ctx context.Context, payload []byte, retries int) ([]byte, error) {
	var lastErr error
	for attempt := range retries + 1 {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("HTTP 429 at %s (attempt %d/%d)", c.rpcURL, attempt+1, retries+1)
			if attempt < retries {
				delay := c.baseDelay * time.Duration(1<<uint(attempt))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
			return nil, lastErr
		}

		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, c.rpcURL, string(body))
	}

	return nil, lastErr
}
