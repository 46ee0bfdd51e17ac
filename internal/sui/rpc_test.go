package sui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// zeroDigest is the base58 encoding of 32 zero bytes.
const zeroDigest = "11111111111111111111111111111111"

type rpcHandler func(params json.RawMessage) (any, *RPCError)

// fakeNode is a JSON-RPC node answering from per-method handlers.
type fakeNode struct {
	mu       sync.Mutex
	handlers map[string]rpcHandler
	calls    map[string]int
}

func newFakeNode(t *testing.T, handlers map[string]rpcHandler) (*fakeNode, *Client) {
	t.Helper()
	node := &fakeNode{handlers: handlers, calls: make(map[string]int)}
	server := httptest.NewServer(node)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, 2, time.Millisecond, 5*time.Second)
	client.pollEvery = time.Millisecond
	return node, client
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint64          `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if !ok {
		resp["error"] = RPCError{Code: -32601, Message: "method not found: " + req.Method}
	} else if result, rpcErr := h(req.Params); rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func static(result any) rpcHandler {
	return func(json.RawMessage) (any, *RPCError) { return result, nil }
}

func rawJSON(s string) rpcHandler {
	return static(json.RawMessage(s))
}
