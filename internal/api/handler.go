package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mtlprog/swapkit/internal/coinselect"
	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/metadata"
)

// CoinLister lists an owner's coins of one type.
type CoinLister interface {
	ListCoins(ctx context.Context, owner string, coinType domain.CoinType) ([]domain.Coin, error)
}

// TokenSource is the token registry.
type TokenSource interface {
	ListTokens(ctx context.Context) ([]domain.Token, error)
	GetToken(ctx context.Context, coinType domain.CoinType) (domain.Token, error)
}

// Handler provides the planning and token endpoints.
type Handler struct {
	coins   CoinLister
	tokens  TokenSource
	primary domain.CoinType
}

// NewHandler creates a new API handler.
func NewHandler(coins CoinLister, tokens TokenSource, primary domain.CoinType) *Handler {
	return &Handler{coins: coins, tokens: tokens, primary: primary}
}

type planRequest struct {
	Owner    string          `json:"owner"`
	CoinType domain.CoinType `json:"coinType"`
	Amount   string          `json:"amount"`
}

type planResponse struct {
	CoinType     domain.CoinType    `json:"coinType"`
	Target       string             `json:"target"`
	Primary      domain.ObjectRef   `json:"primary"`
	MergeSources []domain.ObjectRef `json:"mergeSources"`
	Change       *string            `json:"change,omitempty"`
	NeedsSplit   bool               `json:"needsSplit"`
}

// Plan handles POST /api/v1/plan.
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Owner == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}
	if req.CoinType == "" {
		req.CoinType = h.primary
	}

	decimals := domain.PrimaryDecimals
	if !req.CoinType.Equal(h.primary) {
		if t, err := h.tokens.GetToken(r.Context(), req.CoinType); err == nil && t.Decimals > 0 {
			decimals = t.Decimals
		}
	}
	target, err := domain.ParseAmount(req.Amount, decimals)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	coins, err := h.coins.ListCoins(r.Context(), req.Owner, req.CoinType)
	if err != nil {
		slog.Error("failed to list coins", "owner", req.Owner, "coinType", req.CoinType, "error", err)
		writeError(w, http.StatusBadGateway, "ledger unavailable")
		return
	}
	plan, err := coinselect.Select(coins, target)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := planResponse{
		CoinType:     plan.CoinType,
		Target:       plan.Target.String(),
		Primary:      plan.Primary,
		MergeSources: plan.MergeSources,
		NeedsSplit:   plan.NeedsSplit(),
	}
	if resp.MergeSources == nil {
		resp.MergeSources = []domain.ObjectRef{}
	}
	if plan.Change != nil {
		change := plan.Change.String()
		resp.Change = &change
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListTokens handles GET /api/v1/tokens.
func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.tokens.ListTokens(r.Context())
	if err != nil {
		slog.Error("failed to list tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if tokens == nil {
		tokens = []domain.Token{}
	}
	writeJSON(w, http.StatusOK, tokens)
}

// lookupToken resolves a token, writing the error response when it fails.
func (h *Handler) lookupToken(w http.ResponseWriter, r *http.Request, coinType domain.CoinType) (domain.Token, bool) {
	t, err := h.tokens.GetToken(r.Context(), coinType)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not found")
			return domain.Token{}, false
		}
		slog.Error("failed to get token", "coinType", coinType, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return domain.Token{}, false
	}
	return t, true
}

// writeDomainError maps engine errors to status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var abort *domain.AbortError
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, coinselect.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrIncompleteAssetMetadata),
		errors.As(err, &abort):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrSubmissionRejected):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrNetwork):
		writeError(w, http.StatusBadGateway, "ledger unavailable")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

const maxBodyBytes = 1 << 16

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
