package api

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/google/uuid"

	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/preview"
	"github.com/mtlprog/swapkit/internal/trade"
)

// Trader executes trades. *trade.Executor implements it.
type Trader interface {
	Execute(ctx context.Context, order trade.Order) (trade.Outcome, error)
}

// SessionHandler serves live previews and trade submission.
type SessionHandler struct {
	*Handler
	engine *preview.Engine
	trader Trader // optional
}

// NewSessionHandler creates a SessionHandler. trader may be nil, in which case
// trades are not accepted.
func NewSessionHandler(h *Handler, engine *preview.Engine, trader Trader) *SessionHandler {
	return &SessionHandler{Handler: h, engine: engine, trader: trader}
}

type openRequest struct {
	Sender    string           `json:"sender"`
	Token     domain.CoinType  `json:"token"`
	Direction domain.Direction `json:"direction"`
}

type sessionResponse struct {
	ID      string          `json:"id"`
	Token   domain.CoinType `json:"token"`
	Outcome preview.Outcome `json:"outcome,omitempty"`
	preview.View
}

// OpenSession handles POST /api/v1/sessions.
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Sender == "" || req.Token == "" {
		writeError(w, http.StatusBadRequest, "sender and token are required")
		return
	}
	if !req.Direction.Valid() {
		writeError(w, http.StatusBadRequest, "direction must be buy or sell")
		return
	}
	token, ok := h.lookupToken(w, r, req.Token)
	if !ok {
		return
	}

	id := uuid.NewString()
	s, err := h.engine.Open(id, req.Sender, token, req.Direction)
	if errors.Is(err, preview.ErrTooManySessions) {
		writeError(w, http.StatusServiceUnavailable, "too many open sessions, retry later")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	slog.Info("PreviewEngine: session opened", "session", id, "token", token.Symbol, "direction", req.Direction)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, Token: token.Type, View: s.View()})
}

type amountRequest struct {
	Amount string `json:"amount"`
}

// SetAmount handles POST /api/v1/sessions/{id}/amount. It responds once this
// request is applied, failed or superseded; a superseded response carries
// the view of whichever request is current.
func (h *SessionHandler) SetAmount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, outcome := s.SetAmount(r.Context(), req.Amount)
	writeJSON(w, http.StatusOK, sessionResponse{ID: s.ID(), Token: s.Token().Type, Outcome: outcome, View: view})
}

// GetSession handles GET /api/v1/sessions/{id}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: s.ID(), Token: s.Token().Type, View: s.View()})
}

// MaxAmount handles GET /api/v1/sessions/{id}/max.
func (h *SessionHandler) MaxAmount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	amount, err := s.MaxAmount(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount": amount})
}

// CloseSession handles DELETE /api/v1/sessions/{id}.
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	h.engine.Close(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

type tradeResponse struct {
	trade.Outcome
	Paid     string `json:"paid"`
	Received string `json:"received"`
	Status   string `json:"status,omitempty"`
}

// Trade handles POST /api/v1/sessions/{id}/trade. It submits the session's
// applied preview; the graduation call is appended when the preview showed
// the trade completes the funding goal.
func (h *SessionHandler) Trade(w http.ResponseWriter, r *http.Request) {
	if h.trader == nil {
		writeError(w, http.StatusNotImplemented, "trading disabled")
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	view := s.View()
	if view.State != preview.StateApplied || view.InputUnits == nil {
		writeError(w, http.StatusConflict, "no applied preview to trade")
		return
	}

	out, err := h.trader.Execute(r.Context(), trade.Order{
		Sender:     s.Sender(),
		Token:      s.Token(),
		Direction:  s.Direction(),
		Amount:     new(big.Int).Set(view.InputUnits),
		CreatePool: view.WillTriggerStateTransition,
	})
	if err != nil {
		if errors.Is(err, trade.ErrTradeInFlight) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}

	resp := tradeResponse{Outcome: out, Paid: amountText(out.Paid), Received: amountText(out.Received)}
	if out.State != nil {
		resp.Status = string(out.State.Status)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*preview.Session, bool) {
	s, ok := h.engine.Session(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

func amountText(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
