// Package preview computes live trade previews by simulating the exact
// transaction a trade would submit. Each session keeps only the result of
// the most recently issued request.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/mtlprog/swapkit/internal/coinselect"
	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/pump"
	"github.com/mtlprog/swapkit/internal/sui"
	"github.com/mtlprog/swapkit/internal/txn"
)

// Ledger is the subset of the ledger client a preview needs.
type Ledger interface {
	ListCoins(ctx context.Context, owner string, coinType domain.CoinType) ([]domain.Coin, error)
	DryRun(ctx context.Context, intent *txn.Intent) (sui.Effects, error)
}

// Recorder receives preview outcomes. *metrics.Collectors implements it.
type Recorder interface {
	PreviewFinished(outcome string, elapsed time.Duration)
	PreviewAdjusted()
}

// Session limits used when Config leaves them zero.
const (
	DefaultSessionTTL  = 30 * time.Minute
	DefaultMaxSessions = 10_000
)

// ErrTooManySessions means the engine is at MaxSessions after evicting idle sessions.
var ErrTooManySessions = errors.New("too many open preview sessions")

// Config holds engine-wide settings.
type Config struct {
	Primary         domain.CoinType
	PrimaryDecimals int32
	Contract        pump.Contract
	// Rate and Burst bound simulations per session. Zero Rate disables limiting.
	Rate  rate.Limit
	Burst int
	// SessionTTL is how long a session may go unused before it is evicted.
	SessionTTL  time.Duration
	MaxSessions int
}

// Engine creates and tracks preview sessions.
type Engine struct {
	ledger   Ledger
	cfg      Config
	recorder Recorder
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewEngine creates a preview engine. recorder may be nil.
func NewEngine(ledger Ledger, cfg Config, recorder Recorder) *Engine {
	if ledger == nil {
		panic("preview.NewEngine: ledger must not be nil")
	}
	if cfg.PrimaryDecimals == 0 {
		cfg.PrimaryDecimals = domain.PrimaryDecimals
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	return &Engine{
		ledger:   ledger,
		cfg:      cfg,
		recorder: recorder,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session previewing trades of token in direction for sender.
// An existing session with the same id is replaced. Idle sessions are
// evicted first; ErrTooManySessions is returned if the engine is still full.
func (e *Engine) Open(id, sender string, token domain.Token, dir domain.Direction) (*Session, error) {
	if !dir.Valid() {
		return nil, fmt.Errorf("unknown direction %q", dir)
	}
	if err := token.RequireTradeObjects(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if e.cfg.Rate > 0 {
		limit = e.cfg.Rate
	}
	s := &Session{
		id:        id,
		sender:    sender,
		token:     token,
		direction: dir,
		engine:    e,
		limiter:   rate.NewLimiter(limit, e.cfg.Burst),
		view:      View{State: StateIdle, Direction: dir},
	}
	now := e.now()
	s.touch(now)

	e.mu.Lock()
	expired := e.evictLocked(now)
	old := e.sessions[id]
	if old == nil && len(e.sessions) >= e.cfg.MaxSessions {
		e.mu.Unlock()
		closeAll(expired)
		return nil, fmt.Errorf("%w: %d", ErrTooManySessions, e.cfg.MaxSessions)
	}
	e.sessions[id] = s
	e.mu.Unlock()

	closeAll(expired)
	if old != nil {
		old.close()
	}
	return s, nil
}

// Session returns an open session and marks it used. A session idle for
// longer than the TTL is evicted and not returned.
func (e *Engine) Session(id string) (*Session, bool) {
	now := e.now()
	e.mu.Lock()
	s, ok := e.sessions[id]
	if ok && s.expired(now, e.cfg.SessionTTL) {
		delete(e.sessions, id)
		e.mu.Unlock()
		s.close()
		return nil, false
	}
	e.mu.Unlock()
	if ok {
		s.touch(now)
	}
	return s, ok
}

// Len returns the number of open sessions.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// evictLocked removes sessions unused for longer than the TTL and returns
// them for closing outside the lock.
func (e *Engine) evictLocked(now time.Time) []*Session {
	var expired []*Session
	for id, s := range e.sessions {
		if s.expired(now, e.cfg.SessionTTL) {
			delete(e.sessions, id)
			expired = append(expired, s)
		}
	}
	if len(expired) > 0 {
		slog.Debug("PreviewEngine: evicted idle sessions", "count", len(expired))
	}
	return expired
}

func closeAll(sessions []*Session) {
	for _, s := range sessions {
		s.close()
	}
}

// Close discards a session and abandons its in-flight work.
func (e *Engine) Close(id string) {
	e.mu.Lock()
	s := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()
	if s != nil {
		s.close()
	}
}

// State is the lifecycle stage of a session's visible preview.
type State string

const (
	StateIdle      State = "idle"
	StateComputing State = "computing"
	StateApplied   State = "applied"
	StateFailed    State = "failed"
)

// Outcome is how one SetAmount request ended.
type Outcome string

const (
	OutcomeIdle       Outcome = "idle"
	OutcomeApplied    Outcome = "applied"
	OutcomeSuperseded Outcome = "superseded"
	OutcomeFailed     Outcome = "failed"
)

// View is what a session currently shows.
type View struct {
	Generation uint64           `json:"generation"`
	State      State            `json:"state"`
	Direction  domain.Direction `json:"direction"`
	Input      string           `json:"input"`
	Output     string           `json:"output"`
	// Adjusted is set when a sell was clamped to the amount the pool can absorb.
	Adjusted                   bool   `json:"adjusted"`
	WillTriggerStateTransition bool   `json:"willTriggerStateTransition"`
	Error                      string `json:"error,omitempty"`

	InputUnits  *big.Int `json:"-"`
	OutputUnits *big.Int `json:"-"`
	Err         error    `json:"-"`
}

// Session is one user's live preview of a single pair and direction.
type Session struct {
	id        string
	sender    string
	token     domain.Token
	direction domain.Direction
	engine    *Engine
	limiter   *rate.Limiter
	lastUsed  atomic.Int64 // unix nanoseconds

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	view       View
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Token returns the token being traded.
func (s *Session) Token() domain.Token { return s.token }

// Direction returns the trade direction.
func (s *Session) Direction() domain.Direction { return s.direction }

// Sender returns the address whose coins fund the preview.
func (s *Session) Sender() string { return s.sender }

func (s *Session) touch(now time.Time) { s.lastUsed.Store(now.UnixNano()) }

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(time.Unix(0, s.lastUsed.Load())) > ttl
}

// View returns a copy of the visible state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// ticket identifies one issued request. Work holding a ticket may only
// publish while the ticket's generation is still current.
type ticket struct {
	generation uint64
	ctx        context.Context
}

// issue allocates the next generation and cancels the work it supersedes.
func (s *Session) issue(parent context.Context) ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return ticket{generation: s.generation, ctx: ctx}
}

func (s *Session) current(t ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == t.generation
}

// publish replaces the view if t is still current.
func (s *Session) publish(t ticket, update func(v *View)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != t.generation {
		return false
	}
	update(&s.view)
	s.view.Generation = t.generation
	return true
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetAmount previews paying amountText of the input coin. It blocks until
// the request is applied, fails, or is superseded by a later call. The
// returned view is the session's state when this request finished.
func (s *Session) SetAmount(ctx context.Context, amountText string) (View, Outcome) {
	start := time.Now()
	s.touch(s.engine.now())
	t := s.issue(ctx)

	if domain.IsBlankAmount(amountText) {
		return s.idle(t, amountText)
	}

	payDecimals := s.decimalsOf(s.payType())
	units, err := domain.ParseAmount(amountText, payDecimals)
	if err != nil {
		return s.fail(t, start, amountText, err)
	}
	// Amounts finer than the coin's precision truncate to nothing.
	if units.Sign() == 0 {
		return s.idle(t, amountText)
	}

	s.publish(t, func(v *View) {
		*v = View{State: StateComputing, Direction: s.direction, Input: amountText, InputUnits: units}
	})

	result, err := s.compute(t, units)
	switch {
	case errors.Is(err, domain.ErrStaleRequest):
		slog.Debug("PreviewEngine: superseded", "session", s.id, "generation", t.generation)
		s.engine.record(OutcomeSuperseded, 0)
		return s.View(), OutcomeSuperseded
	case err != nil:
		return s.fail(t, start, amountText, err)
	}

	applied := s.publish(t, func(v *View) {
		v.State = StateApplied
		v.OutputUnits = result.output
		v.Output = domain.FormatAmount(result.output, s.decimalsOf(s.receiveType()))
		v.WillTriggerStateTransition = result.transition
		v.Adjusted = result.consumed != nil
		if v.Adjusted {
			v.InputUnits = result.consumed
			v.Input = domain.FormatAmount(result.consumed, payDecimals)
		}
		v.Error = ""
		v.Err = nil
	})
	if !applied {
		s.engine.record(OutcomeSuperseded, 0)
		return s.View(), OutcomeSuperseded
	}
	if result.consumed != nil && s.engine.recorder != nil {
		s.engine.recorder.PreviewAdjusted()
	}
	s.engine.record(OutcomeApplied, time.Since(start))
	return s.View(), OutcomeApplied
}

// idle clears the preview without touching the network.
func (s *Session) idle(t ticket, input string) (View, Outcome) {
	s.publish(t, func(v *View) {
		*v = View{State: StateIdle, Direction: s.direction, Input: input}
	})
	return s.View(), OutcomeIdle
}

func (s *Session) fail(t ticket, start time.Time, input string, err error) (View, Outcome) {
	if !s.publish(t, func(v *View) {
		*v = View{State: StateFailed, Direction: s.direction, Input: input, Error: userMessage(err), Err: err}
	}) {
		s.engine.record(OutcomeSuperseded, 0)
		return s.View(), OutcomeSuperseded
	}
	slog.Warn("PreviewEngine: preview failed", "session", s.id, "generation", t.generation, "error", err)
	s.engine.record(OutcomeFailed, time.Since(start))
	return s.View(), OutcomeFailed
}

func (e *Engine) record(o Outcome, elapsed time.Duration) {
	if e.recorder != nil {
		e.recorder.PreviewFinished(string(o), elapsed)
	}
}

type result struct {
	output     *big.Int
	consumed   *big.Int // set when a sell was clamped
	transition bool
}

// compute runs list, select, compose and simulate, checking the ticket
// around every network call.
func (s *Session) compute(t ticket, units *big.Int) (result, error) {
	cfg := s.engine.cfg
	payType, receiveType := s.payType(), s.receiveType()

	if !s.current(t) {
		return result{}, domain.ErrStaleRequest
	}
	coins, err := s.engine.ledger.ListCoins(t.ctx, s.sender, payType)
	if !s.current(t) {
		return result{}, domain.ErrStaleRequest
	}
	if err != nil {
		return result{}, fmt.Errorf("listing %s coins: %w", payType.Symbol(), err)
	}

	plan, err := coinselect.Select(coins, units)
	if err != nil {
		return result{}, err
	}
	call, err := cfg.Contract.TradeCall(s.token, s.direction)
	if err != nil {
		return result{}, err
	}
	intent, err := txn.Compose(s.sender, plan, call)
	if err != nil {
		return result{}, fmt.Errorf("composing preview: %w", err)
	}

	if err := s.limiter.Wait(t.ctx); err != nil {
		if !s.current(t) {
			return result{}, domain.ErrStaleRequest
		}
		return result{}, fmt.Errorf("waiting for simulation slot: %w", err)
	}
	if !s.current(t) {
		return result{}, domain.ErrStaleRequest
	}
	eff, err := s.engine.ledger.DryRun(t.ctx, intent)
	if !s.current(t) {
		return result{}, domain.ErrStaleRequest
	}
	if err != nil {
		return result{}, fmt.Errorf("simulating %s: %w", call.Target, err)
	}
	if err := eff.Err(); err != nil {
		return result{}, err
	}

	return derive(eff, s.sender, s.token, s.direction, payType, receiveType, units), nil
}

// derive reads the preview out of simulated effects.
func derive(eff sui.Effects, sender string, token domain.Token, dir domain.Direction, payType, receiveType domain.CoinType, requested *big.Int) result {
	r := result{transition: pump.CrossesThreshold(eff.Events, token)}

	out := eff.BalanceChange(sender, receiveType)
	if out.Sign() < 0 {
		out = new(big.Int)
	}
	r.output = out

	if dir == domain.DirectionSell {
		consumed := new(big.Int).Neg(eff.BalanceChange(sender, payType))
		if consumed.Sign() > 0 && consumed.Cmp(requested) < 0 {
			r.consumed = consumed
		}
	}
	return r
}

func (s *Session) payType() domain.CoinType {
	pay, _ := s.direction.Pair(s.engine.cfg.Primary, s.token.Type)
	return pay
}

func (s *Session) receiveType() domain.CoinType {
	_, receive := s.direction.Pair(s.engine.cfg.Primary, s.token.Type)
	return receive
}

func (s *Session) decimalsOf(t domain.CoinType) int32 {
	if t.Equal(s.engine.cfg.Primary) || s.token.Decimals == 0 {
		return s.engine.cfg.PrimaryDecimals
	}
	return s.token.Decimals
}

// userMessage renders err for display.
func userMessage(err error) string {
	var abort *domain.AbortError
	switch {
	case errors.As(err, &abort):
		return abort.Message
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "Insufficient balance"
	case errors.Is(err, domain.ErrIncompleteAssetMetadata):
		return "Incomplete token information"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "Invalid amount"
	case errors.Is(err, domain.ErrNetwork):
		return "Network error, please retry"
	}
	return err.Error()
}

// MaxAmount returns the sender's whole balance of the input coin as text,
// for filling the amount field.
func (s *Session) MaxAmount(ctx context.Context) (string, error) {
	payType := s.payType()
	coins, err := s.engine.ledger.ListCoins(ctx, s.sender, payType)
	if err != nil {
		return "", fmt.Errorf("listing %s coins: %w", payType.Symbol(), err)
	}
	return domain.FormatAmount(domain.TotalBalance(coins), s.decimalsOf(payType)), nil
}
