package trading

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dyike/CortexTrader/internal/audit"
	"github.com/dyike/CortexTrader/internal/broker"
	"github.com/dyike/CortexTrader/internal/decision"
	"github.com/dyike/CortexTrader/internal/sizing"
	"github.com/dyike/CortexTrader/models"
)

// Stage is where a ticker ended up in one run.
type Stage string

const (
	StagePending   Stage = "pending"
	StageDecided   Stage = "decided"
	StageSkipped   Stage = "skipped"
	StageSized     Stage = "sized"
	StageSubmitted Stage = "submitted"
	StageFailed    Stage = "failed"
	StageLogged    Stage = "logged"
)

// Outcome is the result of processing one ticker.
type Outcome struct {
	Ticker       string
	Stage        Stage
	Action       models.Action
	Label        string
	SkipReason   string
	Order        *models.OrderRequest
	Confirmation *models.OrderConfirmation
	Record       *models.TradeLogRecord
	Err          error
	AuditErr     error
}

// Failed reports whether the ticker ended in an ERROR record.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

type RunSummary struct {
	Date     string
	Outcomes []Outcome
}

func (s *RunSummary) count(match func(Outcome) bool) int {
	n := 0
	for _, o := range s.Outcomes {
		if match(o) {
			n++
		}
	}
	return n
}

func (s *RunSummary) Submitted() int {
	return s.count(func(o Outcome) bool { return o.Confirmation != nil })
}

func (s *RunSummary) Skipped() int {
	return s.count(func(o Outcome) bool { return o.Stage == StageSkipped })
}

func (s *RunSummary) Failed() int {
	return s.count(Outcome.Failed)
}

func (s *RunSummary) Records() int {
	return s.count(func(o Outcome) bool { return o.Record != nil && o.AuditErr == nil })
}

// Executor runs decisions through sizing, the broker and the audit log.
// Tickers are processed one at a time: every BUY sizes against the cash
// left by the previous one.
type Executor struct {
	gateway broker.Gateway
	source  decision.Source
	audit   audit.Logger
	policy  sizing.Policy
	log     *zap.Logger
	stderr  io.Writer
	now     func() time.Time

	mu sync.Mutex
}

type ExecutorOption func(*Executor)

func WithLogger(log *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

func WithStderr(w io.Writer) ExecutorOption {
	return func(e *Executor) {
		if w != nil {
			e.stderr = w
		}
	}
}

func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

func NewExecutor(gw broker.Gateway, src decision.Source, auditLog audit.Logger, policy sizing.Policy, opts ...ExecutorOption) *Executor {
	e := &Executor{
		gateway: gw,
		source:  src,
		audit:   auditLog,
		policy:  policy,
		log:     zap.NewNop(),
		stderr:  os.Stderr,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run processes tickers in order. A failing ticker never stops the batch;
// only cancellation of ctx does, and then the summary covers the tickers
// handled so far.
func (e *Executor) Run(ctx context.Context, tickers []string, date string) (*RunSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	summary := &RunSummary{Date: date}
	for _, raw := range tickers {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		ticker := strings.ToUpper(strings.TrimSpace(raw))
		if ticker == "" {
			continue
		}
		summary.Outcomes = append(summary.Outcomes, e.processTicker(ctx, ticker, date))
	}
	return summary, nil
}

func (e *Executor) processTicker(ctx context.Context, ticker, date string) (out Outcome) {
	out = Outcome{Ticker: ticker, Stage: StagePending}
	log := e.log.With(zap.String("ticker", ticker), zap.String("date", date))

	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic: %v", r)
			e.fail(ctx, log, &out, date)
		}
	}()

	analysis, label, err := e.source.Propagate(ctx, ticker, date)
	if err != nil {
		out.Err = fmt.Errorf("decision source: %w", err)
		e.fail(ctx, log, &out, date)
		return out
	}

	dec := models.NewDecision(ticker, date, label, analysis)
	out.Stage = StageDecided
	out.Action = dec.Action
	out.Label = dec.Label
	log.Info("decision received", zap.String("decision", dec.Label), zap.String("action", dec.Action.String()))

	if !dec.Action.Actionable() {
		out.Stage = StageSkipped
		out.SkipReason = sizing.ReasonHold
		log.Info("skipped", zap.String("reason", out.SkipReason))
		return out
	}

	result, err := e.size(ctx, dec)
	if err != nil {
		out.Err = err
		e.fail(ctx, log, &out, date)
		return out
	}
	if result.NoOp() {
		out.Stage = StageSkipped
		out.SkipReason = result.Reason
		log.Info("skipped", zap.String("reason", result.Reason))
		return out
	}
	out.Stage = StageSized
	out.Order = result.Order

	conf, err := e.gateway.SubmitOrder(ctx, *result.Order)
	if err != nil {
		out.Err = fmt.Errorf("submit order: %w", err)
		e.fail(ctx, log, &out, date)
		return out
	}
	out.Stage = StageSubmitted
	out.Confirmation = &conf
	log.Info("order submitted",
		zap.String("order", result.Order.String()),
		zap.String("order_id", conf.ID),
		zap.String("status", conf.Status))

	rec := models.TradeLogRecord{
		Timestamp:   e.now().UTC(),
		Date:        date,
		Ticker:      ticker,
		Action:      models.LogAction(dec.Action),
		Qty:         realizedQty(conf, *result.Order),
		NotionalUSD: result.Notional,
		Decision:    dec.Label,
		AnalysisStr: dec.AnalysisString(),
	}
	e.record(ctx, log, &out, rec)
	return out
}

// size gathers fresh account state for the decision and applies the policy.
func (e *Executor) size(ctx context.Context, dec models.Decision) (sizing.Result, error) {
	var (
		account  *models.AccountSnapshot
		position *models.PositionSnapshot
		price    decimal.Decimal
	)

	switch dec.Action {
	case models.ActionBuy:
		snap, err := e.gateway.Cash(ctx)
		if err != nil {
			return sizing.Result{}, fmt.Errorf("get cash: %w", err)
		}
		account = &snap
		if e.policy.NeedsPrice(dec.Action) {
			prices, err := e.gateway.LatestPrices(ctx, []string{dec.Ticker})
			if err != nil {
				return sizing.Result{}, fmt.Errorf("latest price: %w", err)
			}
			price = prices[dec.Ticker]
		}
	case models.ActionSell:
		snap, err := e.gateway.Position(ctx, dec.Ticker)
		switch {
		case errors.Is(err, broker.ErrPositionNotFound):
		case err != nil:
			return sizing.Result{}, fmt.Errorf("get position: %w", err)
		default:
			position = &snap
		}
	}

	return e.policy.Size(dec, account, position, price)
}

func (e *Executor) fail(ctx context.Context, log *zap.Logger, out *Outcome, date string) {
	out.Stage = StageFailed
	fmt.Fprintf(e.stderr, "Order error for %s: %v\n", out.Ticker, out.Err)
	log.Error("execution failed", zap.Error(out.Err))

	rec := models.NewErrorRecord(e.now(), date, out.Ticker, out.Label, out.Err)
	e.record(ctx, log, out, rec)
}

func (e *Executor) record(ctx context.Context, log *zap.Logger, out *Outcome, rec models.TradeLogRecord) {
	out.Record = &rec
	if err := e.audit.Append(ctx, rec); err != nil {
		out.AuditErr = err
		fmt.Fprintf(e.stderr, "Audit log error for %s: %v\n", out.Ticker, err)
		log.Error("audit append failed", zap.String("action", string(rec.Action)), zap.Error(err))
		return
	}
	out.Stage = StageLogged
}

// realizedQty prefers what the broker reports over what was requested. A
// notional order the broker has not filled yet has no quantity.
func realizedQty(conf models.OrderConfirmation, order models.OrderRequest) decimal.NullDecimal {
	switch {
	case conf.Qty.Valid && conf.Qty.Decimal.IsPositive():
		return conf.Qty
	case conf.FilledQty.IsPositive():
		return decimal.NullDecimal{Decimal: conf.FilledQty, Valid: true}
	case order.Qty.IsPositive():
		return decimal.NullDecimal{Decimal: order.Qty, Valid: true}
	default:
		return decimal.NullDecimal{}
	}
}
