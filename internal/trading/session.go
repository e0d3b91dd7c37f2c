package trading

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dyike/CortexTrader/config"
	"github.com/dyike/CortexTrader/consts"
	"github.com/dyike/CortexTrader/internal/audit"
	"github.com/dyike/CortexTrader/internal/broker"
	"github.com/dyike/CortexTrader/internal/decision"
	"github.com/dyike/CortexTrader/internal/display"
	"github.com/dyike/CortexTrader/internal/sizing"
	"github.com/dyike/CortexTrader/internal/storage"
	"github.com/dyike/CortexTrader/models"
)

// ErrNotConfirmed is returned when the user declines to trade against a
// live account.
var ErrNotConfirmed = errors.New("live trading not confirmed")

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(message string) (bool, error)

// TradingSession wires one run together: it builds the collaborators from
// the configuration, runs the executor and reports the outcome.
type TradingSession struct {
	config    *config.Config
	tickers   []string
	date      string
	overrides map[string]string
	assumeYes bool
	confirm   ConfirmFunc
	stdout    io.Writer
	stderr    io.Writer
	log       *zap.Logger

	gateway broker.Gateway
	source  decision.Source
}

type SessionOption func(*TradingSession)

// WithDecisions fixes the decision for the given tickers, bypassing the
// configured decision source.
func WithDecisions(overrides map[string]string) SessionOption {
	return func(s *TradingSession) {
		s.overrides = overrides
	}
}

// WithAssumeYes skips the live account confirmation.
func WithAssumeYes(yes bool) SessionOption {
	return func(s *TradingSession) {
		s.assumeYes = yes
	}
}

func WithConfirm(fn ConfirmFunc) SessionOption {
	return func(s *TradingSession) {
		if fn != nil {
			s.confirm = fn
		}
	}
}

func WithOutput(stdout, stderr io.Writer) SessionOption {
	return func(s *TradingSession) {
		if stdout != nil {
			s.stdout = stdout
		}
		if stderr != nil {
			s.stderr = stderr
		}
	}
}

func WithSessionLogger(log *zap.Logger) SessionOption {
	return func(s *TradingSession) {
		if log != nil {
			s.log = log
		}
	}
}

// WithGateway replaces the broker built from the configuration.
func WithGateway(gw broker.Gateway) SessionOption {
	return func(s *TradingSession) {
		s.gateway = gw
	}
}

// WithSource replaces the decision source built from the configuration.
func WithSource(src decision.Source) SessionOption {
	return func(s *TradingSession) {
		s.source = src
	}
}

// NewTradingSession creates a new trading session
func NewTradingSession(cfg *config.Config, tickers []string, date string, opts ...SessionOption) *TradingSession {
	s := &TradingSession{
		config:  cfg,
		tickers: tickers,
		date:    date,
		confirm: surveyConfirm,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs the batch. Configuration, credential and account errors are
// returned before any ticker is touched; per-ticker failures are reported in
// the summary and the audit log only.
func (s *TradingSession) Execute(ctx context.Context) (*RunSummary, error) {
	if _, err := time.Parse(consts.DateLayout, s.date); err != nil {
		return nil, fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
	}
	if len(s.tickers) == 0 {
		return nil, errors.New("at least one ticker is required")
	}

	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if s.gateway == nil {
		if err := s.config.ValidateCredentials(); err != nil {
			return nil, err
		}
	}
	if err := s.config.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	if err := s.initialize(); err != nil {
		return nil, err
	}

	auditLog, err := s.openAudit()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := auditLog.Close(); cerr != nil {
			s.log.Warn("close audit log", zap.Error(cerr))
		}
	}()

	start, err := s.gateway.Cash(ctx)
	if err != nil {
		return nil, fmt.Errorf("read account: %w", err)
	}
	fmt.Fprintf(s.stdout, "💵 Starting cash: $%s\n", start.Cash.StringFixed(2))

	if err := s.confirmLive(); err != nil {
		return nil, err
	}

	policy := sizing.NewPolicy(s.config.BuyFraction, s.config.SellFraction, s.config.SizingMode)
	executor := NewExecutor(s.gateway, s.source, auditLog, policy,
		WithLogger(s.log),
		WithStderr(s.stderr))

	s.log.Info("run started",
		zap.Strings("tickers", s.tickers),
		zap.String("date", s.date),
		zap.String("broker", s.config.Broker),
		zap.String("sizing", s.config.SizingMode))

	summary, runErr := executor.Run(ctx, s.tickers, s.date)

	end := decimal.NullDecimal{}
	if runErr == nil {
		if snap, err := s.gateway.Cash(ctx); err != nil {
			s.log.Warn("read ending cash", zap.Error(err))
		} else {
			end = decimal.NullDecimal{Decimal: snap.Cash, Valid: true}
		}
	}

	display.RenderSummary(s.stdout, s.buildSummary(summary, start.Cash, end))
	for _, w := range s.config.Warnings() {
		display.DisplayWarning(w)
	}

	s.log.Info("run finished",
		zap.Int("submitted", summary.Submitted()),
		zap.Int("skipped", summary.Skipped()),
		zap.Int("failed", summary.Failed()))

	return summary, runErr
}

func (s *TradingSession) initialize() error {
	if s.gateway == nil {
		gw, err := broker.NewFromConfig(s.config, s.log)
		if err != nil {
			return fmt.Errorf("failed to initialize broker: %w", err)
		}
		s.gateway = gw
	}
	if s.source == nil {
		src, err := decision.NewFromConfig(s.config, s.overrides)
		if err != nil {
			return fmt.Errorf("failed to initialize decision source: %w", err)
		}
		s.source = src
	}
	return nil
}

func (s *TradingSession) openAudit() (audit.Logger, error) {
	csvLog, err := audit.NewCSVLogger(s.config.TradeLogPath)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	if s.config.TradeJournalDB == "" {
		return csvLog, nil
	}
	journal, err := storage.NewTradeStore(s.config.TradeJournalDB)
	if err != nil {
		_ = csvLog.Close()
		return nil, fmt.Errorf("open trade journal: %w", err)
	}
	return audit.Tee(csvLog, journal), nil
}

func (s *TradingSession) confirmLive() error {
	if s.config.IsPaper() || s.assumeYes {
		return nil
	}
	ok, err := s.confirm(fmt.Sprintf("Submit orders for %d ticker(s) to the LIVE account at %s?", len(s.tickers), s.config.AlpacaBaseURL))
	if err != nil {
		return fmt.Errorf("confirm live trading: %w", err)
	}
	if !ok {
		return ErrNotConfirmed
	}
	return nil
}

func (s *TradingSession) buildSummary(run *RunSummary, start decimal.Decimal, end decimal.NullDecimal) display.Summary {
	out := display.Summary{
		Date:      s.date,
		Broker:    s.config.Broker,
		StartCash: start,
		EndCash:   end,
		TradeLog:  s.config.TradeLogPath,
		Submitted: run.Submitted(),
		Skipped:   run.Skipped(),
		Failed:    run.Failed(),
	}
	for _, o := range run.Outcomes {
		out.Rows = append(out.Rows, rowFor(o))
	}
	return out
}

func rowFor(o Outcome) display.Row {
	row := display.Row{Ticker: o.Ticker, Decision: o.Label}
	switch {
	case o.Failed():
		row.Result = "failed"
		row.Detail = o.Err.Error()
	case o.Stage == StageSkipped:
		row.Result = "skipped"
		row.Detail = o.SkipReason
	case o.Confirmation != nil:
		row.Result = "bought"
		if o.Action == models.ActionSell {
			row.Result = "sold"
		}
		row.Detail = o.Confirmation.Status
	default:
		row.Result = string(o.Stage)
	}
	if o.Record != nil {
		if o.Record.Qty.Valid {
			row.Qty = o.Record.Qty.Decimal.String()
		}
		row.Notional = o.Record.NotionalUSD.StringFixed(2)
	}
	if o.AuditErr != nil {
		row.Detail = "audit: " + o.AuditErr.Error()
	}
	return row
}

func surveyConfirm(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	return ok, err
}
