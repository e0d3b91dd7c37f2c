package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexTrader/models"
	"github.com/dyike/CortexTrader/pkg/sqlite"
)

// TradeStore is a queryable SQLite journal of audit records. It mirrors
// the CSV log and is never the source of truth.
type TradeStore struct {
	db *sql.DB
}

type TradeFilter struct {
	Ticker string
	Limit  int
}

func NewTradeStore(dbPath string) (*TradeStore, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}
	s := &TradeStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *TradeStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *TradeStore) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS trades (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ts TEXT NOT NULL,
    trade_date TEXT NOT NULL,
    ticker TEXT NOT NULL,
    action TEXT NOT NULL,
    qty TEXT,
    notional_usd TEXT NOT NULL,
    decision TEXT NOT NULL DEFAULT '',
    analysis TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_trades_ticker_ts ON trades(ticker, ts);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *TradeStore) InsertTrade(ctx context.Context, rec models.TradeLogRecord) error {
	var qty sql.NullString
	if rec.Qty.Valid {
		qty = sql.NullString{String: rec.Qty.Decimal.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO trades (ts, trade_date, ticker, action, qty, notional_usd, decision, analysis)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.Date, rec.Ticker, string(rec.Action),
		qty, rec.NotionalUSD.String(), rec.Decision, rec.AnalysisStr)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// Append lets the journal sit behind an audit.Tee next to the CSV log.
func (s *TradeStore) Append(ctx context.Context, rec models.TradeLogRecord) error {
	return s.InsertTrade(ctx, rec)
}

// ListTrades returns the newest records first.
func (s *TradeStore) ListTrades(ctx context.Context, filter TradeFilter) ([]models.TradeLogRecord, error) {
	query := `SELECT ts, trade_date, ticker, action, qty, notional_usd, decision, analysis FROM trades`
	var args []any
	if t := strings.ToUpper(strings.TrimSpace(filter.Ticker)); t != "" {
		query += ` WHERE ticker = ?`
		args = append(args, t)
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var out []models.TradeLogRecord
	for rows.Next() {
		var (
			ts, date, ticker, action, notional, decision, analysis string
			qty                                                    sql.NullString
		)
		if err := rows.Scan(&ts, &date, &ticker, &action, &qty, &notional, &decision, &analysis); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		rec := models.TradeLogRecord{
			Date:        date,
			Ticker:      ticker,
			Action:      models.LogAction(action),
			Decision:    decision,
			AnalysisStr: analysis,
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse trade timestamp: %w", err)
		}
		if rec.NotionalUSD, err = decimal.NewFromString(notional); err != nil {
			return nil, fmt.Errorf("parse trade notional: %w", err)
		}
		if qty.Valid {
			d, err := decimal.NewFromString(qty.String)
			if err != nil {
				return nil, fmt.Errorf("parse trade qty: %w", err)
			}
			rec.Qty = decimal.NullDecimal{Decimal: d, Valid: true}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
