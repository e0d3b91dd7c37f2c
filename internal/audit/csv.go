package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexTrader/models"
)

// CSVLogger appends records to a CSV file. The file is opened per append
// and closed right after, so a crash never leaves a buffered row behind.
type CSVLogger struct {
	path string
	mu   sync.Mutex
}

func NewCSVLogger(path string) (*CSVLogger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("trade log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create trade log dir: %w", err)
	}
	return &CSVLogger{path: path}, nil
}

func (l *CSVLogger) Path() string {
	return l.path
}

func (l *CSVLogger) Append(ctx context.Context, rec models.TradeLogRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trade log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat trade log: %w", err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if err := writer.Write(models.TradeLogHeader); err != nil {
			return fmt.Errorf("encode header: %w", err)
		}
	}
	if err := writer.Write(rec.Row()); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	if _, err := file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write trade log: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync trade log: %w", err)
	}
	return file.Close()
}

func (l *CSVLogger) Close() error {
	return nil
}

// ReadCSV parses an audit log written by CSVLogger.
func ReadCSV(path string) ([]models.TradeLogRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse trade log: %w", err)
	}

	records := make([]models.TradeLogRecord, 0, len(rows))
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == models.TradeLogHeader[0] {
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("trade log line %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string) (models.TradeLogRecord, error) {
	if len(row) != len(models.TradeLogHeader) {
		return models.TradeLogRecord{}, fmt.Errorf("expected %d columns, got %d", len(models.TradeLogHeader), len(row))
	}

	ts, err := time.Parse(time.RFC3339Nano, row[0])
	if err != nil {
		return models.TradeLogRecord{}, fmt.Errorf("timestamp: %w", err)
	}

	var qty decimal.NullDecimal
	if row[4] != "" {
		d, err := decimal.NewFromString(row[4])
		if err != nil {
			return models.TradeLogRecord{}, fmt.Errorf("qty: %w", err)
		}
		qty = decimal.NullDecimal{Decimal: d, Valid: true}
	}

	notional := decimal.Zero
	if row[5] != "" {
		notional, err = decimal.NewFromString(row[5])
		if err != nil {
			return models.TradeLogRecord{}, fmt.Errorf("notional: %w", err)
		}
	}

	return models.TradeLogRecord{
		Timestamp:   ts,
		Date:        row[1],
		Ticker:      row[2],
		Action:      models.LogAction(row[3]),
		Qty:         qty,
		NotionalUSD: notional,
		Decision:    row[6],
		AnalysisStr: row[7],
	}, nil
}
