package audit

import (
	"context"

	"go.uber.org/multierr"

	"github.com/dyike/CortexTrader/models"
)

// Logger durably records execution attempts. Append returns only after the
// record is persisted.
type Logger interface {
	Append(ctx context.Context, rec models.TradeLogRecord) error
	Close() error
}

type tee []Logger

// Tee fans every record out to all sinks. A failing sink does not stop the
// others; their errors are combined.
func Tee(loggers ...Logger) Logger {
	var sinks tee
	for _, l := range loggers {
		if l != nil {
			sinks = append(sinks, l)
		}
	}
	if len(sinks) == 1 {
		return sinks[0]
	}
	return sinks
}

func (t tee) Append(ctx context.Context, rec models.TradeLogRecord) error {
	var err error
	for _, l := range t {
		err = multierr.Append(err, l.Append(ctx, rec))
	}
	return err
}

func (t tee) Close() error {
	var err error
	for _, l := range t {
		err = multierr.Append(err, l.Close())
	}
	return err
}
