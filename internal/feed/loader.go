// Package feed loads historical tick data for the backtest engine.
package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"makersim/internal/domain"
)

// CSV column layout of the trade dumps this loader accepts. The files carry
// no header row.
const (
	colTradeID = iota
	colPrice
	colSize
	colQuoteSize
	colTime
	colBuyerMaker
	colBestMatch

	minColumns = colBuyerMaker + 1
)

// Loader reads trade-dump CSV files into tick feeds. Any loading failure
// yields an empty feed rather than an error: sweeps must be able to continue
// past a bad data point, and a zero-tick run is already a valid result.
// Callers that need to distinguish "no data" from "no opportunity" check the
// feed length.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger.With(slog.String("component", "feed"))}
}

// LoadCSV reads the tick feed at path. Missing files, unreadable data, and
// malformed rows all produce an empty feed with a diagnostic.
func (l *Loader) LoadCSV(path string) []domain.Tick {
	f, err := os.Open(path)
	if err != nil {
		l.logger.Warn("tick file unreadable, feed is empty",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return []domain.Tick{}
	}
	defer f.Close()

	ticks, err := l.parse(f)
	if err != nil {
		l.logger.Warn("tick file malformed, feed is empty",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return []domain.Tick{}
	}

	l.logger.Info("tick feed loaded",
		slog.String("path", path),
		slog.Int("ticks", len(ticks)),
	)
	return ticks
}

func (l *Loader) parse(r io.Reader) ([]domain.Tick, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	ticks := []domain.Tick{}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return ticks, nil
		}
		if err != nil {
			return nil, fmt.Errorf("feed: line %d: %w", line, err)
		}
		if len(rec) < minColumns {
			return nil, fmt.Errorf("feed: line %d: got %d columns, want at least %d", line, len(rec), minColumns)
		}

		price, err := strconv.ParseFloat(rec[colPrice], 64)
		if err != nil {
			return nil, fmt.Errorf("feed: line %d: price: %w", line, err)
		}
		size, err := strconv.ParseFloat(rec[colSize], 64)
		if err != nil {
			return nil, fmt.Errorf("feed: line %d: size: %w", line, err)
		}
		ms, err := strconv.ParseInt(rec[colTime], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("feed: line %d: time: %w", line, err)
		}
		buyerMaker, err := strconv.ParseBool(rec[colBuyerMaker])
		if err != nil {
			return nil, fmt.Errorf("feed: line %d: buyer_maker: %w", line, err)
		}

		ticks = append(ticks, domain.Tick{
			Time:  time.UnixMilli(ms).UTC(),
			Price: price,
			Size:  size,
			// buyer_maker means the buyer rested, so the taker sold.
			TakerIsBuyer: !buyerMaker,
		})
	}
}
