package ingest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	models "trade-journal/database/models_pkg"
	"trade-journal/fmp"
)

// BarStore persists price bars keyed on (symbol, date).
type BarStore interface {
	UpsertBars(ctx context.Context, bars []models.PriceBar) error
}

// NormalizeBar converts a provider bar into the storage shape.
func NormalizeBar(b fmp.EODBar) (models.PriceBar, error) {
	symbol := strings.ToUpper(strings.TrimSpace(b.Symbol))
	if symbol == "" {
		return models.PriceBar{}, fmt.Errorf("bar dated %q has no symbol", b.Date)
	}

	date, err := time.Parse(models.DateLayout, b.Date)
	if err != nil {
		return models.PriceBar{}, fmt.Errorf("invalid date %q for %s: %w", b.Date, symbol, err)
	}

	return models.PriceBar{
		Symbol:        symbol,
		Date:          date,
		Open:          decimal.NewFromFloat(b.Open),
		High:          decimal.NewFromFloat(b.High),
		Low:           decimal.NewFromFloat(b.Low),
		Close:         decimal.NewFromFloat(b.Close),
		Volume:        b.Volume,
		Change:        decimal.NewFromFloat(b.Change),
		ChangePercent: decimal.NewFromFloat(b.ChangePercent),
		VWAP:          decimal.NewFromFloat(b.VWAP),
	}, nil
}

// Writer turns fetch results into one bulk upsert.
type Writer struct {
	store BarStore
}

// NewWriter creates a Writer over store.
func NewWriter(store BarStore) *Writer {
	return &Writer{store: store}
}

// Persist writes every bar from successful results and returns the number of rows sent
// to the store. Failed tickers and tickers with no bars contribute nothing; when nothing
// remains no store call is made.
func (w *Writer) Persist(ctx context.Context, results map[string]Result) (int, error) {
	rows := collectRows(results)
	if len(rows) == 0 {
		return 0, nil
	}

	if err := w.store.UpsertBars(ctx, rows); err != nil {
		return 0, fmt.Errorf("upserting %d bars: %w", len(rows), err)
	}
	return len(rows), nil
}

// collectRows normalizes bars in ticker order. A repeated (symbol, date) keeps the last
// occurrence in its first position.
func collectRows(results map[string]Result) []models.PriceBar {
	tickers := make([]string, 0, len(results))
	for t := range results {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var rows []models.PriceBar
	index := make(map[string]int)
	for _, ticker := range tickers {
		res := results[ticker]
		if res.Err != nil {
			continue
		}
		for _, raw := range res.Bars {
			if strings.TrimSpace(raw.Symbol) == "" {
				raw.Symbol = ticker
			}
			bar, err := NormalizeBar(raw)
			if err != nil {
				log.Printf("⚠️ Skipping bar for %s: %v", ticker, err)
				continue
			}
			if i, ok := index[bar.Key()]; ok {
				rows[i] = bar
				continue
			}
			index[bar.Key()] = len(rows)
			rows = append(rows, bar)
		}
	}
	return rows
}
