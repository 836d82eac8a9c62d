package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	models "trade-journal/database/models_pkg"
)

// DefaultPageSize is the largest result set the store returns for one query.
const DefaultPageSize = 1000

// ErrInvalidRange is returned when a window's start date is after its end date.
var ErrInvalidRange = errors.New("window start is after window end")

var hundred = decimal.NewFromInt(100)

// BarPager reads one page of bars in [start, end] ordered by (symbol ASC, date ASC).
type BarPager interface {
	PageBars(ctx context.Context, start, end time.Time, limit, offset int) ([]models.PriceBar, error)
}

// WindowAggregate is one symbol's bars over a date window plus the derived change statistics.
type WindowAggregate struct {
	Symbol              string
	Bars                []models.PriceBar // ascending by date
	EarliestClose       decimal.Decimal
	LatestClose         decimal.Decimal
	WindowChange        decimal.Decimal
	WindowChangePercent decimal.Decimal // zero when EarliestClose is zero
}

// Aggregator rebuilds per-symbol windows from a store whose single query result is capped.
type Aggregator struct {
	pager    BarPager
	pageSize int
}

// NewAggregator creates an Aggregator; pageSize <= 0 selects DefaultPageSize.
func NewAggregator(pager BarPager, pageSize int) *Aggregator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Aggregator{pager: pager, pageSize: pageSize}
}

// GetWindow returns one aggregate per symbol with at least one bar in [start, end],
// sorted by symbol. A failed page fails the whole call.
func (a *Aggregator) GetWindow(ctx context.Context, start, end time.Time) ([]WindowAggregate, error) {
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	rows, err := a.fetchAll(ctx, start, end)
	if err != nil {
		return nil, err
	}

	groups := groupBySymbol(rows)
	out := make([]WindowAggregate, 0, len(groups))
	for _, g := range groups {
		out = append(out, ComputeWindow(g.symbol, g.bars))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// fetchAll pages through every matching row. The total count is unknown up front, so
// paging ends on the first page shorter than pageSize.
func (a *Aggregator) fetchAll(ctx context.Context, start, end time.Time) ([]models.PriceBar, error) {
	var all []models.PriceBar
	for offset := 0; ; offset += a.pageSize {
		page, err := a.pager.PageBars(ctx, start, end, a.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("fetching bars page at offset %d: %w", offset, err)
		}
		all = append(all, page...)
		if len(page) < a.pageSize {
			return all, nil
		}
	}
}

type symbolBars struct {
	symbol string
	bars   []models.PriceBar
}

// groupBySymbol splits rows into per-symbol runs, each ascending by date.
func groupBySymbol(rows []models.PriceBar) []symbolBars {
	sorted := make([]models.PriceBar, len(rows))
	copy(sorted, rows)
	// The store already orders by (symbol, date); this keeps grouping correct if it does not.
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Symbol != sorted[j].Symbol {
			return sorted[i].Symbol < sorted[j].Symbol
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var groups []symbolBars
	for _, row := range sorted {
		if n := len(groups); n > 0 && groups[n-1].symbol == row.Symbol {
			groups[n-1].bars = append(groups[n-1].bars, row)
			continue
		}
		groups = append(groups, symbolBars{symbol: row.Symbol, bars: []models.PriceBar{row}})
	}
	return groups
}

// ComputeWindow derives change statistics from bars sorted ascending by date.
func ComputeWindow(symbol string, bars []models.PriceBar) WindowAggregate {
	agg := WindowAggregate{Symbol: symbol, Bars: bars}
	if len(bars) == 0 {
		return agg
	}

	agg.EarliestClose = bars[0].Close
	agg.LatestClose = bars[len(bars)-1].Close
	agg.WindowChange = agg.LatestClose.Sub(agg.EarliestClose)
	if !agg.EarliestClose.IsZero() {
		agg.WindowChangePercent = agg.WindowChange.Div(agg.EarliestClose).Mul(hundred)
	}
	return agg
}
