// Package ingest is the write path of the market-data pipeline: it fetches daily
// bars for the ticker universe in paced batches and upserts them into the store.
package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"trade-journal/fmp"
)

// Defaults for a Fetcher built with zero values.
const (
	DefaultBatchSize    = 5
	DefaultBatchDelay   = 100 * time.Millisecond
	DefaultFetchTimeout = 5 * time.Second
)

// Provider returns the daily bars for one symbol in [from, to].
type Provider interface {
	FetchEOD(ctx context.Context, symbol string, from, to time.Time) ([]fmp.EODBar, error)
}

// Result is the outcome of fetching one ticker. A failed ticker has Err set and no bars.
type Result struct {
	Bars []fmp.EODBar
	Err  error
}

// Fetcher pulls bars for many tickers with bounded fan-out.
type Fetcher struct {
	provider     Provider
	batchSize    int
	batchDelay   time.Duration
	fetchTimeout time.Duration
}

// NewFetcher creates a Fetcher. Non-positive settings fall back to the defaults.
func NewFetcher(provider Provider, batchSize int, batchDelay, fetchTimeout time.Duration) *Fetcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchDelay < 0 {
		batchDelay = DefaultBatchDelay
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Fetcher{
		provider:     provider,
		batchSize:    batchSize,
		batchDelay:   batchDelay,
		fetchTimeout: fetchTimeout,
	}
}

// FetchAll fetches [asOf-1day, asOf] for every ticker and returns one Result per ticker.
// Tickers run concurrently within a batch; batches run in order with batchDelay between
// them. A failing ticker never stops the run. If ctx ends, tickers not yet fetched are
// reported with ctx.Err().
func (f *Fetcher) FetchAll(ctx context.Context, tickers []string, asOf time.Time) map[string]Result {
	results := make(map[string]Result, len(tickers))
	var mu sync.Mutex

	to := asOf
	from := asOf.AddDate(0, 0, -1)

	for i := 0; i < len(tickers); i += f.batchSize {
		if i > 0 && !f.pause(ctx) {
			markFailed(results, tickers[i:], ctx.Err())
			break
		}
		if err := ctx.Err(); err != nil {
			markFailed(results, tickers[i:], err)
			break
		}

		end := i + f.batchSize
		if end > len(tickers) {
			end = len(tickers)
		}

		var g errgroup.Group
		for _, ticker := range tickers[i:end] {
			g.Go(func() error {
				res := f.fetchOne(ctx, ticker, from, to)

				mu.Lock()
				results[ticker] = res
				mu.Unlock()
				return nil // failures stay in Result
			})
		}
		_ = g.Wait()
	}

	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, ticker string, from, to time.Time) Result {
	callCtx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	bars, err := f.provider.FetchEOD(callCtx, ticker, from, to)
	if err != nil {
		log.Printf("⚠️ Failed to fetch data for %s: %v", ticker, err)
		return Result{Err: err}
	}
	return Result{Bars: bars}
}

// pause waits batchDelay and reports false if ctx ended first.
func (f *Fetcher) pause(ctx context.Context) bool {
	if f.batchDelay == 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(f.batchDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func markFailed(results map[string]Result, tickers []string, err error) {
	for _, t := range tickers {
		results[t] = Result{Err: err}
	}
}
