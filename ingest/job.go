package ingest

import (
	"context"
	"log"
	"sort"
	"time"

	"trade-journal/market"
)

// Event names published by Job.
const (
	EventIngestCompleted = "ingest_completed"
	EventIngestFailed    = "ingest_failed"
)

// persistTimeout bounds the store write, which outlives a cancelled run context.
const persistTimeout = 30 * time.Second

// Publisher receives run summaries, e.g. the SSE broker.
type Publisher interface {
	Publish(event string, payload interface{})
}

// RunSummary describes one ingestion run.
type RunSummary struct {
	AsOf             string    `json:"asOf"`
	TickersProcessed int       `json:"tickersProcessed"`
	TickersFailed    int       `json:"tickersFailed"`
	FailedTickers    []string  `json:"failedTickers,omitempty"`
	RowsWritten      int       `json:"rowsWritten"`
	StartedAt        time.Time `json:"startedAt"`
	FinishedAt       time.Time `json:"finishedAt"`
	Error            string    `json:"error,omitempty"`
}

// Job runs the full write path over a fixed universe. It is safe to run concurrently
// with itself since the store write is idempotent.
type Job struct {
	universe  market.Universe
	fetcher   *Fetcher
	writer    *Writer
	publisher Publisher
}

// NewJob wires a job; publisher may be nil.
func NewJob(universe market.Universe, fetcher *Fetcher, writer *Writer, publisher Publisher) *Job {
	return &Job{
		universe:  universe,
		fetcher:   fetcher,
		writer:    writer,
		publisher: publisher,
	}
}

// Run fetches every ticker for asOf and writes the result. Per-ticker failures are
// counted, not returned; only a failed store write is an error.
func (j *Job) Run(ctx context.Context, asOf time.Time) (RunSummary, error) {
	tickers := j.universe.List()
	summary := RunSummary{
		AsOf:             asOf.UTC().Format("2006-01-02"),
		TickersProcessed: len(tickers),
		StartedAt:        time.Now(),
	}

	log.Printf("🔄 Ingesting %d tickers for %s", len(tickers), summary.AsOf)

	results := j.fetcher.FetchAll(ctx, tickers, asOf)
	for ticker, res := range results {
		if res.Err != nil {
			summary.FailedTickers = append(summary.FailedTickers, ticker)
		}
	}
	sort.Strings(summary.FailedTickers)
	summary.TickersFailed = len(summary.FailedTickers)

	// Bars fetched before a cancellation are still written.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	rows, err := j.writer.Persist(writeCtx, results)
	summary.RowsWritten = rows
	summary.FinishedAt = time.Now()

	if err != nil {
		summary.Error = err.Error()
		log.Printf("❌ Ingestion for %s failed after %v: %v", summary.AsOf, summary.FinishedAt.Sub(summary.StartedAt), err)
		j.publish(EventIngestFailed, summary)
		return summary, err
	}

	if summary.TickersFailed > 0 {
		log.Printf("⚠️ Ingestion for %s: %d/%d tickers failed: %v", summary.AsOf, summary.TickersFailed, summary.TickersProcessed, summary.FailedTickers)
	}
	log.Printf("✅ Ingestion for %s completed: %d rows written in %v", summary.AsOf, rows, summary.FinishedAt.Sub(summary.StartedAt))
	j.publish(EventIngestCompleted, summary)
	return summary, nil
}

func (j *Job) publish(event string, summary RunSummary) {
	if j.publisher != nil {
		j.publisher.Publish(event, summary)
	}
}
