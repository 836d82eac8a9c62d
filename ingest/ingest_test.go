package ingest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trade-journal/database/memstore"
	models "trade-journal/database/models_pkg"
	"trade-journal/fmp"
	"trade-journal/market"
)

// fakeProvider serves canned bars per symbol and records call order and timing.
type fakeProvider struct {
	mu      sync.Mutex
	bars    map[string][]fmp.EODBar
	fail    map[string]error
	hang    map[string]bool
	calls   []string
	started []time.Time
	active  int
	peak    int
}

func (p *fakeProvider) FetchEOD(ctx context.Context, symbol string, _, _ time.Time) ([]fmp.EODBar, error) {
	p.mu.Lock()
	p.calls = append(p.calls, symbol)
	p.started = append(p.started, time.Now())
	p.active++
	if p.active > p.peak {
		p.peak = p.active
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	if p.hang[symbol] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	// hold the slot long enough for siblings in the batch to overlap
	time.Sleep(5 * time.Millisecond)
	if err := p.fail[symbol]; err != nil {
		return nil, err
	}
	return p.bars[symbol], nil
}

func eod(symbol, date string, close float64) fmp.EODBar {
	return fmp.EODBar{Symbol: symbol, Date: date, Open: close, High: close, Low: close, Close: close, Volume: 100, ChangePercent: 0.5}
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	p := &fakeProvider{
		bars: map[string][]fmp.EODBar{
			"AAPL": {eod("AAPL", "2024-01-02", 185)},
			"NVDA": {eod("NVDA", "2024-01-02", 480)},
		},
		fail: map[string]error{"MSFT": errors.New("API error: 500")},
	}
	f := NewFetcher(p, 5, 0, time.Second)

	results := f.FetchAll(context.Background(), []string{"AAPL", "MSFT", "NVDA"}, time.Now())

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results["MSFT"].Err == nil || len(results["MSFT"].Bars) != 0 {
		t.Errorf("MSFT result = %+v, want error and no bars", results["MSFT"])
	}
	for _, sym := range []string{"AAPL", "NVDA"} {
		if results[sym].Err != nil || len(results[sym].Bars) != 1 {
			t.Errorf("%s result = %+v, want one bar", sym, results[sym])
		}
	}
}

func TestFetchAllBatchingAndPacing(t *testing.T) {
	tickers := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}
	p := &fakeProvider{}
	delay := 40 * time.Millisecond
	f := NewFetcher(p, 5, delay, time.Second)

	start := time.Now()
	results := f.FetchAll(context.Background(), tickers, time.Now())
	elapsed := time.Since(start)

	if len(results) != len(tickers) {
		t.Fatalf("got %d results, want %d", len(results), len(tickers))
	}
	if p.peak > 5 {
		t.Errorf("peak concurrency = %d, want <= 5", p.peak)
	}
	if p.peak < 2 {
		t.Errorf("peak concurrency = %d, want tickers within a batch to overlap", p.peak)
	}

	// batches are [0,5) [5,10) [10,12): every call in a later batch starts after all
	// calls of the earlier batch, separated by at least the delay
	batchOf := func(sym string) int {
		for i, s := range tickers {
			if s == sym {
				return i / 5
			}
		}
		return -1
	}
	first := map[int]time.Time{}
	last := map[int]time.Time{}
	for i, sym := range p.calls {
		b := batchOf(sym)
		ts := p.started[i]
		if earliest, ok := first[b]; !ok || ts.Before(earliest) {
			first[b] = ts
		}
		if latest, ok := last[b]; !ok || ts.After(latest) {
			last[b] = ts
		}
	}
	for b := 1; b <= 2; b++ {
		if gap := first[b].Sub(last[b-1]); gap < delay {
			t.Errorf("batch %d started %v after batch %d, want >= %v", b, gap, b-1, delay)
		}
	}

	// two pauses only; a third after the last batch would push this past 3*delay
	if elapsed >= 3*delay+100*time.Millisecond {
		t.Errorf("FetchAll took %v, expected no pause after the final batch", elapsed)
	}
}

func TestFetchAllTimesOutHungProvider(t *testing.T) {
	p := &fakeProvider{
		bars: map[string][]fmp.EODBar{"AAPL": {eod("AAPL", "2024-01-02", 185)}},
		hang: map[string]bool{"HANG": true},
	}
	f := NewFetcher(p, 5, 0, 30*time.Millisecond)

	results := f.FetchAll(context.Background(), []string{"HANG", "AAPL"}, time.Now())

	if !errors.Is(results["HANG"].Err, context.DeadlineExceeded) {
		t.Errorf("HANG err = %v, want deadline exceeded", results["HANG"].Err)
	}
	if results["AAPL"].Err != nil {
		t.Errorf("AAPL err = %v, want success", results["AAPL"].Err)
	}
}

func TestFetchAllCancelledRunMarksRemaining(t *testing.T) {
	p := &fakeProvider{}
	f := NewFetcher(p, 2, time.Hour, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	results := f.FetchAll(ctx, []string{"A", "B", "C", "D"}, time.Now())

	if len(p.calls) != 2 {
		t.Errorf("provider calls = %v, want only the first batch", p.calls)
	}
	for _, sym := range []string{"C", "D"} {
		if !errors.Is(results[sym].Err, context.Canceled) {
			t.Errorf("%s err = %v, want context.Canceled", sym, results[sym].Err)
		}
	}
}

func TestNormalizeBar(t *testing.T) {
	bar, err := NormalizeBar(fmp.EODBar{Symbol: "aapl", Date: "2024-01-02", Close: 185.64, ChangePercent: -0.8068, VWAP: 185.99, Volume: 10})
	if err != nil {
		t.Fatalf("NormalizeBar: %v", err)
	}
	if bar.Symbol != "AAPL" || bar.Date.Format(models.DateLayout) != "2024-01-02" {
		t.Errorf("identity = %s %s", bar.Symbol, bar.Date)
	}
	if !bar.ChangePercent.Equal(decimal.RequireFromString("-0.8068")) {
		t.Errorf("ChangePercent = %s, want -0.8068", bar.ChangePercent)
	}
	if !bar.Close.Equal(decimal.RequireFromString("185.64")) {
		t.Errorf("Close = %s, want 185.64", bar.Close)
	}

	if _, err := NormalizeBar(fmp.EODBar{Symbol: "AAPL", Date: "bad"}); err == nil {
		t.Error("expected error for malformed date")
	}
	if _, err := NormalizeBar(fmp.EODBar{Date: "2024-01-02"}); err == nil {
		t.Error("expected error for missing symbol")
	}
}

// recordingStore counts store calls and keeps every row it receives.
type recordingStore struct {
	calls int
	rows  []models.PriceBar
	err   error
}

func (s *recordingStore) UpsertBars(_ context.Context, bars []models.PriceBar) error {
	s.calls++
	s.rows = append(s.rows, bars...)
	return s.err
}

func TestPersistSingleBulkWrite(t *testing.T) {
	store := &recordingStore{}
	w := NewWriter(store)

	n, err := w.Persist(context.Background(), map[string]Result{
		"AAPL": {Bars: []fmp.EODBar{eod("AAPL", "2024-01-01", 184), eod("AAPL", "2024-01-02", 185)}},
		"MSFT": {Err: errors.New("timeout")},
		"NVDA": {},
		"TSLA": {Bars: []fmp.EODBar{eod("", "2024-01-02", 240)}},
	})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1", store.calls)
	}
	if n != 3 || len(store.rows) != 3 {
		t.Fatalf("rows = %d (returned %d), want 3", len(store.rows), n)
	}
	if store.rows[2].Symbol != "TSLA" {
		t.Errorf("blank provider symbol should fall back to ticker, got %q", store.rows[2].Symbol)
	}
}

func TestPersistCollapsesDuplicateKeys(t *testing.T) {
	store := &recordingStore{}
	_, err := NewWriter(store).Persist(context.Background(), map[string]Result{
		"AAPL": {Bars: []fmp.EODBar{eod("AAPL", "2024-01-02", 185), eod("AAPL", "2024-01-02", 186)}},
	})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if len(store.rows) != 1 || !store.rows[0].Close.Equal(decimal.NewFromInt(186)) {
		t.Errorf("rows = %+v, want single row with close 186", store.rows)
	}
}

func TestPersistEmptyIsNoop(t *testing.T) {
	store := &recordingStore{}
	n, err := NewWriter(store).Persist(context.Background(), map[string]Result{
		"AAPL": {Err: errors.New("boom")},
		"MSFT": {},
	})
	if err != nil || n != 0 {
		t.Errorf("Persist = %d, %v; want 0, nil", n, err)
	}
	if store.calls != 0 {
		t.Errorf("store calls = %d, want 0", store.calls)
	}
}

func TestPersistStoreError(t *testing.T) {
	store := &recordingStore{err: errors.New("connection refused")}
	_, err := NewWriter(store).Persist(context.Background(), map[string]Result{
		"AAPL": {Bars: []fmp.EODBar{eod("AAPL", "2024-01-02", 185)}},
	})
	if err == nil {
		t.Fatal("expected store error to surface")
	}
}

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) Publish(event string, _ interface{}) {
	p.events = append(p.events, event)
}

func TestJobRunEndToEnd(t *testing.T) {
	store := memstore.New()
	p := &fakeProvider{
		bars: map[string][]fmp.EODBar{
			"AAPL": {eod("AAPL", "2024-01-01", 180), eod("AAPL", "2024-01-02", 185)},
			"MSFT": {eod("MSFT", "2024-01-02", 370)},
		},
		fail: map[string]error{"NVDA": errors.New("API error: 500")},
	}
	pub := &recordingPublisher{}
	job := NewJob(
		market.NewUniverse([]string{"AAPL", "MSFT", "AAPL", "NVDA"}),
		NewFetcher(p, 5, 0, time.Second),
		NewWriter(store),
		pub,
	)
	asOf := time.Date(2024, 1, 2, 22, 0, 0, 0, time.UTC)

	summary, err := job.Run(context.Background(), asOf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TickersProcessed != 3 || summary.TickersFailed != 1 || summary.RowsWritten != 3 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.FailedTickers) != 1 || summary.FailedTickers[0] != "NVDA" {
		t.Errorf("FailedTickers = %v, want [NVDA]", summary.FailedTickers)
	}

	// rerun with a revised close overwrites in place
	p.bars["AAPL"] = []fmp.EODBar{eod("AAPL", "2024-01-01", 180), eod("AAPL", "2024-01-02", 186)}
	if _, err := job.Run(context.Background(), asOf); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if store.Len() != 3 {
		t.Fatalf("store has %d rows, want 3", store.Len())
	}

	// page size 2 forces the window read across pages
	windows, err := market.NewAggregator(store, 2).GetWindow(context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetWindow: %v", err)
	}
	if len(windows) != 2 || windows[0].Symbol != "AAPL" || windows[1].Symbol != "MSFT" {
		t.Fatalf("windows = %+v, want AAPL then MSFT", windows)
	}
	aapl := windows[0]
	if len(aapl.Bars) != 2 || !aapl.LatestClose.Equal(decimal.NewFromInt(186)) || !aapl.WindowChange.Equal(decimal.NewFromInt(6)) {
		t.Errorf("AAPL window = latest %v change %v over %d bars, want 186, 6, 2", aapl.LatestClose, aapl.WindowChange, len(aapl.Bars))
	}
	if !windows[1].LatestClose.Equal(decimal.NewFromInt(370)) || !windows[1].WindowChange.IsZero() {
		t.Errorf("MSFT window = %+v, want latest 370 and no change", windows[1])
	}

	if len(pub.events) != 2 || pub.events[0] != EventIngestCompleted {
		t.Errorf("events = %v, want two %s", pub.events, EventIngestCompleted)
	}

	calls := append([]string(nil), p.calls...)
	sort.Strings(calls)
	if len(calls) != 6 {
		t.Errorf("provider calls = %v, want each distinct ticker once per run", calls)
	}
}

// cancellingProvider cancels the run on its first call and otherwise ignores ctx.
type cancellingProvider struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (p *cancellingProvider) FetchEOD(_ context.Context, symbol string, _, _ time.Time) ([]fmp.EODBar, error) {
	p.once.Do(p.cancel)
	return []fmp.EODBar{eod(symbol, "2024-01-02", 100)}, nil
}

// contextStore refuses writes whose context is already done, like a GORM session.
type contextStore struct {
	recordingStore
}

func (s *contextStore) UpsertBars(ctx context.Context, bars []models.PriceBar) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.recordingStore.UpsertBars(ctx, bars)
}

func TestJobRunCancelledKeepsFetchedBars(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &contextStore{}
	job := NewJob(
		market.NewUniverse([]string{"A", "B", "C", "D"}),
		NewFetcher(&cancellingProvider{cancel: cancel}, 2, 0, time.Second),
		NewWriter(store),
		nil,
	)

	summary, err := job.Run(ctx, time.Date(2024, 1, 2, 22, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.rows) != 2 || summary.RowsWritten != 2 {
		t.Errorf("stored %d rows (summary %d), want the 2 fetched before cancellation", len(store.rows), summary.RowsWritten)
	}
	if summary.TickersFailed != 2 {
		t.Errorf("TickersFailed = %d, want 2", summary.TickersFailed)
	}
}

func TestJobRunWriteFailure(t *testing.T) {
	p := &fakeProvider{bars: map[string][]fmp.EODBar{"AAPL": {eod("AAPL", "2024-01-02", 185)}}}
	pub := &recordingPublisher{}
	job := NewJob(
		market.NewUniverse([]string{"AAPL"}),
		NewFetcher(p, 5, 0, time.Second),
		NewWriter(&recordingStore{err: errors.New("db down")}),
		pub,
	)

	summary, err := job.Run(context.Background(), time.Now())
	if err == nil {
		t.Fatal("expected write failure")
	}
	if summary.Error == "" || len(pub.events) != 1 || pub.events[0] != EventIngestFailed {
		t.Errorf("summary = %+v, events = %v", summary, pub.events)
	}
}
