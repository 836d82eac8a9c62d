package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"trade-journal/cache"
	"trade-journal/config"
	"trade-journal/database/memstore"
	"trade-journal/fmp"
	"trade-journal/ingest"
	"trade-journal/market"
)

type stubProvider struct{}

func (stubProvider) FetchEOD(_ context.Context, symbol string, _, to time.Time) ([]fmp.EODBar, error) {
	return []fmp.EODBar{{Symbol: symbol, Date: to.Format(fmp.DateLayout), Close: 10}}, nil
}

type recordingRunner struct {
	mu   sync.Mutex
	runs []time.Time
}

func (r *recordingRunner) Run(_ context.Context, asOf time.Time) (ingest.RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, asOf)
	return ingest.RunSummary{}, nil
}

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	s := NewIngestScheduler(context.Background(), &recordingRunner{})
	if err := s.Register("not a cron spec"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if err := s.Register("0 22 * * 1-5"); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestSchedulerRunOnceUsesUTC(t *testing.T) {
	runner := &recordingRunner{}
	s := NewIngestScheduler(context.Background(), runner)
	local := time.Date(2024, 1, 2, 17, 0, 0, 0, time.FixedZone("EST", -5*3600))
	s.now = func() time.Time { return local }

	s.runOnce()

	if len(runner.runs) != 1 || runner.runs[0].Location() != time.UTC || !runner.runs[0].Equal(local) {
		t.Errorf("runs = %v, want one UTC run at %v", runner.runs, local.UTC())
	}
}

func TestAppRunWritesThroughJob(t *testing.T) {
	store := memstore.New()
	a := &App{
		config:      &config.Config{},
		bars:        store,
		prefs:       store,
		windowCache: cache.NewWindowCache(nil),
		job: ingest.NewJob(
			market.NewUniverse([]string{"AAPL", "MSFT"}),
			ingest.NewFetcher(stubProvider{}, 5, 0, time.Second),
			ingest.NewWriter(store),
			nil,
		),
	}

	summary, err := a.Run(context.Background(), time.Date(2024, 1, 2, 22, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RowsWritten != 2 || store.Len() != 2 {
		t.Errorf("rows written = %d, stored = %d, want 2", summary.RowsWritten, store.Len())
	}
}

func TestInitRejectsUnknownDriver(t *testing.T) {
	a := New(&config.Config{StoreDriver: "sqlite"})
	if err := a.Init(); err == nil {
		t.Fatal("expected error for unknown store driver")
	}
}
