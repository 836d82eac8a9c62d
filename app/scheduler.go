package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"trade-journal/api"
)

// IngestScheduler triggers the ingestion job on a cron schedule evaluated in UTC
type IngestScheduler struct {
	cron   *cron.Cron
	runner api.IngestRunner
	ctx    context.Context
	now    func() time.Time
}

// NewIngestScheduler creates a scheduler; runs are skipped while a previous one is still active
func NewIngestScheduler(ctx context.Context, runner api.IngestRunner) *IngestScheduler {
	return &IngestScheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		runner: runner,
		ctx:    ctx,
		now:    time.Now,
	}
}

// Register adds the ingestion job under a standard 5-field cron spec
func (s *IngestScheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return fmt.Errorf("register ingestion schedule %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler
func (s *IngestScheduler) Start() {
	s.cron.Start()
	log.Println("🔄 Ingestion scheduler started")
}

// Stop stops scheduling and waits for a running job to finish
func (s *IngestScheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🔄 Ingestion scheduler stopped")
}

func (s *IngestScheduler) runOnce() {
	if _, err := s.runner.Run(s.ctx, s.now().UTC()); err != nil {
		log.Printf("❌ Scheduled ingestion failed: %v", err)
	}
}
