package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-journal/api"
	"trade-journal/cache"
	"trade-journal/config"
	"trade-journal/database"
	"trade-journal/database/bars"
	"trade-journal/database/memstore"
	"trade-journal/database/preferences"
	"trade-journal/fmp"
	"trade-journal/ingest"
	"trade-journal/market"
	"trade-journal/realtime"
	"trade-journal/watchlist"
)

// barStore is everything the pipeline needs from price bar persistence
type barStore interface {
	ingest.BarStore
	market.BarPager
	watchlist.SnapshotSource
}

// App represents the main application
type App struct {
	config      *config.Config
	db          *database.Database
	redis       *cache.RedisClient
	bars        barStore
	prefs       api.PreferenceStore
	windowCache *cache.WindowCache
	broker      *realtime.Broker
	job         *ingest.Job
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{config: cfg}
}

// Init connects persistence and the cache and builds the ingestion job
func (a *App) Init() error {
	switch a.config.StoreDriver {
	case "memory":
		log.Println("⚠️  Using in-memory store; data is lost on exit")
		store := memstore.New()
		a.bars = store
		a.prefs = store

	case "postgres", "":
		fmt.Println("🗄️  Connecting to database...")
		dbPort, err := a.config.DatabasePortInt()
		if err != nil {
			return err
		}
		db, err := database.Connect(
			a.config.DatabaseHost,
			dbPort,
			a.config.DatabaseName,
			a.config.DatabaseUser,
			a.config.DatabasePassword,
		)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		a.db = db

		if err := a.db.InitSchema(); err != nil {
			return fmt.Errorf("schema initialization failed: %w", err)
		}
		a.bars = bars.NewRepository(db.DB())
		a.prefs = preferences.NewRepository(db.DB())

	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", a.config.StoreDriver)
	}

	fmt.Println("🧠 Connecting to Redis...")
	a.redis = cache.NewRedisClient(a.config.RedisHost, a.config.RedisPort, a.config.RedisPassword)
	if a.redis == nil {
		fmt.Println("⚠️  Redis connection failed. Caching disabled.")
	}
	a.windowCache = cache.NewWindowCache(a.redis)

	a.broker = realtime.NewBroker()

	universe := market.NewUniverse(market.DefaultTickers)
	if len(a.config.Ingest.Tickers) > 0 {
		universe = market.NewUniverse(a.config.Ingest.Tickers)
	}
	if a.config.Provider.APIKey == "" {
		log.Println("⚠️  FMP_API_KEY is not set; every ticker fetch will fail")
	}

	provider := fmp.NewClient(a.config.Provider.BaseURL, a.config.Provider.APIKey, a.config.Ingest.FetchTimeout)
	a.job = ingest.NewJob(
		universe,
		ingest.NewFetcher(provider, a.config.Ingest.BatchSize, a.config.Ingest.BatchDelay, a.config.Ingest.FetchTimeout),
		ingest.NewWriter(a.bars),
		a.broker,
	)
	log.Printf("✅ Ingestion job ready for %d tickers", universe.Len())
	return nil
}

// Run executes one ingestion and drops cached windows when new rows were written
func (a *App) Run(ctx context.Context, asOf time.Time) (ingest.RunSummary, error) {
	summary, err := a.job.Run(ctx, asOf)
	if err == nil && summary.RowsWritten > 0 {
		a.windowCache.Invalidate(ctx)
	}
	return summary, err
}

// Start serves the API and runs scheduled ingestion until SIGINT/SIGTERM
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Init(); err != nil {
		return err
	}

	go a.broker.Run(ctx)

	scheduler := NewIngestScheduler(ctx, a)
	if err := scheduler.Register(a.config.Ingest.Schedule); err != nil {
		return err
	}
	scheduler.Start()

	apiServer := api.NewServer(api.Deps{
		Ingest:      a,
		Windows:     market.NewAggregator(a.bars, a.config.Read.PageSize),
		WindowCache: a.windowCache,
		Watchlist:   watchlist.NewComposer(a.bars, a.prefs),
		Preferences: a.prefs,
		Events:      a.broker,
		EventsWS:    a.broker.WebSocketHandler(),
		CronSecret:  a.config.CronSecretKey,
		WindowDays:  a.config.Read.WindowDays,
	})
	if a.config.CronSecretKey == "" {
		log.Println("⚠️  CRON_SECRET_KEY is not set; the cron endpoint rejects every request")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- apiServer.Start(a.config.APIPort)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-interrupt:
		fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("API server failed: %w", err)
		}
	}

	cancel()
	return errors.Join(runErr, a.shutdown(scheduler, apiServer))
}

// shutdown stops components in reverse start order with a timeout
func (a *App) shutdown(scheduler *IngestScheduler, apiServer *api.Server) error {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	shutdownComplete := make(chan struct{})
	go func() {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down API server: %v", err)
		}

		fmt.Println("🔄 Stopping ingestion scheduler...")
		scheduler.Stop()

		a.Close()
		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}

// Close releases the database and Redis connections
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		} else {
			fmt.Println("✅ Database connection closed")
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("Error closing redis: %v", err)
		} else {
			fmt.Println("✅ Redis connection closed")
		}
	}
}
