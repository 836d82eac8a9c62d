package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"trade-journal/cache"
	"trade-journal/ingest"
	"trade-journal/market"
	"trade-journal/watchlist"
)

// IngestRunner runs the write path once for a given day.
type IngestRunner interface {
	Run(ctx context.Context, asOf time.Time) (ingest.RunSummary, error)
}

// WindowReader aggregates price bars over a date window.
type WindowReader interface {
	GetWindow(ctx context.Context, start, end time.Time) ([]market.WindowAggregate, error)
}

// WatchlistComposer builds a user's watchlist.
type WatchlistComposer interface {
	Compose(ctx context.Context, userID string) ([]watchlist.Item, error)
	ComposeVisible(ctx context.Context, userID string) ([]watchlist.Item, error)
}

// PreferenceStore reads and writes per-user symbol visibility.
type PreferenceStore interface {
	VisibilityFor(ctx context.Context, userID string) (map[string]bool, error)
	SetVisibility(ctx context.Context, userID string, prefs map[string]bool) error
}

// Deps are the collaborators the HTTP surface delegates to. Events, EventsWS and
// WindowCache may be nil.
type Deps struct {
	Ingest      IngestRunner
	Windows     WindowReader
	WindowCache *cache.WindowCache
	Watchlist   WatchlistComposer
	Preferences PreferenceStore
	Events      http.Handler
	EventsWS    http.Handler
	CronSecret  string
	WindowDays  int
}

// Server handles HTTP API requests
type Server struct {
	ingest      IngestRunner
	windows     WindowReader
	windowCache *cache.WindowCache
	watchlist   WatchlistComposer
	prefs       PreferenceStore
	events      http.Handler
	eventsWS    http.Handler
	cronSecret  string
	windowDays  int
	now         func() time.Time
	httpServer  *http.Server
}

// NewServer creates a new API server instance
func NewServer(deps Deps) *Server {
	windowDays := deps.WindowDays
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	windowCache := deps.WindowCache
	if windowCache == nil {
		windowCache = cache.NewWindowCache(nil)
	}

	return &Server{
		ingest:      deps.Ingest,
		windows:     deps.Windows,
		windowCache: windowCache,
		watchlist:   deps.Watchlist,
		prefs:       deps.Preferences,
		events:      deps.Events,
		eventsWS:    deps.EventsWS,
		cronSecret:  deps.CronSecret,
		windowDays:  windowDays,
		now:         time.Now,
	}
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Write path
	mux.HandleFunc("GET /api/cron/stock-data", s.handleCronStockData)

	// Read path
	mux.HandleFunc("GET /api/stocks/historical", s.handleGetHistorical)
	mux.HandleFunc("GET /api/watchlist", s.handleGetWatchlist)
	mux.HandleFunc("GET /api/watchlist/preferences", s.handleGetPreferences)
	mux.HandleFunc("POST /api/watchlist/preferences", s.handleSetPreferences)
	mux.HandleFunc("PUT /api/watchlist/preferences", s.handleSetPreference)

	if s.events != nil {
		mux.Handle("GET /api/events", s.events) // SSE Endpoint
	}
	if s.eventsWS != nil {
		mux.Handle("GET /api/ws", s.eventsWS)
	}

	mux.HandleFunc("GET /health", s.handleHealth)

	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Start serves on the given port until Shutdown is called
func (s *Server) Start(port int) error {
	serverAddr := fmt.Sprintf("0.0.0.0:%d", port)
	s.httpServer = &http.Server{
		Addr:              serverAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 API Server starting on %s", serverAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+userIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// Handlers are distributed across multiple files:
// - handlers_ingest.go: Scheduled ingestion trigger
// - handlers_stocks.go: Historical window aggregates
// - handlers_watchlist.go: Watchlist and visibility preferences
// - handlers_health.go: Health check
