package api

import (
	"context"
	"crypto/subtle"
	"net/http"
)

// handleCronStockData runs one ingestion for today. Callers must present the shared
// cron secret as a bearer token.
func (s *Server) handleCronStockData(w http.ResponseWriter, r *http.Request) {
	if !s.authorizedCron(r) {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	// A client hanging up must not abort a half-finished run.
	summary, err := s.ingest.Run(context.WithoutCancel(r.Context()), s.now().UTC())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":          "Stock data fetched and stored successfully",
		"tickersProcessed": summary.TickersProcessed,
		"tickersFailed":    summary.TickersFailed,
		"rowsWritten":      summary.RowsWritten,
	})
}

func (s *Server) authorizedCron(r *http.Request) bool {
	if s.cronSecret == "" {
		return false
	}
	want := "Bearer " + s.cronSecret
	got := r.Header.Get("Authorization")
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
