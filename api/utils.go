package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	models "trade-journal/database/models_pkg"
)

const (
	userIDHeader      = "X-User-ID"
	defaultWindowDays = 90
	maxWindowDays     = 3650
)

// getIntParam retrieves an integer query parameter with default value and optional range validation
func getIntParam(r *http.Request, key string, defaultVal int, minVal, maxVal *int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}

	if minVal != nil && val < *minVal {
		return defaultVal
	}
	if maxVal != nil && val > *maxVal {
		return defaultVal
	}

	return val
}

// getDateParam parses a YYYY-MM-DD query parameter; ok is false when absent
func getDateParam(r *http.Request, key string) (t time.Time, ok bool, err error) {
	valStr := strings.TrimSpace(r.URL.Query().Get(key))
	if valStr == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(models.DateLayout, valStr)
	return t, true, err
}

// utcDay truncates t to midnight UTC
func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// userID returns the caller identity forwarded by the auth proxy
func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userIDHeader))
}

// writeJSON encodes v with the given status code
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("API Error: failed to encode response: %v", err)
	}
}

// respondWithError logs the error and sends a JSON error response
// Use this to avoid exposing internal errors while still logging them
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil {
		log.Printf("API Error [%d]: %s - %v", code, message, err)
	} else {
		log.Printf("API Error [%d]: %s", code, message)
	}
	writeJSON(w, code, map[string]string{"error": message})
}
