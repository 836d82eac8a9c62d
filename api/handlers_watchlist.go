package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"trade-journal/database"
	"trade-journal/watchlist"
)

// handleGetWatchlist returns the caller's watchlist; ?visible=true keeps only visible symbols
func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var (
		items []watchlist.Item
		err   error
	)
	if r.URL.Query().Get("visible") == "true" {
		items, err = s.watchlist.ComposeVisible(r.Context(), uid)
	} else {
		items, err = s.watchlist.Compose(r.Context(), uid)
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Database error", err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	prefs, err := s.prefs.VisibilityFor(r.Context(), uid)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch preferences", err)
		return
	}
	if prefs == nil {
		prefs = map[string]bool{}
	}

	writeJSON(w, http.StatusOK, prefs)
}

// handleSetPreferences bulk-upserts {"preferences": {"AAPL": true, ...}}
func (s *Server) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var body struct {
		Preferences map[string]bool `json:"preferences"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Preferences == nil {
		respondWithError(w, http.StatusBadRequest, "Invalid preferences format", err)
		return
	}

	prefs := make(map[string]bool, len(body.Preferences))
	for symbol, visible := range body.Preferences {
		symbol = normalizeSymbol(symbol)
		if symbol == "" {
			respondWithError(w, http.StatusBadRequest, "Invalid preferences format", nil)
			return
		}
		prefs[symbol] = visible
	}

	if err := s.prefs.SetVisibility(r.Context(), uid, prefs); err != nil {
		if database.IsValidationError(err) {
			respondWithError(w, http.StatusBadRequest, err.Error(), err)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to update preferences", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleSetPreference upserts a single {"symbol": "AAPL", "is_visible": true}
func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var body struct {
		Symbol    string `json:"symbol"`
		IsVisible *bool  `json:"is_visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	symbol := normalizeSymbol(body.Symbol)
	if symbol == "" || body.IsVisible == nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}

	if err := s.prefs.SetVisibility(r.Context(), uid, map[string]bool{symbol: *body.IsVisible}); err != nil {
		if database.IsValidationError(err) {
			respondWithError(w, http.StatusBadRequest, err.Error(), err)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to update preference", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
