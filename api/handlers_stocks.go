package api

import (
	"errors"
	"net/http"

	models "trade-journal/database/models_pkg"
	"trade-journal/market"
)

// HistoricalBar is one day of a symbol's history in the historical response
type HistoricalBar struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        int64   `json:"volume"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// HistoricalStock is one symbol's window in the historical response
type HistoricalStock struct {
	Symbol              string          `json:"symbol"`
	Data                []HistoricalBar `json:"data"`
	LatestPrice         float64         `json:"latestPrice"`
	LatestChange        float64         `json:"latestChange"`
	LatestChangePercent float64         `json:"latestChangePercent"`
}

// handleGetHistorical returns per-symbol windows for ?days=N (ending today) or
// ?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (s *Server) handleGetHistorical(w http.ResponseWriter, r *http.Request) {
	now := s.now()

	start, hasStart, err := getDateParam(r, "start")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid start date, expected YYYY-MM-DD", err)
		return
	}
	end, hasEnd, err := getDateParam(r, "end")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid end date, expected YYYY-MM-DD", err)
		return
	}
	if !hasEnd {
		end = utcDay(now)
	}
	if !hasStart {
		minDays, maxDays := 1, maxWindowDays
		days := getIntParam(r, "days", s.windowDays, &minDays, &maxDays)
		start = end.AddDate(0, 0, -days)
	}

	var response []HistoricalStock
	if s.windowCache.Get(r.Context(), start, end, &response) {
		w.Header().Set("X-Cache", "HIT")
		w.Header().Set("Cache-Control", market.CacheControlHeader(now))
		writeJSON(w, http.StatusOK, response)
		return
	}

	windows, err := s.windows.GetWindow(r.Context(), start, end)
	if errors.Is(err, market.ErrInvalidRange) {
		respondWithError(w, http.StatusBadRequest, "start must not be after end", err)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Database error", err)
		return
	}

	response = make([]HistoricalStock, 0, len(windows))
	for _, win := range windows {
		response = append(response, toHistoricalStock(win))
	}

	s.windowCache.Set(r.Context(), start, end, response, market.CacheTTL(now))

	w.Header().Set("X-Cache", "MISS")
	w.Header().Set("Cache-Control", market.CacheControlHeader(now))
	writeJSON(w, http.StatusOK, response)
}

func toHistoricalStock(win market.WindowAggregate) HistoricalStock {
	data := make([]HistoricalBar, 0, len(win.Bars))
	for _, b := range win.Bars {
		data = append(data, HistoricalBar{
			Date:          b.Date.Format(models.DateLayout),
			Open:          b.Open.InexactFloat64(),
			High:          b.High.InexactFloat64(),
			Low:           b.Low.InexactFloat64(),
			Close:         b.Close.InexactFloat64(),
			Volume:        b.Volume,
			Change:        b.Change.InexactFloat64(),
			ChangePercent: b.ChangePercent.InexactFloat64(),
		})
	}

	return HistoricalStock{
		Symbol:              win.Symbol,
		Data:                data,
		LatestPrice:         win.LatestClose.InexactFloat64(),
		LatestChange:        win.WindowChange.InexactFloat64(),
		LatestChangePercent: win.WindowChangePercent.InexactFloat64(),
	}
}
