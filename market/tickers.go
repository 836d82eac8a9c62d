// Package market holds the ticker universe, the rolling-window aggregator over stored
// end-of-day bars, and the response cache policy for aggregated reads.
package market

import "strings"

// DefaultTickers is the symbol list tracked by the daily ingestion job.
var DefaultTickers = []string{
	"AAPL", "TSLA", "AMZN", "MSFT", "NVDA", "GOOGL", "META", "NFLX", "JPM", "V",
	"BAC", "AMD", "PYPL", "DIS", "T", "PFE", "COST", "INTC", "KO", "TGT",
	"NKE", "SPY", "BA", "BABA", "XOM", "WMT", "GE", "CSCO", "VZ", "JNJ",
	"CVX", "PLTR", "SQ", "SHOP", "SBUX", "SOFI", "HOOD", "RBLX", "SNAP", "UBER",
	"FDX", "ABBV", "ETSY", "MRNA", "LMT", "GM", "F", "RIVN", "LCID", "CCL",
	"DAL", "UAL", "AAL", "TSM", "SONY", "ET", "NOK", "MRO", "COIN", "RIOT",
	"CPRX", "VWO", "SPYG", "ROKU", "ATVI", "BIDU", "DOCU", "ZM", "PINS", "TLRY",
	"WBA", "MGM", "NIO", "C", "GS", "WFC",
}

// Universe is an immutable, de-duplicated ordered set of ticker symbols.
type Universe struct {
	symbols []string
}

// NewUniverse normalizes symbols (trimmed, upper-cased, blanks dropped) and removes
// duplicates, keeping the first occurrence's position.
func NewUniverse(symbols []string) Universe {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return Universe{symbols: out}
}

// List returns the symbols in universe order. The slice is a copy.
func (u Universe) List() []string {
	out := make([]string, len(u.symbols))
	copy(out, u.symbols)
	return out
}

// Len returns the number of distinct symbols.
func (u Universe) Len() int { return len(u.symbols) }
