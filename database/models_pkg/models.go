package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar-day layout used for bar dates on the wire and in the store.
const DateLayout = "2006-01-02"

// PriceBar represents one symbol's end-of-day trading activity for one calendar date.
// Rows are unique per (Symbol, Date); ingestion overwrites an existing row rather than appending.
//
// Key Fields:
//   - Symbol: The ticker symbol (part of the unique key)
//   - Date: The trading day, stored as SQL DATE (part of the unique key)
//   - Open/High/Low/Close: Daily OHLC prices
//   - Change: Close minus previous close
//   - ChangePercent: Daily percentage change (stored as change_percent)
//   - VWAP: Volume-weighted average price
type PriceBar struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol        string          `gorm:"size:16;not null;uniqueIndex:idx_stock_eod_symbol_date,priority:1" json:"symbol"`
	Date          time.Time       `gorm:"type:date;not null;uniqueIndex:idx_stock_eod_symbol_date,priority:2" json:"date"`
	Open          decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"open"`
	High          decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"high"`
	Low           decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"low"`
	Close         decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"close"`
	Volume        int64           `gorm:"not null" json:"volume"`
	Change        decimal.Decimal `gorm:"type:numeric(18,4)" json:"change"`
	ChangePercent decimal.Decimal `gorm:"column:change_percent;type:numeric(18,4)" json:"change_percent"`
	VWAP          decimal.Decimal `gorm:"column:vwap;type:numeric(18,4)" json:"vwap"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for PriceBar
func (PriceBar) TableName() string {
	return "stock_eod_data"
}

// Key returns the (symbol, date) identity of the bar as "SYMBOL|YYYY-MM-DD".
func (b PriceBar) Key() string {
	return b.Symbol + "|" + b.Date.Format(DateLayout)
}

// LatestSnapshot is the most recent PriceBar per symbol, read from the stock_latest_snapshot view.
type LatestSnapshot struct {
	ID            int64           `gorm:"column:id" json:"id"`
	Symbol        string          `gorm:"column:symbol" json:"symbol"`
	Date          time.Time       `gorm:"column:date" json:"date"`
	Close         decimal.Decimal `gorm:"column:close" json:"close"`
	ChangePercent decimal.Decimal `gorm:"column:change_percent" json:"change_percent"`
}

// TableName specifies the view name for LatestSnapshot
func (LatestSnapshot) TableName() string {
	return "stock_latest_snapshot"
}

// WatchlistPreference stores whether a symbol is shown in a user's watchlist.
// Absence of a row means the symbol is hidden for that user.
type WatchlistPreference struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"size:128;not null;uniqueIndex:idx_watchlist_pref_user_symbol,priority:1" json:"user_id"`
	Symbol    string    `gorm:"size:16;not null;uniqueIndex:idx_watchlist_pref_user_symbol,priority:2" json:"symbol"`
	IsVisible bool      `gorm:"not null;default:false" json:"is_visible"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for WatchlistPreference
func (WatchlistPreference) TableName() string {
	return "user_watchlist_preferences"
}
