package database

import (
	"fmt"
	"log"
)

// InitSchema performs auto-migration and creates the latest-snapshot view
func (d *Database) InitSchema() error {
	log.Println("🔄 Starting database schema initialization...")

	// The view depends on stock_eod_data columns; drop it so AutoMigrate can alter the table
	if err := d.db.Exec("DROP VIEW IF EXISTS stock_latest_snapshot").Error; err != nil {
		log.Printf("⚠️ Warning: Failed to drop view stock_latest_snapshot: %v", err)
	}

	if err := d.db.AutoMigrate(
		&PriceBar{},
		&WatchlistPreference{},
	); err != nil {
		return WrapDBError("auto-migration", err)
	}

	// Range reads filter on date and order by (symbol, date); the unique index covers the order
	if err := d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_stock_eod_date
		ON stock_eod_data (date)
	`).Error; err != nil {
		log.Printf("⚠️ Warning: Failed to create idx_stock_eod_date: %v", err)
	}

	if err := d.db.Exec(`
		CREATE OR REPLACE VIEW stock_latest_snapshot AS
		SELECT DISTINCT ON (symbol)
			id,
			symbol,
			date,
			close,
			change_percent
		FROM stock_eod_data
		ORDER BY symbol, date DESC
	`).Error; err != nil {
		return fmt.Errorf("failed to create stock_latest_snapshot view: %w", err)
	}

	log.Println("✅ Database schema initialization completed successfully")
	return nil
}
