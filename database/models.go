// Package database provides database connection management for the trade journal market-data service.
//
// This package includes:
//   - Database connection management using GORM and PostgreSQL
//   - Schema initialization for end-of-day price bars and watchlist preferences
//   - The stock_latest_snapshot view used for "current price" displays
//   - Error types shared by the repositories
//
// Data Models:
//
//	All data models (PriceBar, LatestSnapshot, WatchlistPreference) are defined in the models_pkg
//	package so repository subpackages can import them without cycles.
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "trade-journal/database/models_pkg"
)

// Database holds the GORM database connection and provides access to the underlying DB instance.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance for repositories.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes database connection using GORM
func Connect(host string, port int, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	return Open(dsn)
}

// Open establishes a database connection from a full PostgreSQL DSN
func Open(dsn string) (*Database, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{db: db}, nil
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Type aliases so callers can use database.PriceBar without importing models_pkg.
type PriceBar = models.PriceBar
type LatestSnapshot = models.LatestSnapshot
type WatchlistPreference = models.WatchlistPreference
