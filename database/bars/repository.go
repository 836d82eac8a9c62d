package bars

import (
	"context"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trade-journal/database"
	models "trade-journal/database/models_pkg"
)

// upsertChunkSize bounds the number of rows per INSERT statement to stay well under
// PostgreSQL's 65535 bind parameter limit (12 columns per row).
const upsertChunkSize = 500

// overwriteColumns are replaced when a (symbol, date) row already exists
var overwriteColumns = []string{
	"open", "high", "low", "close", "volume",
	"change", "change_percent", "vwap", "updated_at",
}

// Repository handles database operations for end-of-day price bars
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new price bar repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertBars writes bars keyed on (symbol, date); existing rows are overwritten.
// Callers must not pass two bars with the same key in one call.
func (r *Repository) UpsertBars(ctx context.Context, bars []models.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns(overwriteColumns),
		}).
		CreateInBatches(&bars, upsertChunkSize).Error
	return database.WrapDBError("UpsertBars", err)
}

// PageBars returns one page of bars with start <= date <= end, ordered by (symbol, date).
func (r *Repository) PageBars(ctx context.Context, start, end time.Time, limit, offset int) ([]models.PriceBar, error) {
	var out []models.PriceBar
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", start.Format(models.DateLayout), end.Format(models.DateLayout)).
		Order("symbol ASC").
		Order("date ASC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, database.WrapDBError("PageBars", err)
	}
	return out, nil
}

// LatestSnapshots returns the most recent bar per symbol. When symbols is non-empty
// only those symbols are returned.
func (r *Repository) LatestSnapshots(ctx context.Context, symbols []string) ([]models.LatestSnapshot, error) {
	var out []models.LatestSnapshot
	query := r.db.WithContext(ctx).Order("symbol ASC")

	if len(symbols) > 0 {
		query = query.Where("symbol = ANY(?)", pq.Array(symbols))
	}

	if err := query.Find(&out).Error; err != nil {
		return nil, database.WrapDBError("LatestSnapshots", err)
	}
	return out, nil
}
