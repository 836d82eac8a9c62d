package preferences

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trade-journal/database"
	models "trade-journal/database/models_pkg"
)

// Repository handles database operations for per-user watchlist visibility
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new watchlist preference repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// VisibilityFor returns symbol -> is_visible for the user. Symbols without a row are absent.
func (r *Repository) VisibilityFor(ctx context.Context, userID string) (map[string]bool, error) {
	var rows []models.WatchlistPreference
	if err := r.db.WithContext(ctx).
		Select("symbol", "is_visible").
		Where("user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, database.WrapDBError("VisibilityFor", err)
	}

	prefs := make(map[string]bool, len(rows))
	for _, row := range rows {
		prefs[row.Symbol] = row.IsVisible
	}
	return prefs, nil
}

// SetVisibility upserts the given preferences for the user keyed on (user_id, symbol)
func (r *Repository) SetVisibility(ctx context.Context, userID string, prefs map[string]bool) error {
	if err := database.ValidatePreferences(userID, prefs); err != nil {
		return err
	}
	if len(prefs) == 0 {
		return nil
	}

	// Sorted so repeated calls issue identical statements
	symbols := make([]string, 0, len(prefs))
	for symbol := range prefs {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	now := time.Now()
	rows := make([]models.WatchlistPreference, 0, len(symbols))
	for _, symbol := range symbols {
		rows = append(rows, models.WatchlistPreference{
			UserID:    userID,
			Symbol:    symbol,
			IsVisible: prefs[symbol],
			UpdatedAt: now,
		})
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_visible", "updated_at"}),
		}).
		Create(&rows).Error
	return database.WrapDBError("SetVisibility", err)
}
