package postgres

import (
	"context"
	"database/sql"

	"github.com/recipeforge/admission/internal/model"
)

// FoodItemRepository reads the external, read-only master food table.
type FoodItemRepository struct {
	db *sql.DB
}

func NewFoodItemRepository(db *sql.DB) *FoodItemRepository {
	return &FoodItemRepository{db: db}
}

// ListAll returns every food item, ordered by id, so repeated snapshots
// within the same migration state produce the same first-seen order.
func (r *FoodItemRepository) ListAll(ctx context.Context) ([]model.FoodItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM food_items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.FoodItem
	for rows.Next() {
		var it model.FoodItem
		if err := rows.Scan(&it.ID, &it.Name); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
