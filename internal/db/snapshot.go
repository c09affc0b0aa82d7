package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/craimasjien/gw2-economist-sub001/internal/market"
)

// SnapshotProvider serves market data straight from the local SQLite
// snapshot. It satisfies market.DataProvider so the analysis engine can run
// entirely offline against ingested data.
type SnapshotProvider struct {
	db *DB
}

// NewSnapshotProvider wraps an open database as a read-only data provider.
func NewSnapshotProvider(d *DB) *SnapshotProvider {
	return &SnapshotProvider{db: d}
}

// GetItem looks up one item by id.
func (p *SnapshotProvider) GetItem(itemID int) (*market.Item, error) {
	var it market.Item
	err := p.db.sql.QueryRow(
		"SELECT id, name, rarity, vendor_value FROM items WHERE id = ?", itemID,
	).Scan(&it.ID, &it.Name, &it.Rarity, &it.VendorValue)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", itemID, market.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", itemID, err)
	}
	return &it, nil
}

// GetItems loads the given items in one query. Ids with no row are omitted
// from the result rather than treated as an error.
func (p *SnapshotProvider) GetItems(itemIDs []int) (map[int]*market.Item, error) {
	out := make(map[int]*market.Item, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	query := "SELECT id, name, rarity, vendor_value FROM items WHERE id IN (" + placeholders(len(itemIDs)) + ")"
	rows, err := p.db.sql.Query(query, intArgs(itemIDs)...)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it market.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Rarity, &it.VendorValue); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out[it.ID] = &it
	}
	return out, rows.Err()
}

// GetRecipeForOutput returns the recipe that produces outputID, or
// market.ErrNotFound for items with no recipe.
func (p *SnapshotProvider) GetRecipeForOutput(outputID int) (*market.Recipe, error) {
	var r market.Recipe
	var disciplines string
	err := p.db.sql.QueryRow(`
		SELECT id, output_id, output_count, disciplines, min_rating, craft_time_ms
		FROM recipes WHERE output_id = ?
	`, outputID).Scan(&r.ID, &r.OutputID, &r.OutputCount, &disciplines, &r.MinRating, &r.CraftTimeMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recipe for item %d: %w", outputID, market.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe for item %d: %w", outputID, err)
	}
	json.Unmarshal([]byte(disciplines), &r.Disciplines)

	r.Ingredients, err = p.ingredientsFor(r.ID)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecipesForOutputs bulk-loads recipes keyed by output item id. Outputs
// with no recipe are omitted.
func (p *SnapshotProvider) GetRecipesForOutputs(outputIDs []int) (map[int]*market.Recipe, error) {
	if len(outputIDs) == 0 {
		return map[int]*market.Recipe{}, nil
	}
	query := `
		SELECT id, output_id, output_count, disciplines, min_rating, craft_time_ms
		FROM recipes WHERE output_id IN (` + placeholders(len(outputIDs)) + ")"
	rows, err := p.db.sql.Query(query, intArgs(outputIDs)...)
	if err != nil {
		return nil, fmt.Errorf("get recipes: %w", err)
	}
	recipes, err := scanRecipes(rows)
	if err != nil {
		return nil, err
	}
	if err := p.attachIngredients(recipes); err != nil {
		return nil, err
	}
	out := make(map[int]*market.Recipe, len(recipes))
	for _, r := range recipes {
		out[r.OutputID] = r
	}
	return out, nil
}

// AllRecipes returns every recipe in the snapshot, ingredients included.
func (p *SnapshotProvider) AllRecipes() ([]*market.Recipe, error) {
	rows, err := p.db.sql.Query(`
		SELECT id, output_id, output_count, disciplines, min_rating, craft_time_ms
		FROM recipes ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("all recipes: %w", err)
	}
	recipes, err := scanRecipes(rows)
	if err != nil {
		return nil, err
	}
	if err := p.attachIngredients(recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// GetPrice returns the current order-book summary for one item.
func (p *SnapshotProvider) GetPrice(itemID int) (*market.PriceQuote, error) {
	var q market.PriceQuote
	err := p.db.sql.QueryRow(`
		SELECT item_id, buy_price, buy_quantity, sell_price, sell_quantity
		FROM prices WHERE item_id = ?
	`, itemID).Scan(&q.ItemID, &q.BuyPrice, &q.BuyQuantity, &q.SellPrice, &q.SellQuantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("price for item %d: %w", itemID, market.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get price for item %d: %w", itemID, err)
	}
	return &q, nil
}

// GetPrices bulk-loads current quotes keyed by item id. Unpriced ids are
// omitted.
func (p *SnapshotProvider) GetPrices(itemIDs []int) (map[int]*market.PriceQuote, error) {
	out := make(map[int]*market.PriceQuote, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	query := `
		SELECT item_id, buy_price, buy_quantity, sell_price, sell_quantity
		FROM prices WHERE item_id IN (` + placeholders(len(itemIDs)) + ")"
	rows, err := p.db.sql.Query(query, intArgs(itemIDs)...)
	if err != nil {
		return nil, fmt.Errorf("get prices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var q market.PriceQuote
		if err := rows.Scan(&q.ItemID, &q.BuyPrice, &q.BuyQuantity, &q.SellPrice, &q.SellQuantity); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		out[q.ItemID] = &q
	}
	return out, rows.Err()
}

// GetPriceHistory returns snapshots at or after since, oldest first.
func (p *SnapshotProvider) GetPriceHistory(itemID int, since time.Time) ([]market.PricePoint, error) {
	rows, err := p.db.sql.Query(`
		SELECT timestamp, buy_price, sell_price, volume
		FROM price_history
		WHERE item_id = ? AND timestamp >= ?
		ORDER BY timestamp
	`, itemID, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("price history for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var points []market.PricePoint
	for rows.Next() {
		var pt market.PricePoint
		var ts string
		if err := rows.Scan(&ts, &pt.BuyPrice, &pt.SellPrice, &pt.Volume); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		pt.Timestamp, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot timestamp %q: %w", ts, err)
		}
		points = append(points, pt)
	}
	return points, rows.Err()
}

func (p *SnapshotProvider) ingredientsFor(recipeID int) ([]market.Ingredient, error) {
	rows, err := p.db.sql.Query(
		"SELECT item_id, count FROM recipe_ingredients WHERE recipe_id = ? ORDER BY slot", recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("ingredients for recipe %d: %w", recipeID, err)
	}
	defer rows.Close()

	var ings []market.Ingredient
	for rows.Next() {
		var ing market.Ingredient
		if err := rows.Scan(&ing.ItemID, &ing.Count); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		ings = append(ings, ing)
	}
	return ings, rows.Err()
}

// attachIngredients loads the ingredient lists for a batch of recipes in one
// query.
func (p *SnapshotProvider) attachIngredients(recipes []*market.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	byID := make(map[int]*market.Recipe, len(recipes))
	ids := make([]int, 0, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}
	query := `
		SELECT recipe_id, item_id, count
		FROM recipe_ingredients
		WHERE recipe_id IN (` + placeholders(len(ids)) + `)
		ORDER BY recipe_id, slot`
	rows, err := p.db.sql.Query(query, intArgs(ids)...)
	if err != nil {
		return fmt.Errorf("bulk ingredients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var recipeID int
		var ing market.Ingredient
		if err := rows.Scan(&recipeID, &ing.ItemID, &ing.Count); err != nil {
			return fmt.Errorf("scan ingredient: %w", err)
		}
		if r, ok := byID[recipeID]; ok {
			r.Ingredients = append(r.Ingredients, ing)
		}
	}
	return rows.Err()
}

func scanRecipes(rows *sql.Rows) ([]*market.Recipe, error) {
	defer rows.Close()
	var recipes []*market.Recipe
	for rows.Next() {
		var r market.Recipe
		var disciplines string
		if err := rows.Scan(&r.ID, &r.OutputID, &r.OutputCount, &disciplines, &r.MinRating, &r.CraftTimeMS); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		json.Unmarshal([]byte(disciplines), &r.Disciplines)
		recipes = append(recipes, &r)
	}
	return recipes, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func intArgs(ids []int) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
