package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/craimasjien/gw2-economist-sub001/internal/market"
)

// UpsertItems inserts or replaces item metadata in one transaction.
func (d *DB) UpsertItems(items []*market.Item) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("upsert items begin tx: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO items (
		id, name, rarity, vendor_value
	) VALUES (?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert items prepare: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.Exec(it.ID, it.Name, it.Rarity, it.VendorValue); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert item %d: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

// UpsertRecipes inserts or replaces recipes and their ingredient lists in one
// transaction. A recipe replaces any previous recipe for the same output.
func (d *DB) UpsertRecipes(recipes []*market.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("upsert recipes begin tx: %w", err)
	}
	recipeStmt, err := tx.Prepare(`INSERT OR REPLACE INTO recipes (
		id, output_id, output_count, disciplines, min_rating, craft_time_ms
	) VALUES (?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert recipes prepare: %w", err)
	}
	defer recipeStmt.Close()
	ingStmt, err := tx.Prepare(`INSERT INTO recipe_ingredients (
		recipe_id, slot, item_id, count
	) VALUES (?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert ingredients prepare: %w", err)
	}
	defer ingStmt.Close()

	for _, r := range recipes {
		disciplines, _ := json.Marshal(r.Disciplines)
		if _, err := recipeStmt.Exec(r.ID, r.OutputID, r.OutputCount, string(disciplines), r.MinRating, r.CraftTimeMS); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert recipe %d: %w", r.ID, err)
		}
		if _, err := tx.Exec("DELETE FROM recipe_ingredients WHERE recipe_id = ?", r.ID); err != nil {
			tx.Rollback()
			return fmt.Errorf("clear ingredients for recipe %d: %w", r.ID, err)
		}
		for slot, ing := range r.Ingredients {
			if _, err := ingStmt.Exec(r.ID, slot, ing.ItemID, ing.Count); err != nil {
				tx.Rollback()
				return fmt.Errorf("insert ingredient for recipe %d: %w", r.ID, err)
			}
		}
	}
	return tx.Commit()
}

// UpsertPrices inserts or replaces current order-book quotes in one
// transaction.
func (d *DB) UpsertPrices(quotes []*market.PriceQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("upsert prices begin tx: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO prices (
		item_id, buy_price, buy_quantity, sell_price, sell_quantity, updated_at
	) VALUES (?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert prices prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, q := range quotes {
		if _, err := stmt.Exec(q.ItemID, q.BuyPrice, q.BuyQuantity, q.SellPrice, q.SellQuantity, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert price for item %d: %w", q.ItemID, err)
		}
	}
	return tx.Commit()
}

// AppendPriceHistory records historical snapshots for an item. Duplicate
// timestamps replace the earlier row.
func (d *DB) AppendPriceHistory(itemID int, points []market.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("append history begin tx: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO price_history (
		item_id, timestamp, buy_price, sell_price, volume
	) VALUES (?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("append history prepare: %w", err)
	}
	defer stmt.Close()

	for _, pt := range points {
		ts := pt.Timestamp.UTC().Format(time.RFC3339)
		if _, err := stmt.Exec(itemID, ts, pt.BuyPrice, pt.SellPrice, pt.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("append history for item %d: %w", itemID, err)
		}
	}
	return tx.Commit()
}
