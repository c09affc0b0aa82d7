package db

import (
	"fmt"
	"time"

	"github.com/craimasjien/gw2-economist-sub001/internal/engine"
)

// ReplaceOpportunities swaps the persisted opportunity set for opps in a
// single transaction, preserving the given order as rank 1..N. Readers never
// observe a half-replaced set.
func (d *DB) ReplaceOpportunities(opps []engine.ProfitOpportunity) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("replace opportunities begin tx: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM opportunities"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear opportunities: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO opportunities (
		rank, item_id, item_name, recipe_id, craft_cost, sell_price,
		profit, margin_bps, volume_proxy, score, updated_at
	) VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("replace opportunities prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, o := range opps {
		if _, err := stmt.Exec(
			i+1, o.ItemID, o.ItemName, o.RecipeID, o.CraftCost, o.SellPrice,
			o.Profit, o.MarginBps, o.VolumeProxy, o.Score, now,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert opportunity for item %d: %w", o.ItemID, err)
		}
	}
	return tx.Commit()
}

// TopOpportunities returns the persisted opportunities in rank order,
// capped at limit (or all of them when limit <= 0).
func (d *DB) TopOpportunities(limit int) ([]engine.ProfitOpportunity, error) {
	if limit <= 0 {
		limit = -1 // SQLite: LIMIT -1 means no limit
	}
	rows, err := d.sql.Query(`
		SELECT item_id, item_name, recipe_id, craft_cost, sell_price,
			profit, margin_bps, volume_proxy, score
		FROM opportunities ORDER BY rank LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("top opportunities: %w", err)
	}
	defer rows.Close()

	var opps []engine.ProfitOpportunity
	for rows.Next() {
		var o engine.ProfitOpportunity
		if err := rows.Scan(
			&o.ItemID, &o.ItemName, &o.RecipeID, &o.CraftCost, &o.SellPrice,
			&o.Profit, &o.MarginBps, &o.VolumeProxy, &o.Score,
		); err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}
