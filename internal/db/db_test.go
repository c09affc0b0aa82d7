package db

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/craimasjien/gw2-economist-sub001/internal/engine"
	"github.com/craimasjien/gw2-economist-sub001/internal/market"

	_ "modernc.org/sqlite"
)

// openTestDB opens an in-memory SQLite DB and runs migrations (for testing only).
func openTestDB(t *testing.T) *DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func TestDB_ItemRoundTrip(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	p := NewSnapshotProvider(d)

	items := []*market.Item{
		{ID: 19700, Name: "Mithril Ore", Rarity: "Basic", VendorValue: 2},
		{ID: 19684, Name: "Mithril Ingot", Rarity: "Basic", VendorValue: 8},
	}
	if err := d.UpsertItems(items); err != nil {
		t.Fatalf("UpsertItems: %v", err)
	}

	got, err := p.GetItem(19700)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Name != "Mithril Ore" || got.Rarity != "Basic" || got.VendorValue != 2 {
		t.Errorf("GetItem = %+v", got)
	}

	_, err = p.GetItem(99999)
	if !errors.Is(err, market.ErrNotFound) {
		t.Errorf("GetItem(99999) err = %v, want ErrNotFound", err)
	}

	batch, err := p.GetItems([]int{19700, 19684, 99999})
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(batch) != 2 {
		t.Errorf("GetItems len = %d, want 2 (missing id omitted)", len(batch))
	}
	if batch[19684] == nil || batch[19684].Name != "Mithril Ingot" {
		t.Errorf("GetItems[19684] = %+v", batch[19684])
	}
}

func TestDB_RecipeRoundTrip(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	p := NewSnapshotProvider(d)

	recipes := []*market.Recipe{
		{
			ID: 2000, OutputID: 19684, OutputCount: 1,
			Ingredients: []market.Ingredient{{ItemID: 19700, Count: 2}},
			Disciplines: []string{"Armorsmith", "Weaponsmith"},
			MinRating:   75, CraftTimeMS: 1500,
		},
		{
			ID: 2001, OutputID: 19712, OutputCount: 3,
			Ingredients: []market.Ingredient{
				{ItemID: 19684, Count: 1},
				{ItemID: 19700, Count: 4},
			},
		},
	}
	if err := d.UpsertRecipes(recipes); err != nil {
		t.Fatalf("UpsertRecipes: %v", err)
	}

	got, err := p.GetRecipeForOutput(19684)
	if err != nil {
		t.Fatalf("GetRecipeForOutput: %v", err)
	}
	if got.ID != 2000 || got.OutputCount != 1 {
		t.Errorf("recipe = %+v", got)
	}
	if len(got.Ingredients) != 1 || got.Ingredients[0].ItemID != 19700 || got.Ingredients[0].Count != 2 {
		t.Errorf("Ingredients = %+v", got.Ingredients)
	}
	if len(got.Disciplines) != 2 || got.Disciplines[0] != "Armorsmith" {
		t.Errorf("Disciplines = %v", got.Disciplines)
	}
	if got.MinRating != 75 || got.CraftTimeMS != 1500 {
		t.Errorf("MinRating/CraftTimeMS = %d/%d", got.MinRating, got.CraftTimeMS)
	}

	_, err = p.GetRecipeForOutput(19700)
	if !errors.Is(err, market.ErrNotFound) {
		t.Errorf("GetRecipeForOutput(ore) err = %v, want ErrNotFound", err)
	}
}

func TestDB_RecipeIngredientOrderPreserved(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	p := NewSnapshotProvider(d)

	want := []market.Ingredient{
		{ItemID: 30, Count: 1},
		{ItemID: 10, Count: 5},
		{ItemID: 20, Count: 2},
	}
	if err := d.UpsertRecipes([]*market.Recipe{
		{ID: 1, OutputID: 100, OutputCount: 1, Ingredients: want},
	}); err != nil {
		t.Fatalf("UpsertRecipes: %v", err)
	}

	got, err := p.GetRecipeForOutput(100)
	if err != nil {
		t.Fatalf("GetRecipeForOutput: %v", err)
	}
	for i := range want {
		if got.Ingredients[i] != want[i] {
			t.Errorf("Ingredients[%d] = %+v, want %+v", i, got.Ingredients[i], want[i])
		}
	}
}

func TestDB_UpsertRecipeReplacesIngredients(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	p := NewSnapshotProvider(d)

	r := &market.Recipe{
		ID: 1, OutputID: 100, OutputCount: 1,
		Ingredients: []market.Ingredient{{ItemID: 10, Count: 5}, {ItemID: 20, Count: 2}},
	}
	if err := d.UpsertRecipes([]*market.Recipe{r}); err != nil {
		t.Fatalf("UpsertRecipes: %v", err)
	}
	r.Ingredients = []market.Ingredient{{ItemID: 30, Count: 1}}
	if err := d.UpsertRecipes([]*market.Recipe{r}); err != nil {
		t.Fatalf("UpsertRecipes (2nd): %v", err)
	}

	got, err := p.GetRecipeForOutput(100)
	if err != nil {
		t.Fatalf("GetRecipeForOutput: %v", err)
	}
	if len(got.Ingredients) != 1 || got.Ingredients[0].ItemID != 30 {
		t.Errorf("Ingredients after re-upsert = %+v, want single item 30", got.Ingredients)
	}
}

func TestDB_AllRecipes(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	p := NewSnapshotProvider(d)

	if err := d.UpsertRecipes([]*market.Recipe{
		{ID: 1, OutputID: 100, OutputCount: 1, Ingredients: []market.Ingredient{{ItemID: 10, Count: 2}}},
		{ID: 2, OutputID: 200, OutputCount: 5, Ingredients: []market.Ingredient{{ItemID: 20, Count: 3}}},
	}); err != nil {
		t.Fatalf("UpsertRecipes: %v", err)
	}

	got, err := p.AllRecipes()
	if err != nil {
		t.Fatalf("AllRecipes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("AllRecipes len = %d, want 2", len(got))
	}
	for _, r := range got {
		if len(r.Ingredients) != 1 {
			t.Errorf("recipe %d ingredients = %d, want 1", r.ID, len(r.Ingredients))
		}
	}
}

func TestDB_PriceRoundTripAndBatchOmitsMissing(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	p := NewSnapshotProvider(d)

	if err := d.UpsertPrices([]*market.PriceQuote{
		{ItemID: 1, BuyPrice: 40, BuyQuantity: 900, SellPrice: 45, SellQuantity: 1200},
		{ItemID: 2, BuyPrice: 8, BuyQuantity: 50, SellPrice: 10, SellQuantity: 75},
	}); err != nil {
		t.Fatalf("UpsertPrices: %v", err)
	}

	got, err := p.GetPrice(1)
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if got.BuyPrice != 40 || got.SellPrice != 45 || got.SellQuantity != 1200 {
		t.Errorf("GetPrice = %+v", got)
	}

	_, err = p.GetPrice(3)
	if !errors.Is(err, market.ErrNotFound) {
		t.Errorf("GetPrice(3) err = %v, want ErrNotFound", err)
	}

	batch, err := p.GetPrices([]int{1, 2, 3})
	if err != nil {
		t.Fatalf("GetPrices: %v", err)
	}
	if len(batch) != 2 {
		t.Errorf("GetPrices len = %d, want 2 (unpriced id omitted)", len(batch))
	}
}

func TestDB_PriceHistorySinceFilter(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	p := NewSnapshotProvider(d)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	points := []market.PricePoint{
		{Timestamp: base, BuyPrice: 40, SellPrice: 45, Volume: 100},
		{Timestamp: base.AddDate(0, 0, 5), BuyPrice: 42, SellPrice: 47, Volume: 120},
		{Timestamp: base.AddDate(0, 0, 10), BuyPrice: 44, SellPrice: 50, Volume: 90},
	}
	if err := d.AppendPriceHistory(1, points); err != nil {
		t.Fatalf("AppendPriceHistory: %v", err)
	}

	got, err := p.GetPriceHistory(1, base.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("GetPriceHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetPriceHistory len = %d, want 2", len(got))
	}
	if !got[0].Timestamp.Equal(base.AddDate(0, 0, 5)) {
		t.Errorf("first point at %v, want %v", got[0].Timestamp, base.AddDate(0, 0, 5))
	}
	if got[1].SellPrice != 50 {
		t.Errorf("last point SellPrice = %d, want 50", got[1].SellPrice)
	}

	empty, err := p.GetPriceHistory(2, base)
	if err != nil {
		t.Fatalf("GetPriceHistory(no rows): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("history for unknown item = %d points, want 0", len(empty))
	}
}

func TestDB_ReplaceOpportunities(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()

	first := []engine.ProfitOpportunity{
		{ItemID: 10, ItemName: "Rich Widget", RecipeID: 100, CraftCost: 20, SellPrice: 1000, Profit: 830, MarginBps: 415000, VolumeProxy: 400, Score: 16600},
		{ItemID: 20, ItemName: "Mid Widget", RecipeID: 200, CraftCost: 30, SellPrice: 500, Profit: 395, MarginBps: 131666, VolumeProxy: 400, Score: 7900},
	}
	if err := d.ReplaceOpportunities(first); err != nil {
		t.Fatalf("ReplaceOpportunities: %v", err)
	}

	got, err := d.TopOpportunities(0)
	if err != nil {
		t.Fatalf("TopOpportunities: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("TopOpportunities len = %d, want 2", len(got))
	}
	if got[0] != first[0] || got[1] != first[1] {
		t.Errorf("TopOpportunities = %+v, want %+v", got, first)
	}

	// A later scan fully replaces the set.
	second := []engine.ProfitOpportunity{
		{ItemID: 30, ItemName: "Slim Widget", RecipeID: 300, CraftCost: 20, SellPrice: 200, Profit: 150, MarginBps: 75000, VolumeProxy: 400, Score: 3000},
	}
	if err := d.ReplaceOpportunities(second); err != nil {
		t.Fatalf("ReplaceOpportunities (2nd): %v", err)
	}
	got, err = d.TopOpportunities(0)
	if err != nil {
		t.Fatalf("TopOpportunities (2nd): %v", err)
	}
	if len(got) != 1 || got[0].ItemID != 30 {
		t.Errorf("after replace: %+v, want only item 30", got)
	}
}

func TestDB_TopOpportunitiesRespectsLimit(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()

	if err := d.ReplaceOpportunities([]engine.ProfitOpportunity{
		{ItemID: 10, ItemName: "A", Score: 300},
		{ItemID: 20, ItemName: "B", Score: 200},
		{ItemID: 30, ItemName: "C", Score: 100},
	}); err != nil {
		t.Fatalf("ReplaceOpportunities: %v", err)
	}

	got, err := d.TopOpportunities(2)
	if err != nil {
		t.Fatalf("TopOpportunities: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ItemID != 10 || got[1].ItemID != 20 {
		t.Errorf("items = %d,%d; want 10,20 (rank order)", got[0].ItemID, got[1].ItemID)
	}
}

func TestDB_ReplaceOpportunities_EmptySetClears(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()

	if err := d.ReplaceOpportunities([]engine.ProfitOpportunity{{ItemID: 10, ItemName: "A"}}); err != nil {
		t.Fatalf("ReplaceOpportunities: %v", err)
	}
	if err := d.ReplaceOpportunities(nil); err != nil {
		t.Fatalf("ReplaceOpportunities(nil): %v", err)
	}
	got, err := d.TopOpportunities(0)
	if err != nil {
		t.Fatalf("TopOpportunities: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0 after clearing replace", len(got))
	}
}
