package calculations

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/Simplici0/sweetcost/internal/db"
	applog "github.com/Simplici0/sweetcost/internal/log"
	"github.com/Simplici0/sweetcost/internal/migrations"
	"github.com/Simplici0/sweetcost/internal/pricing"
	"github.com/Simplici0/sweetcost/internal/storage"
	"github.com/Simplici0/sweetcost/internal/units"
)

func TestMain(m *testing.M) {
	applog.Discard()
	m.Run()
}

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("calc-%d", n)
	}
}

func newTestStore(t *testing.T, kv KV, clock *fixedClock) *Store {
	t.Helper()

	store, err := Open(context.Background(), kv, WithClock(clock.now), WithIDGenerator(sequentialIDs()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func sugarDraft() Draft {
	return Draft{
		Recipe: pricing.Recipe{
			Name:        "Meringue",
			Category:    "Desserts",
			Ingredients: []pricing.Ingredient{{Name: "sugar", Amount: 200, Unit: units.Gram}},
		},
		Prices: pricing.Prices{
			"sugar": {ProductName: "sugar", Price: 50, PriceUnit: units.Kilogram, PriceQuantity: 1},
			"cocoa": {ProductName: "cocoa", Price: 400, PriceUnit: units.Kilogram, PriceQuantity: 1},
		},
		Labor:         pricing.Labor{Hours: 2, Rate: 100, Workers: 1},
		Output:        pricing.Output{TotalOutput: 1, OutputUnit: units.Kilogram, Portions: 10},
		MarkupPercent: 50,
	}
}

func TestSave_ComputesDerivedFieldsAndSnapshotsInputs(t *testing.T) {
	clock := &fixedClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := newTestStore(t, storage.NewMemory(), clock)

	saved, err := store.Save(context.Background(), sugarDraft())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if saved.ID != "calc-1" {
		t.Fatalf("ID=%q, want calc-1", saved.ID)
	}
	nearlyEqual(t, "ingredientsCost", saved.IngredientsCost, 10)
	nearlyEqual(t, "laborCost", saved.LaborCost, 200)
	nearlyEqual(t, "totalCost", saved.TotalCost, 210)
	nearlyEqual(t, "sellingPrice", saved.SellingPrice, 315)
	nearlyEqual(t, "pricePerPortion", saved.PricePerPortion, 31.5)
	nearlyEqual(t, "profit", saved.Profit(), 105)

	if len(saved.Prices) != 1 {
		t.Fatalf("snapshot should only hold recipe prices, got %+v", saved.Prices)
	}
	if !saved.CreatedAt.Equal(clock.t) || !saved.UpdatedAt.Equal(clock.t) {
		t.Fatalf("unexpected timestamps: %v / %v", saved.CreatedAt, saved.UpdatedAt)
	}

	got, ok := store.Get(saved.ID)
	if !ok {
		t.Fatalf("Get(%s) not found", saved.ID)
	}
	if !Consistent(got) {
		t.Fatalf("stored record does not match recomputation: %+v", got)
	}

	if _, ok := store.Prices()["cocoa"]; !ok {
		t.Fatalf("draft prices should be merged into the price book")
	}
}

func TestSave_EditReplacesInPlaceKeepingIdentity(t *testing.T) {
	clock := &fixedClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := newTestStore(t, storage.NewMemory(), clock)
	ctx := context.Background()

	first, err := store.Save(ctx, sugarDraft())
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	second, err := store.Save(ctx, sugarDraft())
	if err != nil {
		t.Fatalf("save second: %v", err)
	}

	draft, ok := store.Edit(first.ID)
	if !ok {
		t.Fatalf("Edit(%s) not found", first.ID)
	}
	if draft.EditingID != first.ID || draft.MarkupPercent != 50 {
		t.Fatalf("unexpected edit draft: %+v", draft)
	}

	clock.t = clock.t.Add(time.Hour)
	draft.MarkupPercent = 100
	updated, err := store.Save(ctx, draft)
	if err != nil {
		t.Fatalf("save edit: %v", err)
	}

	list := store.List()
	if len(list) != 2 {
		t.Fatalf("edit must not grow the list, got %d", len(list))
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("insertion order not preserved: %s, %s", list[0].ID, list[1].ID)
	}
	if updated.ID != first.ID {
		t.Fatalf("edit changed id: %s", updated.ID)
	}
	if !updated.CreatedAt.Equal(first.CreatedAt) || !updated.UpdatedAt.Equal(clock.t) {
		t.Fatalf("unexpected timestamps after edit: created=%v updated=%v", updated.CreatedAt, updated.UpdatedAt)
	}
	nearlyEqual(t, "sellingPrice", list[0].SellingPrice, 420)
}

func TestSave_UnknownEditingIDIsNotFound(t *testing.T) {
	store := newTestStore(t, storage.NewMemory(), &fixedClock{t: time.Now()})

	draft := sugarDraft()
	draft.EditingID = "gone"
	if _, err := store.Save(context.Background(), draft); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(store.List()) != 0 {
		t.Fatalf("nothing should be saved")
	}
}

func TestSave_RejectsInvalidDraft(t *testing.T) {
	store := newTestStore(t, storage.NewMemory(), &fixedClock{t: time.Now()})

	draft := sugarDraft()
	draft.Output.Portions = 0
	_, err := store.Save(context.Background(), draft)

	var v pricing.Violations
	if !errors.As(err, &v) {
		t.Fatalf("expected violations, got %v", err)
	}
	if v["output.portions"] != pricing.CodeMustBePositive {
		t.Fatalf("unexpected violations: %v", v)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t, storage.NewMemory(), &fixedClock{t: time.Now()})
	ctx := context.Background()

	saved, err := store.Save(ctx, sugarDraft())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := store.Delete(ctx, "unknown"); err != nil {
		t.Fatalf("delete unknown id should be a no-op, got %v", err)
	}
	if len(store.List()) != 1 {
		t.Fatalf("delete of unknown id changed the list")
	}

	if err := store.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := store.Get(saved.ID); ok {
		t.Fatalf("record still present after delete")
	}
	if _, ok := store.Edit(saved.ID); ok {
		t.Fatalf("deleted record can still be edited")
	}
}

func TestListReturnsCopies(t *testing.T) {
	store := newTestStore(t, storage.NewMemory(), &fixedClock{t: time.Now()})
	if _, err := store.Save(context.Background(), sugarDraft()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	list := store.List()
	list[0].TotalCost = 1
	list[0].Recipe.Ingredients[0].Amount = 1

	got := store.List()[0]
	if got.TotalCost == 1 || got.Recipe.Ingredients[0].Amount == 1 {
		t.Fatalf("List exposed internal state")
	}
}

func TestPriceBook(t *testing.T) {
	store := newTestStore(t, storage.NewMemory(), &fixedClock{t: time.Now()})
	ctx := context.Background()

	price := 90.0
	liter := units.Liter
	rec, err := store.SetPrice(ctx, "milk", pricing.PricePatch{Price: &price, PriceUnit: &liter})
	if err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	if rec.ProductName != "milk" || rec.Price != 90 || rec.PriceQuantity != 1 || rec.PriceUnit != units.Liter {
		t.Fatalf("unexpected record: %+v", rec)
	}

	draft := store.NewDraft()
	if _, ok := draft.Prices["milk"]; !ok || draft.MarkupPercent != 100 || draft.Labor.Workers != 1 {
		t.Fatalf("unexpected new draft: %+v", draft)
	}

	if err := store.DeletePrice(ctx, "milk"); err != nil {
		t.Fatalf("DeletePrice: %v", err)
	}
	if _, ok := store.Prices()["milk"]; ok {
		t.Fatalf("price still present after delete")
	}
}

func TestSetPriceRejectsInvalidRecord(t *testing.T) {
	store := newTestStore(t, storage.NewMemory(), &fixedClock{t: time.Now()})
	ctx := context.Background()

	price := 90.0
	if _, err := store.SetPrice(ctx, "milk", pricing.PricePatch{Price: &price}); err == nil {
		t.Fatalf("expected unknown unit to be rejected")
	}

	liter := units.Liter
	if _, err := store.SetPrice(ctx, "milk", pricing.PricePatch{Price: &price, PriceUnit: &liter}); err != nil {
		t.Fatalf("SetPrice: %v", err)
	}

	zero := 0.0
	_, err := store.SetPrice(ctx, "milk", pricing.PricePatch{PriceQuantity: &zero})
	var v pricing.Violations
	if !errors.As(err, &v) || v["prices[milk].priceQuantity"] != pricing.CodeMustBePositive {
		t.Fatalf("expected priceQuantity violation, got %v", err)
	}
	if got := store.Prices()["milk"]; got.PriceQuantity != 1 {
		t.Fatalf("rejected patch must not be stored, got %+v", got)
	}
}

func TestEditOverlaysSnapshotOnPriceBook(t *testing.T) {
	store := newTestStore(t, storage.NewMemory(), &fixedClock{t: time.Now()})
	ctx := context.Background()

	saved, err := store.Save(ctx, sugarDraft())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	newPrice := 70.0
	if _, err := store.SetPrice(ctx, "sugar", pricing.PricePatch{Price: &newPrice}); err != nil {
		t.Fatalf("SetPrice: %v", err)
	}

	draft, _ := store.Edit(saved.ID)
	if draft.Prices["sugar"].Price != 50 {
		t.Fatalf("edit should restore the snapshot price, got %v", draft.Prices["sugar"].Price)
	}
	if _, ok := draft.Prices["cocoa"]; !ok {
		t.Fatalf("edit draft should still offer other price book entries")
	}

	got, _ := store.Get(saved.ID)
	nearlyEqual(t, "stored ingredientsCost", got.IngredientsCost, 10)
}

type failingKV struct {
	*storage.Memory
	fail bool
}

func (f *failingKV) Put(ctx context.Context, values map[string][]byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.Put(ctx, values)
}

func TestFailedPersistLeavesStateUntouched(t *testing.T) {
	kv := &failingKV{Memory: storage.NewMemory()}
	store := newTestStore(t, kv, &fixedClock{t: time.Now()})
	ctx := context.Background()

	saved, err := store.Save(ctx, sugarDraft())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	kv.fail = true
	if _, err := store.Save(ctx, sugarDraft()); err == nil {
		t.Fatalf("expected persist error")
	}
	if err := store.Delete(ctx, saved.ID); err == nil {
		t.Fatalf("expected persist error on delete")
	}
	if len(store.List()) != 1 {
		t.Fatalf("failed mutations must not change the list, got %d", len(store.List()))
	}
}

func TestRoundTripThroughSQLite(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "calculations.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()
	if err := migrations.Up(context.Background(), database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	ctx := context.Background()
	clock := &fixedClock{t: time.Date(2025, 5, 4, 12, 30, 0, 0, time.UTC)}
	kv := storage.NewSQLite(database)
	store := newTestStore(t, kv, clock)

	eggs := sugarDraft()
	eggs.Recipe = eggs.Recipe.WithIngredient(pricing.Ingredient{Name: "egg white", Amount: 100, Unit: units.Gram})
	eggs.Prices["egg white"] = pricing.PriceRecord{
		ProductName:   "eggs",
		Price:         120,
		PriceUnit:     units.Piece,
		PriceQuantity: 10,
		Equivalence:   &pricing.Equivalence{FromUnit: units.Gram, ToUnit: units.Piece, Ratio: 30},
	}
	saved, err := store.Save(ctx, eggs)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Open(ctx, kv)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	got, ok := reloaded.Get(saved.ID)
	if !ok {
		t.Fatalf("saved calculation missing after reload")
	}

	if got.TotalCost != saved.TotalCost || got.SellingPrice != saved.SellingPrice || got.PricePerPortion != saved.PricePerPortion {
		t.Fatalf("derived values changed across reload: %+v vs %+v", got, saved)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Fatalf("createdAt changed across reload")
	}
	if eq := got.Prices["egg white"].Equivalence; eq == nil || eq.Ratio != 30 {
		t.Fatalf("equivalence lost across reload: %+v", got.Prices["egg white"])
	}
	if !Consistent(got) {
		t.Fatalf("reloaded record inconsistent")
	}
	if len(reloaded.Prices()) != 3 {
		t.Fatalf("price book not reloaded: %+v", reloaded.Prices())
	}
}
