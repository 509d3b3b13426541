package seed

import (
	"context"
	"fmt"

	"github.com/Simplici0/sweetcost/internal/log"
	"github.com/Simplici0/sweetcost/internal/pricing"
	"github.com/Simplici0/sweetcost/internal/units"
)

// PriceBook is the part of the calculation store the seed writes to.
type PriceBook interface {
	Prices() pricing.Prices
	PutPrices(ctx context.Context, records pricing.Prices) error
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Skipped int
}

// DefaultPrices are the staples most confectionery recipes start from.
func DefaultPrices() pricing.Prices {
	return pricing.Prices{
		"flour":  {ProductName: "flour", Price: 60, PriceUnit: units.Kilogram, PriceQuantity: 1},
		"sugar":  {ProductName: "sugar", Price: 80, PriceUnit: units.Kilogram, PriceQuantity: 1},
		"butter": {ProductName: "butter 82%", Price: 180, PriceUnit: units.Gram, PriceQuantity: 180},
		"milk":   {ProductName: "milk 3.2%", Price: 90, PriceUnit: units.Liter, PriceQuantity: 1},
		"cream":  {ProductName: "cream 33%", Price: 220, PriceUnit: units.Milliliter, PriceQuantity: 500},
		"eggs":   {ProductName: "eggs", Price: 120, PriceUnit: units.Piece, PriceQuantity: 10},
		"cocoa":  {ProductName: "cocoa powder", Price: 250, PriceUnit: units.Gram, PriceQuantity: 100},
		"vanilla sugar": {
			ProductName: "vanilla sugar", Price: 30, PriceUnit: units.Gram, PriceQuantity: 10,
			Equivalence: &pricing.Equivalence{FromUnit: units.Teaspoon, ToUnit: units.Gram, Ratio: 0.2},
		},
	}
}

// Run adds the default price records that are not in the book yet. Existing
// records are never overwritten, so running it repeatedly is safe.
func Run(ctx context.Context, book PriceBook) (Stats, error) {
	current := book.Prices()
	missing := pricing.Prices{}
	stats := Stats{}

	for name, rec := range DefaultPrices() {
		if _, ok := current[name]; ok {
			stats.Skipped++
			continue
		}
		missing[name] = rec
	}

	if err := book.PutPrices(ctx, missing); err != nil {
		return Stats{}, fmt.Errorf("seed default prices: %w", err)
	}
	stats.Inserts = len(missing)

	log.Info(ctx, "price book seeded", "inserted", stats.Inserts, "skipped", stats.Skipped)
	return stats, nil
}
