package calculations

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/Simplici0/sweetcost/internal/pricing"
)

// CalculationResult is a saved calculation: the snapshot of every input plus
// the derived values computed from it.
type CalculationResult struct {
	ID              string         `json:"id"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	Recipe          pricing.Recipe `json:"recipe"`
	Prices          pricing.Prices `json:"prices"`
	Labor           pricing.Labor  `json:"labor"`
	Output          pricing.Output `json:"output"`
	IngredientsCost float64        `json:"ingredientsCost"`
	LaborCost       float64        `json:"laborCost"`
	TotalCost       float64        `json:"totalCost"`
	MarkupPercent   float64        `json:"markupPercent"`
	SellingPrice    float64        `json:"sellingPrice"`
	PricePerPortion float64        `json:"pricePerPortion"`
}

// Input returns the snapshot as a pricing input.
func (c CalculationResult) Input() pricing.Input {
	return pricing.Input{
		Recipe:        c.Recipe,
		Prices:        c.Prices,
		Labor:         c.Labor,
		Output:        c.Output,
		MarkupPercent: c.MarkupPercent,
	}
}

// Totals returns the stored derived values.
func (c CalculationResult) Totals() pricing.Totals {
	return pricing.Totals{
		IngredientsCost: c.IngredientsCost,
		LaborCost:       c.LaborCost,
		TotalCost:       c.TotalCost,
		MarkupPercent:   c.MarkupPercent,
		SellingPrice:    c.SellingPrice,
		PricePerPortion: c.PricePerPortion,
	}
}

// Profit is the selling price minus the total cost.
func (c CalculationResult) Profit() float64 {
	return c.Totals().Profit()
}

func (c CalculationResult) withTotals(t pricing.Totals) CalculationResult {
	c.IngredientsCost = t.IngredientsCost
	c.LaborCost = t.LaborCost
	c.TotalCost = t.TotalCost
	c.MarkupPercent = t.MarkupPercent
	c.SellingPrice = t.SellingPrice
	c.PricePerPortion = t.PricePerPortion
	return c
}

// Recompute derives every computed field again from the snapshot.
func Recompute(c CalculationResult) (CalculationResult, error) {
	result, err := pricing.Calculate(c.Input())
	if err != nil {
		return CalculationResult{}, fmt.Errorf("recompute calculation %s: %w", c.ID, err)
	}
	return c.withTotals(result.Totals), nil
}

// Consistent reports whether the stored derived values match a fresh recomputation.
func Consistent(c CalculationResult) bool {
	fresh, err := Recompute(c)
	if err != nil {
		return false
	}
	stored, want := c.Totals(), fresh.Totals()
	return sameFloat(stored.IngredientsCost, want.IngredientsCost) &&
		sameFloat(stored.LaborCost, want.LaborCost) &&
		sameFloat(stored.TotalCost, want.TotalCost) &&
		sameFloat(stored.SellingPrice, want.SellingPrice) &&
		sameFloat(stored.PricePerPortion, want.PricePerPortion)
}

func sameFloat(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// UnmarshalJSON also accepts records written by the first version of the app,
// which stored a single "date" and a "markup" field.
func (c *CalculationResult) UnmarshalJSON(data []byte) error {
	type plain CalculationResult
	var aux struct {
		plain
		Date   *time.Time `json:"date"`
		Markup *float64   `json:"markup"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	out := CalculationResult(aux.plain)
	if aux.Date != nil {
		if out.CreatedAt.IsZero() {
			out.CreatedAt = *aux.Date
		}
		if out.UpdatedAt.IsZero() {
			out.UpdatedAt = *aux.Date
		}
	}
	if aux.Markup != nil && out.MarkupPercent == 0 {
		out.MarkupPercent = *aux.Markup
	}
	if out.Prices == nil {
		out.Prices = pricing.Prices{}
	}
	*c = out
	return nil
}

// Draft holds a calculation while it is being entered or edited.
type Draft struct {
	EditingID     string         `json:"editingId,omitempty"`
	Recipe        pricing.Recipe `json:"recipe"`
	Prices        pricing.Prices `json:"prices"`
	Labor         pricing.Labor  `json:"labor"`
	Output        pricing.Output `json:"output"`
	MarkupPercent float64        `json:"markupPercent"`
}

// Input returns the draft as a pricing input.
func (d Draft) Input() pricing.Input {
	return pricing.Input{
		Recipe:        d.Recipe,
		Prices:        d.Prices,
		Labor:         d.Labor,
		Output:        d.Output,
		MarkupPercent: d.MarkupPercent,
	}
}

// Preview validates the draft and computes its result without saving it.
// Ingredients without a price are allowed here and reported by Result.Unpriced.
func (d Draft) Preview() (pricing.Result, error) {
	if err := pricing.Validate(d.Input()).Without(pricing.CodeMissingPrice).Err(); err != nil {
		return pricing.Result{}, err
	}
	return pricing.Calculate(d.Input())
}
