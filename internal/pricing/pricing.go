package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/Simplici0/sweetcost/internal/units"
)

var (
	// ErrNonPositivePortions is returned when a per-portion price would divide by zero or less.
	ErrNonPositivePortions = errors.New("portions must be greater than 0")
	// ErrNonPositivePriceQuantity is returned when a price record has no package quantity.
	ErrNonPositivePriceQuantity = errors.New("price quantity must be greater than 0")
	// ErrNonFiniteCost is returned when the inputs overflow float64 and a cost or total is not finite.
	ErrNonFiniteCost = errors.New("cost is not a finite number")
)

// Ingredient is one line of a recipe, expressed in the recipe unit.
type Ingredient struct {
	Name   string     `json:"name"`
	Amount float64    `json:"amount"`
	Unit   units.Unit `json:"unit"`
}

// Recipe is the first step of a calculation.
type Recipe struct {
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	Ingredients []Ingredient `json:"ingredients"`
	Comment     string       `json:"comment"`
}

// Equivalence bridges a recipe unit and a purchase unit from different families:
// Ratio units of FromUnit equal one unit of ToUnit.
type Equivalence struct {
	FromUnit units.Unit `json:"fromUnit"`
	ToUnit   units.Unit `json:"toUnit"`
	Ratio    float64    `json:"ratio"`
}

// PriceRecord says that PriceQuantity units of PriceUnit of ProductName cost Price.
type PriceRecord struct {
	ProductName   string       `json:"productName"`
	Price         float64      `json:"price"`
	PriceUnit     units.Unit   `json:"priceUnit"`
	PriceQuantity float64      `json:"priceQuantity"`
	Equivalence   *Equivalence `json:"equivalence,omitempty"`
}

// Prices maps an ingredient name to its price record.
type Prices map[string]PriceRecord

// Labor describes the work spent on one batch.
type Labor struct {
	Hours   float64 `json:"hours"`
	Rate    float64 `json:"rate"`
	Workers int     `json:"workers"`
}

// Output describes what one batch yields.
type Output struct {
	TotalOutput float64    `json:"totalOutput"`
	OutputUnit  units.Unit `json:"outputUnit"`
	Portions    int        `json:"portions"`
}

// Input groups everything needed to price one batch.
type Input struct {
	Recipe        Recipe
	Prices        Prices
	Labor         Labor
	Output        Output
	MarkupPercent float64
}

// Line is the cost of one recipe ingredient.
type Line struct {
	Ingredient Ingredient
	Price      *PriceRecord
	Priced     bool
	Cost       float64
}

// Totals contains the derived batch values.
type Totals struct {
	IngredientsCost float64
	LaborCost       float64
	TotalCost       float64
	MarkupPercent   float64
	SellingPrice    float64
	PricePerPortion float64
}

// Profit is the selling price minus the total cost.
func (t Totals) Profit() float64 {
	return t.SellingPrice - t.TotalCost
}

// Result groups the per-ingredient lines and the batch totals.
type Result struct {
	Lines  []Line
	Totals Totals
}

// Unpriced returns the names of ingredients that contributed nothing because
// they have no price record.
func (r Result) Unpriced() []string {
	var names []string
	for _, line := range r.Lines {
		if !line.Priced {
			names = append(names, line.Ingredient.Name)
		}
	}
	return names
}

// HasEquivalence reports whether the record carries a usable equivalence ratio.
func (p PriceRecord) HasEquivalence() bool {
	return p.Equivalence != nil && p.Equivalence.Ratio > 0
}

// UnitPrice is the price of a single purchase unit.
func (p PriceRecord) UnitPrice() float64 {
	return p.Price / p.PriceQuantity
}

// CostOf returns what amount of an ingredient in unit costs under price.
//
// A usable equivalence always wins and its ratio is read as recipe units per
// one purchase unit. Without one the amount is converted to the purchase unit,
// which passes incompatible units through unchanged. A zero PriceQuantity
// yields +Inf or NaN; Calculate rejects it before getting here.
func CostOf(amount float64, unit units.Unit, price PriceRecord) float64 {
	pricePerUnit := price.UnitPrice()

	if price.HasEquivalence() {
		unitsNeeded := amount / price.Equivalence.Ratio
		return unitsNeeded * pricePerUnit
	}

	converted := units.Convert(amount, unit, price.PriceUnit)
	return converted * pricePerUnit
}

// LaborCost returns hours * rate * workers.
func LaborCost(l Labor) float64 {
	return l.Hours * l.Rate * float64(l.Workers)
}

// SellingPrice applies a percentage markup to a total cost.
func SellingPrice(totalCost, markupPercent float64) float64 {
	return totalCost * (1.0 + markupPercent/100.0)
}

// Calculate prices one batch. Ingredients without a price record contribute
// zero and are reported through Result.Unpriced.
func Calculate(in Input) (Result, error) {
	if in.Output.Portions <= 0 {
		return Result{}, ErrNonPositivePortions
	}

	lines := make([]Line, 0, len(in.Recipe.Ingredients))
	ingredientsCost := 0.0
	for _, ing := range in.Recipe.Ingredients {
		price, ok := in.Prices[ing.Name]
		if !ok {
			lines = append(lines, Line{Ingredient: ing})
			continue
		}
		if price.PriceQuantity <= 0 {
			return Result{}, fmt.Errorf("price for %q: %w", ing.Name, ErrNonPositivePriceQuantity)
		}

		cost := CostOf(ing.Amount, ing.Unit, price)
		if !finite(cost) {
			return Result{}, fmt.Errorf("cost of %q: %w", ing.Name, ErrNonFiniteCost)
		}
		ingredientsCost += cost
		p := price
		lines = append(lines, Line{Ingredient: ing, Price: &p, Priced: true, Cost: cost})
	}

	laborCost := LaborCost(in.Labor)
	totalCost := ingredientsCost + laborCost
	sellingPrice := SellingPrice(totalCost, in.MarkupPercent)

	totals := Totals{
		IngredientsCost: ingredientsCost,
		LaborCost:       laborCost,
		TotalCost:       totalCost,
		MarkupPercent:   in.MarkupPercent,
		SellingPrice:    sellingPrice,
		PricePerPortion: sellingPrice / float64(in.Output.Portions),
	}
	if !totals.finite() {
		return Result{}, fmt.Errorf("batch totals: %w", ErrNonFiniteCost)
	}
	return Result{Lines: lines, Totals: totals}, nil
}

func (t Totals) finite() bool {
	return finite(t.IngredientsCost) && finite(t.LaborCost) && finite(t.TotalCost) &&
		finite(t.MarkupPercent) && finite(t.SellingPrice) && finite(t.PricePerPortion)
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
