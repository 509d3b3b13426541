package pricing

import "github.com/Simplici0/sweetcost/internal/units"

// Patches describe partial edits. A nil field keeps the current value; Apply
// always returns a new value and leaves the receiver and its slices untouched.

// RecipePatch is a partial edit of a recipe header.
type RecipePatch struct {
	Name     *string `json:"name,omitempty"`
	Category *string `json:"category,omitempty"`
	Comment  *string `json:"comment,omitempty"`
}

// Apply returns r with the patch applied.
func (p RecipePatch) Apply(r Recipe) Recipe {
	out := r.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Comment != nil {
		out.Comment = *p.Comment
	}
	return out
}

// Clone returns a deep copy of r.
func (r Recipe) Clone() Recipe {
	out := r
	out.Ingredients = append([]Ingredient(nil), r.Ingredients...)
	return out
}

// WithIngredient returns a copy of r with ing appended.
func (r Recipe) WithIngredient(ing Ingredient) Recipe {
	out := r.Clone()
	out.Ingredients = append(out.Ingredients, ing)
	return out
}

// WithoutIngredient returns a copy of r without the ingredient at index.
// Out of range indexes return an unchanged copy.
func (r Recipe) WithoutIngredient(index int) Recipe {
	out := r.Clone()
	if index < 0 || index >= len(out.Ingredients) {
		return out
	}
	out.Ingredients = append(out.Ingredients[:index], out.Ingredients[index+1:]...)
	return out
}

// PricePatch is a partial edit of a price record.
type PricePatch struct {
	ProductName   *string      `json:"productName,omitempty"`
	Price         *float64     `json:"price,omitempty"`
	PriceUnit     *units.Unit  `json:"priceUnit,omitempty"`
	PriceQuantity *float64     `json:"priceQuantity,omitempty"`
	Equivalence   *Equivalence `json:"equivalence,omitempty"`
	// ClearEquivalence drops any stored equivalence.
	ClearEquivalence bool `json:"clearEquivalence,omitempty"`
}

// Apply returns rec with the patch applied.
func (p PricePatch) Apply(rec PriceRecord) PriceRecord {
	out := rec.Clone()
	if p.ProductName != nil {
		out.ProductName = *p.ProductName
	}
	if p.Price != nil {
		out.Price = *p.Price
	}
	if p.PriceUnit != nil {
		out.PriceUnit = *p.PriceUnit
	}
	if p.PriceQuantity != nil {
		out.PriceQuantity = *p.PriceQuantity
	}
	if p.ClearEquivalence {
		out.Equivalence = nil
	}
	if p.Equivalence != nil {
		eq := *p.Equivalence
		out.Equivalence = &eq
	}
	return out
}

// Clone returns a copy of rec that shares no pointers with it.
func (p PriceRecord) Clone() PriceRecord {
	out := p
	if p.Equivalence != nil {
		eq := *p.Equivalence
		out.Equivalence = &eq
	}
	return out
}

// DefaultPriceRecord is the record offered for an ingredient that has not been priced yet.
func DefaultPriceRecord(ing Ingredient) PriceRecord {
	return PriceRecord{
		ProductName:   ing.Name,
		Price:         0,
		PriceUnit:     ing.Unit,
		PriceQuantity: 1,
	}
}

// WithEquivalence returns a copy of rec bridging the ingredient unit to the purchase unit.
func WithEquivalence(ing Ingredient, rec PriceRecord, ratio float64) PriceRecord {
	out := rec.Clone()
	out.Equivalence = &Equivalence{
		FromUnit: ing.Unit,
		ToUnit:   rec.PriceUnit,
		Ratio:    ratio,
	}
	return out
}

// Clone returns a deep copy of the price map.
func (p Prices) Clone() Prices {
	out := make(Prices, len(p))
	for name, rec := range p {
		out[name] = rec.Clone()
	}
	return out
}

// With returns a copy of the map with name set to rec.
func (p Prices) With(name string, rec PriceRecord) Prices {
	out := p.Clone()
	out[name] = rec.Clone()
	return out
}

// For returns only the records of the recipe's ingredients.
func (p Prices) For(r Recipe) Prices {
	out := make(Prices, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		if rec, ok := p[ing.Name]; ok {
			out[ing.Name] = rec.Clone()
		}
	}
	return out
}

// LaborPatch is a partial edit of labor.
type LaborPatch struct {
	Hours   *float64 `json:"hours,omitempty"`
	Rate    *float64 `json:"rate,omitempty"`
	Workers *int     `json:"workers,omitempty"`
}

// Apply returns l with the patch applied.
func (p LaborPatch) Apply(l Labor) Labor {
	if p.Hours != nil {
		l.Hours = *p.Hours
	}
	if p.Rate != nil {
		l.Rate = *p.Rate
	}
	if p.Workers != nil {
		l.Workers = *p.Workers
	}
	return l
}

// OutputPatch is a partial edit of output.
type OutputPatch struct {
	TotalOutput *float64    `json:"totalOutput,omitempty"`
	OutputUnit  *units.Unit `json:"outputUnit,omitempty"`
	Portions    *int        `json:"portions,omitempty"`
}

// Apply returns o with the patch applied.
func (p OutputPatch) Apply(o Output) Output {
	if p.TotalOutput != nil {
		o.TotalOutput = *p.TotalOutput
	}
	if p.OutputUnit != nil {
		o.OutputUnit = *p.OutputUnit
	}
	if p.Portions != nil {
		o.Portions = *p.Portions
	}
	return o
}
