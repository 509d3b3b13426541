package calculations

import "github.com/Simplici0/sweetcost/internal/pricing"

// EquivalencePatch bridges an ingredient's recipe unit to its purchase unit.
type EquivalencePatch struct {
	Ingredient string  `json:"ingredient"`
	Ratio      float64 `json:"ratio"`
}

// DraftPatch is one editing step on a draft. Nil fields are left alone.
// Steps apply in field order: recipe header, removal, addition, prices,
// equivalence, labor, output, markup.
type DraftPatch struct {
	Recipe           *pricing.RecipePatch          `json:"recipe,omitempty"`
	RemoveIngredient *int                          `json:"removeIngredient,omitempty"`
	AddIngredient    *pricing.Ingredient           `json:"addIngredient,omitempty"`
	Prices           map[string]pricing.PricePatch `json:"prices,omitempty"`
	Equivalence      *EquivalencePatch             `json:"equivalence,omitempty"`
	Labor            *pricing.LaborPatch           `json:"labor,omitempty"`
	Output           *pricing.OutputPatch          `json:"output,omitempty"`
	MarkupPercent    *float64                      `json:"markupPercent,omitempty"`
}

// Apply returns a copy of d with p applied. d is not modified.
func (d Draft) Apply(p DraftPatch) Draft {
	out := d
	out.Recipe = d.Recipe.Clone()
	out.Prices = d.Prices.Clone()

	if p.Recipe != nil {
		out.Recipe = p.Recipe.Apply(out.Recipe)
	}
	if p.RemoveIngredient != nil {
		out.Recipe = out.Recipe.WithoutIngredient(*p.RemoveIngredient)
		out.Prices = out.Prices.For(out.Recipe)
	}
	if p.AddIngredient != nil {
		out.Recipe = out.Recipe.WithIngredient(*p.AddIngredient)
	}
	for name, patch := range p.Prices {
		out.Prices[name] = patch.Apply(out.priceOf(name))
	}
	if eq := p.Equivalence; eq != nil {
		ing := out.ingredient(eq.Ingredient)
		out.Prices[eq.Ingredient] = pricing.WithEquivalence(ing, out.priceOf(eq.Ingredient), eq.Ratio)
	}
	if p.Labor != nil {
		out.Labor = p.Labor.Apply(out.Labor)
	}
	if p.Output != nil {
		out.Output = p.Output.Apply(out.Output)
	}
	if p.MarkupPercent != nil {
		out.MarkupPercent = *p.MarkupPercent
	}
	return out
}

// priceOf returns the draft's record for name, or the default record for an
// ingredient that has not been priced yet.
func (d Draft) priceOf(name string) pricing.PriceRecord {
	if rec, ok := d.Prices[name]; ok {
		return rec
	}
	return pricing.DefaultPriceRecord(d.ingredient(name))
}

func (d Draft) ingredient(name string) pricing.Ingredient {
	for _, ing := range d.Recipe.Ingredients {
		if ing.Name == name {
			return ing
		}
	}
	return pricing.Ingredient{Name: name}
}
