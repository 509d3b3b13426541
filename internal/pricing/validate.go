package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Simplici0/sweetcost/internal/units"
)

// Violation codes.
const (
	CodeRequired           = "required"
	CodeMustBePositive     = "must_be_positive"
	CodeMustBeNonNegative  = "must_be_non_negative"
	CodeDuplicate          = "duplicate"
	CodeUnknownUnit        = "unknown_unit"
	CodeMissingPrice       = "missing_price"
	CodeEquivalenceMissing = "equivalence_required"
)

// Violations maps a field path to a violation code. A non-empty Violations is an error.
type Violations map[string]string

// Empty reports whether no violation was recorded.
func (v Violations) Empty() bool { return len(v) == 0 }

func (v Violations) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// Err returns v as an error, or nil when empty.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

// Without returns a copy of v minus the violations carrying code.
func (v Violations) Without(code string) Violations {
	out := Violations{}
	for field, c := range v {
		if c != code {
			out[field] = c
		}
	}
	return out
}

func (v Violations) merge(other Violations) {
	for k, code := range other {
		v[k] = code
	}
}

func required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = CodeRequired
	}
}

func positive(field string, val float64, v Violations) {
	if !(val > 0) {
		v[field] = CodeMustBePositive
	}
}

func nonNegative(field string, val float64, v Violations) {
	if !(val >= 0) {
		v[field] = CodeMustBeNonNegative
	}
}

func knownUnit(field string, u units.Unit, v Violations) {
	if !u.Valid() {
		v[field] = CodeUnknownUnit
	}
}

// ValidateRecipe checks the recipe step.
func ValidateRecipe(r Recipe) Violations {
	v := Violations{}
	required("recipe.name", r.Name, v)
	required("recipe.category", r.Category, v)
	if len(r.Ingredients) == 0 {
		v["recipe.ingredients"] = CodeRequired
	}

	seen := make(map[string]bool, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		prefix := fmt.Sprintf("recipe.ingredients[%d]", i)
		required(prefix+".name", ing.Name, v)
		if seen[ing.Name] {
			v[prefix+".name"] = CodeDuplicate
		}
		seen[ing.Name] = true
		positive(prefix+".amount", ing.Amount, v)
		knownUnit(prefix+".unit", ing.Unit, v)
	}
	return v
}

// ValidatePrices checks that every ingredient of r has a usable price record.
func ValidatePrices(r Recipe, prices Prices) Violations {
	v := Violations{}
	for _, ing := range r.Ingredients {
		prefix := "prices[" + ing.Name + "]"
		rec, ok := prices[ing.Name]
		if !ok {
			v[prefix] = CodeMissingPrice
			continue
		}
		v.merge(validateRecord(prefix, rec))
		if !units.DirectlyCompatible(ing.Unit, rec.PriceUnit) && !rec.HasEquivalence() {
			v[prefix+".equivalence"] = CodeEquivalenceMissing
		}
	}
	return v
}

// ValidatePriceRecord checks a price book entry on its own, without a recipe
// to compare units against.
func ValidatePriceRecord(name string, rec PriceRecord) Violations {
	v := validateRecord("prices["+name+"]", rec)
	required("name", name, v)
	if eq := rec.Equivalence; eq != nil {
		prefix := "prices[" + name + "].equivalence"
		positive(prefix+".ratio", eq.Ratio, v)
		knownUnit(prefix+".fromUnit", eq.FromUnit, v)
		knownUnit(prefix+".toUnit", eq.ToUnit, v)
	}
	return v
}

func validateRecord(prefix string, rec PriceRecord) Violations {
	v := Violations{}
	required(prefix+".productName", rec.ProductName, v)
	positive(prefix+".price", rec.Price, v)
	positive(prefix+".priceQuantity", rec.PriceQuantity, v)
	knownUnit(prefix+".priceUnit", rec.PriceUnit, v)
	return v
}

// ValidateLabor checks the labor step.
func ValidateLabor(l Labor) Violations {
	v := Violations{}
	nonNegative("labor.hours", l.Hours, v)
	nonNegative("labor.rate", l.Rate, v)
	if l.Workers < 1 {
		v["labor.workers"] = CodeMustBePositive
	}
	return v
}

// ValidateOutput checks the output step. Portions is the per-portion divisor.
func ValidateOutput(o Output) Violations {
	v := Violations{}
	positive("output.totalOutput", o.TotalOutput, v)
	knownUnit("output.outputUnit", o.OutputUnit, v)
	if o.Portions < 1 {
		v["output.portions"] = CodeMustBePositive
	}
	return v
}

// ValidateMarkup checks the markup percentage.
func ValidateMarkup(markupPercent float64) Violations {
	v := Violations{}
	nonNegative("markupPercent", markupPercent, v)
	return v
}

// Validate runs every step check over in.
func Validate(in Input) Violations {
	v := Violations{}
	v.merge(ValidateRecipe(in.Recipe))
	v.merge(ValidatePrices(in.Recipe, in.Prices))
	v.merge(ValidateLabor(in.Labor))
	v.merge(ValidateOutput(in.Output))
	v.merge(ValidateMarkup(in.MarkupPercent))
	return v
}
