package units

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownUnit is returned when a unit label is not recognised.
var ErrUnknownUnit = errors.New("unknown unit")

// Unit is a measurement unit used for recipe amounts, purchase packages and output.
type Unit string

const (
	Gram       Unit = "g"
	Kilogram   Unit = "kg"
	Milliliter Unit = "ml"
	Liter      Unit = "l"
	Piece      Unit = "piece"
	Teaspoon   Unit = "teaspoon"
	Tablespoon Unit = "tablespoon"
)

// Family groups units that can be converted into each other.
type Family string

const (
	FamilyMass   Family = "mass"
	FamilyVolume Family = "volume"
	FamilyCount  Family = "count"
	FamilySpoon  Family = "spoon"
)

type unitDef struct {
	family Family
	// toBase is only meaningful for families with a fixed base ratio.
	toBase float64
}

var unitTable = map[Unit]unitDef{
	Gram:       {family: FamilyMass, toBase: 1},
	Kilogram:   {family: FamilyMass, toBase: 1000},
	Milliliter: {family: FamilyVolume, toBase: 1},
	Liter:      {family: FamilyVolume, toBase: 1000},
	Piece:      {family: FamilyCount},
	Teaspoon:   {family: FamilySpoon},
	Tablespoon: {family: FamilySpoon},
}

// Labels written by the first version of the app.
var legacyLabels = map[string]Unit{
	"г":     Gram,
	"кг":    Kilogram,
	"мл":    Milliliter,
	"л":     Liter,
	"шт":    Piece,
	"ч.л.":  Teaspoon,
	"ст.л.": Tablespoon,
	"pcs":   Piece,
	"tsp":   Teaspoon,
	"tbsp":  Tablespoon,
}

// All lists every supported unit in display order.
func All() []Unit {
	return []Unit{Gram, Kilogram, Milliliter, Liter, Piece, Teaspoon, Tablespoon}
}

// Parse resolves a unit from its canonical or legacy label.
func Parse(raw string) (Unit, error) {
	label := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := unitTable[Unit(label)]; ok {
		return Unit(label), nil
	}
	if u, ok := legacyLabels[label]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, raw)
}

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	_, ok := unitTable[u]
	return ok
}

// Family returns the family u belongs to, or "" for an unknown unit.
func (u Unit) Family() Family {
	return unitTable[u].family
}

func (u Unit) String() string {
	return string(u)
}

func (u Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(u))
}

func (u *Unit) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode unit: %w", err)
	}
	// Drafts may not have picked a unit yet; validation reports it.
	if strings.TrimSpace(raw) == "" {
		*u = ""
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// DirectlyCompatible reports whether an amount in a can be converted to b
// without a user-declared equivalence.
func DirectlyCompatible(a, b Unit) bool {
	if a == b {
		return true
	}
	return ratioFamily(a) != "" && ratioFamily(a) == ratioFamily(b)
}

// Convert converts amount from one unit to another within the mass or volume family.
// Equal units return the amount unchanged. Any other pair is not convertible
// and the amount is returned as is; callers bridge those with an equivalence.
func Convert(amount float64, from, to Unit) float64 {
	if from == to {
		return amount
	}
	if !DirectlyCompatible(from, to) {
		return amount
	}
	return amount * unitTable[from].toBase / unitTable[to].toBase
}

func ratioFamily(u Unit) Family {
	switch f := u.Family(); f {
	case FamilyMass, FamilyVolume:
		return f
	default:
		return ""
	}
}
