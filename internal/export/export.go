// Package export renders saved calculations for spreadsheets and plain text.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/sweetcost/internal/calculations"
	"github.com/Simplici0/sweetcost/internal/pricing"
)

const bom = "\ufeff"

const dateLayout = "02-01-2006"

// Money formats v with two decimals followed by the currency symbol.
func Money(v float64, currency string) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

func number(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// FileName is the download name for the CSV export of c.
func FileName(c calculations.CalculationResult) string {
	name := strings.TrimSpace(c.Recipe.Name)
	if name == "" {
		name = "calculation"
	}
	name = strings.NewReplacer("/", "-", "\\", "-", "\"", "", "\n", " ").Replace(name)
	return fmt.Sprintf("%s_%s.csv", name, c.CreatedAt.Format(dateLayout))
}

// IngredientRow is one ingredient with its price and cost as exported.
type IngredientRow struct {
	Name        string
	Amount      float64
	Unit        string
	Product     string
	Price       float64
	Quantity    float64
	PriceUnit   string
	Equivalence string
	Cost        float64
	Priced      bool
}

// Rows prices every ingredient of c with the shared costing rules.
func Rows(c calculations.CalculationResult) []IngredientRow {
	rows := make([]IngredientRow, 0, len(c.Recipe.Ingredients))
	for _, ing := range c.Recipe.Ingredients {
		row := IngredientRow{
			Name:        ing.Name,
			Amount:      ing.Amount,
			Unit:        ing.Unit.String(),
			Equivalence: "not required",
		}
		if rec, ok := c.Prices[ing.Name]; ok && rec.PriceQuantity > 0 {
			row.Priced = true
			row.Product = rec.ProductName
			row.Price = rec.Price
			row.Quantity = rec.PriceQuantity
			row.PriceUnit = rec.PriceUnit.String()
			row.Cost = pricing.CostOf(ing.Amount, ing.Unit, rec)
			if rec.HasEquivalence() {
				row.Equivalence = equivalence(rec)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func equivalence(rec pricing.PriceRecord) string {
	eq := rec.Equivalence
	return fmt.Sprintf("%s %s = 1 %s", number(eq.Ratio), eq.FromUnit, eq.ToUnit)
}

// CSV writes c as a sectioned spreadsheet, prefixed with a UTF-8 byte order mark.
func CSV(w io.Writer, c calculations.CalculationResult, currency string) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	write := func(fields ...string) {
		_ = cw.Write(fields)
	}

	write("GENERAL")
	write("Name", c.Recipe.Name)
	write("Category", c.Recipe.Category)
	write("Date", c.CreatedAt.Format("02.01.2006 15:04"))
	if c.Recipe.Comment != "" {
		write("Comment", c.Recipe.Comment)
	}
	write()

	write("INGREDIENTS")
	write("Name", "Amount", "Unit", "Purchased as", "Package price", "Package quantity", "Package unit", "Equivalence", "Cost")
	for _, row := range Rows(c) {
		if !row.Priced {
			write(row.Name, number(row.Amount), row.Unit, "", "", "", "", row.Equivalence, "not priced")
			continue
		}
		write(
			row.Name,
			number(row.Amount),
			row.Unit,
			row.Product,
			Money(row.Price, currency),
			number(row.Quantity),
			row.PriceUnit,
			row.Equivalence,
			Money(row.Cost, currency),
		)
	}
	write("", "", "", "", "", "", "", "TOTAL", Money(c.IngredientsCost, currency))
	write()

	write("LABOR")
	write("Parameter", "Value")
	write("Hours", number(c.Labor.Hours))
	write("Hourly rate", Money(c.Labor.Rate, currency))
	write("Workers", fmt.Sprint(c.Labor.Workers))
	write("Labor cost", Money(c.LaborCost, currency))
	write()

	write("OUTPUT AND PRICE")
	write("Parameter", "Value")
	write("Total output", number(c.Output.TotalOutput)+" "+c.Output.OutputUnit.String())
	write("Portions", fmt.Sprint(c.Output.Portions))
	write()
	write("Total cost", Money(c.TotalCost, currency))
	write("Markup", number(c.MarkupPercent)+"%")
	write("Selling price", Money(c.SellingPrice, currency))
	write("Price per portion", Money(c.PricePerPortion, currency))
	write("Profit", Money(c.Profit(), currency))

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Text writes a short human readable summary of c.
func Text(w io.Writer, c calculations.CalculationResult, currency string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s", c.Recipe.Name)
	if c.Recipe.Category != "" {
		fmt.Fprintf(&b, " (%s)", c.Recipe.Category)
	}
	fmt.Fprintf(&b, "\n%s\n\n", c.CreatedAt.Format("02.01.2006"))

	b.WriteString("Ingredients:\n")
	for _, row := range Rows(c) {
		cost := "not priced"
		if row.Priced {
			cost = Money(row.Cost, currency)
		}
		fmt.Fprintf(&b, "  %s %s %s: %s\n", row.Name, number(row.Amount), row.Unit, cost)
	}
	fmt.Fprintf(&b, "\nIngredients cost: %s\n", Money(c.IngredientsCost, currency))
	fmt.Fprintf(&b, "Labor cost: %s\n", Money(c.LaborCost, currency))
	fmt.Fprintf(&b, "Total cost: %s\n", Money(c.TotalCost, currency))
	fmt.Fprintf(&b, "Markup: %s%%\n", number(c.MarkupPercent))
	fmt.Fprintf(&b, "Selling price: %s\n", Money(c.SellingPrice, currency))
	fmt.Fprintf(&b, "Price per portion: %s (%d portions)\n", Money(c.PricePerPortion, currency), c.Output.Portions)
	fmt.Fprintf(&b, "Profit: %s\n", Money(c.Profit(), currency))

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}
