package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Macros represents the nutrition values carried by a food log entry and
// added to a daily summary.
type Macros struct {
	Calories int64   `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	Sugar    float64 `json:"sugar"`
}

// Validate rejects negative and non-finite values.
func (m Macros) Validate() error {
	if m.Calories < 0 {
		return fmt.Errorf("calories must not be negative: %d", m.Calories)
	}
	for name, v := range map[string]float64{
		"protein": m.Protein,
		"carbs":   m.Carbs,
		"fat":     m.Fat,
		"fiber":   m.Fiber,
		"sugar":   m.Sugar,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a finite number", name)
		}
		if v < 0 {
			return fmt.Errorf("%s must not be negative: %v", name, v)
		}
	}
	return nil
}

func (m Macros) IsZero() bool {
	return m == Macros{}
}

// ErrMacroOverflow is returned when a sum no longer fits its field.
var ErrMacroOverflow = errors.New("macro total out of range")

// SumMacros adds the given values. Gram fields are summed as decimals so the
// totals do not drift with the number of items. Values must be finite.
func SumMacros(items ...Macros) (Macros, error) {
	var calories int64
	protein, carbs, fat := decimal.Zero, decimal.Zero, decimal.Zero
	fiber, sugar := decimal.Zero, decimal.Zero

	for _, m := range items {
		if (m.Calories > 0 && calories > math.MaxInt64-m.Calories) ||
			(m.Calories < 0 && calories < math.MinInt64-m.Calories) {
			return Macros{}, fmt.Errorf("%w: calories", ErrMacroOverflow)
		}
		calories += m.Calories
		protein = protein.Add(decimal.NewFromFloat(m.Protein))
		carbs = carbs.Add(decimal.NewFromFloat(m.Carbs))
		fat = fat.Add(decimal.NewFromFloat(m.Fat))
		fiber = fiber.Add(decimal.NewFromFloat(m.Fiber))
		sugar = sugar.Add(decimal.NewFromFloat(m.Sugar))
	}

	out := Macros{
		Calories: calories,
		Protein:  protein.InexactFloat64(),
		Carbs:    carbs.InexactFloat64(),
		Fat:      fat.InexactFloat64(),
		Fiber:    fiber.InexactFloat64(),
		Sugar:    sugar.InexactFloat64(),
	}
	for _, v := range []float64{out.Protein, out.Carbs, out.Fat, out.Fiber, out.Sugar} {
		if math.IsInf(v, 0) {
			return Macros{}, fmt.Errorf("%w: grams", ErrMacroOverflow)
		}
	}
	return out, nil
}
