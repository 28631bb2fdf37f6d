package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pageza/nutrilog/backend/internal/models"
	"github.com/pageza/nutrilog/backend/internal/types"
	"gorm.io/datatypes"
)

const unknownFoodName = "unknown food"

// Upper bounds for a single analyzed item. Anything above them is an
// analyzer fault, not a meal.
const (
	maxItemCalories = math.MaxInt32
	maxItemGrams    = 1e6
)

// CheckItemRanges rejects items whose nutrition values cannot describe a
// real portion of food.
func CheckItemRanges(items []types.AnalyzedItem) error {
	for i, item := range items {
		m := item.Macros
		if m.Calories > maxItemCalories {
			return fmt.Errorf("item %d (%s): %v kcal exceeds %d", i, item.Name, m.Calories, maxItemCalories)
		}
		grams := map[string]float64{
			"protein": m.Protein,
			"carbs":   m.Carbs,
			"fat":     m.Fat,
			"fiber":   optionalGrams(m.Fiber),
			"sugar":   optionalGrams(m.Sugar),
		}
		for name, v := range grams {
			if v > maxItemGrams {
				return fmt.Errorf("item %d (%s): %v g %s exceeds %v", i, item.Name, v, name, maxItemGrams)
			}
		}
	}
	return nil
}

// MapItem converts one analyzed item into an unsaved food log entry. It
// does not assign identifiers, owners or timestamps. Calories saturate at
// the per-item cap; use CheckItemRanges to reject such items instead.
func MapItem(item types.AnalyzedItem, logType models.LogType) models.FoodLogEntry {
	entry := models.FoodLogEntry{
		Description: describeItem(item),
		LogType:     logType,
		Calories:    int64(math.Round(math.Min(nonNegative(item.Macros.Calories), maxItemCalories))),
		Protein:     nonNegative(item.Macros.Protein),
		Carbs:       nonNegative(item.Macros.Carbs),
		Fat:         nonNegative(item.Macros.Fat),
		Fiber:       optionalGrams(item.Macros.Fiber),
		Sugar:       optionalGrams(item.Macros.Sugar),
		Confidence:  item.Confidence,
		Source:      item.Source,
		RawPayload:  rawPayload(item),
	}
	if id := item.ExternalFoodID(); id != "" {
		entry.ExternalFoodID = &id
	}
	return entry
}

// MapItems maps every item of an analysis result in order.
func MapItems(items []types.AnalyzedItem, logType models.LogType) []models.FoodLogEntry {
	entries := make([]models.FoodLogEntry, len(items))
	for i, item := range items {
		entries[i] = MapItem(item, logType)
	}
	return entries
}

// describeItem renders "<quantity> <unit> <name>", skipping missing parts.
func describeItem(item types.AnalyzedItem) string {
	parts := make([]string, 0, 3)
	if q := item.Quantity; q > 0 && !math.IsInf(q, 0) {
		parts = append(parts, strconv.FormatFloat(q, 'f', -1, 64))
	}
	if unit := strings.TrimSpace(item.Unit); unit != "" {
		parts = append(parts, unit)
	}
	name := strings.TrimSpace(item.Name)
	if name == "" {
		name = unknownFoodName
	}
	parts = append(parts, name)
	return strings.Join(parts, " ")
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func optionalGrams(v *float64) float64 {
	if v == nil {
		return 0
	}
	return nonNegative(*v)
}

func rawPayload(item types.AnalyzedItem) datatypes.JSON {
	if len(item.Raw) > 0 {
		return datatypes.JSON(append([]byte(nil), item.Raw...))
	}
	b, err := json.Marshal(item)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
