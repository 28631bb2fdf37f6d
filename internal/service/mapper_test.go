package service

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/pageza/nutrilog/backend/internal/models"
	"github.com/pageza/nutrilog/backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestMapItem(t *testing.T) {
	item := types.AnalyzedItem{
		Name:       "apple",
		Quantity:   1,
		Unit:       "medium",
		Macros:     types.MacroEstimate{Calories: 94.6, Protein: 0.5, Carbs: 25, Fat: 0.3, Fiber: floatPtr(4.4)},
		Confidence: floatPtr(0.9),
		Source:     "usda",
		USDAFoodID: "171688",
		Raw:        json.RawMessage(`{"name":"apple"}`),
	}

	entry := MapItem(item, models.LogTypeText)

	assert.Equal(t, "1 medium apple", entry.Description)
	assert.Equal(t, models.LogTypeText, entry.LogType)
	assert.Equal(t, int64(95), entry.Calories)
	assert.Equal(t, 0.5, entry.Protein)
	assert.Equal(t, 25.0, entry.Carbs)
	assert.Equal(t, 0.3, entry.Fat)
	assert.Equal(t, 4.4, entry.Fiber)
	assert.Equal(t, 0.0, entry.Sugar)
	require.NotNil(t, entry.Confidence)
	assert.Equal(t, 0.9, *entry.Confidence)
	require.NotNil(t, entry.ExternalFoodID)
	assert.Equal(t, "171688", *entry.ExternalFoodID)
	assert.JSONEq(t, `{"name":"apple"}`, string(entry.RawPayload))
}

func TestMapItemIsPure(t *testing.T) {
	item := types.AnalyzedItem{Name: "toast", Quantity: 2, Unit: "slices", Macros: types.MacroEstimate{Calories: 160}}

	a := MapItem(item, models.LogTypeVoice)
	b := MapItem(item, models.LogTypeVoice)
	assert.Equal(t, a, b)
	assert.Equal(t, models.LogTypeVoice, a.LogType)
}

func TestMapItemDescription(t *testing.T) {
	cases := []struct {
		item types.AnalyzedItem
		want string
	}{
		{types.AnalyzedItem{Name: "pizza", Quantity: 1, Unit: "slice"}, "1 slice pizza"},
		{types.AnalyzedItem{Name: "rice", Quantity: 1.5, Unit: "cup"}, "1.5 cup rice"},
		{types.AnalyzedItem{Name: "banana"}, "banana"},
		{types.AnalyzedItem{Name: " soup ", Unit: "bowl"}, "bowl soup"},
		{types.AnalyzedItem{Quantity: 2}, "2 unknown food"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MapItem(tc.item, models.LogTypeText).Description)
	}
}

func TestMapItemClampsInvalidNumbers(t *testing.T) {
	item := types.AnalyzedItem{
		Name: "mystery",
		Macros: types.MacroEstimate{
			Calories: -20,
			Protein:  math.NaN(),
			Carbs:    math.Inf(1),
			Fat:      -1,
			Sugar:    floatPtr(-3),
		},
	}

	entry := MapItem(item, models.LogTypeImage)
	require.NoError(t, entry.Macros().Validate())
	assert.True(t, entry.Macros().IsZero())
	assert.Nil(t, entry.ExternalFoodID)
}

func TestMapItemsPreservesOrder(t *testing.T) {
	items := []types.AnalyzedItem{
		{Name: "apple", Macros: types.MacroEstimate{Calories: 95}},
		{Name: "pizza", Macros: types.MacroEstimate{Calories: 455}},
	}
	entries := MapItems(items, models.LogTypeText)
	require.Len(t, entries, 2)
	assert.Equal(t, "apple", entries[0].Description)
	total, err := models.EntriesTotal(entries)
	require.NoError(t, err)
	assert.Equal(t, int64(550), total.Calories)
}

func TestMapItemSaturatesCalories(t *testing.T) {
	entry := MapItem(types.AnalyzedItem{Name: "x", Macros: types.MacroEstimate{Calories: 1e19}}, models.LogTypeText)
	assert.Equal(t, int64(math.MaxInt32), entry.Calories)
}

func TestCheckItemRanges(t *testing.T) {
	ok := []types.AnalyzedItem{
		{Name: "apple", Macros: types.MacroEstimate{Calories: 95, Carbs: 25, Fiber: floatPtr(4.4)}},
		{Name: "feast", Macros: types.MacroEstimate{Calories: 20000, Fat: 900}},
	}
	require.NoError(t, CheckItemRanges(ok))

	tests := []struct {
		name string
		item types.AnalyzedItem
	}{
		{"huge calories", types.AnalyzedItem{Name: "x", Macros: types.MacroEstimate{Calories: 1e19}}},
		{"calories above int32", types.AnalyzedItem{Name: "x", Macros: types.MacroEstimate{Calories: math.MaxInt32 + 1}}},
		{"huge protein", types.AnalyzedItem{Name: "x", Macros: types.MacroEstimate{Protein: 1e300}}},
		{"huge sugar", types.AnalyzedItem{Name: "x", Macros: types.MacroEstimate{Sugar: floatPtr(2e6)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckItemRanges(append(ok, tt.item))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "item 2")
		})
	}
}
