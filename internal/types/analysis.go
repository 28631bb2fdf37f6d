package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AnalysisResult is the analyzer's answer for one submission. Success is
// nil when the analyzer does not report it.
type AnalysisResult struct {
	Success        *bool            `json:"success,omitempty"`
	InputType      string           `json:"input_type"`
	RawInput       string           `json:"raw_input,omitempty"`
	Items          []AnalyzedItem   `json:"items"`
	Totals         MacroEstimate    `json:"totals"`
	ProcessingTime float64          `json:"processing_time"`
	Warnings       []string         `json:"warnings,omitempty"`
	Error          string           `json:"error,omitempty"`
	Metadata       AnalysisMetadata `json:"metadata"`
}

// Failed reports whether the analyzer explicitly marked the analysis as
// unsuccessful.
func (r *AnalysisResult) Failed() bool {
	return r.Success != nil && !*r.Success
}

type AnalysisMetadata struct {
	USDAConfigured    bool  `json:"usda_configured"`
	LogMealConfigured bool  `json:"logmeal_configured"`
	ItemsWithUSDA     int   `json:"items_with_usda"`
	ItemsWithMock     int   `json:"items_with_mock"`
	USDALookupEnabled *bool `json:"usda_lookup_enabled,omitempty"`
}

// AnalyzedItem is one food the analyzer recognized. Decoding accepts the
// field aliases different analyzer backends use and keeps the original JSON
// in Raw.
type AnalyzedItem struct {
	Name          string          `json:"name"`
	Quantity      float64         `json:"quantity"`
	Unit          string          `json:"unit"`
	Macros        MacroEstimate   `json:"macros"`
	Confidence    *float64        `json:"confidence,omitempty"`
	Source        string          `json:"source,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	USDAFoodID    string          `json:"usda_food_id,omitempty"`
	LogMealFoodID string          `json:"logmeal_food_id,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// MacroEstimate holds the analyzer's nutrition estimate. Fiber and Sugar are
// nil when the analyzer did not report them.
type MacroEstimate struct {
	Calories float64  `json:"calories"`
	Protein  float64  `json:"protein"`
	Carbs    float64  `json:"carbs"`
	Fat      float64  `json:"fat"`
	Fiber    *float64 `json:"fiber,omitempty"`
	Sugar    *float64 `json:"sugar,omitempty"`
}

// ExternalFoodID returns the first food database identifier present.
func (it AnalyzedItem) ExternalFoodID() string {
	if it.USDAFoodID != "" {
		return it.USDAFoodID
	}
	return it.LogMealFoodID
}

func (it *AnalyzedItem) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("food item: %w", err)
	}

	var out AnalyzedItem
	out.Raw = append(json.RawMessage(nil), data...)
	out.Name = stringField(fields, "name", "food_name", "food", "label")
	if q, ok, err := numberField(fields, "quantity", "qty", "amount"); err != nil {
		return fmt.Errorf("food item quantity: %w", err)
	} else if ok {
		out.Quantity = q
	}
	out.Unit = stringField(fields, "unit", "units", "serving_unit")
	out.Source = stringField(fields, "source", "data_source", "provider")
	out.Notes = stringField(fields, "notes", "note")
	out.USDAFoodID = stringField(fields, "usda_food_id", "fdc_id")
	out.LogMealFoodID = stringField(fields, "logmeal_food_id", "food_id")

	c, ok, err := numberField(fields, "confidence", "score")
	if err != nil {
		return fmt.Errorf("food item confidence: %w", err)
	}
	if ok {
		out.Confidence = &c
	}

	if raw, ok := firstField(fields, "macros", "nutrition", "nutrients"); ok {
		if err := json.Unmarshal(raw, &out.Macros); err != nil {
			return fmt.Errorf("food item macros: %w", err)
		}
	} else if err := out.Macros.fromFields(fields); err != nil {
		return fmt.Errorf("food item macros: %w", err)
	}

	*it = out
	return nil
}

func (m *MacroEstimate) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var out MacroEstimate
	if err := out.fromFields(fields); err != nil {
		return err
	}
	*m = out
	return nil
}

func (m *MacroEstimate) fromFields(fields map[string]json.RawMessage) error {
	targets := []struct {
		dst     *float64
		aliases []string
	}{
		{&m.Calories, []string{"calories", "kcal", "energy"}},
		{&m.Protein, []string{"protein", "proteins"}},
		{&m.Carbs, []string{"carbs", "carbohydrates", "carbohydrate"}},
		{&m.Fat, []string{"fat", "fats", "total_fat"}},
	}
	for _, t := range targets {
		v, ok, err := numberField(fields, t.aliases...)
		if err != nil {
			return fmt.Errorf("%s: %w", t.aliases[0], err)
		}
		if ok {
			*t.dst = v
		}
	}

	optional := []struct {
		dst     **float64
		aliases []string
	}{
		{&m.Fiber, []string{"fiber", "fibre"}},
		{&m.Sugar, []string{"sugar", "sugars"}},
	}
	for _, t := range optional {
		v, ok, err := numberField(fields, t.aliases...)
		if err != nil {
			return fmt.Errorf("%s: %w", t.aliases[0], err)
		}
		if ok {
			*t.dst = &v
		}
	}
	return nil
}

func firstField(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if raw, ok := fields[k]; ok && string(raw) != "null" {
			return raw, true
		}
	}
	return nil, false
}

// stringField returns the first alias holding a string or a number.
func stringField(fields map[string]json.RawMessage, keys ...string) string {
	raw, ok := firstField(fields, keys...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// numberField returns the first alias holding a number or a numeric string.
func numberField(fields map[string]json.RawMessage, keys ...string) (float64, bool, error) {
	raw, ok := firstField(fields, keys...)
	if !ok {
		return 0, false, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false, fmt.Errorf("expected a number, got %s", string(raw))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("expected a number, got %q", s)
	}
	return f, true, nil
}
