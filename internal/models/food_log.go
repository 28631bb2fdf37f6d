package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LogType records how a food log entry was submitted.
type LogType string

const (
	LogTypeText  LogType = "text"
	LogTypeImage LogType = "image"
	LogTypeVoice LogType = "voice"
)

func (t LogType) Valid() bool {
	switch t {
	case LogTypeText, LogTypeImage, LogTypeVoice:
		return true
	}
	return false
}

const logDateLayout = "2006-01-02"

// LogDateFor returns the calendar day, in UTC, a timestamp belongs to.
func LogDateFor(t time.Time) string {
	return t.UTC().Format(logDateLayout)
}

// ParseLogDate parses a YYYY-MM-DD day into its UTC midnight.
func ParseLogDate(s string) (time.Time, error) {
	return time.ParseInLocation(logDateLayout, s, time.UTC)
}

// FoodLogEntry is one persisted food item. All entries written for a single
// submission share a SubmissionID.
type FoodLogEntry struct {
	ID             uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:varchar(36);not null;index:idx_food_log_entries_user_date,priority:1" json:"user_id"`
	SubmissionID   uuid.UUID      `gorm:"type:varchar(36);not null;index" json:"submission_id"`
	Description    string         `gorm:"type:text;not null" json:"description"`
	LogType        LogType        `gorm:"size:16;not null" json:"log_type"`
	Calories       int64          `gorm:"not null;check:calories >= 0" json:"calories"`
	Protein        float64        `gorm:"not null;check:protein >= 0" json:"protein"`
	Carbs          float64        `gorm:"not null;check:carbs >= 0" json:"carbs"`
	Fat            float64        `gorm:"not null;check:fat >= 0" json:"fat"`
	Fiber          float64        `gorm:"not null;check:fiber >= 0" json:"fiber"`
	Sugar          float64        `gorm:"not null;check:sugar >= 0" json:"sugar"`
	Confidence     *float64       `json:"confidence,omitempty"`
	Source         string         `gorm:"size:64" json:"source,omitempty"`
	ExternalFoodID *string        `gorm:"size:128" json:"external_food_id,omitempty"`
	ImageKey       string         `gorm:"size:255" json:"image_key,omitempty"`
	ImageURL       string         `gorm:"-" json:"image_url,omitempty"`
	RawPayload     datatypes.JSON `json:"raw_payload,omitempty"`
	LogDate        string         `gorm:"size:10;not null;index:idx_food_log_entries_user_date,priority:2" json:"log_date"`
	LoggedAt       time.Time      `gorm:"not null;index" json:"logged_at"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (FoodLogEntry) TableName() string {
	return "food_log_entries"
}

// BeforeCreate assigns an ID when the caller did not.
func (e *FoodLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Macros returns the nutrition values of the entry.
func (e FoodLogEntry) Macros() Macros {
	return Macros{
		Calories: e.Calories,
		Protein:  e.Protein,
		Carbs:    e.Carbs,
		Fat:      e.Fat,
		Fiber:    e.Fiber,
		Sugar:    e.Sugar,
	}
}

// EntriesTotal sums the macros of the given entries.
func EntriesTotal(entries []FoodLogEntry) (Macros, error) {
	items := make([]Macros, len(entries))
	for i, e := range entries {
		items[i] = e.Macros()
	}
	return SumMacros(items...)
}
