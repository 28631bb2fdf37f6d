package models

import (
	"time"

	"github.com/google/uuid"
)

// DailyNutritionSummary holds a user's running totals for one calendar day.
// There is at most one row per (user_id, log_date).
type DailyNutritionSummary struct {
	UserID             uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	LogDate            string    `gorm:"size:10;primaryKey" json:"log_date"`
	TotalCalories      int64     `gorm:"not null;check:total_calories >= 0" json:"total_calories"`
	TotalProtein       float64   `gorm:"not null;check:total_protein >= 0" json:"total_protein"`
	TotalCarbs         float64   `gorm:"not null;check:total_carbs >= 0" json:"total_carbs"`
	TotalFat           float64   `gorm:"not null;check:total_fat >= 0" json:"total_fat"`
	TotalFiber         float64   `gorm:"not null;check:total_fiber >= 0" json:"total_fiber"`
	TotalSugar         float64   `gorm:"not null;check:total_sugar >= 0" json:"total_sugar"`
	WaterIntakeGlasses int       `gorm:"not null" json:"water_intake_glasses"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (DailyNutritionSummary) TableName() string {
	return "daily_nutrition_summaries"
}

// Totals returns the summary's running totals.
func (s DailyNutritionSummary) Totals() Macros {
	return Macros{
		Calories: s.TotalCalories,
		Protein:  s.TotalProtein,
		Carbs:    s.TotalCarbs,
		Fat:      s.TotalFat,
		Fiber:    s.TotalFiber,
		Sugar:    s.TotalSugar,
	}
}

// EmptySummary is the all-zero summary returned for days without entries.
func EmptySummary(userID uuid.UUID, logDate string) DailyNutritionSummary {
	return DailyNutritionSummary{UserID: userID, LogDate: logDate}
}

// AggregatedSubmission records that a submission's delta has been added to
// its daily summary. The row is written in the same transaction as the
// increment, so a submission is counted at most once.
type AggregatedSubmission struct {
	SubmissionID uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"submission_id"`
	UserID       uuid.UUID `gorm:"type:varchar(36);not null;index:idx_aggregated_submissions_user_date,priority:1" json:"user_id"`
	LogDate      string    `gorm:"size:10;not null;index:idx_aggregated_submissions_user_date,priority:2" json:"log_date"`
	AppliedAt    time.Time `gorm:"not null" json:"applied_at"`
}

func (AggregatedSubmission) TableName() string {
	return "aggregated_submissions"
}
