package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/nutrilog/backend/internal/logger"
	"github.com/pageza/nutrilog/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyAggregator maintains per-user, per-day nutrition totals.
type DailyAggregator struct {
	db      *gorm.DB
	entries *FoodLogService
	log     *logger.Logger
	now     func() time.Time
}

func NewDailyAggregator(db *gorm.DB, log *logger.Logger) *DailyAggregator {
	if log == nil {
		log = logger.NewNop()
	}
	return &DailyAggregator{db: db, entries: NewFoodLogService(db), log: log, now: time.Now}
}

// ApplyDelta adds delta to the (user, day) summary in a single
// insert-or-increment statement and returns the row as it stands after the
// update. Concurrent calls for the same key never lose an increment.
func (a *DailyAggregator) ApplyDelta(ctx context.Context, userID uuid.UUID, logDate string, delta models.Macros) (*models.DailyNutritionSummary, error) {
	if err := delta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid delta: %w", err)
	}

	var out models.DailyNutritionSummary
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return a.increment(tx, userID, logDate, delta, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply daily delta: %w", err)
	}
	return &out, nil
}

// ApplySubmission applies a submission's delta at most once. The returned
// flag is false when the submission had already been counted, in which
// case the current summary is returned unchanged.
func (a *DailyAggregator) ApplySubmission(ctx context.Context, submissionID, userID uuid.UUID, logDate string, delta models.Macros) (*models.DailyNutritionSummary, bool, error) {
	if err := delta.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid delta: %w", err)
	}

	var (
		out     models.DailyNutritionSummary
		applied bool
	)
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marker := models.AggregatedSubmission{
			SubmissionID: submissionID,
			UserID:       userID,
			LogDate:      logDate,
			AppliedAt:    a.now().UTC(),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&marker)
		if res.Error != nil {
			return fmt.Errorf("failed to record submission: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return a.read(tx, userID, logDate, &out)
		}
		applied = true
		return a.increment(tx, userID, logDate, delta, &out)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to apply submission %s: %w", submissionID, err)
	}
	return &out, applied, nil
}

// GetSummary returns the summary for the day, or an all-zero summary when
// nothing has been logged.
func (a *DailyAggregator) GetSummary(ctx context.Context, userID uuid.UUID, logDate string) (*models.DailyNutritionSummary, error) {
	var out models.DailyNutritionSummary
	if err := a.read(a.db.WithContext(ctx), userID, logDate, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PendingSubmissions lists submissions with persisted entries on the day
// that have not been added to the summary.
func (a *DailyAggregator) PendingSubmissions(ctx context.Context, userID uuid.UUID, logDate string) ([]uuid.UUID, error) {
	applied := a.db.Model(&models.AggregatedSubmission{}).Select("submission_id")

	var ids []uuid.UUID
	err := a.db.WithContext(ctx).
		Model(&models.FoodLogEntry{}).
		Distinct("submission_id").
		Where("user_id = ? AND log_date = ?", userID, logDate).
		Where("submission_id NOT IN (?)", applied).
		Pluck("submission_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending submissions: %w", err)
	}
	return ids, nil
}

// Reconcile adds every pending submission of the day to the summary. It
// may run concurrently with new submissions; each one is still counted
// once. A submission that cannot be applied is logged and left pending so
// the rest of the day is still reconciled.
func (a *DailyAggregator) Reconcile(ctx context.Context, userID uuid.UUID, logDate string) (*models.DailyNutritionSummary, int, error) {
	pending, err := a.PendingSubmissions(ctx, userID, logDate)
	if err != nil {
		return nil, 0, err
	}

	count := 0
	for _, submissionID := range pending {
		entries, err := a.entries.ListBySubmission(ctx, userID, submissionID)
		if err != nil {
			return nil, count, fmt.Errorf("failed to load submission %s: %w", submissionID, err)
		}
		if len(entries) == 0 {
			continue
		}
		delta, err := models.EntriesTotal(entries)
		if err == nil {
			var applied bool
			_, applied, err = a.ApplySubmission(ctx, submissionID, userID, logDate, delta)
			if applied {
				count++
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, count, err
			}
			a.log.Warn("skipping submission during reconcile",
				"submission_id", submissionID, "user_id", userID, "log_date", logDate, "error", err)
		}
	}

	summary, err := a.GetSummary(ctx, userID, logDate)
	if err != nil {
		return nil, count, err
	}
	return summary, count, nil
}

func (a *DailyAggregator) increment(tx *gorm.DB, userID uuid.UUID, logDate string, delta models.Macros, out *models.DailyNutritionSummary) error {
	now := a.now().UTC()
	row := models.DailyNutritionSummary{
		UserID:        userID,
		LogDate:       logDate,
		TotalCalories: delta.Calories,
		TotalProtein:  delta.Protein,
		TotalCarbs:    delta.Carbs,
		TotalFat:      delta.Fat,
		TotalFiber:    delta.Fiber,
		TotalSugar:    delta.Sugar,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "log_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_calories": gorm.Expr("daily_nutrition_summaries.total_calories + ?", delta.Calories),
			"total_protein":  gorm.Expr("daily_nutrition_summaries.total_protein + ?", delta.Protein),
			"total_carbs":    gorm.Expr("daily_nutrition_summaries.total_carbs + ?", delta.Carbs),
			"total_fat":      gorm.Expr("daily_nutrition_summaries.total_fat + ?", delta.Fat),
			"total_fiber":    gorm.Expr("daily_nutrition_summaries.total_fiber + ?", delta.Fiber),
			"total_sugar":    gorm.Expr("daily_nutrition_summaries.total_sugar + ?", delta.Sugar),
			"updated_at":     now,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert daily summary: %w", err)
	}

	return tx.Where("user_id = ? AND log_date = ?", userID, logDate).Take(out).Error
}

func (a *DailyAggregator) read(tx *gorm.DB, userID uuid.UUID, logDate string, out *models.DailyNutritionSummary) error {
	err := tx.Where("user_id = ? AND log_date = ?", userID, logDate).Take(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		*out = models.EmptySummary(userID, logDate)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read daily summary: %w", err)
	}
	return nil
}
