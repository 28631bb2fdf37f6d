package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/nutrilog/backend/internal/models"
	"gorm.io/gorm"
)

// FoodLogService stores and lists food log entries.
type FoodLogService struct {
	db *gorm.DB
}

func NewFoodLogService(db *gorm.DB) *FoodLogService {
	return &FoodLogService{db: db}
}

// CreateBatch inserts all entries in one transaction. Either every entry is
// stored or none is. IDs are assigned to entries that lack one.
func (s *FoodLogService) CreateBatch(ctx context.Context, entries []models.FoodLogEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("no entries to create")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			if err := tx.Create(&entries[i]).Error; err != nil {
				return fmt.Errorf("failed to create food log entry %d: %w", i, err)
			}
		}
		return nil
	})
}

// ListByUser returns a user's entries, newest first. A non-nil day limits
// the result to [day, day+24h).
func (s *FoodLogService) ListByUser(ctx context.Context, userID uuid.UUID, day *time.Time) ([]models.FoodLogEntry, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if day != nil {
		start := day.UTC()
		q = q.Where("logged_at >= ? AND logged_at < ?", start, start.Add(24*time.Hour))
	}

	var entries []models.FoodLogEntry
	if err := q.Order("logged_at DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list food logs: %w", err)
	}
	return entries, nil
}

// ListBySubmission returns the entries one submission wrote for userID.
func (s *FoodLogService) ListBySubmission(ctx context.Context, userID, submissionID uuid.UUID) ([]models.FoodLogEntry, error) {
	var entries []models.FoodLogEntry
	if err := s.db.WithContext(ctx).
		Where("submission_id = ? AND user_id = ?", submissionID, userID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list submission entries: %w", err)
	}
	return entries, nil
}
