package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/nutrilog/backend/internal/models"
	"github.com/pageza/nutrilog/backend/internal/types"
)

// IAnalyzer is the food analysis backend used by the ingestion pipeline.
type IAnalyzer interface {
	AnalyzeText(ctx context.Context, text string) (*types.AnalysisResult, error)
	AnalyzeImage(ctx context.Context, img *ImageUpload) (*types.AnalysisResult, error)
}

// IAnalyzerHealth reports on the analyzer backend.
type IAnalyzerHealth interface {
	Health(ctx context.Context) (map[string]interface{}, error)
	Config(ctx context.Context) (map[string]interface{}, error)
}

// IFoodLogStore persists and lists food log entries.
type IFoodLogStore interface {
	CreateBatch(ctx context.Context, entries []models.FoodLogEntry) error
	ListByUser(ctx context.Context, userID uuid.UUID, day *time.Time) ([]models.FoodLogEntry, error)
}

// IDailyAggregator maintains daily nutrition summaries.
type IDailyAggregator interface {
	ApplySubmission(ctx context.Context, submissionID, userID uuid.UUID, logDate string, delta models.Macros) (*models.DailyNutritionSummary, bool, error)
	GetSummary(ctx context.Context, userID uuid.UUID, logDate string) (*models.DailyNutritionSummary, error)
	Reconcile(ctx context.Context, userID uuid.UUID, logDate string) (*models.DailyNutritionSummary, int, error)
}

// IImageArchive stores submitted meal photos.
type IImageArchive interface {
	Archive(ctx context.Context, userID, submissionID uuid.UUID, img *ImageUpload) (string, error)
	PresignURL(ctx context.Context, key string) (string, error)
}

// IIngestionService runs the submission pipeline.
type IIngestionService interface {
	Submit(ctx context.Context, userID uuid.UUID, sub Submission) (*SubmissionResult, error)
}

// IMealPlanService forwards meal plan requests upstream.
type IMealPlanService interface {
	Configured() bool
	MissingConfig() string
	Generate(ctx context.Context, payload []byte) (*MealPlanResponse, error)
}

// IAuthService validates and issues access tokens.
type IAuthService interface {
	ValidateToken(token string) (*types.TokenClaims, error)
	GenerateToken(claims *types.TokenClaims) (string, error)
}
