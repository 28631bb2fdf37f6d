package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/pageza/nutrilog/backend/internal/models"
	"github.com/pageza/nutrilog/backend/internal/service"
	"github.com/pageza/nutrilog/backend/internal/types"
)

type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) Submit(ctx context.Context, userID uuid.UUID, sub service.Submission) (*service.SubmissionResult, error) {
	args := m.Called(ctx, userID, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmissionResult), args.Error(1)
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) AnalyzeText(ctx context.Context, text string) (*types.AnalysisResult, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AnalysisResult), args.Error(1)
}

func (m *MockAnalyzer) AnalyzeImage(ctx context.Context, img *service.ImageUpload) (*types.AnalysisResult, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AnalysisResult), args.Error(1)
}

func (m *MockAnalyzer) Health(ctx context.Context) (map[string]interface{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockAnalyzer) Config(ctx context.Context) (map[string]interface{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

type MockFoodLogStore struct {
	mock.Mock
}

func (m *MockFoodLogStore) CreateBatch(ctx context.Context, entries []models.FoodLogEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *MockFoodLogStore) ListByUser(ctx context.Context, userID uuid.UUID, day *time.Time) ([]models.FoodLogEntry, error) {
	args := m.Called(ctx, userID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FoodLogEntry), args.Error(1)
}

type MockDailyAggregator struct {
	mock.Mock
}

func (m *MockDailyAggregator) ApplySubmission(ctx context.Context, submissionID, userID uuid.UUID, logDate string, delta models.Macros) (*models.DailyNutritionSummary, bool, error) {
	args := m.Called(ctx, submissionID, userID, logDate, delta)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.DailyNutritionSummary), args.Bool(1), args.Error(2)
}

func (m *MockDailyAggregator) GetSummary(ctx context.Context, userID uuid.UUID, logDate string) (*models.DailyNutritionSummary, error) {
	args := m.Called(ctx, userID, logDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyNutritionSummary), args.Error(1)
}

func (m *MockDailyAggregator) Reconcile(ctx context.Context, userID uuid.UUID, logDate string) (*models.DailyNutritionSummary, int, error) {
	args := m.Called(ctx, userID, logDate)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).(*models.DailyNutritionSummary), args.Int(1), args.Error(2)
}

type MockImageArchive struct {
	mock.Mock
}

func (m *MockImageArchive) Archive(ctx context.Context, userID, submissionID uuid.UUID, img *service.ImageUpload) (string, error) {
	args := m.Called(ctx, userID, submissionID, img)
	return args.String(0), args.Error(1)
}

func (m *MockImageArchive) PresignURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

type MockMealPlanService struct {
	mock.Mock
}

func (m *MockMealPlanService) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockMealPlanService) MissingConfig() string {
	return m.Called().String(0)
}

func (m *MockMealPlanService) Generate(ctx context.Context, payload []byte) (*service.MealPlanResponse, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MealPlanResponse), args.Error(1)
}
