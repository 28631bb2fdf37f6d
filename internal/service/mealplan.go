package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pageza/nutrilog/backend/internal/logger"
)

const mealPlanPath = "/generate-nutrition"

// ErrMealPlanNotConfigured is returned when no upstream URL or key is set.
var ErrMealPlanNotConfigured = errors.New("meal plan service is not configured")

// MealPlanResponse wraps the upstream reply. Exactly one of
// ProviderResponse and ProviderResponseText is set.
type MealPlanResponse struct {
	Status               int             `json:"status"`
	ProviderResponse     json.RawMessage `json:"providerResponse,omitempty"`
	ProviderResponseText *string         `json:"providerResponseText,omitempty"`
}

// MealPlanService forwards meal plan requests to an external nutrition
// planner.
type MealPlanService struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logger.Logger
}

func NewMealPlanService(baseURL, apiKey string, log *logger.Logger) *MealPlanService {
	if log == nil {
		log = logger.NewNop()
	}
	return &MealPlanService{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

// Configured reports whether both the upstream URL and API key are set.
func (s *MealPlanService) Configured() bool {
	return s.baseURL != "" && s.apiKey != ""
}

// MissingConfig names the first missing setting, or "" when configured.
func (s *MealPlanService) MissingConfig() string {
	switch {
	case s.baseURL == "":
		return "MEALPLAN_BASE_URL"
	case s.apiKey == "":
		return "MEALPLAN_API_KEY"
	}
	return ""
}

// Generate posts payload upstream and returns the provider's status and
// body. A non-2xx upstream status is not an error.
func (s *MealPlanService) Generate(ctx context.Context, payload []byte) (*MealPlanResponse, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("%w: %s not set", ErrMealPlanNotConfigured, s.MissingConfig())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+mealPlanPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	out := &MealPlanResponse{Status: resp.StatusCode}
	if json.Valid(body) {
		out.ProviderResponse = json.RawMessage(body)
	} else {
		text := string(body)
		out.ProviderResponseText = &text
	}

	if resp.StatusCode >= 400 {
		s.log.Warn("Meal plan provider returned an error", "status", resp.StatusCode)
	}
	return out, nil
}
