package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/nutrilog/backend/internal/logger"
	"github.com/pageza/nutrilog/backend/internal/models"
	"github.com/pageza/nutrilog/backend/internal/types"
)

// State is a step of the ingestion pipeline.
type State string

const (
	StateReceived    State = "received"
	StateNormalizing State = "normalizing"
	StateAnalyzing   State = "analyzing"
	StateMapping     State = "mapping"
	StatePersisting  State = "persisting"
	StateAggregating State = "aggregating"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
	StateDegraded    State = "degraded"
)

const emptyResultMessage = "No food items were recognized. Try describing the meal in more detail or use a clearer photo."

// IngestionOptions tunes timeouts and retries of the pipeline.
type IngestionOptions struct {
	AnalyzerTimeout    time.Duration
	PersistenceTimeout time.Duration
	AnalyzerAttempts   int
	RetryBackoff       time.Duration
}

func (o IngestionOptions) withDefaults() IngestionOptions {
	if o.AnalyzerTimeout <= 0 {
		o.AnalyzerTimeout = 30 * time.Second
	}
	if o.PersistenceTimeout <= 0 {
		o.PersistenceTimeout = 10 * time.Second
	}
	if o.AnalyzerAttempts < 1 {
		o.AnalyzerAttempts = 1
	}
	if o.RetryBackoff < 0 {
		o.RetryBackoff = 0
	}
	return o
}

// SubmissionResult describes what a submission produced. On a degraded
// failure it is returned together with the error and carries the persisted
// entries.
type SubmissionResult struct {
	SubmissionID uuid.UUID
	State        State
	Entries      []models.FoodLogEntry
	Analysis     *types.AnalysisResult
	Summary      *models.DailyNutritionSummary
	Warnings     []string
}

// Message is a short human readable outcome.
func (r *SubmissionResult) Message() string {
	total, err := models.EntriesTotal(r.Entries)
	if err != nil {
		return fmt.Sprintf("Logged %d food item(s)", len(r.Entries))
	}
	return fmt.Sprintf("Logged %d food item(s), %d kcal", len(r.Entries), total.Calories)
}

// IngestionService runs a submission through validation, analysis,
// mapping, persistence and aggregation.
type IngestionService struct {
	normalizer *Normalizer
	analyzer   IAnalyzer
	foodLogs   IFoodLogStore
	aggregator IDailyAggregator
	images     IImageArchive
	opts       IngestionOptions
	log        *logger.Logger
	now        func() time.Time
}

// NewIngestionService wires the pipeline. images may be nil.
func NewIngestionService(
	normalizer *Normalizer,
	analyzer IAnalyzer,
	foodLogs IFoodLogStore,
	aggregator IDailyAggregator,
	images IImageArchive,
	opts IngestionOptions,
	log *logger.Logger,
) *IngestionService {
	if log == nil {
		log = logger.NewNop()
	}
	return &IngestionService{
		normalizer: normalizer,
		analyzer:   analyzer,
		foodLogs:   foodLogs,
		aggregator: aggregator,
		images:     images,
		opts:       opts.withDefaults(),
		log:        log,
		now:        time.Now,
	}
}

// Submit processes one submission for userID. Entries are either all
// persisted or none are; the daily summary reflects each persisted
// submission at most once.
func (s *IngestionService) Submit(ctx context.Context, userID uuid.UUID, sub Submission) (*SubmissionResult, error) {
	res := &SubmissionResult{SubmissionID: uuid.New(), State: StateReceived}
	log := s.log.With("submission_id", res.SubmissionID, "user_id", userID)

	if userID == uuid.Nil {
		return s.fail(res, log, newIngestError(KindInvalidInput, StateNormalizing, "missing user", nil))
	}

	res.State = StateNormalizing
	req, err := s.normalizer.Normalize(sub)
	if err != nil {
		return s.fail(res, log, err)
	}

	res.State = StateAnalyzing
	analysis, err := s.analyze(ctx, req, log)
	if err != nil {
		return s.fail(res, log, err)
	}
	res.Analysis = analysis
	res.Warnings = append(res.Warnings, analysis.Warnings...)
	if len(analysis.Items) == 0 {
		return s.fail(res, log, newIngestError(KindEmptyResult, StateAnalyzing, emptyResultMessage, nil))
	}

	res.State = StateMapping
	if err := CheckItemRanges(analysis.Items); err != nil {
		return s.fail(res, log, newIngestError(KindAnalyzerRejected, StateMapping,
			"analyzer returned implausible nutrition values", err))
	}
	now := s.now().UTC()
	entries := MapItems(analysis.Items, req.LogType)
	imageKey := s.archiveImage(ctx, userID, res.SubmissionID, req, res, log)
	for i := range entries {
		entries[i].ID = uuid.New()
		entries[i].UserID = userID
		entries[i].SubmissionID = res.SubmissionID
		entries[i].LogDate = models.LogDateFor(now)
		entries[i].LoggedAt = now
		entries[i].ImageKey = imageKey
	}

	res.State = StatePersisting
	if err := s.persist(ctx, entries); err != nil {
		return s.fail(res, log, err)
	}
	res.Entries = entries

	res.State = StateAggregating
	summary, err := s.aggregate(ctx, userID, res.SubmissionID, entries)
	if err != nil {
		res.State = StateDegraded
		log.Error("food logs persisted but daily summary not updated",
			"step", StateAggregating, "entries", len(entries), "error", err)
		return res, err
	}
	res.Summary = summary
	res.State = StateCompleted

	log.Info("food log submission completed",
		"log_type", req.LogType,
		"entries", len(entries),
		"log_date", summary.LogDate,
	)
	return res, nil
}

func (s *IngestionService) fail(res *SubmissionResult, log *logger.Logger, err error) (*SubmissionResult, error) {
	step := res.State
	res.State = StateFailed
	var ie *IngestError
	if errors.As(err, &ie) {
		log.Warn("food log submission failed", "step", step, "kind", ie.Kind, "error", err)
	} else {
		log.Error("food log submission failed", "step", step, "error", err)
	}
	return nil, err
}

// analyze calls the analyzer, retrying only when it is unavailable.
func (s *IngestionService) analyze(ctx context.Context, req *AnalyzerRequest, log *logger.Logger) (*types.AnalysisResult, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.AnalyzerAttempts; attempt++ {
		result, err := s.analyzeOnce(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if KindOf(err) != KindAnalyzerUnavailable || attempt == s.opts.AnalyzerAttempts {
			break
		}
		log.Warn("analyzer unavailable, retrying", "attempt", attempt, "error", err)

		backoff := s.opts.RetryBackoff * time.Duration(attempt)
		select {
		case <-ctx.Done():
			return nil, newIngestError(KindAnalyzerTimeout, StateAnalyzing, "request cancelled while waiting for the analyzer", ctx.Err())
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

func (s *IngestionService) analyzeOnce(ctx context.Context, req *AnalyzerRequest) (*types.AnalysisResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.AnalyzerTimeout)
	defer cancel()

	var (
		result *types.AnalysisResult
		err    error
	)
	if req.Image != nil {
		result, err = s.analyzer.AnalyzeImage(callCtx, req.Image)
	} else {
		result, err = s.analyzer.AnalyzeText(callCtx, req.Text)
	}
	if err == nil {
		return result, nil
	}

	var ae *AnalyzerError
	if errors.As(err, &ae) {
		return nil, newIngestError(ae.Kind, StateAnalyzing, ae.Message, err)
	}
	if isTimeout(err) {
		return nil, newIngestError(KindAnalyzerTimeout, StateAnalyzing, "analyzer did not respond in time", err)
	}
	return nil, newIngestError(KindAnalyzerUnavailable, StateAnalyzing, "analyzer request failed", err)
}

// archiveImage stores the photo when an archive is configured. Failures are
// reported as warnings and do not stop the submission.
func (s *IngestionService) archiveImage(ctx context.Context, userID, submissionID uuid.UUID, req *AnalyzerRequest, res *SubmissionResult, log *logger.Logger) string {
	if s.images == nil || req.Image == nil {
		return ""
	}
	key, err := s.images.Archive(ctx, userID, submissionID, req.Image)
	if err != nil {
		log.Warn("failed to archive meal image", "error", err)
		res.Warnings = append(res.Warnings, "meal photo could not be archived")
		return ""
	}
	return key
}

func (s *IngestionService) persist(ctx context.Context, entries []models.FoodLogEntry) error {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.PersistenceTimeout)
	defer cancel()

	err := s.foodLogs.CreateBatch(callCtx, entries)
	if err == nil {
		return nil
	}
	if isTimeout(err) || callCtx.Err() != nil {
		return newIngestError(KindPersistenceAmbiguous, StatePersisting,
			"saving food logs timed out; check your log before resubmitting", err)
	}
	return newIngestError(KindPersistenceError, StatePersisting, "failed to save food logs", err)
}

// aggregate applies the submission to the daily summary. It is detached
// from caller cancellation: once entries are stored the summary should
// follow even if the client has gone away.
func (s *IngestionService) aggregate(ctx context.Context, userID, submissionID uuid.UUID, entries []models.FoodLogEntry) (*models.DailyNutritionSummary, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PersistenceTimeout)
	defer cancel()

	delta, err := models.EntriesTotal(entries)
	if err != nil {
		return nil, newIngestError(KindAggregationFailed, StateAggregating,
			"food logs were saved but their totals could not be computed", err)
	}
	summary, _, err := s.aggregator.ApplySubmission(callCtx, submissionID, userID, entries[0].LogDate, delta)
	if err == nil {
		return summary, nil
	}
	if isTimeout(err) || callCtx.Err() != nil {
		return nil, newIngestError(KindAggregationAmbiguous, StateAggregating,
			"food logs were saved but the daily summary update timed out", err)
	}
	return nil, newIngestError(KindAggregationFailed, StateAggregating,
		"food logs were saved but the daily summary could not be updated", err)
}
