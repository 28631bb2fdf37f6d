package service

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a submission failed.
type FailureKind string

const (
	KindInvalidInput         FailureKind = "invalid_input"
	KindAnalyzerUnavailable  FailureKind = "analyzer_unavailable"
	KindAnalyzerTimeout      FailureKind = "analyzer_timeout"
	KindAnalyzerRejected     FailureKind = "analyzer_rejected"
	KindEmptyResult          FailureKind = "empty_result"
	KindPersistenceError     FailureKind = "persistence_error"
	KindPersistenceAmbiguous FailureKind = "persistence_ambiguous"
	KindAggregationFailed    FailureKind = "aggregation_failed"
	KindAggregationAmbiguous FailureKind = "aggregation_ambiguous"
)

// Retryable reports whether resubmitting the same input may succeed
// without the caller changing anything. Ambiguous failures are not
// retryable: the entries may already exist.
func (k FailureKind) Retryable() bool {
	switch k {
	case KindAnalyzerUnavailable, KindAnalyzerTimeout, KindPersistenceError:
		return true
	}
	return false
}

// Degraded reports whether entries were persisted while the daily summary
// may be stale.
func (k FailureKind) Degraded() bool {
	return k == KindAggregationFailed || k == KindAggregationAmbiguous
}

// IngestError is returned by every step of the ingestion pipeline.
type IngestError struct {
	Kind    FailureKind
	Step    State
	Message string
	Details string
	Err     error
}

func (e *IngestError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Details)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", msg, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s)", msg, e.Kind)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

func newIngestError(kind FailureKind, step State, message string, err error) *IngestError {
	return &IngestError{Kind: kind, Step: step, Message: message, Err: err}
}

func invalidInput(details string) *IngestError {
	return &IngestError{
		Kind:    KindInvalidInput,
		Step:    StateNormalizing,
		Message: "invalid submission",
		Details: details,
	}
}

// KindOf returns the failure kind carried by err, or "" if err is not an
// IngestError.
func KindOf(err error) FailureKind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

// AnalyzerError is returned by AnalyzerClient for any failed call.
type AnalyzerError struct {
	Kind       FailureKind
	StatusCode int
	Message    string
	Err        error
}

func (e *AnalyzerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("analyzer error (status %d): %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("analyzer error: %s: %v", e.Message, e.Err)
	}
	return "analyzer error: " + e.Message
}

func (e *AnalyzerError) Unwrap() error {
	return e.Err
}
