// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Resolve stage
	ErrCodeUnresolvableIdentifier ErrorCode = "UNRESOLVABLE_IDENTIFIER"
	ErrCodeResolverOracleFailed   ErrorCode = "RESOLVER_ORACLE_FAILED"
	ErrCodeResolverTimeout        ErrorCode = "RESOLVER_TIMEOUT"

	// Fetch stage
	ErrCodeFetchFailed       ErrorCode = "FETCH_FAILED"
	ErrCodeReviewsAPITimeout ErrorCode = "REVIEWS_API_TIMEOUT"

	// Score stage. Scoring degradation is absorbed per review and never
	// terminates a run; the code exists for logging and metrics.
	ErrCodeScoringDegraded   ErrorCode = "SCORING_DEGRADED"
	ErrCodeScoringAPITimeout ErrorCode = "SCORING_API_TIMEOUT"

	// Aggregate stage
	ErrCodeAggregationFailed ErrorCode = "AGGREGATION_FAILED"

	// Run lifecycle
	ErrCodeStageTimeout        ErrorCode = "STAGE_TIMEOUT"
	ErrCodeStageRetryExhausted ErrorCode = "STAGE_RETRY_EXHAUSTED"
	ErrCodeInvalidRunInput     ErrorCode = "INVALID_RUN_INPUT"
	ErrCodeRunNotFound         ErrorCode = "RUN_NOT_FOUND"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewUnresolvableIdentifierError creates a non-retryable resolution error.
// The upstream error text is preserved; no stand-in identifiers are guessed.
func NewUnresolvableIdentifierError(inputURL, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnresolvableIdentifier,
		Message:   fmt.Sprintf("Could not resolve a product identifier from %s", inputURL),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewResolverOracleFailedError creates a retryable resolution-oracle error.
func NewResolverOracleFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeResolverOracleFailed,
		Message:   "Identifier resolution oracle call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResolverTimeoutError creates a retryable resolver timeout error.
func NewResolverTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeResolverTimeout,
		Message:   "Identifier resolution timed out",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFetchFailedError creates a retryable first-page fetch error.
func NewFetchFailedError(productID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFetchFailed,
		Message:   fmt.Sprintf("Failed to fetch reviews for product %s", productID),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReviewsAPITimeoutError creates a retryable reviews-provider timeout error.
func NewReviewsAPITimeoutError(productID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReviewsAPITimeout,
		Message:   fmt.Sprintf("Reviews provider timed out for product %s", productID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewScoringDegradedError records a per-review scoring failure that was
// absorbed by the fallback policy.
func NewScoringDegradedError(reviewID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringDegraded,
		Message:   fmt.Sprintf("Sentiment scoring degraded for review %s", reviewID),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewScoringAPITimeoutError creates a scoring-oracle timeout error.
func NewScoringAPITimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringAPITimeout,
		Message:   "Sentiment scoring oracle timed out",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAggregationFailedError creates a non-retryable aggregation error.
func NewAggregationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAggregationFailed,
		Message:   "Report aggregation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStageTimeoutError creates a terminal stage timeout error.
func NewStageTimeoutError(stage string, timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeStageTimeout,
		Message:   fmt.Sprintf("Stage '%s' exceeded its %s start-to-close timeout", stage, timeout),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStageRetryExhaustedError wraps the last attempt's error after the
// configured attempts are used up; terminal for the run.
func NewStageRetryExhaustedError(stage string, attempts int, lastErr error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStageRetryExhausted,
		Message:   fmt.Sprintf("Stage '%s' failed after %d attempts", stage, attempts),
		Details:   lastErr.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRunInputError creates a non-retryable submission validation error.
func NewInvalidRunInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRunInput,
		Message:   "Run request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRunNotFoundError creates a non-retryable unknown-run error.
func NewRunNotFoundError(runID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRunNotFound,
		Message:   fmt.Sprintf("No run found for runId %s", runID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExternalServiceError creates a retryable generic external-service error.
func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrorCode(fmt.Sprintf("%s_SERVICE_ERROR", strings.ToUpper(service))),
		Message:   fmt.Sprintf("Service '%s' call failed", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTimeoutError creates a retryable generic timeout error.
func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes (identical
// by convention, kept explicit so the process model stays reviewable).
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeUnresolvableIdentifier: "UNRESOLVABLE_IDENTIFIER",
	ErrCodeResolverOracleFailed:   "RESOLVER_ORACLE_FAILED",
	ErrCodeResolverTimeout:        "RESOLVER_TIMEOUT",
	ErrCodeFetchFailed:            "FETCH_FAILED",
	ErrCodeReviewsAPITimeout:      "REVIEWS_API_TIMEOUT",
	ErrCodeScoringDegraded:        "SCORING_DEGRADED",
	ErrCodeScoringAPITimeout:      "SCORING_API_TIMEOUT",
	ErrCodeAggregationFailed:      "AGGREGATION_FAILED",
	ErrCodeStageTimeout:           "STAGE_TIMEOUT",
	ErrCodeStageRetryExhausted:    "STAGE_RETRY_EXHAUSTED",
	ErrCodeInvalidRunInput:        "INVALID_RUN_INPUT",
	ErrCodeRunNotFound:            "RUN_NOT_FOUND",
}

// GetRetryCount returns the recommended retry count per error code. The
// counts mirror the stage retry policy: transient upstream failures get the
// remaining stage attempts, timeouts get fewer, business errors none.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeResolverOracleFailed,
		ErrCodeFetchFailed:
		return 2 // Retryable technical errors: attempts 2 and 3 of the stage

	case ErrCodeResolverTimeout,
		ErrCodeReviewsAPITimeout,
		ErrCodeScoringAPITimeout:
		return 1 // Timeouts: one more attempt before giving up

	default:
		return 0 // Business errors and terminal run errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// IsRetryable reports whether err may be retried by the stage executor.
// StandardErrors carry the decision explicitly; anything else is treated as
// transient so the engine's bounded retry still applies.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return true
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "RESOLVER") || strings.Contains(codeStr, "IDENTIFIER"):
		return "RESOLVE"
	case strings.Contains(codeStr, "FETCH") || strings.Contains(codeStr, "REVIEWS"):
		return "FETCH"
	case strings.Contains(codeStr, "SCORING"):
		return "SCORE"
	case strings.Contains(codeStr, "AGGREGATION"):
		return "AGGREGATE"
	case strings.Contains(codeStr, "STAGE") || strings.Contains(codeStr, "RUN"):
		return "LIFECYCLE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
