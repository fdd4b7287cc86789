// Package errors provides standardized error types for the income
// classification pipeline. This package defines PipelineError for consistent
// error handling across all public APIs, with operation context, an error
// kind taxonomy, and error wrapping support.
package errors

import (
	"fmt"
)

// Kind classifies a PipelineError into the pipeline's error taxonomy.
type Kind int

const (
	// KindIngestion indicates bad or missing source data.
	KindIngestion Kind = iota
	// KindSchema indicates a feature set mismatch between the caller and the
	// trained schema.
	KindSchema
	// KindValidation indicates a value outside its declared valid domain.
	KindValidation
	// KindTraining indicates a model family failed to converge.
	KindTraining
	// KindArtifact indicates a corrupt or missing persisted artifact.
	KindArtifact
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindIngestion:
		return "ingestion"
	case KindSchema:
		return "schema"
	case KindValidation:
		return "validation"
	case KindTraining:
		return "training"
	case KindArtifact:
		return "artifact"
	default:
		return "unknown"
	}
}

// PipelineError represents standardized errors across all pipeline operations
type PipelineError struct {
	Kind    Kind   // Error taxonomy kind
	Op      string // Operation name (e.g., "Fit", "Predict", "Load")
	Column  string // Feature/column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s error in %s on feature '%s': %s", e.Kind, e.Op, e.Column, e.Message)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Kind, e.Op, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is(). Two PipelineErrors
// match when their kinds match and the target does not constrain further, or
// when kind, operation and column all agree.
func (e *PipelineError) Is(target error) bool {
	pe, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	if pe.Op == "" && pe.Column == "" && pe.Message == "" {
		return e.Kind == pe.Kind
	}
	return e.Kind == pe.Kind && e.Op == pe.Op && e.Column == pe.Column
}

// IsKind reports whether err is a PipelineError of the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if pe, ok := err.(*PipelineError); ok {
			return pe.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Common error constructors for consistent error creation

// NewIngestionError creates an error for unreadable or invalid source data
func NewIngestionError(op, message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindIngestion, Op: op, Message: message, Cause: cause}
}

// NewSchemaError creates an error for a feature missing from or unknown to
// the trained schema
func NewSchemaError(op, column, message string) *PipelineError {
	return &PipelineError{Kind: KindSchema, Op: op, Column: column, Message: message}
}

// NewValidationError creates an error for a feature value outside its
// declared physical range
func NewValidationError(op, column, message string) *PipelineError {
	return &PipelineError{Kind: KindValidation, Op: op, Column: column, Message: message}
}

// NewTrainingError creates an error for a model family that failed to fit
func NewTrainingError(op, family string, cause error) *PipelineError {
	return &PipelineError{
		Kind:    KindTraining,
		Op:      op,
		Message: fmt.Sprintf("model family %s failed to fit", family),
		Cause:   cause,
	}
}

// NewArtifactError creates an error for a corrupt or missing champion artifact
func NewArtifactError(op, message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindArtifact, Op: op, Message: message, Cause: cause}
}

// Predefined error variables for common cases
var (
	// ErrEmptyDataset indicates an ingested source with no data rows
	ErrEmptyDataset = &PipelineError{
		Kind:    KindIngestion,
		Op:      "Load",
		Message: "dataset contains no rows",
	}

	// ErrNotLoaded indicates a prediction attempt on an unloaded engine
	ErrNotLoaded = &PipelineError{
		Kind:    KindArtifact,
		Op:      "Predict",
		Message: "no champion artifact loaded",
	}

	// ErrAllFamiliesFailed indicates that no model family produced a usable
	// estimator, which aborts the training run
	ErrAllFamiliesFailed = &PipelineError{
		Kind:    KindTraining,
		Op:      "Select",
		Message: "all model families failed to fit",
	}
)
