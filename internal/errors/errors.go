// Package errors provides a lightweight structured error type (BuildError)
// for category-based classification of build failures in the CLI and the
// site assembler.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a build error for classification
type ErrorCategory string

const (
	// User-facing content and configuration errors
	CategoryConfig    ErrorCategory = "config"
	CategoryContent   ErrorCategory = "content"   // malformed or missing frontmatter
	CategoryReference ErrorCategory = "reference" // unknown component or asset reference

	// Build and processing errors
	CategoryAsset      ErrorCategory = "asset" // image decode/resize failures
	CategoryCompile    ErrorCategory = "compile"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Aborts the build
	SeverityWarning ErrorSeverity = "warning" // Recorded, build continues
)

// BuildError is a structured error with category, severity, and context
type BuildError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for BuildError
type ContextFields map[string]any

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *BuildError) WithContext(key string, value any) *BuildError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new BuildError
func New(category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new BuildError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// ContentFormatError creates a fatal content error: malformed or missing
// required frontmatter in a post. A broken post must never silently
// disappear from the index, so the whole build aborts.
func ContentFormatError(file, message string) *BuildError {
	return New(CategoryContent, SeverityFatal, message).WithContext("file", file)
}

// UnknownReferenceError creates a fatal reference error: a post references a
// component that does not exist in the registry. A half-rendered page must
// never be published.
func UnknownReferenceError(file, name string) *BuildError {
	return New(CategoryReference, SeverityFatal,
		fmt.Sprintf("unknown component %q", name)).WithContext("file", file)
}

// AssetProcessingError creates a recoverable asset error: an individual
// image failed to decode or resize. The referencing post still builds.
func AssetProcessingError(path string, err error) *BuildError {
	return Wrap(err, CategoryAsset, SeverityWarning,
		fmt.Sprintf("process image %s", path))
}

// IOError creates a fatal filesystem error with the underlying cause surfaced.
func IOError(err error, message string) *BuildError {
	return Wrap(err, CategoryFileSystem, SeverityFatal, message)
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Category == category
	}
	return false
}

// IsFatal reports whether an error must abort the build. Errors that are not
// BuildErrors are treated as fatal.
func IsFatal(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Severity == SeverityFatal
	}
	return err != nil
}

// GetCategory extracts the category from an error, or returns
// CategoryInternal if not a BuildError
func GetCategory(err error) ErrorCategory {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Category
	}
	return CategoryInternal
}
