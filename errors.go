package wizard

import (
	stderrors "errors"
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

const (
	ErrCodeNotFound           = "WIZARD_NOT_FOUND"
	ErrCodeValidationRejected = "WIZARD_VALIDATION_REJECTED"
	ErrCodeResolutionFailed   = "WIZARD_RESOLUTION_FAILED"
	ErrCodeSubmissionFailed   = "WIZARD_SUBMISSION_FAILED"
	ErrCodeStaleResult        = "WIZARD_STALE_RESULT"
	ErrCodeNotActive          = "WIZARD_NOT_ACTIVE"
	ErrCodeNotCompleted       = "WIZARD_NOT_COMPLETED"
	ErrCodeBusy               = "WIZARD_BUSY"
	ErrCodeClosed             = "WIZARD_CLOSED"
	ErrCodeUnsupported        = "WIZARD_UNSUPPORTED_INPUT"
	ErrCodeUnexpectedValue    = "WIZARD_UNEXPECTED_VALUE"
	ErrCodeInvalidFact        = "WIZARD_INVALID_FACT"
)

var (
	ErrNotFound = apperrors.New("not found", apperrors.CategoryNotFound).
			WithTextCode(ErrCodeNotFound)
	ErrValidationRejected = apperrors.New("value rejected", apperrors.CategoryValidation).
				WithTextCode(ErrCodeValidationRejected)
	ErrResolutionFailed = apperrors.New("could not resolve value", apperrors.CategoryNotFound).
				WithTextCode(ErrCodeResolutionFailed)
	ErrSubmissionFailed = apperrors.New("submission failed", apperrors.CategoryExternal).
				WithTextCode(ErrCodeSubmissionFailed)
	ErrStale = apperrors.New("result arrived after the wizard moved on", apperrors.CategoryConflict).
			WithTextCode(ErrCodeStaleResult)
	ErrNotActive = apperrors.New("wizard is not active", apperrors.CategoryConflict).
			WithTextCode(ErrCodeNotActive)
	ErrNotCompleted = apperrors.New("wizard has unresolved steps", apperrors.CategoryConflict).
			WithTextCode(ErrCodeNotCompleted)
	ErrBusy = apperrors.New("operation already in progress", apperrors.CategoryConflict).
		WithTextCode(ErrCodeBusy)
	ErrClosed = apperrors.New("wizard is closed", apperrors.CategoryConflict).
			WithTextCode(ErrCodeClosed)
	ErrUnsupported = apperrors.New("input not supported by this step", apperrors.CategoryBadInput).
			WithTextCode(ErrCodeUnsupported)
	ErrUnexpectedValue = apperrors.New("unexpected value type for step", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeUnexpectedValue)
	ErrInvalidFact = apperrors.New("invalid fact record", apperrors.CategoryValidation).
			WithTextCode(ErrCodeInvalidFact)
)

// NewError returns a copy of base carrying message, source and metadata.
func NewError(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	return cloneError(base, message, source, metadata)
}

// ResolutionFailed builds a recoverable resolution error with an operator-facing message.
func ResolutionFailed(message string, source error) *apperrors.Error {
	return cloneError(ErrResolutionFailed, message, source, nil)
}

func cloneError(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	if base == nil {
		base = ErrResolutionFailed
	}
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// ErrorCode returns the go-errors text code carried by err, if any.
func ErrorCode(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// HasCode reports whether err carries the given text code.
func HasCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool {
	return apperrors.IsNotFound(err)
}

// IsRecoverable reports whether err only keeps the operator on the current step.
func IsRecoverable(err error) bool {
	switch ErrorCode(err) {
	case ErrCodeResolutionFailed, ErrCodeValidationRejected, ErrCodeUnsupported, ErrCodeUnexpectedValue:
		return true
	}
	return apperrors.IsNotFound(err) || apperrors.IsCategory(err, apperrors.CategoryBadInput) ||
		apperrors.IsValidation(err)
}

// UserMessage extracts the operator-facing text of err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ge *apperrors.Error
	if stderrors.As(err, &ge) && strings.TrimSpace(ge.Message) != "" {
		return ge.Message
	}
	return err.Error()
}

// StatusCode returns the numeric code attached to err, zero when absent.
func StatusCode(err error) int {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.Code
	}
	return 0
}
