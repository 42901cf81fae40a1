package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing source folders or files.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks an extraction result that fails required-field or type checks.
	ErrValidation = errors.New("validation failed")
	// ErrEmptyResult marks an extraction call that returned no content.
	ErrEmptyResult = errors.New("empty extraction result")
	// ErrIntegrity marks a store invariant violation.
	ErrIntegrity = errors.New("store integrity violated")
	// ErrInsufficientData marks statistics or report requests on too few records.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrZeroBaseline marks a percentage-change computation against a zero first value.
	ErrZeroBaseline = errors.New("zero baseline")
)
