package domain

import "fmt"

// NotFoundError represents a missing record.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing records.
var ErrNotFound = NotFoundError{}

// MissingFieldError represents a request lacking a required attribute.
// Field presence is checked strictly before payload validation.
type MissingFieldError struct {
	Field string
}

func (e MissingFieldError) Error() string {
	if e.Field == "" {
		return "missing field"
	}
	return fmt.Sprintf("missing field: %s", e.Field)
}

func (e MissingFieldError) Is(target error) bool {
	_, ok := target.(MissingFieldError)
	if ok {
		return true
	}
	_, ok = target.(*MissingFieldError)
	return ok
}

var ErrMissingField = MissingFieldError{}

// InvalidPayloadError represents a candidate document that is not valid JSON.
type InvalidPayloadError struct {
	Detail string
}

func (e InvalidPayloadError) Error() string {
	if e.Detail == "" {
		return "invalid payload"
	}
	return fmt.Sprintf("invalid payload: %s", e.Detail)
}

func (e InvalidPayloadError) Is(target error) bool {
	_, ok := target.(InvalidPayloadError)
	if ok {
		return true
	}
	_, ok = target.(*InvalidPayloadError)
	return ok
}

var ErrInvalidPayload = InvalidPayloadError{}

// SaveFailedError wraps an infrastructure-level write failure. It is
// surfaced to the caller as-is; no layer below the pipeline retries.
type SaveFailedError struct {
	Cause error
}

func (e SaveFailedError) Error() string {
	if e.Cause == nil {
		return "save failed"
	}
	return fmt.Sprintf("save failed: %s", e.Cause)
}

func (e SaveFailedError) Unwrap() error { return e.Cause }

func (e SaveFailedError) Is(target error) bool {
	_, ok := target.(SaveFailedError)
	if ok {
		return true
	}
	_, ok = target.(*SaveFailedError)
	return ok
}

var ErrSaveFailed = SaveFailedError{}
