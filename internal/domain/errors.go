package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// NotFoundError is returned when the backend answers 404 for a resource.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "record not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ValidationError is a local schema failure. It never reaches the backend.
type ValidationError struct {
	Field   string
	Msg     string
	Details map[string]string
	Err     error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "invalid input"
}

func (e ValidationError) Unwrap() error { return e.Err }

// UnauthorizedError means the caller holds no usable session credential.
type UnauthorizedError struct {
	Msg string
	Err error
}

func (e UnauthorizedError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "unauthorized request"
}

func (e UnauthorizedError) Unwrap() error { return e.Err }

// UpstreamError carries a non-2xx, non-404 backend answer.
type UpstreamError struct {
	Status int
	Msg    string
	Err    error
}

func (e UpstreamError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Status > 0 {
		return fmt.Sprintf("backend responded %d %s", e.Status, http.StatusText(e.Status))
	}
	return "backend request failed"
}

func (e UpstreamError) Unwrap() error { return e.Err }

// InternalError covers network failures and malformed backend bodies.
type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsUnauthorized(err error) bool {
	var target UnauthorizedError
	return errors.As(err, &target)
}

func IsUpstream(err error) bool {
	var target UpstreamError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

// UpstreamStatus returns the backend status carried by err, or 0.
func UpstreamStatus(err error) int {
	var target UpstreamError
	if errors.As(err, &target) {
		return target.Status
	}
	return 0
}

// ValidationDetails returns the per-field messages carried by err, if any.
func ValidationDetails(err error) map[string]string {
	var target ValidationError
	if errors.As(err, &target) {
		return target.Details
	}
	return nil
}
