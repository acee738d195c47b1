package service

import (
	"errors"
	"fmt"
	"net/http"

	"line_supervisor/internal/aggregator"
	"line_supervisor/internal/repository"
	"line_supervisor/internal/station"
)

// Error codes returned to consoles.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeAlreadyAssociated = "ALREADY_ASSOCIATED"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Error is a caller-facing failure with a stable code.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the code to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyAssociated, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func validationError(msg string) *Error { return &Error{Code: CodeValidation, Message: msg} }

func notFound(what string) *Error { return &Error{Code: CodeNotFound, Message: what + " not found"} }

func conflict(msg string) *Error { return &Error{Code: CodeConflict, Message: msg} }

// AsError converts any error into an *Error. Known domain sentinels keep their
// meaning; anything else becomes INTERNAL_ERROR.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, station.ErrUnknownStation), errors.Is(err, aggregator.ErrUnknownStation):
		return &Error{Code: CodeNotFound, Message: "station not found", Err: err}
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: "record not found", Err: err}
	case errors.Is(err, aggregator.ErrInvalidTarget):
		return &Error{Code: CodeValidation, Message: aggregator.ErrInvalidTarget.Error(), Err: err}
	case errors.Is(err, station.ErrInvalidCompletion):
		return &Error{Code: CodeValidation, Message: station.ErrInvalidCompletion.Error(), Err: err}
	case errors.Is(err, station.ErrInvalidTransition):
		return &Error{Code: CodeConflict, Message: "invalid state transition", Err: err}
	case errors.Is(err, aggregator.ErrAlreadyRunning):
		return &Error{Code: CodeConflict, Message: "line already started", Err: err}
	case errors.Is(err, aggregator.ErrNotArmed):
		return &Error{Code: CodeConflict, Message: "line is not armed", Err: err}
	case errors.Is(err, repository.ErrDuplicate):
		return &Error{Code: CodeConflict, Message: "record already exists", Err: err}
	}
	return &Error{Code: CodeInternal, Message: "internal error", Err: err}
}
