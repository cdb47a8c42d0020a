package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInternal          = errors.New("internal error")
	ErrDatabase          = errors.New("database error")
	ErrValidation        = errors.New("validation failed")
	ErrUpstream          = errors.New("upstream model unavailable")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrNoWork            = errors.New("no eligible items")
	ErrPublishedItem     = errors.New("item is published")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnsupported       = errors.New("speech recognition unsupported")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func NotFound(what string, id any) error {
	return NewAppError("NOT_FOUND", fmt.Sprintf("%s %v not found", what, id), ErrNotFound)
}

func StoreError(op string, cause error) error {
	return NewAppError("STORE_ERROR", op, errors.Join(ErrDatabase, cause))
}

func UpstreamError(message string, cause error) error {
	return NewAppError("UPSTREAM_ERROR", message, errors.Join(ErrUpstream, cause))
}

func MalformedError(message string, cause error) error {
	return NewAppError("MALFORMED_RESPONSE", message, errors.Join(ErrMalformedResponse, cause))
}

// HTTPStatus maps the error taxonomy onto response codes.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, ErrNoWork), errors.Is(err, ErrPublishedItem), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the operator-facing text for a failed request.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		var ae *AppError
		if errors.As(err, &ae) && ae.Code == "NOT_FOUND" {
			return ae.Message
		}
		return "not found"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrUpstream):
		return "AI service failed"
	case errors.Is(err, ErrMalformedResponse):
		return "failed to parse AI response"
	case errors.Is(err, ErrNoWork):
		return "no items to enrich; confirm items first"
	case errors.Is(err, ErrPublishedItem):
		return "published items cannot be deleted; unpublish first"
	case errors.Is(err, ErrInvalidTransition):
		return err.Error()
	case errors.Is(err, ErrDatabase):
		return "database error"
	default:
		return "internal server error"
	}
}

// GRPCStatus converts err into a gRPC status error.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch {
	case errors.Is(err, ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, ErrUpstream):
		code = codes.Unavailable
	case errors.Is(err, ErrNoWork), errors.Is(err, ErrPublishedItem), errors.Is(err, ErrInvalidTransition):
		code = codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, PublicMessage(err))
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}
