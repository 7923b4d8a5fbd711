package common

import (
	"errors"
	"fmt"

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
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrValidation   = errors.New("validation failed")
)

// Collaborator failure kinds. Callers branch on these with errors.Is to decide
// between retry, log-and-continue, or abort.
var (
	ErrAuthMissing = errors.New("credentials not configured")
	ErrTabMissing  = errors.New("worksheet not found")
	ErrNetwork     = errors.New("network failure")
	ErrConflict    = errors.New("concurrent modification")
)

// Roster contract failures.
var (
	ErrNicknameExists   = errors.New("nickname already exists")
	ErrNicknameNotFound = errors.New("nickname not found")
)

// Error codes used with AppError.
const (
	CodeConfig       = "CONFIG_ERROR"
	CodeAuthMissing  = "AUTH_MISSING"
	CodeTabMissing   = "TAB_MISSING"
	CodeNetwork      = "NETWORK_FAILURE"
	CodeStore        = "STORE_ERROR"
	CodeRoster       = "ROSTER_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// TabMissing builds the typed error returned when a worksheet does not exist.
func TabMissing(tab string) error {
	return NewAppError(CodeTabMissing, fmt.Sprintf("tab %q", tab), ErrTabMissing)
}

// NetworkFailure wraps a transport error from an external collaborator.
func NetworkFailure(op string, cause error) error {
	return NewAppError(CodeNetwork, op, errors.Join(ErrNetwork, cause))
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToStatus maps domain errors onto gRPC status codes.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrNicknameExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ErrNicknameNotFound), errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrAuthMissing):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, ErrNetwork):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
