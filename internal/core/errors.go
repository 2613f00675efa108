package core

import (
	"errors"
	"fmt"
)

// Failure taxonomy for signaling operations. Handlers catch these at the
// event boundary and surface them to the caller's ack; they never crash the
// connection.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrCapabilityMismatch = errors.New("capability mismatch")
	ErrEngineFailure      = errors.New("engine failure")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTimeout            = errors.New("timeout")
)

// EngineError wraps a media-engine rejection so callers can match it with
// errors.Is(err, ErrEngineFailure) while keeping the failing op in the text.
func EngineError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrEngineFailure, op, err)
}

// ErrorCode maps a taxonomy error to the stable wire code used in error acks.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "UNAUTHENTICATED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAlreadyExists):
		return "ALREADY_EXISTS"
	case errors.Is(err, ErrCapabilityMismatch):
		return "CAPABILITY_MISMATCH"
	case errors.Is(err, ErrEngineFailure):
		return "ENGINE_FAILURE"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	default:
		return "INTERNAL"
	}
}
