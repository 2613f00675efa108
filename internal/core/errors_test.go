package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEngineErrorMatchesSentinel(t *testing.T) {
	err := EngineError("produce", errors.New("dtls not ready"))
	require.ErrorIs(t, err, ErrEngineFailure)
	require.Contains(t, err.Error(), "produce")
	require.Contains(t, err.Error(), "dtls not ready")
}

func TestErrorCodeMapping(t *testing.T) {
	cases := map[string]error{
		"UNAUTHENTICATED":     ErrUnauthenticated,
		"NOT_FOUND":           ErrNotFound,
		"ALREADY_EXISTS":      ErrAlreadyExists,
		"CAPABILITY_MISMATCH": ErrCapabilityMismatch,
		"ENGINE_FAILURE":      ErrEngineFailure,
		"UNAUTHORIZED":        ErrUnauthorized,
		"TIMEOUT":             ErrTimeout,
	}
	for code, sentinel := range cases {
		require.Equal(t, code, ErrorCode(sentinel))
		// wrapped errors still map
		require.Equal(t, code, ErrorCode(fmt.Errorf("op: %w", sentinel)))
	}
	require.Equal(t, "INTERNAL", ErrorCode(errors.New("surprise")))
}
