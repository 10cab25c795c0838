package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithInternalKeepsOriginal(t *testing.T) {
	cause := errors.New("duplicate key value")
	err := ErrConflict.WithInternal(cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, ErrConflict.Code, err.Code)
	require.Contains(t, err.Error(), "duplicate key value")

	// Sentinel must stay untouched.
	require.Nil(t, ErrConflict.Internal)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(ErrInvalidTransition)
	require.Equal(t, http.StatusConflict, appErr.StatusCode)

	wrapped := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, wrapped.Code)
	require.EqualError(t, wrapped.Internal, "boom")
}

func TestWithMessage(t *testing.T) {
	err := ErrForbidden.WithMessage("only the requester may nominate a substitute")
	require.Equal(t, "FORBIDDEN", err.Code)
	require.Equal(t, "only the requester may nominate a substitute", err.Message)
	require.Equal(t, "Permission denied", ErrForbidden.Message)
}
