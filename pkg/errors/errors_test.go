package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, "INTERNAL_ERROR", http.StatusInternalServerError, "query failed")

	assert.Equal(t, "query failed: connection reset", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestFromErrorPassesThroughTypedErrors(t *testing.T) {
	got := FromError(ErrConflict)
	assert.Same(t, ErrConflict, got)

	wrapped := fmt.Errorf("while assigning: %w", ErrConflict)
	got = FromError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "CONFLICT", got.Code)
	assert.Equal(t, http.StatusConflict, got.Status)
}

func TestFromErrorNormalisesUnknownErrors(t *testing.T) {
	got := FromError(errors.New("boom"))
	require.NotNil(t, got)
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)

	assert.Nil(t, FromError(nil))
}

func TestCloneOverridesMessageOnly(t *testing.T) {
	clone := Clone(ErrValidation, "group name is required")

	assert.Equal(t, "group name is required", clone.Message)
	assert.Equal(t, ErrValidation.Code, clone.Code)
	assert.Equal(t, ErrValidation.Status, clone.Status)
	assert.Equal(t, "validation failed", ErrValidation.Message)

	same := Clone(ErrNotFound, "")
	assert.Equal(t, ErrNotFound.Message, same.Message)
}
