package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrCodeValidation, "bad input")
	assert.Equal(t, "[VALIDATION_ERROR] bad input", err.Error())

	wrapped := NewEmbeddingError("batch failed", errors.New("timeout"))
	assert.Equal(t, "[EMBEDDING_ERROR] batch failed: timeout", wrapped.Error())
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewVectorIndexError("upsert failed", cause)

	require.ErrorIs(t, err, cause)

	var domainErr *DomainError
	require.ErrorAs(t, error(err), &domainErr)
	assert.Equal(t, ErrCodeVectorIndex, domainErr.Code)
}
