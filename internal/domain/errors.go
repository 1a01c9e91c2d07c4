package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeChunking    = "CHUNKING_ERROR"
	ErrCodeEmbedding   = "EMBEDDING_ERROR"
	ErrCodeVectorIndex = "VECTOR_INDEX_ERROR"
	ErrCodeQuery       = "QUERY_ERROR"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

// Chunking errors
var (
	ErrEmptyDocument = NewDomainError(ErrCodeChunking, "cannot chunk empty document")
)

// Query errors
var (
	ErrEmptyQuestion = NewDomainError(ErrCodeValidation, "question cannot be empty")
)

// Not found errors
var (
	ErrDocumentNotFound  = NewDomainError(ErrCodeNotFound, "document not found")
	ErrIngestJobNotFound = NewDomainError(ErrCodeNotFound, "ingest job not found")
)

// NewChunkingError wraps an error as a chunking failure.
func NewChunkingError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeChunking, message, err)
}

// NewEmbeddingError wraps an error as an embedding failure (service
// unreachable or malformed response after retries exhausted).
func NewEmbeddingError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbedding, message, err)
}

// NewVectorIndexError wraps an error as a vector index failure.
func NewVectorIndexError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeVectorIndex, message, err)
}

// NewQueryError wraps an error as a query failure.
func NewQueryError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeQuery, message, err)
}
