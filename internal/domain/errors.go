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
		Err:     nil,
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
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeEmbedding        = "EMBEDDING_ERROR"
	ErrCodeStorage          = "STORAGE_ERROR"
)

// Validation errors
var (
	ErrInvalidSourceType    = NewDomainError(ErrCodeValidation, "invalid source type")
	ErrInvalidGapType       = NewDomainError(ErrCodeValidation, "invalid gap record type")
	ErrInvalidChatRole      = NewDomainError(ErrCodeValidation, "invalid chat role")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrRecordNotFound  = NewDomainError(ErrCodeNotFound, "embedding record not found")
	ErrUserNotFound    = NewDomainError(ErrCodeNotFound, "user not found")
	ErrProjectNotFound = NewDomainError(ErrCodeNotFound, "project not found")
	ErrAPIKeyNotFound  = NewDomainError(ErrCodeNotFound, "api key not found")
	ErrGapNotFound     = NewDomainError(ErrCodeNotFound, "gap record not found")
)

// Already exists errors
var (
	ErrUserAlreadyExists    = NewDomainError(ErrCodeAlreadyExists, "user already exists")
	ErrProjectAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "project already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Embedding errors. Embedding failures have no degraded fallback: a truncated
// or mis-sized vector must never reach storage or search.
var (
	ErrEmbeddingFailed  = NewDomainError(ErrCodeEmbedding, "embedding generation failed")
	ErrWrongDimensions  = NewDomainError(ErrCodeEmbedding, "embedding has wrong dimensions")
	ErrEmptyEmbedInput  = NewDomainError(ErrCodeValidation, "text to embed cannot be empty")
	ErrInvalidThreshold = NewDomainError(ErrCodeValidation, "similarity threshold must be in [0,1]")
)

// Storage errors
var (
	ErrStorageFailed = NewDomainError(ErrCodeStorage, "storage operation failed")
)
