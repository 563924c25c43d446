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
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeCredential    = "CREDENTIAL_ERROR"
	ErrCodeContent       = "CONTENT_ERROR"
	ErrCodeChunking      = "CHUNKING_ERROR"
	ErrCodeProvider      = "PROVIDER_ERROR"
	ErrCodeStorage       = "STORAGE_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Input errors: rejected before any status mutation
var (
	ErrMissingSourceID   = NewDomainError(ErrCodeValidation, "source ID is required")
	ErrMissingBotID      = NewDomainError(ErrCodeValidation, "bot ID is required")
	ErrInvalidSourceKind = NewDomainError(ErrCodeValidation, "invalid source kind")
)

// Not found errors
var (
	ErrSourceNotFound     = NewDomainError(ErrCodeNotFound, "knowledge source not found")
	ErrCredentialNotFound = NewDomainError(ErrCodeCredential, "no embedding API key configured for bot")
)

// Terminal ingestion errors: the source is marked failed with the message
var (
	ErrCredentialDecrypt = NewDomainError(ErrCodeCredential, "embedding API key could not be decrypted")
	ErrEmptyContent      = NewDomainError(ErrCodeContent, "resolved content is empty")
	ErrNoChunksProduced  = NewDomainError(ErrCodeChunking, "chunking produced no chunks")
)
