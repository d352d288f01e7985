package common

import (
	"errors"
	"fmt"
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
	ErrDatabase     = errors.New("database error")
)

// Pipeline errors. Only ErrNoDocuments and ErrServiceUnavailable are allowed
// to stop a run; the rest are resolved per document or per item.
var (
	ErrExtraction         = errors.New("text extraction failed")
	ErrClassification     = errors.New("classification failed")
	ErrDocumentProcessing = errors.New("document processing failed")
	ErrNarrative          = errors.New("narrative generation failed")
	ErrNoDocuments        = errors.New("no documents to process")
	ErrServiceUnavailable = errors.New("ai service unavailable")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// DocumentError tags a failure with the document it belongs to.
func DocumentError(docID string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDocumentProcessing) {
		return fmt.Errorf("document %s: %w", docID, err)
	}
	return NewAppError("DOCUMENT_ERROR", "document "+docID, errors.Join(ErrDocumentProcessing, err))
}
