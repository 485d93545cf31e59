package util

import (
	"fmt"
)

// PageID represents a unique page identifier
type PageID uint64

// InvalidPageID marks a frame that holds no page
const InvalidPageID = PageID(^uint64(0))

// PageSize represents the standard page size (4KB)
const PageSize = 4096

// MAX_MAP_SIZE bounds the mmap'd region of a page file (1GB)
const MAX_MAP_SIZE = 1 << 30

// ErrorType represents different types of database errors
type ErrorType int

const (
	ErrTypeNotFound ErrorType = iota
	ErrTypeIOError
	ErrTypeCorruption
)

// DatabaseError represents a database-specific error
type DatabaseError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DatabaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("bufmgr error [%d]: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("bufmgr error [%d]: %s", e.Type, e.Message)
}

func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// NewDatabaseError creates a new database error
func NewDatabaseError(errType ErrorType, message string, cause error) *DatabaseError {
	return &DatabaseError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// With attaches a context value and returns the same error for chaining.
func (e *DatabaseError) With(key string, value interface{}) *DatabaseError {
	e.Context[key] = value
	return e
}

// NewInvariantError reports a frame table / directory desynchronization.
func NewInvariantError(message string) *DatabaseError {
	return NewDatabaseError(ErrTypeCorruption, message, ErrInvariantViolation)
}
