package transcription

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrInvalidInput indicates malformed input rejected before any write
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound indicates a page, element or item does not exist at the requested instant
	ErrNotFound = errors.New("not found")
	// ErrStorage indicates the persistence layer rejected a read or write
	ErrStorage = errors.New("storage error")
	// ErrPageNotEmpty indicates an attempt to delete a page that still has elements
	ErrPageNotEmpty = errors.New("page not empty")
)

// ValidationError represents malformed input. Nothing is persisted when
// one is returned.
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Offending value
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// Invalid builds a ValidationError.
func Invalid(field string, value any, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   fmt.Sprint(value),
		Message: fmt.Sprintf(format, args...),
	}
}

// StorageError wraps a failure of the underlying store.
// Partially applied writes are not rolled back.
type StorageError struct {
	Op  string // Operation being performed (e.g., "create item", "close element")
	Err error  // Underlying error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes every StorageError match ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// Storage wraps err into a StorageError, or returns nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ReferentialWarning reports a target or reference that could not be
// resolved to a known identity. The field is kept as given.
type ReferentialWarning struct {
	Kind    string `json:"kind"` // "item" or "element"
	ID      int64  `json:"id"`   // stored id of the row carrying the reference
	Ref     int64  `json:"ref"`  // unresolved value
	Message string `json:"message"`
}

func (w ReferentialWarning) String() string {
	return fmt.Sprintf("%s %d: %s (ref %d)", w.Kind, w.ID, w.Message, w.Ref)
}

// IntegrityReason is a machine-checkable chunk pairing failure code.
type IntegrityReason string

const (
	ReasonDuplicateStart IntegrityReason = "duplicate_start"
	ReasonDuplicateEnd   IntegrityReason = "duplicate_end"
	ReasonMissingStart   IntegrityReason = "missing_start"
	ReasonMissingEnd     IntegrityReason = "missing_end"
	ReasonStartAfterEnd  IntegrityReason = "start_after_end"
)

// IntegrityWarning reports an inconsistency found while pairing chunk marks.
type IntegrityWarning struct {
	Segment int             `json:"segment"`
	Reason  IntegrityReason `json:"reason"`
	Message string          `json:"message"`
}

func (w IntegrityWarning) String() string {
	return w.Message
}
