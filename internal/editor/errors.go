// Package editor owns the editable resume document: the form binder, the list
// editor for repeated entries, import/export and change notification.
package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrEntryNotFound is returned when an entry id no longer resolves, typically
	// because the entry was removed before a pending edit arrived.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrIndexOutOfRange is returned for positional operations past the end of a list.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrUnknownKind is returned for list kinds other than experience and education.
	ErrUnknownKind = errors.New("unknown list kind")
)

// ImportError reports an import blob that was rejected. The current document is left untouched.
type ImportError struct {
	Message string
	Cause   error
}

func (e *ImportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("import error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("import error: %s", e.Message)
}

func (e *ImportError) Unwrap() error {
	return e.Cause
}
