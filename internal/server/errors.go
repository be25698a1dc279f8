// Package server provides the HTTP API of the resume editor.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/resume-builder/internal/assist"
	"github.com/jonathan/resume-builder/internal/editor"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/types"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		importErr  *editor.ImportError
		schemaErr  *schemas.ValidationError
	)
	switch {
	case errors.As(err, &validation),
		errors.As(err, &importErr),
		errors.As(err, &schemaErr),
		errors.Is(err, types.ErrUnknownField),
		errors.Is(err, editor.ErrUnknownKind),
		errors.Is(err, assist.ErrInvalidTarget):
		return http.StatusBadRequest
	case errors.Is(err, editor.ErrEntryNotFound),
		errors.Is(err, editor.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, assist.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
