package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/resume-builder/internal/editor"
	"github.com/jonathan/resume-builder/internal/types"
)

// maxImportBytes caps the size of an imported document.
const maxImportBytes = 1 << 20

// DocumentResponse is the body of GET /document and PUT /document.
type DocumentResponse struct {
	Document   *types.ResumeDocument `json:"document"`
	Revision   uint64                `json:"revision"`
	Completion int                   `json:"completion"`
}

// FieldUpdate sets one input of the form.
type FieldUpdate struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (u *FieldUpdate) validate() error {
	if strings.TrimSpace(u.Field) == "" {
		return &ErrValidation{Field: "field", Message: "is required"}
	}
	return nil
}

// handleTemplates lists the known layout identifiers.
func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"templates": types.Templates()})
}

// handleGetDocument returns the current document with its revision.
func (s *Server) handleGetDocument(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.documentResponse())
}

func (s *Server) documentResponse() DocumentResponse {
	snap := s.session.Snapshot()
	return DocumentResponse{
		Document:   s.session.Document(),
		Revision:   snap.Revision,
		Completion: snap.Completion,
	}
}

// handleImport replaces the whole document with the request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "document too large")
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if _, err := s.session.Import(data); err != nil {
		s.logger.WithError(err).Warn("Import rejected")
		s.failure(w, r, err)
		return
	}

	s.logger.Info("Document imported")
	s.jsonResponse(w, http.StatusOK, s.documentResponse())
}

// handleExport downloads the document as resume.json.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.session.Export()
	if err != nil {
		s.failure(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="resume.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleForm returns the value of every static input.
func (s *Server) handleForm(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.session.Form())
}

// handleSetField writes one static input back into the document.
func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	var req FieldUpdate
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		s.failure(w, r, err)
		return
	}

	snap, err := s.session.SetField(req.Field, req.Value)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

// decode reads a JSON body into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(r.Body, v); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// kindFromPath resolves the {kind} path value.
func kindFromPath(r *http.Request) (editor.Kind, error) {
	return editor.ParseKind(r.PathValue("kind"))
}
