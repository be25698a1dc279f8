package editor

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/types"
)

// Export serializes the document in the import/export format.
func Export(doc *types.ResumeDocument) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

// Decode parses an import blob. Unparseable input and values of the wrong
// JSON type are rejected; missing properties decode to empty values.
func Decode(data []byte) (*types.ResumeDocument, error) {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &ImportError{Message: "document is not valid JSON", Cause: err}
	}

	if err := schemas.ValidateResume(data); err != nil {
		return nil, &ImportError{Message: "document does not match the resume format", Cause: err}
	}

	var doc types.ResumeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ImportError{Message: "failed to decode document", Cause: err}
	}
	doc.Normalize()
	return &doc, nil
}

// Export serializes the current document.
func (s *Session) Export() ([]byte, error) {
	return Export(s.Document())
}

// Import replaces the whole document with the blob. On any error the current
// document is left exactly as it was.
func (s *Session) Import(data []byte) (Snapshot, error) {
	doc, err := Decode(data)
	if err != nil {
		return s.Snapshot(), err
	}

	return s.mutate(func(current *types.ResumeDocument) error {
		*current = *doc
		s.ids = newIdentities(current)
		return nil
	})
}
