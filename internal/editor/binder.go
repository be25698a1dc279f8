package editor

import (
	"github.com/jonathan/resume-builder/internal/types"
)

// Form returns the value of every static input, used to populate the form on
// load and after an import.
func (s *Session) Form() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	form := make(map[string]string, len(types.StaticFields))
	for _, field := range types.StaticFields {
		form[field], _ = s.doc.Field(field)
	}
	return form
}

// SetField writes one static input back into the document.
func (s *Session) SetField(field, value string) (Snapshot, error) {
	return s.mutate(func(doc *types.ResumeDocument) error {
		return doc.SetField(field, value)
	})
}
