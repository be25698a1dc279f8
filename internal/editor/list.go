package editor

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/types"
)

// Kind names a repeated-entry list of the document.
type Kind string

// List kinds
const (
	KindExperience Kind = "experience"
	KindEducation  Kind = "education"
)

// ParseKind validates a list kind coming from a request path.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindExperience, KindEducation:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Fields returns the editable field names of entries of this kind.
func (k Kind) Fields() []string {
	if k == KindEducation {
		return types.EducationFields
	}
	return types.ExperienceFields
}

// Control is one regenerated editing form bound to an entry.
type Control struct {
	ID     string            `json:"id"`
	Index  int               `json:"index"`
	Fields map[string]string `json:"fields"`
}

// Row is one entry as currently displayed, used to rebuild a list after a drag.
type Row struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// newIdentities assigns a fresh id to every entry of doc.
func newIdentities(doc *types.ResumeDocument) map[Kind][]string {
	ids := map[Kind][]string{
		KindExperience: make([]string, len(doc.Experience)),
		KindEducation:  make([]string, len(doc.Education)),
	}
	for _, list := range ids {
		for i := range list {
			list[i] = uuid.NewString()
		}
	}
	return ids
}

func entryCount(doc *types.ResumeDocument, kind Kind) int {
	if kind == KindEducation {
		return len(doc.Education)
	}
	return len(doc.Experience)
}

func entryFields(doc *types.ResumeDocument, kind Kind, index int) map[string]string {
	fields := make(map[string]string, len(kind.Fields()))
	for _, f := range kind.Fields() {
		var v string
		if kind == KindEducation {
			v, _ = doc.Education[index].Get(f)
		} else {
			v, _ = doc.Experience[index].Get(f)
		}
		fields[f] = v
	}
	return fields
}

func checkKind(kind Kind) error {
	_, err := ParseKind(string(kind))
	return err
}

// indexOfLocked resolves an entry id to its current position.
func (s *Session) indexOfLocked(kind Kind, id string) (int, error) {
	idx := slices.Index(s.ids[kind], id)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s %s", ErrEntryNotFound, kind, id)
	}
	return idx, nil
}

// IndexOf resolves an entry id to its current position.
func (s *Session) IndexOf(kind Kind, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOfLocked(kind, id)
}

// Controls regenerates the bound editing forms of a list. Callers must
// replace, not patch, previously issued controls after a structural change.
func (s *Session) Controls(kind Kind) ([]Control, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	controls := make([]Control, entryCount(s.doc, kind))
	for i := range controls {
		controls[i] = Control{
			ID:     s.ids[kind][i],
			Index:  i,
			Fields: entryFields(s.doc, kind, i),
		}
	}
	return controls, nil
}

// AddEntry appends a blank entry and returns its position and id.
func (s *Session) AddEntry(kind Kind) (int, string, Snapshot, error) {
	if err := checkKind(kind); err != nil {
		return -1, "", Snapshot{}, err
	}

	index, id := -1, uuid.NewString()
	snap, err := s.mutate(func(doc *types.ResumeDocument) error {
		if kind == KindEducation {
			doc.Education = append(doc.Education, types.EducationEntry{})
		} else {
			doc.Experience = append(doc.Experience, types.ExperienceEntry{})
		}
		s.ids[kind] = append(s.ids[kind], id)
		index = len(s.ids[kind]) - 1
		return nil
	})
	return index, id, snap, err
}

// RemoveEntry deletes the entry at index; later entries shift down by one.
func (s *Session) RemoveEntry(kind Kind, index int) (Snapshot, error) {
	if err := checkKind(kind); err != nil {
		return Snapshot{}, err
	}
	return s.mutate(func(doc *types.ResumeDocument) error {
		return s.removeLocked(doc, kind, index)
	})
}

// RemoveEntryByID deletes the entry with the given id.
func (s *Session) RemoveEntryByID(kind Kind, id string) (Snapshot, error) {
	if err := checkKind(kind); err != nil {
		return Snapshot{}, err
	}
	return s.mutate(func(doc *types.ResumeDocument) error {
		index, err := s.indexOfLocked(kind, id)
		if err != nil {
			return err
		}
		return s.removeLocked(doc, kind, index)
	})
}

func (s *Session) removeLocked(doc *types.ResumeDocument, kind Kind, index int) error {
	if index < 0 || index >= entryCount(doc, kind) {
		return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, kind, index)
	}
	if kind == KindEducation {
		doc.Education = slices.Delete(doc.Education, index, index+1)
	} else {
		doc.Experience = slices.Delete(doc.Experience, index, index+1)
	}
	s.ids[kind] = slices.Delete(s.ids[kind], index, index+1)
	return nil
}

// UpdateEntry writes one field of the entry currently at index. Any string is accepted.
func (s *Session) UpdateEntry(kind Kind, index int, field, value string) (Snapshot, error) {
	if err := checkKind(kind); err != nil {
		return Snapshot{}, err
	}
	return s.mutate(func(doc *types.ResumeDocument) error {
		return updateLocked(doc, kind, index, field, value)
	})
}

// UpdateEntryByID writes one field of the entry with the given id. A stale id
// is rejected with ErrEntryNotFound and nothing is written.
func (s *Session) UpdateEntryByID(kind Kind, id, field, value string) (Snapshot, error) {
	if err := checkKind(kind); err != nil {
		return Snapshot{}, err
	}
	return s.mutate(func(doc *types.ResumeDocument) error {
		index, err := s.indexOfLocked(kind, id)
		if err != nil {
			return err
		}
		return updateLocked(doc, kind, index, field, value)
	})
}

func updateLocked(doc *types.ResumeDocument, kind Kind, index int, field, value string) error {
	if index < 0 || index >= entryCount(doc, kind) {
		return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, kind, index)
	}
	if kind == KindEducation {
		return doc.Education[index].Set(field, value)
	}
	return doc.Experience[index].Set(field, value)
}

// Reorder replaces the list with rows in their displayed order. Entry contents
// come from the rows, not from the stored entries, so edits still in flight
// when a drag completes are kept. Rows whose id is unknown get a fresh id.
func (s *Session) Reorder(kind Kind, rows []Row) (Snapshot, error) {
	if err := checkKind(kind); err != nil {
		return Snapshot{}, err
	}

	return s.mutate(func(doc *types.ResumeDocument) error {
		ids := make([]string, len(rows))
		seen := make(map[string]bool, len(rows))
		experience := make([]types.ExperienceEntry, 0, len(rows))
		education := make([]types.EducationEntry, 0, len(rows))

		for i, row := range rows {
			if kind == KindEducation {
				var entry types.EducationEntry
				for f, v := range row.Fields {
					if err := entry.Set(f, v); err != nil {
						return err
					}
				}
				education = append(education, entry)
			} else {
				var entry types.ExperienceEntry
				for f, v := range row.Fields {
					if err := entry.Set(f, v); err != nil {
						return err
					}
				}
				experience = append(experience, entry)
			}

			if row.ID != "" && !seen[row.ID] && slices.Contains(s.ids[kind], row.ID) {
				ids[i] = row.ID
			} else {
				ids[i] = uuid.NewString()
			}
			seen[ids[i]] = true
		}

		if kind == KindEducation {
			doc.Education = education
		} else {
			doc.Experience = experience
		}
		s.ids[kind] = ids
		return nil
	})
}

// AddSkill appends the trimmed text. Empty input leaves the list unchanged
// and reports added=false. Duplicates are allowed.
func (s *Session) AddSkill(text string) (bool, Snapshot, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, s.Snapshot(), nil
	}
	snap, err := s.mutate(func(doc *types.ResumeDocument) error {
		doc.Skills = append(doc.Skills, text)
		return nil
	})
	return err == nil, snap, err
}

// RemoveSkill deletes the skill at index.
func (s *Session) RemoveSkill(index int) (Snapshot, error) {
	return s.mutate(func(doc *types.ResumeDocument) error {
		if index < 0 || index >= len(doc.Skills) {
			return fmt.Errorf("%w: skills[%d]", ErrIndexOutOfRange, index)
		}
		doc.Skills = slices.Delete(doc.Skills, index, index+1)
		return nil
	})
}
