// Package types provides type definitions for structured data used throughout the resume-builder system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
	"slices"
)

// ResumeDocument is the single resume record edited by the user.
// Every field is free text; the empty string is a valid value.
type ResumeDocument struct {
	Name       string            `json:"name"`
	Title      string            `json:"title"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Summary    string            `json:"summary"`
	Experience []ExperienceEntry `json:"experience"`
	Education  []EducationEntry  `json:"education"`
	Skills     []string          `json:"skills"`
	Template   TemplateID        `json:"template"`
	Color      string            `json:"color"`
}

// ExperienceEntry represents one position in the experience list
type ExperienceEntry struct {
	Company string `json:"company"`
	Role    string `json:"role"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Desc    string `json:"desc"`
}

// EducationEntry represents one school in the education list
type EducationEntry struct {
	School string `json:"school"`
	Degree string `json:"degree"`
	Year   string `json:"year"`
}

// DefaultColor is the accent color of the seed document.
const DefaultColor = "#2563eb"

// ExperienceFields lists the editable fields of an ExperienceEntry in form order.
var ExperienceFields = []string{"company", "role", "start", "end", "desc"}

// EducationFields lists the editable fields of an EducationEntry in form order.
var EducationFields = []string{"school", "degree", "year"}

// StaticFields lists the scalar document fields bound to single form inputs.
var StaticFields = []string{"name", "title", "email", "phone", "summary", "template", "color"}

// ErrUnknownField matches every UnknownFieldError via errors.Is.
var ErrUnknownField = errors.New("unknown field")

// UnknownFieldError is returned when a field name does not exist on the addressed record.
type UnknownFieldError struct {
	Record string
	Field  string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown %s field: %q", e.Record, e.Field)
}

// Is reports whether target is ErrUnknownField.
func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// Get returns the value of a named experience field.
func (e ExperienceEntry) Get(field string) (string, error) {
	switch field {
	case "company":
		return e.Company, nil
	case "role":
		return e.Role, nil
	case "start":
		return e.Start, nil
	case "end":
		return e.End, nil
	case "desc":
		return e.Desc, nil
	}
	return "", &UnknownFieldError{Record: "experience", Field: field}
}

// Set writes a named experience field. Values are not validated.
func (e *ExperienceEntry) Set(field, value string) error {
	switch field {
	case "company":
		e.Company = value
	case "role":
		e.Role = value
	case "start":
		e.Start = value
	case "end":
		e.End = value
	case "desc":
		e.Desc = value
	default:
		return &UnknownFieldError{Record: "experience", Field: field}
	}
	return nil
}

// Get returns the value of a named education field.
func (e EducationEntry) Get(field string) (string, error) {
	switch field {
	case "school":
		return e.School, nil
	case "degree":
		return e.Degree, nil
	case "year":
		return e.Year, nil
	}
	return "", &UnknownFieldError{Record: "education", Field: field}
}

// Set writes a named education field. Values are not validated.
func (e *EducationEntry) Set(field, value string) error {
	switch field {
	case "school":
		e.School = value
	case "degree":
		e.Degree = value
	case "year":
		e.Year = value
	default:
		return &UnknownFieldError{Record: "education", Field: field}
	}
	return nil
}

// Field returns the value of a static document field.
func (d *ResumeDocument) Field(field string) (string, error) {
	switch field {
	case "name":
		return d.Name, nil
	case "title":
		return d.Title, nil
	case "email":
		return d.Email, nil
	case "phone":
		return d.Phone, nil
	case "summary":
		return d.Summary, nil
	case "template":
		return string(d.Template), nil
	case "color":
		return d.Color, nil
	}
	return "", &UnknownFieldError{Record: "document", Field: field}
}

// SetField writes a static document field. The template value is stored
// verbatim; unknown identifiers are only resolved at render time.
func (d *ResumeDocument) SetField(field, value string) error {
	switch field {
	case "name":
		d.Name = value
	case "title":
		d.Title = value
	case "email":
		d.Email = value
	case "phone":
		d.Phone = value
	case "summary":
		d.Summary = value
	case "template":
		d.Template = TemplateID(value)
	case "color":
		d.Color = value
	default:
		return &UnknownFieldError{Record: "document", Field: field}
	}
	return nil
}

// Normalize replaces nil collections with empty ones so absent lists in an
// imported blob behave like empty lists.
func (d *ResumeDocument) Normalize() {
	if d.Experience == nil {
		d.Experience = []ExperienceEntry{}
	}
	if d.Education == nil {
		d.Education = []EducationEntry{}
	}
	if d.Skills == nil {
		d.Skills = []string{}
	}
}

// Clone returns a deep copy of the document.
func (d *ResumeDocument) Clone() *ResumeDocument {
	c := *d
	c.Experience = slices.Clone(d.Experience)
	c.Education = slices.Clone(d.Education)
	c.Skills = slices.Clone(d.Skills)
	c.Normalize()
	return &c
}

// SeedDocument returns the demo document shown when the editor starts.
// Its values double as the placeholders of an untouched editor.
func SeedDocument() *ResumeDocument {
	return &ResumeDocument{
		Name:    "John Doe",
		Title:   "StartUp Founder",
		Email:   "john@startup.io",
		Phone:   "+1 (555) 000-1234",
		Summary: "Visionary entrepreneur with a track record of building scalable web applications. Passionate about AI-driven solutions and user-centric design.",
		Experience: []ExperienceEntry{
			{
				Company: "TechNova",
				Role:    "Senior Developer",
				Start:   "2022",
				End:     "Present",
				Desc:    "Led a team of 5 engineers to refactor the core platform, improving latency by 30%.",
			},
		},
		Education: []EducationEntry{
			{
				School: "University of Tech",
				Degree: "Computer Science",
				Year:   "2021",
			},
		},
		Skills:   []string{"JavaScript", "React", "Node.js", "System Design", "Leadership"},
		Template: TemplateProfessional,
		Color:    DefaultColor,
	}
}
