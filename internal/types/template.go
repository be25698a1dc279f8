// Package types provides type definitions for structured data used throughout the resume-builder system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// TemplateID identifies one of the fixed layout variants
type TemplateID string

// Template identifiers
const (
	TemplateProfessional TemplateID = "professional"
	TemplateModern       TemplateID = "modern"
	TemplateMinimalist   TemplateID = "minimalist"
	TemplateCreative     TemplateID = "creative"
	TemplateAcademic     TemplateID = "academic"
)

// Templates returns every known template in menu order.
func Templates() []TemplateID {
	return []TemplateID{
		TemplateProfessional,
		TemplateModern,
		TemplateMinimalist,
		TemplateCreative,
		TemplateAcademic,
	}
}

// IsKnown reports whether the identifier names a known template.
func (t TemplateID) IsKnown() bool {
	switch t {
	case TemplateProfessional, TemplateModern, TemplateMinimalist, TemplateCreative, TemplateAcademic:
		return true
	}
	return false
}

// Resolve returns the template to render with; unknown identifiers fall back to professional.
func (t TemplateID) Resolve() TemplateID {
	if t.IsKnown() {
		return t
	}
	return TemplateProfessional
}
