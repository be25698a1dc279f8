// Package types provides type definitions for structured data used throughout the resume-builder system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeDocument_JSONFieldNames(t *testing.T) {
	doc := SeedDocument()

	jsonBytes, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)

	for _, key := range []string{
		`"name"`, `"title"`, `"email"`, `"phone"`, `"summary"`,
		`"experience"`, `"company"`, `"role"`, `"start"`, `"end"`, `"desc"`,
		`"education"`, `"school"`, `"degree"`, `"year"`,
		`"skills"`, `"template": "professional"`, `"color": "#2563eb"`,
	} {
		assert.Contains(t, string(jsonBytes), key)
	}
}

func TestResumeDocument_MissingCollectionsNormalize(t *testing.T) {
	var doc ResumeDocument
	require.NoError(t, json.Unmarshal([]byte(`{"name":"X"}`), &doc))

	doc.Normalize()

	assert.Equal(t, "X", doc.Name)
	assert.NotNil(t, doc.Skills)
	assert.Empty(t, doc.Skills)
	assert.NotNil(t, doc.Experience)
	assert.NotNil(t, doc.Education)
}

func TestResumeDocument_SetField(t *testing.T) {
	doc := SeedDocument()

	require.NoError(t, doc.SetField("name", ""))
	require.NoError(t, doc.SetField("template", "brutalist"))

	assert.Equal(t, "", doc.Name)
	assert.Equal(t, TemplateID("brutalist"), doc.Template, "unknown templates are stored verbatim")

	err := doc.SetField("nickname", "JD")
	var fieldErr *UnknownFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "nickname", fieldErr.Field)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestResumeDocument_FieldRoundTrip(t *testing.T) {
	doc := &ResumeDocument{}
	for _, field := range StaticFields {
		require.NoError(t, doc.SetField(field, "v-"+field))
	}
	for _, field := range StaticFields {
		got, err := doc.Field(field)
		require.NoError(t, err)
		assert.Equal(t, "v-"+field, got)
	}
}

func TestEntries_GetSet(t *testing.T) {
	var exp ExperienceEntry
	for _, field := range ExperienceFields {
		require.NoError(t, exp.Set(field, field+"!"))
		got, err := exp.Get(field)
		require.NoError(t, err)
		assert.Equal(t, field+"!", got)
	}
	assert.Error(t, exp.Set("school", "x"))

	var edu EducationEntry
	for _, field := range EducationFields {
		require.NoError(t, edu.Set(field, field+"?"))
		got, err := edu.Get(field)
		require.NoError(t, err)
		assert.Equal(t, field+"?", got)
	}
	_, err := edu.Get("company")
	assert.Error(t, err)
}

func TestResumeDocument_CloneIsDeep(t *testing.T) {
	doc := SeedDocument()
	clone := doc.Clone()

	clone.Experience[0].Company = "Other"
	clone.Skills[0] = "Go"

	assert.Equal(t, "TechNova", doc.Experience[0].Company)
	assert.Equal(t, "JavaScript", doc.Skills[0])
}

func TestTemplateID_Resolve(t *testing.T) {
	tests := []struct {
		in   TemplateID
		want TemplateID
	}{
		{TemplateModern, TemplateModern},
		{TemplateAcademic, TemplateAcademic},
		{"", TemplateProfessional},
		{"unknown", TemplateProfessional},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Resolve())
		})
	}
	assert.Len(t, Templates(), 5)
}
