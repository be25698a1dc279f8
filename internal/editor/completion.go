package editor

import (
	"strings"

	"github.com/jonathan/resume-builder/internal/types"
)

// completionFields is the fixed denominator of the completion indicator.
const completionFields = 8

// Completion returns the share of filled-in sections as an integer percent.
// Counted: name, title, email, phone, summary and the three lists.
func Completion(doc *types.ResumeDocument) int {
	filled := 0
	for _, v := range []string{doc.Name, doc.Title, doc.Email, doc.Phone, doc.Summary} {
		if strings.TrimSpace(v) != "" {
			filled++
		}
	}
	for _, n := range []int{len(doc.Experience), len(doc.Education), len(doc.Skills)} {
		if n > 0 {
			filled++
		}
	}
	return filled * 100 / completionFields
}
