// Package observability provides logger construction, request logging and
// formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-builder/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintDocument outputs a human-readable summary of a resume document.
func (p *Printer) PrintDocument(doc *types.ResumeDocument, completion int) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:      %s\n", doc.Name))
	sb.WriteString(fmt.Sprintf("Title:     %s\n", doc.Title))
	sb.WriteString(fmt.Sprintf("Template:  %s (%s)\n", doc.Template.Resolve(), doc.Color))
	sb.WriteString(fmt.Sprintf("Complete:  %d%%\n", completion))
	sb.WriteString("\n")

	if len(doc.Experience) > 0 {
		sb.WriteString("Experience:\n")
		count := min(len(doc.Experience), maxItemsToShow)
		for i := 0; i < count; i++ {
			e := doc.Experience[i]
			sb.WriteString(fmt.Sprintf("  • %s, %s", e.Role, e.Company))
			if e.Start != "" || e.End != "" {
				sb.WriteString(fmt.Sprintf(" (%s - %s)", e.Start, e.End))
			}
			sb.WriteString("\n")
		}
		if len(doc.Experience) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(doc.Experience)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if len(doc.Education) > 0 {
		sb.WriteString("Education:\n")
		count := min(len(doc.Education), 3)
		for i := 0; i < count; i++ {
			e := doc.Education[i]
			sb.WriteString(fmt.Sprintf("  • %s, %s %s\n", e.Degree, e.School, e.Year))
		}
		if len(doc.Education) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(doc.Education)-3))
		}
		sb.WriteString("\n")
	}

	if len(doc.Skills) > 0 {
		sb.WriteString(fmt.Sprintf("Skills:    %s\n", strings.Join(doc.Skills, ", ")))
	}

	p.printBox("RESUME DOCUMENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintGenerated outputs a generated text together with where it came from.
func (p *Printer) PrintGenerated(title, source, text string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Source: %s\n\n", source))
	sb.WriteString(text)
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRenders outputs the files written by a batch render.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRenders(paths map[types.TemplateID]string) {
	if len(paths) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NOTHING RENDERED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	for _, id := range types.Templates() {
		if path, ok := paths[id]; ok {
			sb.WriteString(fmt.Sprintf("%-12s %s\n", id, path))
		}
	}
	p.printBox("RENDERED TEMPLATES", strings.TrimSuffix(sb.String(), "\n"))
}
