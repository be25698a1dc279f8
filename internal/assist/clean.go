package assist

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/resume-builder/internal/llm"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// Clean turns completion text into plain field text: code fences and HTML
// markup are removed, list items become "- " lines, whitespace is trimmed.
func Clean(text string) string {
	text = llm.StripCodeFence(text)
	if strings.ContainsAny(text, "<&") {
		text = stripMarkup(text)
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	text = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

func stripMarkup(text string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return text
	}

	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("- ")
		s.AppendHtml("\n")
	})
	doc.Find("p, div, h1, h2, h3, h4, h5, h6").AppendHtml("\n")

	return doc.Text()
}
