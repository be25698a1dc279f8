package rendering

import (
	"embed"
	"html/template"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/resume-builder/internal/types"
)

//go:embed templates/*.tmpl templates/style.css
var templateFS embed.FS

var layouts = template.Must(template.New("resume").ParseFS(templateFS, "templates/*.tmpl"))

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{6})$`)

// View is the single presentation model every layout renders from. Layouts
// differ only in arrangement, so every document field reaches every layout.
type View struct {
	Name       string
	Title      string
	Email      string
	Phone      string
	Summary    string
	Initial    string
	Accent     template.CSS
	Template   types.TemplateID
	Experience []types.ExperienceEntry
	Education  []types.EducationEntry
	Skills     []string
}

// NewView builds the presentation model for doc.
func NewView(doc *types.ResumeDocument) *View {
	return &View{
		Name:       doc.Name,
		Title:      doc.Title,
		Email:      doc.Email,
		Phone:      doc.Phone,
		Summary:    doc.Summary,
		Initial:    Initial(doc.Name),
		Accent:     template.CSS(SanitizeColor(doc.Color)),
		Template:   doc.Template.Resolve(),
		Experience: doc.Experience,
		Education:  doc.Education,
		Skills:     doc.Skills,
	}
}

// SanitizeColor normalizes an accent color to #rrggbb, falling back to the
// default accent for anything else.
func SanitizeColor(color string) string {
	m := hexColor.FindStringSubmatch(strings.TrimSpace(color))
	if m == nil {
		return types.DefaultColor
	}
	return "#" + strings.ToLower(m[1])
}

// Initial returns the upper-cased first letter of name for avatar badges.
func Initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}

// Render produces the preview markup for doc using its selected layout.
// Unknown template identifiers render with the professional layout.
// Render is pure: the same document always yields the same markup.
func Render(doc *types.ResumeDocument) (string, error) {
	if doc == nil {
		return "", &RenderError{Message: "document is nil"}
	}

	view := NewView(doc)
	var sb strings.Builder
	if err := layouts.ExecuteTemplate(&sb, string(view.Template), view); err != nil {
		return "", &TemplateError{
			Template: string(view.Template),
			Message:  "failed to execute template",
			Cause:    err,
		}
	}
	return sb.String(), nil
}

// pageData is passed to the page wrapper template
type pageData struct {
	Title     string
	Style     template.CSS
	Body      template.HTML
	StreamURL string
}

// PageOption customizes RenderPage.
type PageOption func(*pageData)

// WithLiveReload makes the page subscribe to snapshot events at streamURL
// and swap in new markup as it arrives.
func WithLiveReload(streamURL string) PageOption {
	return func(p *pageData) {
		p.StreamURL = streamURL
	}
}

// RenderPage wraps the rendered document in a standalone HTML page with the
// stylesheet inlined, suitable for the preview and PDF export.
func RenderPage(doc *types.ResumeDocument, opts ...PageOption) (string, error) {
	body, err := Render(doc)
	if err != nil {
		return "", err
	}
	return WrapPage(doc.Name, body, opts...)
}

// WrapPage wraps already rendered markup in the standalone page.
func WrapPage(name, body string, opts ...PageOption) (string, error) {
	style, err := templateFS.ReadFile("templates/style.css")
	if err != nil {
		return "", &RenderError{Message: "failed to read stylesheet", Cause: err}
	}

	title := "Resume"
	if strings.TrimSpace(name) != "" {
		title = name + " - Resume"
	}

	data := &pageData{
		Title: title,
		Style: template.CSS(style),
		// Body was produced by the escaping layout templates above.
		Body: template.HTML(body),
	}
	for _, opt := range opts {
		opt(data)
	}

	var sb strings.Builder
	if err := layouts.ExecuteTemplate(&sb, "page", data); err != nil {
		return "", &TemplateError{Template: "page", Message: "failed to execute template", Cause: err}
	}
	return sb.String(), nil
}
