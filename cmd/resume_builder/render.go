package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	renderInput    string
	renderOutput   string
	renderTemplate string
	renderAll      bool
	renderOutDir   string
	renderFragment bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a resume document to HTML",
	Long: `Render a resume document with its selected layout, or with every layout at once (--all).
Without --in the demo document is rendered.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderInput, "in", "i", "", "Path to a resume JSON document (default: demo document)")
	renderCmd.Flags().StringVarP(&renderOutput, "out", "o", "", "Output HTML file (default: stdout)")
	renderCmd.Flags().StringVarP(&renderTemplate, "template", "t", "", "Override the document's template")
	renderCmd.Flags().BoolVar(&renderAll, "all", false, "Render every template into --out-dir")
	renderCmd.Flags().StringVar(&renderOutDir, "out-dir", ".", "Output directory for --all")
	renderCmd.Flags().BoolVar(&renderFragment, "fragment", false, "Write only the resume markup, without the page wrapper")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	doc, err := loadDocument(renderInput)
	if err != nil {
		return err
	}
	if renderTemplate != "" {
		id := types.TemplateID(renderTemplate)
		if !id.IsKnown() {
			return fmt.Errorf("unknown template %q (must be one of %v)", renderTemplate, types.Templates())
		}
		doc.Template = id
	}

	if renderAll {
		paths, err := renderAllTemplates(doc, renderOutDir, renderFragment)
		if err != nil {
			return err
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintRenders(paths)
		return nil
	}

	html, err := renderHTML(doc, renderFragment)
	if err != nil {
		return err
	}
	if renderOutput == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), html)
		return err
	}
	if err := writeOutput(renderOutput, []byte(html)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s to %s\n", doc.Template.Resolve(), renderOutput) //nolint:errcheck
	return nil
}

// renderHTML renders doc as a standalone page or as the bare fragment.
func renderHTML(doc *types.ResumeDocument, fragment bool) (string, error) {
	if fragment {
		return rendering.Render(doc)
	}
	return rendering.RenderPage(doc)
}

// renderAllTemplates renders doc once per layout, concurrently, into dir.
func renderAllTemplates(doc *types.ResumeDocument, dir string, fragment bool) (map[types.TemplateID]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var (
		mu    sync.Mutex
		paths = make(map[types.TemplateID]string)
		g     errgroup.Group
	)
	for _, id := range types.Templates() {
		variant := doc.Clone()
		variant.Template = id
		g.Go(func() error {
			html, err := renderHTML(variant, fragment)
			if err != nil {
				return fmt.Errorf("failed to render %s: %w", id, err)
			}
			path := filepath.Join(dir, string(id)+".html")
			if err := writeOutput(path, []byte(html)); err != nil {
				return err
			}
			mu.Lock()
			paths[id] = path
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
