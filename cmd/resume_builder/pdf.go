package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	pdfInput      string
	pdfOutput     string
	pdfChromePath string
	pdfTimeout    time.Duration
)

var pdfCmd = &cobra.Command{
	Use:   "pdf",
	Short: "Export a resume document to PDF",
	Long:  "Prints the rendered resume to an A4 PDF using headless Chrome. Chrome or Chromium must be installed.",
	RunE:  runPDF,
}

func init() {
	pdfCmd.Flags().StringVarP(&pdfInput, "in", "i", "", "Path to a resume JSON document (default: demo document)")
	pdfCmd.Flags().StringVarP(&pdfOutput, "out", "o", "resume.pdf", "Output PDF file")
	pdfCmd.Flags().StringVar(&pdfChromePath, "chrome-path", "", "Chrome/Chromium binary (default: search PATH)")
	pdfCmd.Flags().DurationVar(&pdfTimeout, "timeout", 0, "Print timeout (default from config)")
	rootCmd.AddCommand(pdfCmd)
}

func runPDF(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadSettings()
	if err != nil {
		return err
	}

	opts := rendering.PDFOptions{
		ChromePath: cfg.Render.ChromePath,
		Timeout:    cfg.PDFTimeout(),
	}
	if pdfChromePath != "" {
		opts.ChromePath = pdfChromePath
	}
	if pdfTimeout > 0 {
		opts.Timeout = pdfTimeout
	}

	doc, err := loadDocument(pdfInput)
	if err != nil {
		return err
	}
	page, err := rendering.RenderPage(doc)
	if err != nil {
		return err
	}

	start := time.Now()
	data, err := rendering.PDF(context.Background(), page, opts)
	if err != nil {
		return err
	}
	if err := writeOutput(pdfOutput, data); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"template":    doc.Template.Resolve(),
		"bytes":       len(data),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("PDF exported")
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", pdfOutput) //nolint:errcheck
	return nil
}
