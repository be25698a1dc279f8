package main

import (
	"github.com/jonathan/resume-builder/internal/editor"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/spf13/cobra"
)

var inspectInput string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Validate a resume document and print a summary",
	Long:  "Checks a resume JSON document against the import format and prints its contents and completion.",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectInput, "in", "i", "", "Path to a resume JSON document (default: demo document)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, _ []string) error {
	doc, err := loadDocument(inspectInput)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintDocument(doc, editor.Completion(doc))
	return nil
}
