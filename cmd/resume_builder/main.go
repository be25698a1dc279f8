// Package main provides the entry point for the resume builder: the editor
// service, the completion proxy and offline render/export commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "resume_builder",
	Short: "Resume Builder editor service and completion proxy",
	Long: "Resume Builder edits a single resume document with a live preview, five layout templates, " +
		"PDF export and an AI writing assistant backed by a server-side completion proxy.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a JSON or YAML config file")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
