package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/resume-builder/internal/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// runCommand calls a command's RunE with output captured.
func runCommand(t *testing.T, run func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	err := run(cmd, args)
	return out.String(), err
}

// isolateConfig clears the settings that would leak in from the environment.
func isolateConfig(t *testing.T) {
	t.Helper()
	prev := configPath
	configPath = ""
	t.Cleanup(func() { configPath = prev })

	for _, key := range []string{"RESUME_PROXY_URL", "RESUME_PROXY_TOKEN", "RESUME_LOG_FORMAT", "PROXY_PROVIDER"} {
		t.Setenv(key, "")
	}
	t.Setenv("RESUME_LOG_LEVEL", "error")
}

// writeDocument stores doc as JSON in a temp file and returns its path.
func writeDocument(t *testing.T, doc *types.ResumeDocument) string {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "resume.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// readDocument loads a JSON document written by a command.
func readDocument(t *testing.T, path string) *types.ResumeDocument {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc types.ResumeDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	return &doc
}

// setFlag assigns a flag variable for one test.
func setFlag[T any](t *testing.T, ptr *T, value T) {
	t.Helper()
	prev := *ptr
	*ptr = value
	t.Cleanup(func() { *ptr = prev })
}
