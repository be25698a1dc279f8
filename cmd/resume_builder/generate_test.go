package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/jonathan/resume-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGenerateFlags(t *testing.T) {
	t.Helper()
	setFlag(t, &generateInput, "")
	setFlag(t, &generateOutput, "")
	setFlag(t, &generateTarget, "summary")
	setFlag(t, &generateIndex, 0)
	setFlag(t, &generateTone, "professional")
	setFlag(t, &generateKeywords, "")
	setFlag(t, &generateOffline, false)
	setFlag(t, &generateSeed, uint64(0))
	setFlag(t, &generateProxyURL, "")
}

func TestRunGenerate_Offline(t *testing.T) {
	isolateConfig(t)
	resetGenerateFlags(t)

	output := filepath.Join(t.TempDir(), "updated.json")
	setFlag(t, &generateOffline, true)
	setFlag(t, &generateSeed, uint64(42))
	setFlag(t, &generateKeywords, "Go, Kubernetes")
	setFlag(t, &generateOutput, output)

	out, err := runCommand(t, runGenerate)

	require.NoError(t, err)
	assert.Contains(t, out, "GENERATED SUMMARY")
	assert.Contains(t, out, "Source: fallback")

	doc := readDocument(t, output)
	assert.NotEqual(t, types.SeedDocument().Summary, doc.Summary)
	assert.Contains(t, doc.Summary, "Key highlights include: Go, Kubernetes.")
}

func TestRunGenerate_Proxy(t *testing.T) {
	isolateConfig(t)
	resetGenerateFlags(t)

	var prompt string
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		prompt = body.Prompt
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"- Shipped the platform rewrite"},"finish_reason":"stop"}]}`))
	}))
	defer proxySrv.Close()

	output := filepath.Join(t.TempDir(), "updated.json")
	setFlag(t, &generateTarget, "experience")
	setFlag(t, &generateProxyURL, proxySrv.URL)
	setFlag(t, &generateOutput, output)

	out, err := runCommand(t, runGenerate)

	require.NoError(t, err)
	assert.Contains(t, out, "GENERATED EXPERIENCE #0")
	assert.Contains(t, out, "Source: ai")
	assert.Contains(t, prompt, "StartUp Founder")

	doc := readDocument(t, output)
	require.Len(t, doc.Experience, 1)
	assert.Equal(t, "- Shipped the platform rewrite", doc.Experience[0].Desc)
}

func TestRunGenerate_Errors(t *testing.T) {
	isolateConfig(t)
	resetGenerateFlags(t)

	setFlag(t, &generateOffline, true)
	setFlag(t, &generateTarget, "experience")
	setFlag(t, &generateIndex, 5)
	_, err := runCommand(t, runGenerate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	setFlag(t, &generateTarget, "education")
	_, err = runCommand(t, runGenerate)
	assert.Error(t, err)
}
