// Package prompts provides a loader for the embedded assist prompt templates
// and the offline phrase tables. Files are JSON and embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Embedded files
const (
	// AssistFile maps a field kind to its instruction template.
	AssistFile = "assist.json"
	// FallbackFile maps a tone bucket to its offline phrase list.
	FallbackFile = "fallback.json"
)

// cache stores parsed files to avoid repeated JSON parsing
var (
	cache     = make(map[string]map[string]string)
	listCache = make(map[string]map[string][]string)
	cacheMu   sync.RWMutex
)

// Get retrieves a prompt by filename and key.
// Returns an error if the file or key is not found.
func Get(filename, key string) (string, error) {
	prompts, err := loadFile(filename)
	if err != nil {
		return "", err
	}

	prompt, exists := prompts[key]
	if !exists {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}

	return prompt, nil
}

// MustGet retrieves a prompt by filename and key, panicking if not found.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// GetList retrieves a phrase list by filename and key. The returned slice is a copy.
func GetList(filename, key string) ([]string, error) {
	lists, err := loadListFile(filename)
	if err != nil {
		return nil, err
	}

	list, exists := lists[key]
	if !exists {
		return nil, fmt.Errorf("phrase list %q not found in %s", key, filename)
	}
	return slices.Clone(list), nil
}

// MustGetList is GetList that panics on error.
func MustGetList(filename, key string) []string {
	list, err := GetList(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load phrase list: %v", err))
	}
	return list
}

// Format replaces template placeholders in the form {{.Key}} with values from data.
// Substitution is a single pass: placeholders inside substituted values are
// left as they are.
func Format(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("{{.%s}}", key), data[key])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func readFile(filename string, v any) error {
	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}
	return nil
}

// loadFile loads and caches a file of string prompts.
func loadFile(filename string) (map[string]string, error) {
	cacheMu.RLock()
	if prompts, exists := cache[filename]; exists {
		cacheMu.RUnlock()
		return prompts, nil
	}
	cacheMu.RUnlock()

	var prompts map[string]string
	if err := readFile(filename, &prompts); err != nil {
		return nil, err
	}

	cacheMu.Lock()
	cache[filename] = prompts
	cacheMu.Unlock()

	return prompts, nil
}

// loadListFile loads and caches a file of phrase lists.
func loadListFile(filename string) (map[string][]string, error) {
	cacheMu.RLock()
	if lists, exists := listCache[filename]; exists {
		cacheMu.RUnlock()
		return lists, nil
	}
	cacheMu.RUnlock()

	var lists map[string][]string
	if err := readFile(filename, &lists); err != nil {
		return nil, err
	}

	cacheMu.Lock()
	listCache[filename] = lists
	cacheMu.Unlock()

	return lists, nil
}

// ClearCache clears the prompt cache. Useful for testing.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]map[string]string)
	listCache = make(map[string]map[string][]string)
	cacheMu.Unlock()
}

// List returns all prompt keys in a file, sorted.
func List(filename string) ([]string, error) {
	prompts, err := loadFile(filename)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(prompts))
	for key := range prompts {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}
