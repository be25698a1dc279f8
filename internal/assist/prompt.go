package assist

import (
	"strings"

	"github.com/jonathan/resume-builder/internal/prompts"
)

// DefaultJobTitle stands in for an empty document title.
const DefaultJobTitle = "Professional"

// JobTitle returns the trimmed title or DefaultJobTitle when blank.
func JobTitle(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return DefaultJobTitle
}

// BuildPrompt builds the instruction sent to the completion proxy.
func BuildPrompt(kind Kind, jobTitle, tone, keywords string) (string, error) {
	key := string(KindSummary)
	if kind == KindExperience {
		key = string(KindExperience)
	}

	instruction, err := prompts.Get(prompts.AssistFile, key)
	if err != nil {
		return "", err
	}
	guidance, err := prompts.Get(prompts.AssistFile, "guidance")
	if err != nil {
		return "", err
	}

	data := map[string]string{
		"Title":    JobTitle(jobTitle),
		"Tone":     tone,
		"Keywords": keywords,
	}
	return prompts.Format(instruction, data) + " " + prompts.Format(guidance, data), nil
}
