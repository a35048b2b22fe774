package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptPair holds a system and user prompt template.
type PromptPair struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Prompts is the top-level prompt configuration loaded from YAML.
type Prompts struct {
	Generation PromptPair `yaml:"generation"`
}

const defaultGenerationUser = `Generate {{.Count}} cooking recipes about {{.Term}} in JSON format.
The response should be a JSON array of objects with this structure:
{"name": string, "cookTimeMinutes": integer,
"ingredients": [{"name": string, "quantity": string}],
"steps": [{"description": string, "estimatedMinutes": integer}],
"mealType": one of [{{.MealTypes}}]}.`

// DefaultPrompts returns the built-in prompts used when no prompt file exists.
func DefaultPrompts() *Prompts {
	return &Prompts{
		Generation: PromptPair{
			System: "You are a recipe writer. Reply with a single JSON array and nothing else.",
			User:   defaultGenerationUser,
		},
	}
}

// LoadPrompts reads and parses a YAML prompt configuration file. Empty
// templates in the file fall back to the defaults.
func LoadPrompts(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var prompts Prompts
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompts YAML: %w", err)
	}

	defaults := DefaultPrompts()
	if strings.TrimSpace(prompts.Generation.User) == "" {
		prompts.Generation.User = defaults.Generation.User
	}
	if strings.TrimSpace(prompts.Generation.System) == "" {
		prompts.Generation.System = defaults.Generation.System
	}

	return &prompts, nil
}

// RenderPrompt executes Go template interpolation on a prompt string.
// The data map provides values for template placeholders like {{.Term}},
// {{.Count}}, and {{.MealTypes}}.
func RenderPrompt(tmpl string, data map[string]interface{}) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt template: %w", err)
	}

	return strings.TrimSpace(buf.String()), nil
}
