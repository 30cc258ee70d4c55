// Package sysprompt composes the single prompt that exposes every loaded
// skill to the model together with the user's request.
package sysprompt

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoSkillsAvailable is returned when there is nothing to compose a prompt from
var ErrNoSkillsAvailable = errors.New("no skills available")

// SkillEntry is one skill as seen by the templates
type SkillEntry struct {
	Name         string
	Instructions string
}

// PromptContext holds all variables for template rendering
type PromptContext struct {
	Request string
	// Skills sorted by name
	Skills []SkillEntry
}

// NewPromptContext builds the template data for request and the
// name -> instructions mapping.
func NewPromptContext(request string, instructions map[string]string) *PromptContext {
	names := make([]string, 0, len(instructions))
	for name := range instructions {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]SkillEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, SkillEntry{Name: name, Instructions: instructions[name]})
	}

	return &PromptContext{
		Request: request,
		Skills:  entries,
	}
}

// Compose renders the skills prompt with the embedded template
func Compose(request string, instructions map[string]string) (string, error) {
	return defaultRenderer.Compose(request, instructions)
}

// Compose renders the skills prompt. It fails with ErrNoSkillsAvailable when
// instructions is empty. Names, instructions and the request are inserted
// verbatim.
func (r *Renderer) Compose(request string, instructions map[string]string) (string, error) {
	if len(instructions) == 0 {
		return "", ErrNoSkillsAvailable
	}

	prompt, err := r.RenderPrompt(SkillsTemplate, NewPromptContext(request, instructions))
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(prompt, "\n"), nil
}
