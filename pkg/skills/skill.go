// Package skills loads user-authored skill documents. A skills root holds one
// directory per skill; each directory containing a SKILL.md file becomes a
// skill named after the directory, whose instructions are the full text of
// that file. Optional YAML frontmatter may carry a description used for
// listings.
package skills

import "sort"

// Skill represents a loaded skill
type Skill struct {
	Name         string // Directory base name, unique within a root
	Instructions string // Full, verbatim content of SKILL.md
	Description  string // From frontmatter, may be empty
	Directory    string // Full path to the skill directory
	Path         string // Full path to SKILL.md
}

// Metadata represents the optional YAML frontmatter in SKILL.md files
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// SortedNames returns the skill names in lexical order
func SortedNames(skills map[string]*Skill) []string {
	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instructions projects skills onto a name -> instructions mapping
func Instructions(skills map[string]*Skill) map[string]string {
	out := make(map[string]string, len(skills))
	for name, skill := range skills {
		out[name] = skill.Instructions
	}
	return out
}
