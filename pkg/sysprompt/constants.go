package sysprompt

import "embed"

//go:embed templates/*
var TemplateFS embed.FS

const (
	// SkillsTemplate renders the full prompt: intro, skill blocks, request
	SkillsTemplate = "templates/skills.tmpl"
	// SkillTemplate renders one skill block
	SkillTemplate = "templates/skill.tmpl"
)
