package skills

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillrun/pkg/logger"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

// NewLoaderFromConfig builds a loader for the configured skills directory,
// applying the skills.allowed patterns when set.
func NewLoaderFromConfig(config llmtypes.Config) (*Loader, error) {
	return NewLoader(config.SkillsDir, WithAllowlist(config.Skills.Allowed...))
}

// Initialize loads the configured skills. Per-skill read failures are logged
// and tolerated; a missing repository or an invalid allowlist is returned.
func Initialize(ctx context.Context, config llmtypes.Config) (map[string]*Skill, error) {
	loader, err := NewLoaderFromConfig(config)
	if err != nil {
		return map[string]*Skill{}, err
	}

	loaded, err := loader.Load(ctx)
	if err != nil {
		if IsWarning(err) {
			logger.G(ctx).WithField("skipped", len(Warnings(err))).Warn("some skills could not be read")
			return loaded, nil
		}
		return loaded, errors.WithStack(err)
	}
	return loaded, nil
}
