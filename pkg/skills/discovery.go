package skills

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillrun/pkg/logger"
	"github.com/jingkaihe/skillrun/pkg/telemetry"
)

const (
	skillFileName = "SKILL.md"

	// DefaultRoot is used when no skills directory is configured
	DefaultRoot = "./skills"
)

// ErrRepositoryNotFound is returned when the skills root does not exist or
// is not a directory. The accompanying skill map is empty.
var ErrRepositoryNotFound = errors.New("skills repository not found")

// SkillUnreadableError reports a SKILL.md that exists but could not be read.
// The scan skips the skill and continues.
type SkillUnreadableError struct {
	Name string
	Path string
	Err  error
}

func (e *SkillUnreadableError) Error() string {
	return fmt.Sprintf("could not read skill '%s': %v", e.Name, e.Err)
}

func (e *SkillUnreadableError) Unwrap() error {
	return e.Err
}

// Loader loads skills from a single root directory
type Loader struct {
	root     string
	patterns []string
	allowed  []glob.Glob
}

// Option is a function that configures a Loader
type Option func(*Loader) error

// WithAllowlist restricts loading to skill names matching one of the glob
// patterns. No patterns means every skill is loaded.
func WithAllowlist(patterns ...string) Option {
	return func(l *Loader) error {
		for _, pattern := range patterns {
			g, err := glob.Compile(pattern)
			if err != nil {
				return errors.Wrapf(err, "invalid skill pattern '%s'", pattern)
			}
			l.patterns = append(l.patterns, pattern)
			l.allowed = append(l.allowed, g)
		}
		return nil
	}
}

// NewLoader creates a loader for root
func NewLoader(root string, opts ...Option) (*Loader, error) {
	if root == "" {
		root = DefaultRoot
	}
	l := &Loader{root: root}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Load is a shorthand for NewLoader(root).Load(ctx)
func Load(ctx context.Context, root string) (map[string]*Skill, error) {
	l, err := NewLoader(root)
	if err != nil {
		return map[string]*Skill{}, err
	}
	return l.Load(ctx)
}

// Root returns the directory the loader scans
func (l *Loader) Root() string {
	return l.root
}

// Load scans the immediate children of the root. The returned map is never
// nil. The error is ErrRepositoryNotFound when the root is missing, or a
// *multierror.Error of *SkillUnreadableError warnings when some skills could
// not be read; in the latter case the map still holds every readable skill.
func (l *Loader) Load(ctx context.Context) (map[string]*Skill, error) {
	log := logger.G(ctx).WithField("root", l.root)
	skills := make(map[string]*Skill)

	info, err := os.Stat(l.root)
	if err != nil || !info.IsDir() {
		return skills, errors.Wrapf(ErrRepositoryNotFound, "skills directory not found at '%s'", l.root)
	}

	entries, err := os.ReadDir(l.root)
	if err != nil {
		return skills, errors.Wrapf(err, "failed to list skills directory '%s'", l.root)
	}

	var warnings *multierror.Error
	for _, entry := range entries {
		name := entry.Name()
		entryPath := filepath.Join(l.root, name)

		// Stat follows symlinks so linked skill directories are picked up
		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}

		if !l.allows(name) {
			log.WithField("skill", name).Debug("skill not in allowlist, skipping")
			continue
		}

		skillPath := filepath.Join(entryPath, skillFileName)
		fileInfo, err := os.Stat(skillPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			warnings = multierror.Append(warnings, l.unreadable(ctx, name, skillPath, err))
			continue
		}
		if !fileInfo.Mode().IsRegular() {
			continue
		}

		skill, err := loadSkill(name, entryPath, skillPath)
		if err != nil {
			warnings = multierror.Append(warnings, l.unreadable(ctx, name, skillPath, err))
			continue
		}

		skills[name] = skill
	}

	log.WithField("count", len(skills)).Debug("loaded skills")
	return skills, warnings.ErrorOrNil()
}

func (l *Loader) allows(name string) bool {
	if len(l.allowed) == 0 {
		return true
	}
	for _, g := range l.allowed {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (l *Loader) unreadable(ctx context.Context, name, path string, err error) *SkillUnreadableError {
	warning := &SkillUnreadableError{Name: name, Path: path, Err: err}
	logger.G(ctx).WithField("skill", name).WithError(err).Warn("could not read skill")
	telemetry.AddEvent(ctx, "skill.unreadable", attribute.String("skill.name", name))
	return warning
}

// loadSkill reads a single SKILL.md file
func loadSkill(name, dir, path string) (*Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}
	if !utf8.Valid(content) {
		return nil, errors.New("skill file is not valid UTF-8")
	}

	return &Skill{
		Name:         name,
		Instructions: string(content),
		Description:  parseMetadata(content).Description,
		Directory:    dir,
		Path:         path,
	}, nil
}

// parseMetadata extracts the optional frontmatter. Malformed frontmatter
// yields empty metadata rather than an error.
func parseMetadata(content []byte) Metadata {
	if !bytes.HasPrefix(content, []byte("---")) {
		return Metadata{}
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return Metadata{}
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return Metadata{}
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)
	return Metadata{Name: name, Description: description}
}

// Warnings extracts the per-skill warnings from an error returned by Load
func Warnings(err error) []*SkillUnreadableError {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		var single *SkillUnreadableError
		if errors.As(err, &single) {
			return []*SkillUnreadableError{single}
		}
		return nil
	}

	var out []*SkillUnreadableError
	for _, e := range merr.Errors {
		var w *SkillUnreadableError
		if errors.As(e, &w) {
			out = append(out, w)
		}
	}
	return out
}

// IsWarning reports whether err only carries per-skill warnings, meaning the
// loaded skills can still be used.
func IsWarning(err error) bool {
	if err == nil {
		return false
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return len(Warnings(err)) == len(merr.Errors)
	}
	return len(Warnings(err)) > 0
}
