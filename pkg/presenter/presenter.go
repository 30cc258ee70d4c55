// Package presenter provides consistent CLI output for user-facing messages:
// errors, warnings, section headers, tool activity and usage statistics,
// with color support and quiet mode.
package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

// UsageStats represents token usage and cost information
type UsageStats struct {
	InputTokens      int64
	OutputTokens     int64
	CacheWriteTokens int64
	CacheReadTokens  int64
	InputCost        float64
	OutputCost       float64
	CacheWriteCost   float64
	CacheReadCost    float64
}

// Presenter defines the interface for consistent CLI output
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	Stats(usage *UsageStats)
	Separator()
	SetQuiet(quiet bool)
	IsQuiet() bool
}

// TerminalPresenter implements Presenter for terminal output
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	colorMode   ColorMode
	quiet       bool
}

// ColorMode represents different color output modes
type ColorMode int

const (
	// ColorAuto lets the color package detect terminal support
	ColorAuto ColorMode = iota
	// ColorAlways forces colored output
	ColorAlways
	// ColorNever disables colored output
	ColorNever
)

// New creates a new TerminalPresenter writing to stdout and stderr
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions creates a TerminalPresenter with custom settings
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	switch colorMode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	case ColorAuto:
	}

	return &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		colorMode:   colorMode,
	}
}

func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}

	switch os.Getenv("SKILLRUN_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error displays an error message to stderr. Errors are shown in quiet mode.
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}

	errorColor := color.New(color.FgRed, color.Bold)
	if context != "" {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
	} else {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
	}
}

// Success displays a success message
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.output, "✓ %s\n", message)
}

// Warning displays a warning message on stderr
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.errorOutput, "⚠ %s\n", message)
}

// Info displays an informational message
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.output, "%s\n", message)
}

// Section displays a section header
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}

	headerColor := color.New(color.Bold)
	headerColor.Fprintf(p.output, "%s\n", title)
	headerColor.Fprintf(p.output, "%s\n", strings.Repeat("-", len(title)))
}

// SkillList displays the banner of skills available for a request
func (p *TerminalPresenter) SkillList(names []string) {
	if p.quiet {
		return
	}

	p.Section("Available skills")
	for _, name := range names {
		fmt.Fprintf(p.output, "  - %s\n", name)
	}
	fmt.Fprintln(p.output)
}

// ToolUse displays a command about to be executed
func (p *TerminalPresenter) ToolUse(_ string, input string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow).Fprintf(p.output, "Executing: %s\n", input)
}

// ToolResult displays the rendered result of a command
func (p *TerminalPresenter) ToolResult(result string) {
	if p.quiet {
		return
	}
	color.New(color.Faint).Fprintf(p.output, "%s\n", strings.TrimRight(result, "\n"))
}

// Answer displays model text. It is printed in quiet mode too since it is
// the output of the command.
func (p *TerminalPresenter) Answer(text string) {
	fmt.Fprintf(p.output, "%s\n", text)
}

// Stats displays usage statistics
func (p *TerminalPresenter) Stats(usage *UsageStats) {
	if p.quiet || usage == nil {
		return
	}

	statsColor := color.New(color.FgCyan, color.Bold)

	totalTokens := usage.InputTokens + usage.OutputTokens + usage.CacheWriteTokens + usage.CacheReadTokens
	statsColor.Fprintf(p.output, "[Usage Stats] Input tokens: %d | Output tokens: %d | Cache write: %d | Cache read: %d | Total: %d\n",
		usage.InputTokens, usage.OutputTokens, usage.CacheWriteTokens, usage.CacheReadTokens, totalTokens)

	totalCost := usage.InputCost + usage.OutputCost + usage.CacheWriteCost + usage.CacheReadCost
	statsColor.Fprintf(p.output, "[Cost Stats] Input: $%.4f | Output: $%.4f | Cache write: $%.4f | Cache read: $%.4f | Total: $%.4f\n",
		usage.InputCost, usage.OutputCost, usage.CacheWriteCost, usage.CacheReadCost, totalCost)
}

// Separator displays a visual separator
func (p *TerminalPresenter) Separator() {
	if p.quiet {
		return
	}
	color.New(color.Faint).Fprintf(p.output, "%s\n", strings.Repeat("-", 60))
}

// SetQuiet enables or disables quiet mode
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// IsQuiet returns whether quiet mode is enabled
func (p *TerminalPresenter) IsQuiet() bool {
	return p.quiet
}

// ConvertUsageStats converts llmtypes.Usage to presenter.UsageStats
func ConvertUsageStats(stats *llmtypes.Usage) *UsageStats {
	if stats == nil {
		return nil
	}

	return &UsageStats{
		InputTokens:      int64(stats.InputTokens),
		OutputTokens:     int64(stats.OutputTokens),
		CacheWriteTokens: int64(stats.CacheCreationInputTokens),
		CacheReadTokens:  int64(stats.CacheReadInputTokens),
		InputCost:        stats.InputCost,
		OutputCost:       stats.OutputCost,
		CacheWriteCost:   stats.CacheCreationCost,
		CacheReadCost:    stats.CacheReadCost,
	}
}

// MessageHandler renders turn loop events through a TerminalPresenter
type MessageHandler struct {
	p *TerminalPresenter
}

var _ llmtypes.MessageHandler = (*MessageHandler)(nil)

// NewMessageHandler creates a handler printing through p. In quiet mode
// nothing is printed.
func NewMessageHandler(p *TerminalPresenter) *MessageHandler {
	return &MessageHandler{p: p}
}

func (h *MessageHandler) HandleText(text string) {
	if h.p.quiet {
		return
	}
	h.p.Answer(text)
	fmt.Fprintln(h.p.output)
}

func (h *MessageHandler) HandleToolUse(toolName string, input string) {
	h.p.ToolUse(toolName, input)
}

func (h *MessageHandler) HandleToolResult(_ string, result string) {
	h.p.ToolResult(result)
}

func (h *MessageHandler) HandleDone() {}

var defaultPresenter = New()

// Default returns the process-wide presenter
func Default() *TerminalPresenter {
	return defaultPresenter
}

// Error displays an error message using the default presenter instance.
func Error(err error, context string) {
	defaultPresenter.Error(err, context)
}

// Success displays a success message using the default presenter instance.
func Success(message string) {
	defaultPresenter.Success(message)
}

// Warning displays a warning message using the default presenter instance.
func Warning(message string) {
	defaultPresenter.Warning(message)
}

// Info displays an informational message using the default presenter instance.
func Info(message string) {
	defaultPresenter.Info(message)
}

// Section displays a section header using the default presenter instance.
func Section(title string) {
	defaultPresenter.Section(title)
}

// Stats displays usage statistics using the default presenter instance.
func Stats(usage *UsageStats) {
	defaultPresenter.Stats(usage)
}

// SetQuiet enables or disables quiet mode for the default presenter instance.
func SetQuiet(quiet bool) {
	defaultPresenter.SetQuiet(quiet)
}

// IsQuiet returns whether quiet mode is enabled for the default presenter instance.
func IsQuiet() bool {
	return defaultPresenter.IsQuiet()
}
