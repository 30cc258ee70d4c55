package llm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillrun/pkg/llm/anthropic"
	"github.com/jingkaihe/skillrun/pkg/sysprompt"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
	tooltypes "github.com/jingkaihe/skillrun/pkg/types/tools"
)

func TestNewCompleterFromConfigUnknownProvider(t *testing.T) {
	config := testConfig()
	config.Provider = "cohere"

	_, err := NewCompleterFromConfig(context.Background(), config)
	var cfgErr *llmtypes.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "provider", cfgErr.Field)
}

func TestNewCompleterFromConfigMissingKey(t *testing.T) {
	config := testConfig()
	config.Provider = llmtypes.ProviderAnthropic

	_, err := NewCompleterFromConfig(context.Background(), config)
	var cfgErr *llmtypes.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "anthropic.api_key", cfgErr.Field)
}

func TestNewCompleterFromConfigWrapping(t *testing.T) {
	config := testConfig()
	config.Provider = llmtypes.ProviderAnthropic
	config.Anthropic.APIKey = "sk-test"

	completer, err := NewCompleterFromConfig(context.Background(), config)
	require.NoError(t, err)
	assert.IsType(t, &anthropic.Completer{}, completer)

	config.Retry = llmtypes.RetryConfig{Attempts: 3, InitialDelay: 1, MaxDelay: 1}
	config.Breaker = llmtypes.BreakerConfig{Enabled: true}
	config.RateLimit = llmtypes.RateLimit{RequestsPerMinute: 60}

	completer, err = NewCompleterFromConfig(context.Background(), config)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", completer.Name())

	retrying, ok := completer.(*retryCompleter)
	require.True(t, ok)
	breaker, ok := retrying.next.(*BreakerCompleter)
	require.True(t, ok)
	_, ok = breaker.next.(*rateLimitCompleter)
	assert.True(t, ok)
}

func TestClientAsk(t *testing.T) {
	completer := &scriptedCompleter{responses: []*llmtypes.CompletionResponse{
		toolResponse(bashUse("toolu_1", "git log --oneline -n 5")),
		textResponse("Here is the summary."),
	}}
	executor := &recordingExecutor{}

	client, err := NewClient(context.Background(), testConfig(), WithCompleter(completer), WithExecutor(executor))
	require.NoError(t, err)
	assert.Same(t, completer, client.Completer())

	instructions := map[string]string{"git-analyzer": "Use git log."}
	result, err := client.Ask(context.Background(), "Summarize commits", instructions, nil)
	require.NoError(t, err)
	assert.Equal(t, "Here is the summary.", result.Answer)
	assert.Equal(t, []string{"git log --oneline -n 5"}, executor.commands)

	prompt, err := client.Prompt("Summarize commits", instructions)
	require.NoError(t, err)
	assert.Equal(t, prompt, completer.requests[0].Messages[0].Text())
}

func TestClientAskWithoutSkills(t *testing.T) {
	completer := &scriptedCompleter{}
	client, err := NewClient(context.Background(), testConfig(), WithCompleter(completer), WithExecutor(tooltypes.ExecutorFunc(
		func(context.Context, string) tooltypes.ToolResult { return tooltypes.ToolResult{} },
	)))
	require.NoError(t, err)

	_, err = client.Ask(context.Background(), "anything", map[string]string{}, nil)
	assert.True(t, errors.Is(err, sysprompt.ErrNoSkillsAvailable))
	assert.Zero(t, completer.calls())
}

func TestNewClientValidatesConfig(t *testing.T) {
	config := testConfig()
	config.Provider = llmtypes.ProviderAnthropic

	_, err := NewClient(context.Background(), config)
	var cfgErr *llmtypes.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "anthropic.api_key", cfgErr.Field)
}

func TestNewClientPromptTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(`{{.Request}}:{{range .Skills}}{{.Name}};{{end}}`), 0o644))

	config := testConfig()
	config.Prompt.Template = path
	client, err := NewClient(context.Background(), config, WithCompleter(&scriptedCompleter{}))
	require.NoError(t, err)

	prompt, err := client.Prompt("req", map[string]string{"b": "x", "a": "y"})
	require.NoError(t, err)
	assert.Equal(t, "req:a;b;", prompt)

	config.Prompt.Template = filepath.Join(t.TempDir(), "missing.tmpl")
	_, err = NewClient(context.Background(), config, WithCompleter(&scriptedCompleter{}))
	assert.Error(t, err)
}
