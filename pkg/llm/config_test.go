package llm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	SetViperDefaults(viper.GetViper())
	t.Cleanup(viper.Reset)
}

func TestGetConfigFromViperDefaults(t *testing.T) {
	resetViper(t)

	config, err := GetConfigFromViper()
	require.NoError(t, err)

	assert.Equal(t, llmtypes.ProviderAnthropic, config.Provider)
	assert.Equal(t, "claude-sonnet-4-5-20250929", config.Model)
	assert.Equal(t, 4096, config.MaxTokens)
	assert.Equal(t, 50, config.MaxTurns)
	assert.Equal(t, "./skills", config.SkillsDir)
	assert.Equal(t, "bash", config.Tool.Shell)
	assert.Zero(t, config.Tool.Timeout)
	assert.Empty(t, config.Tool.WorkingDir)
	assert.Zero(t, config.RequestTimeout)
	assert.Equal(t, llmtypes.DefaultRetryConfig, config.Retry)
	assert.False(t, config.Breaker.Enabled)
}

func TestGetConfigFromViper(t *testing.T) {
	resetViper(t)
	viper.Set("model", "test-model")
	viper.Set("max_tokens", 1234)
	viper.Set("tool.timeout", "45s")
	viper.Set("tool.working_dir", "/srv/repo")
	viper.Set("skills.allowed", []string{"git-*"})

	config, err := GetConfigFromViper()
	require.NoError(t, err)

	assert.Equal(t, "test-model", config.Model)
	assert.Equal(t, 1234, config.MaxTokens)
	assert.Equal(t, 45*time.Second, config.Tool.Timeout)
	assert.Equal(t, "/srv/repo", config.Tool.WorkingDir)
	assert.Equal(t, []string{"git-*"}, config.Skills.Allowed)
}

func TestBindEnvAliases(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("ANTHROPIC_MODEL", "claude-haiku-4-5")
	t.Setenv("SKILLS_STORAGE_PATH", "/srv/skills")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	resetViper(t)
	require.NoError(t, BindEnv(viper.GetViper()))

	config, err := GetConfigFromViper()
	require.NoError(t, err)

	assert.Equal(t, "sk-ant-test", config.Anthropic.APIKey)
	assert.Equal(t, "claude-haiku-4-5", config.Model)
	assert.Equal(t, "/srv/skills", config.SkillsDir)
	assert.Equal(t, "google-key", config.Google.APIKey)
}

func TestBindEnvPrefixedNameWins(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "plain")
	t.Setenv("SKILLRUN_ANTHROPIC_API_KEY", "prefixed")

	resetViper(t)
	require.NoError(t, BindEnv(viper.GetViper()))

	config, err := GetConfigFromViper()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", config.Anthropic.APIKey)
}

func TestAnthropicModelIgnoredForOtherProviders(t *testing.T) {
	t.Setenv("ANTHROPIC_MODEL", "claude-haiku-4-5")

	resetViper(t)
	require.NoError(t, BindEnv(viper.GetViper()))
	viper.Set("provider", llmtypes.ProviderOpenAI)

	config, err := GetConfigFromViper()
	require.NoError(t, err)
	assert.Equal(t, DefaultModels[llmtypes.ProviderOpenAI], config.Model)
}

func TestGetConfigFromViperWithProfile(t *testing.T) {
	resetViper(t)
	viper.Set("profile", "fast")
	viper.Set("profiles", map[string]any{
		"fast": map[string]any{
			"model":     "claude-haiku-4-5",
			"max_turns": 5,
			"tool": map[string]any{
				"timeout": "30s",
			},
		},
	})

	config, err := GetConfigFromViper()
	require.NoError(t, err)

	assert.Equal(t, "claude-haiku-4-5", config.Model)
	assert.Equal(t, 5, config.MaxTurns)
	assert.Equal(t, 30*time.Second, config.Tool.Timeout)
	assert.Equal(t, 4096, config.MaxTokens, "unset keys keep their base value")
	assert.Equal(t, "fast", config.Profile)
}

func TestGetConfigFromViperDefaultProfile(t *testing.T) {
	resetViper(t)
	viper.Set("profile", "default")

	_, err := GetConfigFromViper()
	assert.NoError(t, err)
}

func TestGetConfigFromViperUnknownProfile(t *testing.T) {
	resetViper(t)
	viper.Set("profile", "missing")

	_, err := GetConfigFromViper()
	var cfgErr *llmtypes.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "profile", cfgErr.Field)
}

func TestGetConfigFromViperWithCmd_FlagsOverrideProfile(t *testing.T) {
	resetViper(t)
	viper.Set("profile", "work")
	viper.Set("profiles", map[string]any{
		"work": map[string]any{
			"model":     "profile-model",
			"max_turns": 3,
		},
	})

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("model", "", "model")
	cmd.Flags().Int("max-turns", 0, "max turns")
	require.NoError(t, viper.BindPFlag("model", cmd.Flags().Lookup("model")))
	require.NoError(t, viper.BindPFlag("max_turns", cmd.Flags().Lookup("max-turns")))
	require.NoError(t, cmd.Flags().Set("model", "flag-model"))

	config, err := GetConfigFromViperWithCmd(cmd)
	require.NoError(t, err)

	assert.Equal(t, "flag-model", config.Model)
	assert.Equal(t, 3, config.MaxTurns, "unset flags leave the profile value")
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SKILLRUN_DOTENV_FRESH=from-file\nSKILLRUN_DOTENV_EXISTING=from-file\n"), 0o644))

	t.Setenv("SKILLRUN_DOTENV_EXISTING", "from-env")
	t.Cleanup(func() { os.Unsetenv("SKILLRUN_DOTENV_FRESH") })

	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "from-file", os.Getenv("SKILLRUN_DOTENV_FRESH"))
	assert.Equal(t, "from-env", os.Getenv("SKILLRUN_DOTENV_EXISTING"))
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}
