package llm

import (
	"io/fs"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

// DefaultModels is the model used for each provider when none is configured
var DefaultModels = map[string]string{
	llmtypes.ProviderAnthropic: "claude-sonnet-4-5-20250929",
	llmtypes.ProviderOpenAI:    "gpt-4.1",
	llmtypes.ProviderGoogle:    "gemini-2.5-flash",
	llmtypes.ProviderBedrock:   "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
}

// envAliases binds config keys to the conventional variable names of each
// provider, after the SKILLRUN_ prefixed name.
var envAliases = map[string][]string{
	"anthropic.api_key": {"ANTHROPIC_API_KEY"},
	"anthropic.model":   {"ANTHROPIC_MODEL"},
	"skills_dir":        {"SKILLS_STORAGE_PATH"},
	"openai.api_key":    {"OPENAI_API_KEY"},
	"openai.base_url":   {"OPENAI_BASE_URL"},
	"google.api_key":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"google.project":    {"GOOGLE_CLOUD_PROJECT"},
	"google.location":   {"GOOGLE_CLOUD_LOCATION"},
	"bedrock.region":    {"AWS_REGION"},
}

// SetViperDefaults registers defaults for every config key
func SetViperDefaults(v *viper.Viper) {
	v.SetDefault("provider", llmtypes.ProviderAnthropic)
	v.SetDefault("max_tokens", 4096)
	v.SetDefault("max_turns", 50)
	v.SetDefault("skills_dir", "./skills")
	v.SetDefault("tool.shell", "bash")
	v.SetDefault("tool.timeout", "0s")
	v.SetDefault("tool.working_dir", "")
	v.SetDefault("request_timeout", "0s")
	v.SetDefault("google.backend", "gemini")
	v.SetDefault("retry.attempts", llmtypes.DefaultRetryConfig.Attempts)
	v.SetDefault("retry.initial_delay", llmtypes.DefaultRetryConfig.InitialDelay)
	v.SetDefault("retry.max_delay", llmtypes.DefaultRetryConfig.MaxDelay)
	v.SetDefault("retry.backoff_type", llmtypes.DefaultRetryConfig.BackoffType)
	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "fmt")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampler", "ratio")
	v.SetDefault("tracing.ratio", 1.0)
}

// BindEnv enables SKILLRUN_ prefixed variables and the provider aliases
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix("SKILLRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{"SKILLRUN_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return errors.Wrapf(err, "failed to bind environment for %s", key)
		}
	}
	return nil
}

// LoadDotEnv copies the variables of a dotenv file into the process
// environment. Variables that are already set win. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "failed to read %s", path)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return errors.Wrapf(err, "failed to set %s", name)
		}
	}
	return nil
}

// GetConfigFromViper builds the configuration from the global viper
// instance, applying the active profile.
func GetConfigFromViper() (llmtypes.Config, error) {
	config, err := loadViperConfig()
	if err != nil {
		return config, err
	}

	// Clean up profiles - remove default profile if it exists
	if config.Profiles != nil {
		delete(config.Profiles, "default")
	}

	// Apply active profile if set
	profileName := getActiveProfile()
	if profileName != "" {
		profile, exists := config.Profiles[profileName]
		if !exists {
			return config, &llmtypes.ConfigurationError{Field: "profile", Reason: "unknown profile " + profileName}
		}
		if err := applyProfile(&config, profile); err != nil {
			return config, err
		}
	}

	applyModelDefault(&config)
	return config, nil
}

// GetConfigFromViperWithCmd is GetConfigFromViper with flags explicitly set
// on cmd taking precedence over the active profile.
func GetConfigFromViperWithCmd(cmd *cobra.Command) (llmtypes.Config, error) {
	config, err := GetConfigFromViper()
	if err != nil || cmd == nil {
		return config, err
	}

	modelSet := false
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "provider":
			config.Provider = viper.GetString("provider")
		case "model":
			config.Model = viper.GetString("model")
			modelSet = true
		case "max-tokens":
			config.MaxTokens = viper.GetInt("max_tokens")
		case "max-turns":
			config.MaxTurns = viper.GetInt("max_turns")
		case "skills-dir":
			config.SkillsDir = viper.GetString("skills_dir")
		case "skill":
			config.Skills.Allowed = viper.GetStringSlice("skills.allowed")
		}
	})
	if !modelSet {
		applyModelDefault(&config)
	}

	return config, nil
}

func loadViperConfig() (llmtypes.Config, error) {
	var config llmtypes.Config

	// Use viper's automatic unmarshaling with mapstructure tags
	if err := viper.Unmarshal(&config); err != nil {
		return config, errors.Wrap(err, "failed to unmarshal configuration")
	}

	// Apply retry defaults if not set
	if config.Retry.Attempts == 0 {
		config.Retry = llmtypes.DefaultRetryConfig
	}
	if config.Provider == "" {
		config.Provider = llmtypes.ProviderAnthropic
	}
	config.Profile = viper.GetString("profile")

	return config, nil
}

// applyModelDefault picks a model when none is set explicitly. ANTHROPIC_MODEL
// only applies to the anthropic provider.
func applyModelDefault(config *llmtypes.Config) {
	if config.Model != "" {
		return
	}
	if config.Provider == llmtypes.ProviderAnthropic && config.Anthropic.Model != "" {
		config.Model = config.Anthropic.Model
		return
	}
	config.Model = DefaultModels[config.Provider]
}

func getActiveProfile() string {
	profile := viper.GetString("profile")
	if profile == "default" || profile == "" {
		return ""
	}
	return profile
}

func applyProfile(config *llmtypes.Config, profile llmtypes.ProfileConfig) error {
	// Use mapstructure to decode profile into config, merging values
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           config,
		WeaklyTypedInput: true,
		ZeroFields:       false, // Don't overwrite with zero values
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create profile decoder")
	}

	// Apply profile settings on top of existing config
	if err := decoder.Decode(map[string]any(profile)); err != nil {
		return errors.Wrap(err, "failed to apply profile configuration")
	}

	return nil
}
