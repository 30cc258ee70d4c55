package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillrun/pkg/llm"
	"github.com/jingkaihe/skillrun/pkg/logger"
	"github.com/jingkaihe/skillrun/pkg/presenter"
)

const localConfigFile = "skillrun-config.yaml"

var rootCmd = &cobra.Command{
	Use:   "skillrun",
	Short: "Run natural-language requests against a repository of skills",
	Long: `skillrun loads every skill (a SKILL.md instruction set) under the skills
directory, lets the model pick the most appropriate one for the request, and
executes the shell commands it asks for until it produces an answer.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Configure(viper.GetString("log_level"), viper.GetString("log_format")); err != nil {
			return err
		}
		return initTracing(cmd.Context())
	},
	// Bare arguments are answered like the run command
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !stdinIsPipe() {
			return cmd.Help()
		}
		return runWithSignals(cmd, args)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("provider", "", "LLM provider to use (anthropic, openai, google or bedrock)")
	flags.String("model", "", "LLM model to use (overrides config)")
	flags.Int("max-tokens", 0, "Maximum tokens for each response (overrides config)")
	flags.String("profile", "", "Configuration profile to apply")
	flags.String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace)")
	flags.String("log-format", "fmt", "Log format (fmt or json)")
	flags.String("skills-dir", "", "Directory holding one sub-directory per skill (overrides config)")
	flags.StringSlice("skill", nil, "Only load skills whose name matches this glob pattern (repeatable)")
	flags.Int("max-turns", 0, "Maximum number of completion calls for the request (overrides config)")
	flags.BoolP("quiet", "q", false, "Only print the final answer")

	viper.BindPFlag("provider", flags.Lookup("provider"))
	viper.BindPFlag("model", flags.Lookup("model"))
	viper.BindPFlag("max_tokens", flags.Lookup("max-tokens"))
	viper.BindPFlag("profile", flags.Lookup("profile"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))
	viper.BindPFlag("skills_dir", flags.Lookup("skills-dir"))
	viper.BindPFlag("skills.allowed", flags.Lookup("skill"))
	viper.BindPFlag("max_turns", flags.Lookup("max-turns"))

	withTracing(rootCmd)
	rootCmd.AddCommand(withTracing(runCmd))
	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(withTracing(promptCmd))
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if err := llm.LoadDotEnv(".env"); err != nil {
		logger.L.WithError(err).Warn("failed to load .env")
	}

	v := viper.GetViper()
	llm.SetViperDefaults(v)
	if err := llm.BindEnv(v); err != nil {
		logger.L.WithError(err).Warn("failed to bind environment variables")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	if err := loadConfigFiles(v, configFiles(home)...); err != nil {
		presenter.Error(err, "Failed to load configuration")
		os.Exit(1)
	}
}

// configFiles lists the config files in increasing order of precedence
func configFiles(home string) []string {
	var files []string
	if home != "" {
		files = append(files, filepath.Join(home, ".skillrun", "config.yaml"))
	}
	return append(files, localConfigFile)
}

// loadConfigFiles merges every existing file into v, later files winning.
// Missing files are skipped.
func loadConfigFiles(v *viper.Viper, files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.MergeInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %s", file)
		}
		logger.L.WithField("file", file).Debug("loaded config file")
	}
	return nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if shutdownErr := shutdownTracing(context.Background()); shutdownErr != nil {
		logger.L.WithError(shutdownErr).Warn("failed to shut down tracing")
	}
	if err != nil {
		presenter.Error(err, "")
		os.Exit(1)
	}
}
