package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillrun/pkg/llm"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

const redacted = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration resolved from flags, environment variables, config
files and the active profile. Credentials are redacted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := llm.GetConfigFromViperWithCmd(cmd)
		if err != nil {
			return err
		}

		out, err := renderConfig(config)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func renderConfig(config llmtypes.Config) (string, error) {
	out, err := yaml.Marshal(redactConfig(config))
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal configuration")
	}
	return string(out), nil
}

// redactConfig hides credentials. Profiles are dropped since they are
// free-form and may carry keys of their own.
func redactConfig(config llmtypes.Config) llmtypes.Config {
	redact := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	redact(&config.Anthropic.APIKey)
	redact(&config.OpenAI.APIKey)
	redact(&config.Google.APIKey)
	config.Profiles = nil
	return config
}
