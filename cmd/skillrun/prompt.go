package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillrun/pkg/llm"
	"github.com/jingkaihe/skillrun/pkg/skills"
	"github.com/jingkaihe/skillrun/pkg/sysprompt"
)

var promptCmd = &cobra.Command{
	Use:   "prompt [request...]",
	Short: "Print the composed prompt without calling a model",
	Long: `Load the skills and print the prompt that would be sent to the model for
the request. No completion request is made and no credentials are needed.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := llm.GetConfigFromViperWithCmd(cmd)
		if err != nil {
			return err
		}

		request, err := readRequest(args, os.Stdin, stdinIsPipe())
		if err != nil {
			return err
		}

		loaded, err := skills.Initialize(cmd.Context(), config)
		if err != nil {
			return errors.Wrap(err, "failed to load skills")
		}

		renderer, err := sysprompt.NewRendererFromConfig(config.Prompt)
		if err != nil {
			return errors.Wrap(err, "failed to load prompt template")
		}

		prompt, err := renderer.Compose(request, skills.Instructions(loaded))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), prompt)
		return nil
	},
}
