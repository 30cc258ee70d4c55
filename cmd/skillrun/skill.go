package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillrun/pkg/llm"
	"github.com/jingkaihe/skillrun/pkg/presenter"
	"github.com/jingkaihe/skillrun/pkg/skills"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Inspect the skills directory",
	Long:  `List the skills found under the skills directory or show the instructions of one of them.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available skills",
	Long:  `List the skills found under the skills directory with their descriptions and paths.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := loadSkillsForCmd(cmd)
		if err != nil {
			return err
		}
		if len(loaded) == 0 {
			presenter.Info("No skills found")
			return nil
		}
		return writeSkillTable(cmd.OutOrStdout(), loaded)
	},
}

var skillShowCmd = &cobra.Command{
	Use:   "show <skill-name>",
	Short: "Print the instructions of a skill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadSkillsForCmd(cmd)
		if err != nil {
			return err
		}

		skill, ok := loaded[args[0]]
		if !ok {
			return errors.Errorf("skill '%s' not found", args[0])
		}
		fmt.Fprint(cmd.OutOrStdout(), skill.Instructions)
		return nil
	},
}

func init() {
	skillCmd.AddCommand(skillListCmd)
	skillCmd.AddCommand(skillShowCmd)
}

func loadSkillsForCmd(cmd *cobra.Command) (map[string]*skills.Skill, error) {
	config, err := llm.GetConfigFromViperWithCmd(cmd)
	if err != nil {
		return nil, err
	}

	loaded, err := skills.Initialize(cmd.Context(), config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load skills")
	}
	return loaded, nil
}

func writeSkillTable(w io.Writer, loaded map[string]*skills.Skill) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDIRECTORY\tDESCRIPTION")
	fmt.Fprintln(tw, "----\t---------\t-----------")

	for _, name := range skills.SortedNames(loaded) {
		skill := loaded[name]
		description := skill.Description
		if len(description) > 60 {
			description = description[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", skill.Name, skill.Directory, description)
	}
	return tw.Flush()
}
