package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillrun/pkg/llm"
	"github.com/jingkaihe/skillrun/pkg/logger"
	"github.com/jingkaihe/skillrun/pkg/presenter"
	"github.com/jingkaihe/skillrun/pkg/skills"
)

// errNoRequest is returned when neither arguments nor piped stdin carry a request
var errNoRequest = errors.New("no request provided")

var runCmd = &cobra.Command{
	Use:   "run [request...]",
	Short: "Answer a request using the available skills",
	Long: `Answer a natural-language request. Every skill under the skills directory is
offered to the model, which picks the most appropriate one and may run shell
commands through the bash tool until it produces a final answer.

The request is read from the arguments, from piped stdin, or both (the
arguments are placed before the stdin content).`,
	Args: cobra.ArbitraryArgs,
	RunE: runWithSignals,
}

// runWithSignals answers the request, cancelling it on SIGINT or SIGTERM
func runWithSignals(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			presenter.Warning("Cancellation requested, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runRequest(ctx, cmd, args)
}

func runRequest(ctx context.Context, cmd *cobra.Command, args []string) error {
	if quiet, err := cmd.Flags().GetBool("quiet"); err == nil && quiet {
		presenter.SetQuiet(true)
	}

	config, err := llm.GetConfigFromViperWithCmd(cmd)
	if err != nil {
		return err
	}

	request, err := readRequest(args, os.Stdin, stdinIsPipe())
	if err != nil {
		return err
	}

	loaded, err := skills.Initialize(ctx, config)
	if err != nil {
		return errors.Wrap(err, "failed to load skills")
	}

	out := presenter.Default()
	out.SkillList(skills.SortedNames(loaded))

	client, err := llm.NewClient(ctx, config)
	if err != nil {
		return err
	}

	logger.G(ctx).
		WithField("provider", config.Provider).
		WithField("model", config.Model).
		WithField("skills", len(loaded)).
		Debug("processing request")

	result, err := client.Ask(ctx, request, skills.Instructions(loaded), presenter.NewMessageHandler(out))
	if err != nil {
		return err
	}

	if out.IsQuiet() {
		out.Answer(result.Answer)
		return nil
	}

	out.Separator()
	out.Stats(presenter.ConvertUsageStats(&result.Usage))
	out.Info(fmt.Sprintf("Completed in %d turn(s) with %d tool call(s)", result.Turns, result.ToolCalls))
	return nil
}

// readRequest builds the request from the arguments and, when stdin is a
// pipe, its content. Arguments come first, separated by a newline.
func readRequest(args []string, stdin io.Reader, isPipe bool) (string, error) {
	request := strings.Join(args, " ")

	if isPipe {
		content, err := io.ReadAll(stdin)
		if err != nil {
			return "", errors.Wrap(err, "failed to read from stdin")
		}
		if len(content) > 0 {
			if request != "" {
				request += "\n"
			}
			request += string(content)
		}
	}

	if strings.TrimSpace(request) == "" {
		return "", errNoRequest
	}
	return request, nil
}

func stdinIsPipe() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
