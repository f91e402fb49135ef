package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arrmate/arrmate/internal/history"
	"github.com/arrmate/arrmate/internal/intent"
	"github.com/arrmate/arrmate/internal/pipeline"
)

func newExecuteCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var output string

	cmd := &cobra.Command{
		Use:   "execute <command>",
		Short: "Run one natural language command",
		Example: `  arrmate execute "remove episode 1 of Angel season 1"
  arrmate execute --dry-run "add The Matrix"
  arrmate execute -o json "list my movies"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}

			defer ctx.close()
			log := ctx.logger(false).Logger
			reg, err := ctx.newRegistry(log)
			if err != nil {
				return err
			}
			p := ctx.newPipeline(cmd.Context(), reg, log)
			hist, err := ctx.openHistory(cmd.Context(), log)
			if err != nil {
				log.Warn().Err(err).Msg("Command history unavailable")
			} else if hist != nil {
				p.SetHistory(hist)
			}

			resp := p.Run(cmd.Context(), pipeline.Command{
				Text:   strings.Join(args, " "),
				DryRun: dryRun,
				Source: history.SourceCLI,
			})

			out := cmd.OutOrStdout()
			if err := renderResponse(out, resp, format, newPalette(out)); err != nil {
				return err
			}
			return failureError(resp)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse the command and show the intent without running it")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	return cmd
}

// failureError turns a failed run into a non-zero exit without repeating the
// rendered message.
func failureError(resp *pipeline.Response) error {
	if resp.Status != intent.StatusFailure {
		return nil
	}
	return fmt.Errorf("command failed at stage %s", resp.Stage)
}
