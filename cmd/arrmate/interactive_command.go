package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arrmate/arrmate/internal/history"
	"github.com/arrmate/arrmate/internal/intent"
	"github.com/arrmate/arrmate/internal/pipeline"
	"github.com/arrmate/arrmate/internal/registry"
)

const interactiveHelp = `Type a command such as "remove episode 1 of Angel season 1".
  dry <command>   show the parsed intent without running it
  services        test and list the configured services
  help            show this help
  exit            leave`

func newInteractiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"repl"},
		Short:   "Read commands from the terminal until exit",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			out := cmd.OutOrStdout()
			s := &session{
				pipeline: p,
				registry: reg,
				in:       bufio.NewScanner(cmd.InOrStdin()),
				out:      out,
				pal:      newPalette(out),
			}
			return s.loop(cmd.Context())
		},
	}
}

type session struct {
	pipeline *pipeline.Pipeline
	registry *registry.Registry
	in       *bufio.Scanner
	out      io.Writer
	pal      palette
}

func (s *session) loop(ctx context.Context) error {
	fmt.Fprintln(s.out, s.pal.render(s.pal.prompt, "arrmate interactive")+s.pal.render(s.pal.dim, ` (type "help" or "exit")`))
	for {
		line, ok := s.ask("arrmate> ")
		if !ok {
			fmt.Fprintln(s.out)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch lower := strings.ToLower(line); {
		case line == "":
		case lower == "exit" || lower == "quit":
			return nil
		case lower == "help":
			fmt.Fprintln(s.out, interactiveHelp)
		case lower == "services":
			infos, err := s.registry.Refresh(ctx)
			if err != nil {
				fmt.Fprintln(s.out, s.pal.render(s.pal.fail, err.Error()))
				continue
			}
			_ = renderServices(s.out, infos, formatTable, s.pal)
		case strings.HasPrefix(lower, "dry "):
			s.run(ctx, pipeline.Command{Text: strings.TrimSpace(line[4:]), DryRun: true, Source: history.SourceInteractive})
		default:
			s.run(ctx, pipeline.Command{Text: line, Source: history.SourceInteractive})
		}
	}
}

func (s *session) ask(prompt string) (string, bool) {
	fmt.Fprint(s.out, s.pal.render(s.pal.prompt, prompt))
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *session) run(ctx context.Context, cmd pipeline.Command) {
	resp := s.pipeline.Run(ctx, cmd)
	_ = renderResponse(s.out, resp, formatTable, s.pal)

	// Keep asking while the re-submitted intent is still ambiguous.
	for resp.Stage == pipeline.StageAmbiguous && resp.Intent != nil && len(resp.Candidates) > 0 {
		choice, ok := s.choose(resp.Candidates)
		if !ok {
			fmt.Fprintln(s.out, s.pal.render(s.pal.dim, "cancelled"))
			return
		}
		resp = s.pipeline.RunIntent(ctx, chosenIntent(*resp.Intent, choice), history.SourceInteractive)
		_ = renderResponse(s.out, resp, formatTable, s.pal)
	}
}

func (s *session) choose(candidates []intent.Candidate) (intent.Candidate, bool) {
	for {
		answer, ok := s.ask(fmt.Sprintf("Choose 1-%d (enter to cancel): ", len(candidates)))
		if !ok || answer == "" {
			return intent.Candidate{}, false
		}
		idx, err := parseChoice(answer, len(candidates))
		if err != nil {
			fmt.Fprintln(s.out, err)
			continue
		}
		return candidates[idx], true
	}
}

// parseChoice converts a 1-based answer into an index.
func parseChoice(answer string, n int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || v < 1 || v > n {
		return 0, fmt.Errorf("enter a number between 1 and %d", n)
	}
	return v - 1, nil
}

// chosenIntent re-targets raw at the chosen candidate through the resolved id
// bypass. ADD always sends the catalog id; other actions send the library id
// when the item is in the library, else its catalog id.
func chosenIntent(raw intent.Intent, c intent.Candidate) intent.Intent {
	out := raw.Clone()
	out.Title = c.Title
	out.ResolvedID = c.ID
	if c.ForeignID != "" && (raw.Action == intent.ActionAdd || !c.InLibrary) {
		out.ResolvedID = c.ForeignID
	}
	return out
}
