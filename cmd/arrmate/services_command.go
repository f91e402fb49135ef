package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newServicesCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "services",
		Short: "Test every configured service and show its status",
		Args:  cobra.NoArgs,
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

			probeCtx, cancel := context.WithTimeout(cmd.Context(), ctx.config.Pipeline.BackendTimeout)
			defer cancel()
			infos, err := reg.Refresh(probeCtx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			return renderServices(out, infos, format, newPalette(out))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	return cmd
}
