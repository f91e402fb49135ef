package main

import (
	"github.com/spf13/cobra"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	var output string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with API keys masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			masked := ctx.config.Masked()
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), masked)
			}
			return writeYAML(cmd.OutOrStdout(), masked)
		},
	}
	showCmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml or json")

	configCmd.AddCommand(showCmd)
	return configCmd
}
