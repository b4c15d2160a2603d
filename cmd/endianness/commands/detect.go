package commands

import (
	"github.com/openfluke/devcompute/detector"
	"github.com/spf13/cobra"
)

func newDetectCommand(opts *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Print the WebGPU adapter capability report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := detector.Detect()
			if err != nil {
				return err
			}
			return rep.Encode(cmd.OutOrStdout(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, yaml)")
	return cmd
}
