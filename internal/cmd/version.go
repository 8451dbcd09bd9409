package cmd

import (
	"github.com/spf13/cobra"

	"github.com/meigma/mtzip/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return version.Fprint(cmd.OutOrStdout(), "mtzip")
		},
	}
}
