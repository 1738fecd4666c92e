package cli

import (
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtga-synergy/internal/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printf(cmd, "synergy %s\n", version.GetVersion())
		},
	}
}
