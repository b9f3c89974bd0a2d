package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"tasnim.dev/eksops/internal/constants"
)

// Version is set at build time with -ldflags "-X tasnim.dev/eksops/cmd.Version=...".
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the eksops version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s/%s)\n",
				constants.AppName, Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
