package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aadhaarcli/pkg/contracts"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Needs no configuration
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), contracts.GetVersionString())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), contracts.GetFullVersionString())
			if contracts.IsPrerelease() {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("pre-release build: "+contracts.VersionStage))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	return cmd
}
