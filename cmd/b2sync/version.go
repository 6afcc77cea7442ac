package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the b2sync version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		},
	}
}
