package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"treemaker/pkg/document"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and document format version",
		Args:  cobra.NoArgs,
		// No config needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "treemaker %s (document format %d)\n", version, document.Version)
		},
	}
}
