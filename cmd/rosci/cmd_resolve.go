package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rosci/internal/manifest"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <locator>",
	Short: "Print the dereferenceable URL for a manifest locator",
	Long: `Resolve a manifest locator the way "rosci run" does: an existing local
file becomes an absolute file:// URL, anything else passes through
unchanged as an already-remote URL.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), manifest.ResolveURL(args[0]))
		return nil
	},
}
