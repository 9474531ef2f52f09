package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "rosci",
	Short: "CI workspace assembly, build, and test for ROS 2 packages",
	Long: "rosci assembles a colcon workspace from a vcstool manifest, injects the\n" +
		"package under test at the exact ref being validated, prunes unrelated\n" +
		"packages, and runs the build/test/coverage sequence.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.Version = version
}
