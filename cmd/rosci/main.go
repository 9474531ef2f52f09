// rosci orchestrates a ROS 2 package CI run: it assembles a colcon
// workspace from a repository manifest, injects the package under test at
// its PR ref, prunes everything outside the target's dependency closure,
// then builds and tests with coverage.
//
// Usage:
//
//	rosci run --package-name=<pkgs> --repo-file=<path|url> [flags]
//	rosci resolve <locator>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
