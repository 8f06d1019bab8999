package main

import (
	"fmt"
	"os"

	"github.com/trilhabrasil/outdoor-pipeline/internal/cli/cmd"
	"github.com/trilhabrasil/outdoor-pipeline/internal/cli/runner"
)

// Version information set via ldflags at build time
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, gitCommit, buildDate)
	cmd.SetFactories(runner.DefaultFactories())

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
