package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/trilhabrasil/outdoor-pipeline/internal/cli/runner"
)

var (
	// factories is set by main.go during initialization
	factories runner.Factories

	// dryRun flag for validation only
	dryRun bool

	runCmd = &cobra.Command{
		Use:   "run [config file]",
		Short: "Run pipelines from configuration",
		Long:  "Execute the pipelines described by the specified configuration file",
		Args:  cobra.ExactArgs(1),
		Example: `  trailctl run pipeline.yaml
  trailctl run config/production.yaml
  trailctl run --dry-run pipeline.yaml`,
		RunE: runPipelines,
	}
)

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate configuration without running the pipelines")
	rootCmd.AddCommand(runCmd)
}

// SetFactories sets the factory functions for creating pipeline components
func SetFactories(f runner.Factories) {
	factories = f
}

func runPipelines(cmd *cobra.Command, args []string) error {
	configFile := args[0]

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return fmt.Errorf("configuration file not found: %s", configFile)
	}

	r := runner.New(runner.Options{
		ConfigFile: configFile,
		Verbose:    verbose,
	}, factories)

	// If dry-run, only validate the configuration
	if dryRun {
		fmt.Println(color.YellowString("Validating pipeline configuration from %s", configFile))

		if err := r.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Println(color.GreenString("Configuration is valid"))
		return nil
	}

	fmt.Println(color.GreenString("Starting pipelines from %s", configFile))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := r.Run(ctx); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Println(color.GreenString("All pipelines completed successfully"))
	return nil
}
