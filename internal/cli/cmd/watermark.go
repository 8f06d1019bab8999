package cmd

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/trilhabrasil/outdoor-pipeline/internal/config"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/watermark"
)

var watermarkCmd = &cobra.Command{
	Use:   "watermark",
	Short: "Inspect and manage per-source watermarks",
	Long:  "Commands for listing and resetting the checkpoints that drive incremental extraction.",
}

var watermarkListCmd = &cobra.Command{
	Use:   "list [config file]",
	Short: "List the stored watermark for every source",
	Args:  cobra.ExactArgs(1),
	Example: `  trailctl watermark list pipeline.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openWatermarkStore(args[0])
		if err != nil {
			return err
		}

		watermarks := manager.All()
		if len(watermarks) == 0 {
			fmt.Println(color.YellowString("No watermarks stored in %s", manager.Path()))
			return nil
		}

		names := make([]string, 0, len(watermarks))
		for name := range watermarks {
			names = append(names, name)
		}
		sort.Strings(names)

		label := color.New(color.FgGreen)
		fmt.Printf("Watermark store: %s\n\n", manager.Path())
		for _, name := range names {
			label.Printf("%-30s", name)
			fmt.Printf(" %v\n", watermarks[name])
		}
		return nil
	},
}

var watermarkResetCmd = &cobra.Command{
	Use:   "reset [config file] [source]",
	Short: "Clear a source's watermark so its next run extracts everything",
	Args:  cobra.ExactArgs(2),
	Example: `  trailctl watermark reset pipeline.yaml bookings`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openWatermarkStore(args[0])
		if err != nil {
			return err
		}

		sourceName := args[1]
		if err := manager.Reset(sourceName); err != nil {
			return fmt.Errorf("error resetting watermark for %s: %w", sourceName, err)
		}

		fmt.Println(color.GreenString("Watermark for %s cleared; next run will extract all records", sourceName))
		return nil
	},
}

func init() {
	watermarkCmd.AddCommand(watermarkListCmd)
	watermarkCmd.AddCommand(watermarkResetCmd)
	rootCmd.AddCommand(watermarkCmd)
}

func openWatermarkStore(configFile string) (*watermark.Manager, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if cfg.WatermarkStore == "" {
		return nil, fmt.Errorf("configuration %s has no watermark_store", configFile)
	}
	return watermark.NewManager(cfg.WatermarkStore)
}
