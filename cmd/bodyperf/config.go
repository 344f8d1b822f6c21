package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/bodyperf/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or write bodyperf configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(b))
		return nil
	},
}

var configWriteCmd = &cobra.Command{
	Use:   "write [path]",
	Short: "Write the effective configuration to a YAML file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "bodyperf.yaml"
		if len(args) == 1 {
			path = args[0]
		} else if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".bodyperf", "bodyperf.yaml")
		}
		if err := config.Save(cfg, path); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configWriteCmd)
	rootCmd.AddCommand(configCmd)
}
