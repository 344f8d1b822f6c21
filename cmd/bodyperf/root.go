package main

import (
	"fmt"
	"os"

	"github.com/YuminosukeSato/bodyperf/internal/config"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"github.com/YuminosukeSato/bodyperf/pkg/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	dataPath string

	// Loaded configuration
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bodyperf",
	Short: "Body performance classification",
	Long: `bodyperf loads Body_Performance.csv, explores it, trains a random forest
classifier on the performance class (A-D) and predicts the class of new records.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return errors.New("configuration not loaded")
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./bodyperf.yaml or ~/.bodyperf/bodyperf.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "path to Body_Performance.csv (overrides config)")
}

func loadConfig() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to read .env: %v\n", err)
	}

	c, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Error: failed to load config: %v\n", err)
		return
	}
	f := rootCmd.PersistentFlags()
	if f.Changed("log-level") {
		c.LogLevel = logLevel
	}
	if f.Changed("data") {
		c.DataPath = dataPath
	}
	if err := log.SetupLogger(c.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Error: %v\n", err)
		return
	}
	cfg = c
}

// fatalExit prints a dataset error in the user-facing form and stops.
func fatalExit(err error) {
	var missing *errors.MissingDatasetError
	if errors.As(err, &missing) {
		fmt.Fprintln(os.Stderr, missing.Error())
		os.Exit(1)
	}
}
