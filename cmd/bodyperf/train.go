package main

import (
	"context"
	"fmt"

	"github.com/YuminosukeSato/bodyperf/core/model"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	trainOut   string
	trainTrees int
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the classifier and print the test-set classification report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("n-estimators") {
			cfg.Training.NEstimators = trainTrees
			if err := cfg.Training.Validate(); err != nil {
				return err
			}
		}

		art, err := newSession().Artifacts(context.Background())
		if err != nil {
			fatalExit(err)
			return err
		}
		ev, err := art.Evaluate()
		if err != nil {
			return err
		}

		fmt.Printf("Model: %s\n", art.Model)
		fmt.Printf("Train/Test: %d/%d\n\n", len(art.YTrain), len(art.YTest))
		fmt.Printf("Accuracy: %.4f\n\n", ev.Accuracy)
		fmt.Println("Classification Report:")
		fmt.Print(ev.Text)

		if trainOut != "" {
			if err := model.SaveModel(art, trainOut); err != nil {
				return errors.Wrapf(err, "export %s", trainOut)
			}
			fmt.Printf("\n✓ Saved model %s to %s\n", art.ID, trainOut)
		}
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVarP(&trainOut, "out", "o", "", "write the trained artifacts (gob) to this file")
	trainCmd.Flags().IntVar(&trainTrees, "n-estimators", 0, "number of trees (overrides config)")
	rootCmd.AddCommand(trainCmd)
}
