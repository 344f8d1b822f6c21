package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/YuminosukeSato/bodyperf/core/model"
	"github.com/YuminosukeSato/bodyperf/pipeline"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	predictIn    = pipeline.DefaultInput()
	predictModel string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the performance class of one record",
	Example: `  bodyperf predict --age 32 --gender Female --height-cm 162.5 --weight-kg 55 \
    --body-fat 24 --grip-force 28 --sit-ups-counts 40 --broad-jump-cm 170`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := predictIn.Validate(); err != nil {
			return err
		}

		var art *pipeline.Artifacts
		if predictModel != "" {
			art = &pipeline.Artifacts{}
			if err := model.LoadModel(art, predictModel); err != nil {
				return errors.Wrapf(err, "load %s", predictModel)
			}
		} else {
			var err error
			art, err = newSession().Artifacts(context.Background())
			if err != nil {
				fatalExit(err)
				return err
			}
		}

		label, err := art.Predict(predictIn)
		if err != nil {
			return err
		}
		probs, err := art.PredictProba(predictIn)
		if err != nil {
			return err
		}

		fmt.Printf("Predicted Performance: %s\n", label)
		labels := make([]string, 0, len(probs))
		for l := range probs {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Printf("  %s: %.3f\n", l, probs[l])
		}
		return nil
	},
}

func init() {
	f := predictCmd.Flags()
	f.IntVar(&predictIn.Age, "age", predictIn.Age, "age in years")
	f.StringVar(&predictIn.Gender, "gender", predictIn.Gender, "Male or Female")
	f.Float64Var(&predictIn.HeightCm, "height-cm", predictIn.HeightCm, "height (cm)")
	f.Float64Var(&predictIn.WeightKg, "weight-kg", predictIn.WeightKg, "weight (kg)")
	f.Float64Var(&predictIn.BodyFat, "body-fat", predictIn.BodyFat, "body fat (%)")
	f.Float64Var(&predictIn.Diastolic, "diastolic", predictIn.Diastolic, "diastolic blood pressure")
	f.Float64Var(&predictIn.Systolic, "systolic", predictIn.Systolic, "systolic blood pressure")
	f.Float64Var(&predictIn.GripForce, "grip-force", predictIn.GripForce, "grip force")
	f.Float64Var(&predictIn.SitAndBendForwardCm, "sit-and-bend-forward-cm", predictIn.SitAndBendForwardCm, "sit and bend forward (cm)")
	f.IntVar(&predictIn.SitUpsCounts, "sit-ups-counts", predictIn.SitUpsCounts, "sit-ups count")
	f.Float64Var(&predictIn.BroadJumpCm, "broad-jump-cm", predictIn.BroadJumpCm, "broad jump (cm)")
	f.StringVar(&predictModel, "model", "", "use artifacts exported by 'train --out' instead of training")
	rootCmd.AddCommand(predictCmd)
}
