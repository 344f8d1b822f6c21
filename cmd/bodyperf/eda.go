package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/YuminosukeSato/bodyperf/dataset"
	"github.com/YuminosukeSato/bodyperf/plotting"
	"github.com/spf13/cobra"
)

var (
	edaHead    int
	edaHeatmap string
)

var edaCmd = &cobra.Command{
	Use:   "eda",
	Short: "Print the raw data preview, summary statistics and correlations",
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := newSession().Data(context.Background())
		if err != nil {
			fatalExit(err)
			return err
		}

		rows, cols := tbl.Shape()
		fmt.Printf("Shape: (%d, %d)\n\n", rows, cols)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, strings.Join(tbl.Header, "\t"))
		for _, r := range tbl.Head(edaHead) {
			fmt.Fprintln(w, strings.Join(r, "\t"))
		}
		w.Flush()

		fmt.Println("\nSummary Statistics:")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "\tcount\tmean\tstd\tmin\t25%\t50%\t75%\tmax\t")
		for _, s := range dataset.Describe(tbl) {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", s.Column, s.Count,
				num(s.Mean), num(s.Std), num(s.Min), num(s.Q25), num(s.Q50), num(s.Q75), num(s.Max))
		}
		w.Flush()

		corr := dataset.Correlation(tbl)
		fmt.Println("\nFeature Correlations:")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "\t"+strings.Join(corr.Columns, "\t")+"\t")
		for i, row := range corr.Rows() {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = fmt.Sprintf("%.2f", v)
			}
			fmt.Fprintln(w, corr.Columns[i]+"\t"+strings.Join(cells, "\t")+"\t")
		}
		w.Flush()

		if edaHeatmap != "" {
			if err := plotting.SaveHeatmap(corr, edaHeatmap); err != nil {
				return err
			}
			fmt.Printf("\n✓ Wrote heatmap to %s\n", edaHeatmap)
		}
		return nil
	},
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.6f", v)
}

func init() {
	edaCmd.Flags().IntVarP(&edaHead, "head", "n", 5, "number of raw rows to preview (0 for all)")
	edaCmd.Flags().StringVar(&edaHeatmap, "heatmap", "", "write the correlation heatmap PNG to this file")
	rootCmd.AddCommand(edaCmd)
}
