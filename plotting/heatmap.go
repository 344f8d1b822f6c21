// Package plotting renders the exploration charts with gonum/plot.
package plotting

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/YuminosukeSato/bodyperf/dataset"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// HeatmapSize is the side length of the rendered image.
const HeatmapSize = 8 * vg.Inch

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 of the
// matrix is drawn at the top.
type corrGrid struct {
	corr *dataset.CorrMatrix
}

func (g corrGrid) Dims() (c, r int) {
	n := len(g.corr.Columns)
	return n, n
}

func (g corrGrid) Z(c, r int) float64 {
	n := len(g.corr.Columns)
	return g.corr.Values.At(n-1-r, c)
}

func (g corrGrid) X(c int) float64 { return float64(c) }
func (g corrGrid) Y(r int) float64 { return float64(r) }

// NewHeatmapPlot builds an annotated correlation heatmap on a cool-warm
// diverging palette spanning [-1, 1].
func NewHeatmapPlot(corr *dataset.CorrMatrix) (*plot.Plot, error) {
	n := len(corr.Columns)
	if n == 0 {
		return nil, errors.NewValueError("plotting.Heatmap", "no numeric columns to plot")
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	grid := corrGrid{corr: corr}
	hm := plotter.NewHeatMap(grid, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = color.Gray{Y: 220}

	p := plot.New()
	p.Title.Text = "Feature Correlations"
	p.Add(hm)

	xTicks := make([]plot.Tick, n)
	yTicks := make([]plot.Tick, n)
	for i, name := range corr.Columns {
		xTicks[i] = plot.Tick{Value: float64(i), Label: name}
		yTicks[n-1-i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	p.X.Min, p.X.Max = -0.5, float64(n)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(n)-0.5

	// annot=True, fmt=".2f"
	cells := plotter.XYLabels{
		XYs:    make(plotter.XYs, 0, n*n),
		Labels: make([]string, 0, n*n),
	}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			v := grid.Z(c, r)
			label := "nan"
			if !math.IsNaN(v) {
				label = fmt.Sprintf("%.2f", v)
			}
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			cells.Labels = append(cells.Labels, label)
		}
	}
	labels, err := plotter.NewLabels(cells)
	if err != nil {
		return nil, errors.Wrap(err, "annotate heatmap")
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YCenter
		labels.TextStyle[i].Font.Size = vg.Points(7)
	}
	p.Add(labels)

	return p, nil
}

// Heatmap writes the correlation heatmap of corr to w as PNG.
func Heatmap(corr *dataset.CorrMatrix, w io.Writer) error {
	p, err := NewHeatmapPlot(corr)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(HeatmapSize, HeatmapSize, "png")
	if err != nil {
		return errors.Wrap(err, "create png writer")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write heatmap")
	}
	return nil
}

// SaveHeatmap writes the heatmap PNG to path.
func SaveHeatmap(corr *dataset.CorrMatrix, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()
	return Heatmap(corr, f)
}
