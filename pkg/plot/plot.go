// Package plot renders sweep run records as line charts, reproducing the
// expectation-value-versus-parameter figures the sweeps are run for.
package plot

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/synqs/coldatom/pkg/storage"
)

// Options controls figure labels and size.
type Options struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
}

// RenderRun draws every series of a run record against the sweep points
// and writes the figure to path. The image format follows the file
// extension (.png, .svg, .pdf, ...). Only completed points are drawn, so a
// partial record renders a partial curve.
func RenderRun(record storage.RunRecord, path string, opts Options) error {
	if record.Completed <= 0 || len(record.Series) == 0 {
		return fmt.Errorf("run %q has no completed points to plot", record.Run)
	}
	if record.Completed > len(record.Points) {
		return fmt.Errorf("run %q: %d completed points but only %d sweep points",
			record.Run, record.Completed, len(record.Points))
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("%s on %s", record.Sequence, record.Backend)
	}
	p.X.Label.Text = opts.XLabel
	if p.X.Label.Text == "" {
		p.X.Label.Text = "sweep parameter"
	}
	p.Y.Label.Text = opts.YLabel
	if p.Y.Label.Text == "" {
		p.Y.Label.Text = "Lz expectation value"
	}
	p.Legend.Top = true

	// Deterministic series order.
	keys := make([]string, 0, len(record.Series))
	for k := range record.Series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, 2*len(keys))
	for _, key := range keys {
		values := record.Series[key]
		n := record.Completed
		if len(values) < n {
			return fmt.Errorf("series %q has %d values, expected %d", key, len(values), n)
		}

		xys := make(plotter.XYs, n)
		for i := 0; i < n; i++ {
			xys[i].X = record.Points[i]
			xys[i].Y = values[i]
		}
		args = append(args, key, xys)
	}

	if err := plotutil.AddLinePoints(p, args...); err != nil {
		return fmt.Errorf("add series: %w", err)
	}

	width := opts.Width
	if width == 0 {
		width = 6 * vg.Inch
	}
	height := opts.Height
	if height == 0 {
		height = 4 * vg.Inch
	}

	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save figure: %w", err)
	}
	return nil
}
