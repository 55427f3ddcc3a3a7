package cmd

import (
	"errors"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/rdtsim/rdtsim/sim/trace"
)

var errNothingToPlot = errors.New("no packet reached the far side")

var directionColors = map[string]color.Color{
	"A": color.RGBA{R: 64, G: 64, B: 192, A: 255},
	"B": color.RGBA{R: 192, G: 96, B: 32, A: 255},
}

// writeDelayPlot renders send time against one-way delay for every packet the
// channel delivered, one series per sending entity. The format follows the
// file extension (png, svg, pdf, ...).
func writeDelayPlot(path string, transmissions []trace.TransmissionRecord) error {
	byFrom := map[string]plotter.XYs{}
	for _, tx := range transmissions {
		if tx.Fate == trace.FateLost {
			continue
		}
		byFrom[tx.From] = append(byFrom[tx.From], plotter.XY{X: tx.SentAt, Y: tx.Delay()})
	}
	if len(byFrom) == 0 {
		return errNothingToPlot
	}

	p := plot.New()
	p.Title.Text = "One-way packet delay"
	p.X.Label.Text = "Send time"
	p.Y.Label.Text = "Delay"
	p.Add(plotter.NewGrid())

	for _, from := range []string{"A", "B"} {
		pts, ok := byFrom[from]
		if !ok {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		s.GlyphStyle = draw.GlyphStyle{
			Color:  directionColors[from],
			Radius: vg.Points(2),
			Shape:  draw.CircleGlyph{},
		}
		p.Add(s)
		p.Legend.Add("from "+from, s)
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
