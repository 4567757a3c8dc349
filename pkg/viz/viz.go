// Package viz draws prior and posterior draws with gonum/plot.
package viz

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/BayesianBoi/methods-2-course/pkg/model"
	"github.com/BayesianBoi/methods-2-course/pkg/stats"
	"github.com/BayesianBoi/methods-2-course/pkg/summary"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	priorColor     = color.RGBA{R: 230, G: 120, B: 40, A: 160}
	posteriorColor = color.RGBA{R: 50, G: 50, B: 255, A: 160}
)

const bins = 40

// Density overlays normalized histograms of prior and posterior
// predictive draws for one new-data row and saves the figure to path.
func Density(path, title string, priorDraws, posteriorDraws []float64) error {
	if len(priorDraws) == 0 || len(posteriorDraws) == 0 {
		return errors.New("viz: no draws to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "predicted outcome"
	p.Y.Label.Text = "density"

	for _, s := range []struct {
		name  string
		draws []float64
		c     color.Color
	}{
		{"prior predictive", priorDraws, priorColor},
		{"posterior predictive", posteriorDraws, posteriorColor},
	} {
		h, err := plotter.NewHist(plotter.Values(s.draws), bins)
		if err != nil {
			return fmt.Errorf("viz: %s: %w", s.name, err)
		}
		h.Normalize(1)
		h.FillColor = s.c
		h.LineStyle.Width = 0
		p.Add(h)
		p.Legend.Add(s.name, h)
	}
	p.Legend.Top = true

	// keep the posterior visible when the prior is much wider
	lo, hi := stats.CentralInterval(priorDraws, 0.99)
	plo, phi := stats.MinMax(posteriorDraws)
	p.X.Min, p.X.Max = min(lo, plo), max(hi, phi)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// Intervals plots the median and central prob interval of every
// coefficient of fit, one row per parameter, sigma excluded.
func Intervals(path string, fit *model.FittedModel, prob float64) error {
	names := fit.Params[:len(fit.Params)-1]
	if len(names) == 0 {
		return errors.New("viz: fit has no coefficients")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s (%.0f%% intervals)", fit.Kind(), fit.Formula, prob*100)
	p.X.Label.Text = "value"

	intervals, err := summary.PosteriorInterval(fit, prob)
	if err != nil {
		return err
	}
	medians := make(plotter.XYs, len(names))
	for j := range names {
		iv := intervals[j]
		y := float64(len(names) - 1 - j)
		l, err := plotter.NewLine(plotter.XYs{{X: iv.Lo, Y: y}, {X: iv.Hi, Y: y}})
		if err != nil {
			return err
		}
		l.Color = posteriorColor
		l.LineStyle.Width = vg.Points(3)
		p.Add(l)
		medians[j] = plotter.XY{X: stats.Median(fit.Draws.Col(j)), Y: y}
	}
	s, err := plotter.NewScatter(medians)
	if err != nil {
		return err
	}
	s.Color = color.RGBA{A: 255}
	s.Shape = draw.CircleGlyph{}
	s.Radius = vg.Points(3)
	p.Add(s)

	labels := make([]string, len(names))
	for j, n := range names {
		labels[len(names)-1-j] = n
	}
	p.NominalY(labels...)
	p.Add(plotter.NewGrid())

	return p.Save(6*vg.Inch, vg.Length(len(names)+1)*vg.Inch*0.6+vg.Inch, path)
}
