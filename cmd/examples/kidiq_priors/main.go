package main

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"math/rand/v2"
	"time"

	"github.com/BayesianBoi/methods-2-course/pkg/data"
	"github.com/BayesianBoi/methods-2-course/pkg/loader"
	"github.com/BayesianBoi/methods-2-course/pkg/model"
	"github.com/BayesianBoi/methods-2-course/pkg/prior"
	"github.com/BayesianBoi/methods-2-course/pkg/stats"
	"github.com/BayesianBoi/methods-2-course/pkg/summary"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// --- Data Generation ---

// generateKidiq simulates n children with the structure of the kidiq data:
// kid_score = 26 + 6·mom_hs + 0.6·mom_iq + noise.
func generateKidiq(n int, rng *rand.Rand) *data.Frame {
	cols := map[string][]float64{
		"kid_score": make([]float64, n),
		"mom_hs":    make([]float64, n),
		"mom_iq":    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		if rng.Float64() < 0.79 {
			cols["mom_hs"][i] = 1
		}
		cols["mom_iq"][i] = 100 + 15*rng.NormFloat64()
		cols["kid_score"][i] = 26 + 6*cols["mom_hs"][i] + 0.6*cols["mom_iq"][i] + 18*rng.NormFloat64()
	}
	var out []data.Column
	for _, name := range []string{"kid_score", "mom_hs", "mom_iq"} {
		out = append(out, data.Column{Name: name, Kind: data.Numeric, Num: cols[name], Missing: make([]bool, n)})
	}
	f, err := data.NewFrame(out...)
	if err != nil {
		log.Fatal(err)
	}
	return f
}

// plotRegressionLines draws the data and one line per posterior draw
// (every step-th), for the wide and the tight prior.
func plotRegressionLines(frame *data.Frame, fits map[string]*model.FittedModel, filename string) {
	p := plot.New()
	p.Title.Text = "kid_score ~ mom_iq under two priors"
	p.X.Label.Text = "mom_iq"
	p.Y.Label.Text = "kid_score"

	x, _ := frame.Numeric("mom_iq")
	y, _ := frame.Numeric("kid_score")
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		log.Fatal(err)
	}
	s.Color = color.RGBA{R: 50, G: 50, B: 50, A: 255}
	p.Add(s)

	colors := map[string]color.RGBA{"wide": {B: 255, A: 40}, "tight": {R: 255, A: 40}}
	lo, hi := stats.MinMax(x)
	for name, fit := range fits {
		a, _ := fit.Param(model.InterceptName)
		b, _ := fit.Param("mom_iq")
		for d := 0; d < len(a); d += len(a) / 50 {
			l, err := plotter.NewLine(plotter.XYs{{X: lo, Y: a[d] + b[d]*lo}, {X: hi, Y: a[d] + b[d]*hi}})
			if err != nil {
				log.Fatal(err)
			}
			l.Color = colors[name]
			p.Add(l)
		}
	}

	if err := p.Save(5*vg.Inch, 4*vg.Inch, filename); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Saved regression plot to %s\n", filename)
}

// --- Main Demo ---

func main() {
	rng := rand.New(rand.NewPCG(2024, 1))
	ctx := context.Background()

	fmt.Println("=== Wide vs tight coefficient prior on a small sample ===")
	full := generateKidiq(434, rng)
	train, test := loader.TrainTestSplit(full.NRows(), 0.9, 7)
	small, holdout := full.Rows(train), full.Rows(test)
	fmt.Printf("Training on %d children, holding out %d.\n", small.NRows(), holdout.NRows())

	priors := map[string]prior.Set{
		"wide":  {Coefficients: prior.NewNormal(0, 10).Fixed(), Intercept: prior.NewNormal(0, 2.5), Aux: prior.NewExponential(1)},
		"tight": {Coefficients: prior.NewNormal(0, 0.1).Fixed(), Intercept: prior.NewNormal(0, 2.5), Aux: prior.NewExponential(1)},
	}
	nd, err := data.FromRecords([]map[string]any{{"mom_iq": 70}, {"mom_iq": 100}, {"mom_iq": 130}})
	if err != nil {
		log.Fatal(err)
	}
	yTest, _ := holdout.Numeric("kid_score")

	fits := map[string]*model.FittedModel{}
	for _, name := range []string{"wide", "tight"} {
		start := time.Now()
		m := model.NewBayesLinearRegression(priors[name], model.WithSeed(11))
		fit, err := m.Fit(ctx, "kid_score ~ mom_iq", small)
		if err != nil {
			log.Fatal(err)
		}
		fits[name] = fit
		fmt.Printf("\n-- %s prior, sampled in %v --\n", name, time.Since(start))

		tab, err := summary.Params(fit, summary.DefaultProb)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(tab.Render())

		pp, err := fit.PosteriorPredict(nd)
		if err != nil {
			log.Fatal(err)
		}
		ptab, err := summary.Predictive("posterior predictive at mom_iq = 70, 100, 130", pp, []string{"70", "100", "130"}, summary.DefaultProb)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(ptab.Render())

		mu, err := fit.PosteriorLinpred(holdout)
		if err != nil {
			log.Fatal(err)
		}
		pred := make([]float64, mu.C)
		for i := range pred {
			pred[i] = stats.Mean(mu.Col(i))
		}
		fmt.Printf("Hold-out RMSE: %.2f, MAE: %.2f\n", model.RMSE(yTest, pred), model.MAE(yTest, pred))
	}

	plotRegressionLines(small, fits, "kidiq_prior_lines.png")
}
