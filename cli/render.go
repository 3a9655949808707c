package cli

import (
	"image/color"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/latticeplanner/motionplan/xytheta"
)

const renderSize = 8 * vg.Inch

var (
	fatalColor = color.RGBA{R: 200, A: 255}
	softColor  = color.RGBA{R: 240, G: 170, B: 60, A: 160}
	planColor  = color.RGBA{B: 220, A: 255}
	goalColor  = color.RGBA{G: 160, A: 255}
)

// RenderAction draws the obstacles of a context dump at one heading, its start and goals, and the
// plan found from it.
func RenderAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	space, err := cfg.ActionSpace()
	if err != nil {
		return err
	}
	theta := c.Int(flagTheta)
	if theta < 0 || theta >= space.NumAngles() {
		return errors.Errorf("theta must be in [0, %d)", space.NumAngles())
	}

	file := c.Path(flagContext)
	pc, err := xytheta.ReadPlannerContext(file, space)
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = file
	p.X.Label.Text = "x (mm)"
	p.Y.Label.Text = "y (mm)"

	for _, obstacle := range pc.Env.Obstacles(xytheta.GraphTheta(theta)) {
		var xys plotter.XYs
		for _, pt := range obstacle.Poly.Polygon().Points() {
			xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
		}
		poly, err := plotter.NewPolygon(xys)
		if err != nil {
			return err
		}
		poly.Color = softColor
		if obstacle.IsFatal() {
			poly.Color = fatalColor
		}
		p.Add(poly)
	}

	goals := make(plotter.XYs, 0, len(pc.Goals))
	for _, goal := range pc.Goals {
		goals = append(goals, plotter.XY{X: goal.State.XMM, Y: goal.State.YMM})
	}
	if len(goals) > 0 {
		scatter, err := plotter.NewScatter(goals)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = goalColor
		p.Add(scatter)
		p.Legend.Add("goals", scatter)
	}

	result, err := replayContext(c.Context, cfg, space, file, 0, logger)
	if err != nil {
		warningf(c.App.Writer, "no plan to draw: %v", err)
	} else {
		var xys plotter.XYs
		for _, s := range space.ConvertToXYPlan(result.Plan) {
			xys = append(xys, plotter.XY{X: s.XMM, Y: s.YMM})
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = planColor
		p.Add(line)
		p.Legend.Add("plan", line)
	}

	start, err := plotter.NewScatter(plotter.XYs{{X: pc.Start.XMM, Y: pc.Start.YMM}})
	if err != nil {
		return err
	}
	p.Add(start)
	p.Legend.Add("start", start)

	out := c.Path(flagOut)
	if err := p.Save(renderSize, renderSize, out); err != nil {
		return errors.Wrapf(err, "saving %s", out)
	}
	printf(c.App.Writer, "wrote %s", out)
	return nil
}
