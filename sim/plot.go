package sim

import (
	"fmt"
	"image/color"

	"github.com/milosgajdos/go-posetrack/model"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// NewTrajectoryPlot creates top view plot of the position of object obj in two state trajectories:
// truth:  ground truth states
// filter: filter estimates
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * either of the trajectories is empty
// * obj is not an object of the layout
// * gonum plot fails to be created
func NewTrajectoryPlot(l model.Layout, obj int, truth, filter []mat.Vector) (*plot.Plot, error) {
	if len(truth) == 0 || len(filter) == 0 {
		return nil, fmt.Errorf("invalid data supplied")
	}

	if obj < 0 || obj >= l.Objects {
		return nil, fmt.Errorf("invalid object: %d", obj)
	}

	p := plot.New()

	p.Title.Text = "Trajectory"
	p.X.Label.Text = "X [m]"
	p.Y.Label.Text = "Z [m]"

	legend := plot.NewLegend()

	legend.Top = true

	p.Legend = legend

	// Make a scatter plotter for ground truth
	truthScatter, err := plotter.NewScatter(makePoints(l, obj, truth))
	if err != nil {
		return nil, fmt.Errorf("failed to create scatter: %v", err)
	}
	truthScatter.GlyphStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	truthScatter.Shape = draw.PyramidGlyph{}
	truthScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(truthScatter)
	p.Legend.Add("truth", truthScatter)

	// Make a scatter plotter for filter data
	filterScatter, err := plotter.NewScatter(makePoints(l, obj, filter))
	if err != nil {
		return nil, fmt.Errorf("failed to create scatter: %v", err)
	}
	filterScatter.GlyphStyle.Color = color.RGBA{R: 169, G: 169, B: 169}
	filterScatter.Shape = draw.CrossGlyph{}
	filterScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(filterScatter)
	p.Legend.Add("filtered", filterScatter)

	return p, nil
}

func makePoints(l model.Layout, obj int, states []mat.Vector) plotter.XYs {
	pts := make(plotter.XYs, len(states))
	for i, x := range states {
		pose := l.Pose(x, obj)
		pts[i].X = pose.Position.X
		pts[i].Y = pose.Position.Z
	}

	return pts
}
