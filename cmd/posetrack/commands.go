package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/milosgajdos/go-posetrack/camera"
	"github.com/milosgajdos/go-posetrack/config"
	"github.com/milosgajdos/go-posetrack/dataset"
	"github.com/milosgajdos/go-posetrack/model"
	"github.com/milosgajdos/go-posetrack/object"
	"github.com/milosgajdos/go-posetrack/sim"
	"github.com/milosgajdos/go-posetrack/smooth/rts"
	"github.com/milosgajdos/go-posetrack/tracker"
	"github.com/milosgajdos/go-posetrack/transition"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/vg"
)

// frameInterval is time between recorded frames.
const frameInterval = 33 * time.Millisecond

type command struct {
	flags func(*flag.FlagSet)
	run   func(*config.Config, *zap.Logger) error
}

var (
	// init
	initDir string

	// record and track
	name string

	// record
	frames     int
	start      []float64
	velocity   []float64
	depthNoise float64
	wall       float64
	dropRate   float64

	// track
	plotPath    string
	initLinear  float64
	initAngular float64
	initScale   float64
	smoothed    bool
)

var commands = map[string]command{
	"init": {
		flags: func(fs *flag.FlagSet) {
			fs.StringVar(&initDir, "dir", ".", "output directory")
		},
		run: runInit,
	},
	"record": {
		flags: func(fs *flag.FlagSet) {
			fs.StringVar(&name, "name", "synthetic", "dataset name")
			fs.IntVar(&frames, "frames", 100, "number of frames")
			fs.Float64SliceVar(&start, "start", []float64{0, 0, 0.5, 0, 0, 0}, "initial pose of every object: px,py,pz,rx,ry,rz")
			fs.Float64SliceVar(&velocity, "velocity", []float64{0.002, 0, 0}, "object translation per frame")
			fs.Float64Var(&depthNoise, "depth-noise", 0.002, "depth measurement noise std-dev")
			fs.Float64Var(&wall, "wall", 2.0, "background wall depth; zero means no wall")
			fs.Float64Var(&dropRate, "drop-rate", 0.0, "probability of a missing pixel")
		},
		run: runRecord,
	},
	"track": {
		flags: func(fs *flag.FlagSet) {
			fs.StringVar(&name, "name", "synthetic", "dataset name")
			fs.StringVar(&plotPath, "plot", "", "trajectory plot PNG; empty disables plotting")
			fs.Float64Var(&initLinear, "init-linear-sigma", 0.005, "initial position std-dev")
			fs.Float64Var(&initAngular, "init-angular-sigma", 0.02, "initial orientation std-dev")
			fs.Float64Var(&initScale, "init-scale-sigma", 0.05, "initial log scale std-dev")
			fs.BoolVar(&smoothed, "smooth", false, "smooth tracked trajectory")
		},
		run: runTrack,
	},
	"list": {
		flags: func(*flag.FlagSet) {},
		run:   runList,
	},
}

// runInit writes default config, pinhole camera and a box mesh into initDir.
func runInit(c *config.Config, logger *zap.Logger) error {
	if err := os.MkdirAll(initDir, 0o755); err != nil {
		return err
	}

	cam, err := camera.New(camera.NewPinhole(64, 48, 120))
	if err != nil {
		return err
	}
	camPath := filepath.Join(initDir, "camera.yaml")
	if err := camera.Save(camPath, cam); err != nil {
		return fmt.Errorf("failed to save camera: %w", err)
	}

	f, err := os.Create(filepath.Join(initDir, "box.obj"))
	if err != nil {
		return err
	}
	if err := object.WriteOBJ(f, object.Box(0.1, 0.1, 0.1)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write mesh: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	c.Camera = camPath
	c.Dataset = filepath.Join(initDir, "posetrack.db")
	c.Tracker.Object = object.ResourceID{Directory: initDir, Meshes: []string{"box.obj"}}

	cfgPath := filepath.Join(initDir, "posetrack.yaml")
	if err := config.Write(cfgPath, *c); err != nil {
		return err
	}

	logger.Info("initialized", zap.String("config", cfgPath), zap.String("camera", camPath))

	return nil
}

// runRecord simulates objects moving with constant velocity and stores their depth images.
func runRecord(c *config.Config, logger *zap.Logger) error {
	cam, err := camera.Load(c.Camera)
	if err != nil {
		return err
	}

	obj, err := object.FileLoader{}.Load(c.Tracker.Object)
	if err != nil {
		return err
	}

	l, err := model.NewLayout(obj.Count(), c.Tracker.Transition.EstimateScale)
	if err != nil {
		return err
	}

	if len(start) != model.PoseDim || len(velocity) != 3 {
		return fmt.Errorf("invalid start pose or velocity")
	}

	poses := make([]model.Pose, l.Objects)
	u := mat.NewVecDense(l.Dim(), nil)
	for i := range poses {
		// objects side by side
		poses[i] = model.Pose{
			Position:    r3.Vec{X: start[0] + 0.15*float64(i), Y: start[1], Z: start[2]},
			Orientation: r3.Vec{X: start[3], Y: start[4], Z: start[5]},
		}
		off := l.PoseOffset(i)
		for j, v := range velocity {
			u.SetVec(off+j, v)
		}
	}

	x0, err := l.Vector(poses, 0)
	if err != nil {
		return err
	}

	tp := c.Tracker.Transition
	objects := make([]transition.Object, l.Objects)
	for i := range objects {
		for j := 0; j < 3; j++ {
			objects[i].LinearSigma[j] = tp.LinearSigma
			objects[i].AngularSigma[j] = tp.AngularSigma
		}
	}

	m, err := transition.New(transition.Params{Layout: l, Objects: objects, ScaleSigma: tp.ScaleSigma, Seed: tp.Seed})
	if err != nil {
		return err
	}

	truth, err := sim.Simulate(m, x0, u, frames)
	if err != nil {
		return err
	}

	scene, err := sim.NewScene(obj, cam, l, wall)
	if err != nil {
		return err
	}

	seed := tp.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewSource(seed)

	d := dataset.New(name)
	t0 := time.Now()
	for i, x := range truth {
		z, err := scene.ObserveNoisy(x, depthNoise, src)
		if err != nil {
			return fmt.Errorf("failed to observe frame %d: %w", i, err)
		}
		if dropRate > 0 {
			sim.Drop(z, dropRate, src)
		}

		if err := d.AddFrame(t0.Add(time.Duration(i)*frameInterval), z, x); err != nil {
			return err
		}
	}

	s, err := dataset.Open(c.Dataset)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Save(context.Background(), d); err != nil {
		return err
	}

	logger.Info("dataset recorded",
		zap.String("name", d.Name),
		zap.Stringer("id", d.ID),
		zap.Int("frames", len(d.Frames)),
		zap.Int("objects", l.Objects),
	)

	return nil
}

// runTrack tracks objects through a stored dataset starting at the first ground truth.
func runTrack(c *config.Config, logger *zap.Logger) error {
	cam, err := camera.Load(c.Camera)
	if err != nil {
		return err
	}

	s, err := dataset.Open(c.Dataset)
	if err != nil {
		return err
	}
	defer s.Close()

	d, err := s.Load(context.Background(), name)
	if err != nil {
		return err
	}

	if len(d.Frames) == 0 {
		return fmt.Errorf("dataset %q has no frames", name)
	}

	t, err := tracker.Build(c.Tracker, cam, object.FileLoader{}, tracker.WithLogger(logger))
	if err != nil {
		return err
	}

	l := t.Layout()
	x0 := d.Frames[0].Truth()
	if x0 == nil {
		return fmt.Errorf("first frame of dataset %q has no ground truth", name)
	}
	if err := l.Check(x0); err != nil {
		return fmt.Errorf("ground truth does not match tracker state: %w", err)
	}

	poses := make([]model.Pose, l.Objects)
	for i := range poses {
		poses[i] = l.Pose(x0, i)
	}
	logScale := 0.0
	if l.Scale {
		logScale = x0.AtVec(l.ScaleIndex())
	}

	ic, err := model.NewPoseInitCond(l, poses, logScale, initLinear, initAngular, initScale)
	if err != nil {
		return err
	}

	if err := t.Init(ic); err != nil {
		return err
	}

	var beliefs []posetrack.Estimate
	var tracked []dataset.Frame
	for i, f := range d.Frames {
		b, err := t.Step(f.Observation())
		if err != nil {
			logger.Warn("frame skipped", zap.Int("frame", i), zap.Error(err))
			continue
		}
		beliefs = append(beliefs, b)
		tracked = append(tracked, f)
	}

	if smoothed && len(beliefs) > 0 {
		s, err := rts.New(t.Filter())
		if err != nil {
			return err
		}
		if beliefs, err = s.Smooth(beliefs, nil); err != nil {
			return fmt.Errorf("failed to smooth trajectory: %w", err)
		}
	}

	var truth, est []mat.Vector
	var sumErr, sumAngle float64
	matched := 0
	for i, f := range tracked {
		x := f.Truth()
		if x == nil {
			continue
		}

		mean := beliefs[i].Val()
		truth = append(truth, x)
		est = append(est, mean)
		for j := 0; j < l.Objects; j++ {
			p, q := l.Pose(mean, j), l.Pose(x, j)
			sumErr += p.Distance(q)
			sumAngle += p.Angle(q)
		}
		matched++
	}

	if matched == 0 {
		return fmt.Errorf("no frame of dataset %q was tracked", name)
	}

	n := float64(matched * l.Objects)
	logger.Info("dataset tracked",
		zap.String("name", d.Name),
		zap.Int("frames", len(d.Frames)),
		zap.Float64("mean_position_error", sumErr/n),
		zap.Float64("mean_angle_error", sumAngle/n),
		zap.Bool("smoothed", smoothed),
	)

	if plotPath == "" {
		return nil
	}

	p, err := sim.NewTrajectoryPlot(l, 0, truth, est)
	if err != nil {
		return err
	}

	return p.Save(6*vg.Inch, 6*vg.Inch, plotPath)
}

// runList logs summaries of all stored datasets.
func runList(c *config.Config, logger *zap.Logger) error {
	s, err := dataset.Open(c.Dataset)
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.List(context.Background())
	if err != nil {
		return err
	}

	for _, d := range list {
		fmt.Printf("%s\t%s\t%d\t%s\n", d.ID, d.Name, d.Frames, d.CreatedAt.Format(time.RFC3339))
	}

	logger.Debug("datasets listed", zap.Int("count", len(list)))

	return nil
}
