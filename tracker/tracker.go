// Package tracker assembles robust Gaussian filter pose trackers.
package tracker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/milosgajdos/go-posetrack/camera"
	"github.com/milosgajdos/go-posetrack/estimate"
	"github.com/milosgajdos/go-posetrack/gaussian"
	"github.com/milosgajdos/go-posetrack/model"
	"github.com/milosgajdos/go-posetrack/object"
	"github.com/milosgajdos/go-posetrack/observation"
	"github.com/milosgajdos/go-posetrack/quadrature"
	"github.com/milosgajdos/go-posetrack/render"
	"github.com/milosgajdos/go-posetrack/transition"
	"github.com/milosgajdos/matrix"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const (
	// utBeta is optimal beta for Gaussian distributions
	utBeta = 2.0
	// utKappa is sigma point kappa parameter
	utKappa = 0.0
)

// ErrNotInitialized is returned when the tracker is stepped before its belief is initialized.
var ErrNotInitialized = errors.New("tracker not initialized")

// Option configures Tracker.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	workers int
}

// WithLogger sets tracker logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithWorkers limits the number of concurrent sigma point evaluations.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// Tracker tracks object poses. Steps are serialized; the belief is replaced only
// after a successful cycle.
type Tracker struct {
	mu      sync.Mutex
	filter  *gaussian.Filter
	model   *transition.Model
	obs     *observation.Model
	layout  model.Layout
	backend render.Backend
	belief  *estimate.Belief
	cycle   int
	logger  *zap.Logger
}

// Build validates parameters p and assembles a tracker of the object resolved by loader
// observed by cameras cam. It never returns a partially built tracker.
func Build(p Parameters, cam *camera.Data, loader object.Loader, opts ...Option) (*Tracker, error) {
	o := options{logger: zap.NewNop()}
	for _, apply := range opts {
		apply(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if cam == nil {
		return nil, fmt.Errorf("%w: missing camera data", posetrack.ErrConfiguration)
	}

	if p.Observation.Sensors != cam.SensorCount() {
		return nil, fmt.Errorf("%w: %d sensors configured, camera data has %d",
			posetrack.ErrConfiguration, p.Observation.Sensors, cam.SensorCount())
	}

	if loader == nil {
		return nil, fmt.Errorf("%w: missing object loader", posetrack.ErrConfiguration)
	}

	obj, err := loader.Load(p.Object)
	if err != nil {
		return nil, fmt.Errorf("failed to load object model: %w", err)
	}

	if err := obj.Validate(); err != nil {
		return nil, err
	}

	backend, err := render.ParseBackend(p.Backend)
	if err != nil {
		return nil, err
	}

	layout, err := model.NewLayout(obj.Count(), p.Transition.EstimateScale)
	if err != nil {
		return nil, err
	}

	renderer, err := render.New(backend, obj, cam, layout)
	if err != nil {
		return nil, err
	}

	objects := make([]transition.Object, obj.Count())
	for i := range objects {
		for j := 0; j < 3; j++ {
			objects[i].LinearSigma[j] = p.Transition.LinearSigma
			objects[i].AngularSigma[j] = p.Transition.AngularSigma
		}
	}

	trans, err := transition.New(transition.Params{
		Layout:     layout,
		Objects:    objects,
		ScaleSigma: p.Transition.ScaleSigma,
		Seed:       p.Transition.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transition model: %w", err)
	}

	obs, err := observation.New(p.Observation, renderer, cam.Pixels())
	if err != nil {
		return nil, fmt.Errorf("failed to create observation model: %w", err)
	}

	q, err := quadrature.New(&quadrature.Config{
		Alpha:   p.UTAlpha,
		Beta:    utBeta,
		Kappa:   utKappa,
		Workers: o.workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create quadrature: %w", err)
	}

	f, err := gaussian.New(trans, obs, q, &gaussian.Config{UpdateRate: p.UpdateRate})
	if err != nil {
		return nil, fmt.Errorf("failed to create filter: %w", err)
	}

	o.logger.Info("tracker built",
		zap.Int("objects", layout.Objects),
		zap.Int("state_dim", layout.Dim()),
		zap.Int("sensors", cam.SensorCount()),
		zap.Int("pixels", cam.Pixels()),
		zap.Stringer("backend", backend),
		zap.Float64("ut_alpha", p.UTAlpha),
		zap.Float64("update_rate", p.UpdateRate),
	)

	return &Tracker{
		filter:  f,
		model:   trans,
		obs:     obs,
		layout:  layout,
		backend: backend,
		logger:  o.logger,
	}, nil
}

// Init initializes tracker belief from the initial condition.
// It returns error if the initial condition does not match the state layout.
func (t *Tracker) Init(ic posetrack.InitCond) error {
	b, err := estimate.NewBelief(ic.State(), ic.Cov())
	if err != nil {
		return err
	}

	if b.Dim() != t.layout.Dim() {
		return fmt.Errorf("%w: initial state %d, layout %d", posetrack.ErrInvalidDimension, b.Dim(), t.layout.Dim())
	}

	if !b.Valid() {
		return fmt.Errorf("%w: initial covariance is not positive semi-definite", posetrack.ErrInvalidDimension)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.belief = b
	t.cycle = 0

	t.logger.Debug("tracker initialized", zap.String("state", fmt.Sprintf("%v", matrix.Format(b.Val().T()))))

	return nil
}

// Step runs one filter cycle with measured depth image z and returns the new belief.
func (t *Tracker) Step(z mat.Vector) (*estimate.Belief, error) {
	return t.StepWithInput(z, nil)
}

// StepWithInput runs one filter cycle with input u and measured depth image z and returns the new belief.
// On error the belief is left unchanged.
func (t *Tracker) StepWithInput(z, u mat.Vector) (*estimate.Belief, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.belief == nil {
		return nil, ErrNotInitialized
	}

	start := time.Now()
	est, err := t.filter.Run(t.belief, u, z)
	if err != nil {
		t.logger.Warn("filter cycle failed", zap.Int("cycle", t.cycle), zap.Error(err))
		return nil, err
	}

	b, err := estimate.FromEstimate(est)
	if err != nil {
		return nil, err
	}

	t.belief = b
	t.cycle++

	if ce := t.logger.Check(zap.DebugLevel, "filter cycle"); ce != nil {
		ce.Write(
			zap.Int("cycle", t.cycle),
			zap.Duration("took", time.Since(start)),
			zap.Float64("trace", b.Trace()),
			zap.String("mean", fmt.Sprintf("%v", matrix.Format(b.Val().T()))),
		)
	}

	return b, nil
}

// Belief returns current tracker belief or nil if the tracker is not initialized.
func (t *Tracker) Belief() *estimate.Belief {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.belief
}

// Layout returns state layout
func (t *Tracker) Layout() model.Layout {
	return t.layout
}

// Backend returns renderer backend
func (t *Tracker) Backend() render.Backend {
	return t.backend
}

// Transition returns tracker state transition model
func (t *Tracker) Transition() *transition.Model {
	return t.model
}

// Observation returns tracker observation model
func (t *Tracker) Observation() *observation.Model {
	return t.obs
}

// Filter returns tracker filter
func (t *Tracker) Filter() *gaussian.Filter {
	return t.filter
}
