package tracker

import (
	"fmt"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/milosgajdos/go-posetrack/object"
	"github.com/milosgajdos/go-posetrack/observation"
	"github.com/milosgajdos/go-posetrack/render"
)

// TransitionParams are object transition parameters shared by all tracked objects.
type TransitionParams struct {
	// LinearSigma is position process noise std-dev per step in metres
	LinearSigma float64 `mapstructure:"linear_sigma" yaml:"linear_sigma"`
	// AngularSigma is orientation process noise std-dev per step in radians
	AngularSigma float64 `mapstructure:"angular_sigma" yaml:"angular_sigma"`
	// ScaleSigma is log scale process noise std-dev per step
	ScaleSigma float64 `mapstructure:"scale_sigma" yaml:"scale_sigma"`
	// EstimateScale adds latent object scale to the state
	EstimateScale bool `mapstructure:"estimate_scale" yaml:"estimate_scale"`
	// Seed seeds process noise sampling; zero means time based seed
	Seed uint64 `mapstructure:"seed" yaml:"seed"`
}

// Parameters are tracker parameters.
type Parameters struct {
	// UTAlpha is sigma point spread
	UTAlpha float64 `mapstructure:"ut_alpha" yaml:"ut_alpha"`
	// UpdateRate blends prediction with observation
	UpdateRate float64 `mapstructure:"update_rate" yaml:"update_rate"`
	// Backend is renderer backend: cpu or gpu
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Object identifies tracked object meshes
	Object object.ResourceID `mapstructure:"object" yaml:"object"`
	// Observation are observation model parameters
	Observation observation.Params `mapstructure:"observation" yaml:"observation"`
	// Transition are object transition parameters
	Transition TransitionParams `mapstructure:"transition" yaml:"transition"`
}

// DefaultParameters returns default tracker parameters.
func DefaultParameters() Parameters {
	return Parameters{
		UTAlpha:    1.2,
		UpdateRate: 0.5,
		Backend:    render.CPU.String(),
		Observation: observation.Params{
			BgDepth:        2.0,
			FgNoiseStd:     0.002,
			BgNoiseStd:     0.05,
			TailWeight:     0.01,
			UniformTailMin: 0.0,
			UniformTailMax: 5.0,
			Sensors:        1,
		},
		Transition: TransitionParams{
			LinearSigma:  1e-3,
			AngularSigma: 1e-3,
			ScaleSigma:   1e-3,
		},
	}
}

// Validate returns error if the parameters are invalid.
func (p Parameters) Validate() error {
	if !(p.UTAlpha > 0) {
		return fmt.Errorf("%w: ut_alpha must be positive: %v", posetrack.ErrConfiguration, p.UTAlpha)
	}

	if !(p.UpdateRate >= 0 && p.UpdateRate <= 1) {
		return fmt.Errorf("%w: update_rate must be in [0,1]: %v", posetrack.ErrConfiguration, p.UpdateRate)
	}

	if _, err := render.ParseBackend(p.Backend); err != nil {
		return err
	}

	if err := p.Observation.Validate(); err != nil {
		return fmt.Errorf("invalid observation parameters: %w", err)
	}

	t := p.Transition
	if t.LinearSigma < 0 || t.AngularSigma < 0 || t.ScaleSigma < 0 {
		return fmt.Errorf("%w: transition std-devs must be non-negative", posetrack.ErrConfiguration)
	}

	return nil
}
