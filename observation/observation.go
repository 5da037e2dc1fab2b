// Package observation implements a robust depth image likelihood model.
package observation

import (
	"fmt"
	"math"

	posetrack "github.com/milosgajdos/go-posetrack"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Params are observation model parameters.
type Params struct {
	// BgDepth is depth of the background in metres
	BgDepth float64 `mapstructure:"bg_depth" yaml:"bg_depth"`
	// FgNoiseStd is std-dev of depth noise on object surfaces
	FgNoiseStd float64 `mapstructure:"fg_noise_std" yaml:"fg_noise_std"`
	// BgNoiseStd is std-dev of depth noise on the background
	BgNoiseStd float64 `mapstructure:"bg_noise_std" yaml:"bg_noise_std"`
	// TailWeight is weight of the uniform outlier component
	TailWeight float64 `mapstructure:"tail_weight" yaml:"tail_weight"`
	// UniformTailMin is lower bound of the uniform outlier component
	UniformTailMin float64 `mapstructure:"uniform_tail_min" yaml:"uniform_tail_min"`
	// UniformTailMax is upper bound of the uniform outlier component
	UniformTailMax float64 `mapstructure:"uniform_tail_max" yaml:"uniform_tail_max"`
	// Sensors is number of fused depth sensors
	Sensors int `mapstructure:"sensors" yaml:"sensors"`
}

// Validate returns error if the parameters are invalid.
func (p Params) Validate() error {
	switch {
	case !(p.BgDepth > 0):
		return fmt.Errorf("%w: bg_depth must be positive: %v", posetrack.ErrConfiguration, p.BgDepth)
	case !(p.FgNoiseStd > 0):
		return fmt.Errorf("%w: fg_noise_std must be positive: %v", posetrack.ErrConfiguration, p.FgNoiseStd)
	case !(p.BgNoiseStd > 0):
		return fmt.Errorf("%w: bg_noise_std must be positive: %v", posetrack.ErrConfiguration, p.BgNoiseStd)
	case !(p.TailWeight >= 0 && p.TailWeight <= 1):
		return fmt.Errorf("%w: tail_weight must be in [0,1]: %v", posetrack.ErrConfiguration, p.TailWeight)
	case !(p.UniformTailMin < p.UniformTailMax):
		return fmt.Errorf("%w: uniform_tail_min %v must be smaller than uniform_tail_max %v",
			posetrack.ErrConfiguration, p.UniformTailMin, p.UniformTailMax)
	case math.IsInf(p.UniformTailMin, 0) || math.IsInf(p.UniformTailMax, 0):
		return fmt.Errorf("%w: uniform tail bounds must be finite", posetrack.ErrConfiguration)
	case p.Sensors <= 0:
		return fmt.Errorf("%w: sensors must be positive: %d", posetrack.ErrConfiguration, p.Sensors)
	}

	return nil
}

// Model is robust depth observation model.
// Every valid pixel is scored by a mixture of a Gaussian centered at the expected
// depth and a uniform outlier tail. Pixels with no rendered surface are scored
// against the background depth.
// Model is safe for concurrent use if its renderer is.
type Model struct {
	p        Params
	renderer posetrack.Renderer
	pixels   int
	// logW and logTail are log weights of the mixture components
	logW    float64
	logTail float64
	fg      distuv.Normal
	bg      distuv.Normal
	tail    distuv.Uniform
}

// New creates new observation model and returns it.
// pixels is the total number of pixels of all sensors.
// It returns error if the parameters are invalid.
func New(p Params, r posetrack.Renderer, pixels int) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if r == nil {
		return nil, fmt.Errorf("%w: missing renderer", posetrack.ErrConfiguration)
	}

	if pixels <= 0 {
		return nil, fmt.Errorf("%w: invalid pixel count: %d", posetrack.ErrConfiguration, pixels)
	}

	return &Model{
		p:        p,
		renderer: r,
		pixels:   pixels,
		logW:     math.Log1p(-p.TailWeight),
		logTail:  math.Log(p.TailWeight),
		fg:       distuv.Normal{Mu: 0, Sigma: p.FgNoiseStd},
		bg:       distuv.Normal{Mu: p.BgDepth, Sigma: p.BgNoiseStd},
		tail:     distuv.Uniform{Min: p.UniformTailMin, Max: p.UniformTailMax},
	}, nil
}

// Dim returns measurement dimension
func (m *Model) Dim() int {
	return m.pixels
}

// Params returns model parameters
func (m *Model) Params() Params {
	return m.p
}

// Surface returns true if rendered depth d hits an object surface.
func Surface(d float64) bool {
	return d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
}

// Valid returns true if measured depth z is a valid measurement.
func Valid(z float64) bool {
	return z > 0 && !math.IsInf(z, 0) && !math.IsNaN(z)
}

// PixelLogDensity returns log density of measured depth z given rendered depth d.
func (m *Model) PixelLogDensity(d, z float64) float64 {
	var lp float64
	if Surface(d) {
		// foreground Gaussian centered at rendered depth
		lp = m.fg.LogProb(z - d)
	} else {
		lp = m.bg.LogProb(z)
	}

	// log((1-w) N + w U) evaluated in log space
	var buf [2]float64
	buf[0] = m.logW + lp
	buf[1] = m.logTail + m.tail.LogProb(z)

	return floats.LogSumExp(buf[:])
}

// LogLikelihood returns log likelihood of depth image z given state x.
// Invalid measured pixels do not contribute to the likelihood.
func (m *Model) LogLikelihood(x, z mat.Vector) (float64, error) {
	if z == nil || z.Len() != m.pixels {
		n := 0
		if z != nil {
			n = z.Len()
		}
		return 0, fmt.Errorf("%w: observation %d, expected %d pixels", posetrack.ErrInvalidDimension, n, m.pixels)
	}

	depth, err := m.renderer.Render(x)
	if err != nil {
		return 0, fmt.Errorf("failed to render expected depth: %w", err)
	}

	if len(depth) != m.pixels {
		return 0, fmt.Errorf("%w: rendered %d, expected %d pixels", posetrack.ErrInvalidDimension, len(depth), m.pixels)
	}

	var ll float64
	for i, d := range depth {
		zi := z.AtVec(i)
		if !Valid(zi) {
			continue
		}
		ll += m.PixelLogDensity(d, zi)
	}

	return ll, nil
}
