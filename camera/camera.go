// Package camera provides depth sensor calibration data.
package camera

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	posetrack "github.com/milosgajdos/go-posetrack"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Sensor is a pinhole depth sensor.
type Sensor struct {
	// Width is image width in pixels
	Width int `yaml:"width"`
	// Height is image height in pixels
	Height int `yaml:"height"`
	// K is 3x3 row-major intrinsic matrix
	K [9]float64 `yaml:"k,flow"`
}

// Intrinsics returns sensor intrinsic matrix
func (s Sensor) Intrinsics() *mat.Dense {
	k := s.K

	return mat.NewDense(3, 3, k[:])
}

// Focal returns sensor focal lengths in pixels
func (s Sensor) Focal() (fx, fy float64) {
	return s.K[0], s.K[4]
}

// Center returns sensor principal point in pixels
func (s Sensor) Center() (cx, cy float64) {
	return s.K[2], s.K[5]
}

// Pixels returns number of sensor pixels
func (s Sensor) Pixels() int {
	return s.Width * s.Height
}

// Validate returns error if the sensor calibration is invalid.
func (s Sensor) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: invalid sensor resolution: %dx%d", posetrack.ErrConfiguration, s.Width, s.Height)
	}

	fx, fy := s.Focal()
	if !(fx > 0) || !(fy > 0) {
		return fmt.Errorf("%w: invalid sensor focal length: %v, %v", posetrack.ErrConfiguration, fx, fy)
	}

	return nil
}

// Data is calibration data of all sensors. It is static for the lifetime of the tracker.
type Data struct {
	Sensors []Sensor `yaml:"sensors"`
}

// New creates new camera data and returns it.
// It returns error if no sensors are given or any sensor is invalid.
func New(sensors ...Sensor) (*Data, error) {
	if len(sensors) == 0 {
		return nil, fmt.Errorf("%w: no camera sensors", posetrack.ErrConfiguration)
	}

	for i, s := range sensors {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("sensor %d: %w", i, err)
		}
	}

	ss := make([]Sensor, len(sensors))
	copy(ss, sensors)

	return &Data{Sensors: ss}, nil
}

// NewPinhole returns a sensor with the given resolution and focal length
// and the principal point in the image center.
func NewPinhole(width, height int, f float64) Sensor {
	return Sensor{
		Width:  width,
		Height: height,
		K: [9]float64{
			f, 0, float64(width-1) / 2,
			0, f, float64(height-1) / 2,
			0, 0, 1,
		},
	}
}

// SensorCount returns number of sensors
func (d *Data) SensorCount() int {
	return len(d.Sensors)
}

// Pixels returns total number of pixels of all sensors
func (d *Data) Pixels() int {
	n := 0
	for _, s := range d.Sensors {
		n += s.Pixels()
	}

	return n
}

// Offset returns offset of i-th sensor pixels in the observation vector
func (d *Data) Offset(i int) int {
	n := 0
	for _, s := range d.Sensors[:i] {
		n += s.Pixels()
	}

	return n
}

// Load reads camera data from YAML file at path.
// It returns error if the file does not exist or its content is invalid.
func Load(path string) (*Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: camera data %s", posetrack.ErrResourceNotFound, path)
		}
		return nil, fmt.Errorf("failed to read camera data: %w", err)
	}

	var d Data
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("%w: failed to parse camera data %s: %v", posetrack.ErrConfiguration, path, err)
	}

	return New(d.Sensors...)
}

// Save writes camera data to YAML file at path.
func Save(path string, d *Data) error {
	b, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode camera data: %w", err)
	}

	return os.WriteFile(path, b, 0o644)
}
