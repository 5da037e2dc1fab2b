// Package config loads tracker configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/milosgajdos/go-posetrack/tracker"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment variables overriding configuration keys,
// e.g. POSETRACK_TRACKER_UT_ALPHA overrides tracker.ut_alpha.
const EnvPrefix = "POSETRACK"

// Config is posetrack configuration.
type Config struct {
	// Tracker are tracker parameters
	Tracker tracker.Parameters `mapstructure:"tracker" yaml:"tracker"`
	// Camera is path to camera calibration file
	Camera string `mapstructure:"camera" yaml:"camera"`
	// Dataset is path to dataset store
	Dataset string `mapstructure:"dataset" yaml:"dataset"`
	// LogLevel is log level: debug, info, warn or error
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns default configuration.
func Default() Config {
	return Config{
		Tracker:  tracker.DefaultParameters(),
		Camera:   "camera.yaml",
		Dataset:  "posetrack.db",
		LogLevel: "info",
	}
}

// flagBindings maps viper keys to pflag names.
var flagBindings = map[string]string{
	"tracker.ut_alpha":                     "ut-alpha",
	"tracker.update_rate":                  "update-rate",
	"tracker.backend":                      "backend",
	"tracker.object.directory":             "mesh-dir",
	"tracker.object.meshes":                "meshes",
	"tracker.observation.bg_depth":         "bg-depth",
	"tracker.observation.fg_noise_std":     "fg-noise-std",
	"tracker.observation.bg_noise_std":     "bg-noise-std",
	"tracker.observation.tail_weight":      "tail-weight",
	"tracker.observation.uniform_tail_min": "uniform-tail-min",
	"tracker.observation.uniform_tail_max": "uniform-tail-max",
	"tracker.observation.sensors":          "sensors",
	"tracker.transition.linear_sigma":      "linear-sigma",
	"tracker.transition.angular_sigma":     "angular-sigma",
	"tracker.transition.scale_sigma":       "scale-sigma",
	"tracker.transition.estimate_scale":    "estimate-scale",
	"tracker.transition.seed":              "seed",
	"camera":                               "camera",
	"dataset":                              "dataset",
	"log_level":                            "log-level",
}

// RegisterFlags registers configuration flags in fs.
func RegisterFlags(fs *flag.FlagSet) {
	d := Default()
	p := d.Tracker

	fs.Float64("ut-alpha", p.UTAlpha, "sigma point spread")
	fs.Float64("update-rate", p.UpdateRate, "observation update rate in [0,1]")
	fs.String("backend", p.Backend, "renderer backend: cpu or gpu")
	fs.String("mesh-dir", p.Object.Directory, "object mesh directory")
	fs.StringSlice("meshes", p.Object.Meshes, "object mesh files; one object is tracked per mesh")
	fs.Float64("bg-depth", p.Observation.BgDepth, "background depth in metres")
	fs.Float64("fg-noise-std", p.Observation.FgNoiseStd, "object depth noise std-dev")
	fs.Float64("bg-noise-std", p.Observation.BgNoiseStd, "background depth noise std-dev")
	fs.Float64("tail-weight", p.Observation.TailWeight, "outlier tail weight in [0,1]")
	fs.Float64("uniform-tail-min", p.Observation.UniformTailMin, "outlier tail minimum depth")
	fs.Float64("uniform-tail-max", p.Observation.UniformTailMax, "outlier tail maximum depth")
	fs.Int("sensors", p.Observation.Sensors, "number of depth sensors")
	fs.Float64("linear-sigma", p.Transition.LinearSigma, "position process noise std-dev")
	fs.Float64("angular-sigma", p.Transition.AngularSigma, "orientation process noise std-dev")
	fs.Float64("scale-sigma", p.Transition.ScaleSigma, "log scale process noise std-dev")
	fs.Bool("estimate-scale", p.Transition.EstimateScale, "estimate object scale")
	fs.Uint64("seed", p.Transition.Seed, "process noise seed; 0 seeds from time")
	fs.String("camera", d.Camera, "camera calibration file")
	fs.String("dataset", d.Dataset, "dataset store")
	fs.String("log-level", d.LogLevel, "log level")
}

// setDefaults sets viper defaults from d
func setDefaults(v *viper.Viper, d Config) {
	p := d.Tracker

	v.SetDefault("tracker.ut_alpha", p.UTAlpha)
	v.SetDefault("tracker.update_rate", p.UpdateRate)
	v.SetDefault("tracker.backend", p.Backend)
	v.SetDefault("tracker.object.directory", p.Object.Directory)
	v.SetDefault("tracker.object.meshes", p.Object.Meshes)
	v.SetDefault("tracker.observation.bg_depth", p.Observation.BgDepth)
	v.SetDefault("tracker.observation.fg_noise_std", p.Observation.FgNoiseStd)
	v.SetDefault("tracker.observation.bg_noise_std", p.Observation.BgNoiseStd)
	v.SetDefault("tracker.observation.tail_weight", p.Observation.TailWeight)
	v.SetDefault("tracker.observation.uniform_tail_min", p.Observation.UniformTailMin)
	v.SetDefault("tracker.observation.uniform_tail_max", p.Observation.UniformTailMax)
	v.SetDefault("tracker.observation.sensors", p.Observation.Sensors)
	v.SetDefault("tracker.transition.linear_sigma", p.Transition.LinearSigma)
	v.SetDefault("tracker.transition.angular_sigma", p.Transition.AngularSigma)
	v.SetDefault("tracker.transition.scale_sigma", p.Transition.ScaleSigma)
	v.SetDefault("tracker.transition.estimate_scale", p.Transition.EstimateScale)
	v.SetDefault("tracker.transition.seed", p.Transition.Seed)
	v.SetDefault("camera", d.Camera)
	v.SetDefault("dataset", d.Dataset)
	v.SetDefault("log_level", d.LogLevel)
}

// Load loads and validates configuration.
// Precedence: flags > env > file > defaults.
// path may be empty if there is no configuration file; fs may be nil.
func Load(path string, fs *flag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
				return nil, fmt.Errorf("%w: config file %s", posetrack.ErrResourceNotFound, path)
			}
			return nil, fmt.Errorf("%w: failed to read config %s: %v", posetrack.ErrConfiguration, path, err)
		}
	}

	// Bind environment variables (precedence above config, below flags)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind pflag flags (highest precedence for explicitly-set flags)
	if fs != nil {
		for key, name := range flagBindings {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config: %v", posetrack.ErrConfiguration, err)
	}

	if err := c.Tracker.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

// Write writes configuration c to YAML file at path.
func Write(path string, c Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return os.WriteFile(path, b, 0o644)
}
