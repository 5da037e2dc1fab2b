package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	posetrack "github.com/milosgajdos/go-posetrack"
	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	assert := assert.New(t)

	c, err := Load("", nil)
	require.NoError(t, err)

	if diff := cmp.Diff(Default(), *c, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("default config mismatch (-want +got):\n%s", diff)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs)
	c, err = Load("", fs)
	assert.NoError(err)
	assert.Equal(Default().Tracker.UTAlpha, c.Tracker.UTAlpha)
}

func TestLoadFile(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "posetrack.yaml")

	data := `tracker:
  ut_alpha: 1.5
  update_rate: 0.8
  object:
    directory: /meshes
    meshes: [box.obj, lid.obj]
  observation:
    bg_depth: 3.0
    tail_weight: 0.2
  transition:
    estimate_scale: true
camera: cam.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := Load(path, nil)
	require.NoError(t, err)

	want := Default()
	want.Tracker.UTAlpha = 1.5
	want.Tracker.UpdateRate = 0.8
	want.Tracker.Object.Directory = "/meshes"
	want.Tracker.Object.Meshes = []string{"box.obj", "lid.obj"}
	want.Tracker.Observation.BgDepth = 3.0
	want.Tracker.Observation.TailWeight = 0.2
	want.Tracker.Transition.EstimateScale = true
	want.Camera = "cam.yaml"

	if diff := cmp.Diff(want, *c, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	// written config loads back
	out := filepath.Join(dir, "out.yaml")
	assert.NoError(Write(out, *c))
	c2, err := Load(out, nil)
	require.NoError(t, err)
	assert.Empty(cmp.Diff(*c, *c2, cmpopts.EquateEmpty()))
}

func TestLoadPrecedence(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "posetrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tracker:\n  ut_alpha: 1.5\n  update_rate: 0.8\n"), 0o644))

	t.Setenv("POSETRACK_TRACKER_UT_ALPHA", "1.7")
	t.Setenv("POSETRACK_TRACKER_UPDATE_RATE", "0.3")
	t.Setenv("POSETRACK_LOG_LEVEL", "debug")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--ut-alpha=2.0", "--meshes=a.obj,b.obj"}))

	c, err := Load(path, fs)
	require.NoError(t, err)

	// flags > env > file > defaults
	assert.Equal(2.0, c.Tracker.UTAlpha)
	assert.Equal(0.3, c.Tracker.UpdateRate)
	assert.Equal("debug", c.LogLevel)
	assert.Equal([]string{"a.obj", "b.obj"}, c.Tracker.Object.Meshes)
	assert.Equal(Default().Tracker.Observation, c.Tracker.Observation)
}

func TestLoadErrors(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"), nil)
	assert.True(errors.Is(err, posetrack.ErrResourceNotFound))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("tracker: [ut_alpha: \n"), 0o644))
	_, err = Load(bad, nil)
	assert.True(errors.Is(err, posetrack.ErrConfiguration))

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("tracker:\n  observation:\n    tail_weight: 2\n"), 0o644))
	_, err = Load(invalid, nil)
	assert.True(errors.Is(err, posetrack.ErrConfiguration))
}
