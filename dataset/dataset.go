// Package dataset records depth image sequences with optional ground truth poses.
package dataset

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	posetrack "github.com/milosgajdos/go-posetrack"
	"gonum.org/v1/gonum/mat"
)

// AdmissibleDelta is default ground truth matching tolerance.
const AdmissibleDelta = 20 * time.Millisecond

// Frame is a single depth observation.
type Frame struct {
	// Timestamp is capture time
	Timestamp time.Time
	// Depth is depth image of all sensors
	Depth []float64
	// GroundTruth is true state; nil if unknown
	GroundTruth []float64
}

// Observation returns frame depth image as a vector.
func (f Frame) Observation() *mat.VecDense {
	return mat.NewVecDense(len(f.Depth), append([]float64(nil), f.Depth...))
}

// Truth returns ground truth state or nil if unknown.
func (f Frame) Truth() *mat.VecDense {
	if len(f.GroundTruth) == 0 {
		return nil
	}

	return mat.NewVecDense(len(f.GroundTruth), append([]float64(nil), f.GroundTruth...))
}

// Dataset is an ordered sequence of frames.
type Dataset struct {
	// ID is dataset id
	ID uuid.UUID
	// Name is unique dataset name
	Name string
	// Frames are dataset frames ordered by time
	Frames []Frame
}

// New creates new empty dataset with a random id.
func New(name string) *Dataset {
	return &Dataset{
		ID:   uuid.New(),
		Name: name,
	}
}

// AddFrame appends new frame to dataset.
// truth may be nil. Frames must be added in time order and all depth
// images must have the same size.
func (d *Dataset) AddFrame(ts time.Time, depth mat.Vector, truth mat.Vector) error {
	if depth == nil || depth.Len() == 0 {
		return fmt.Errorf("%w: empty depth image", posetrack.ErrInvalidDimension)
	}

	if n := len(d.Frames); n > 0 {
		last := d.Frames[n-1]
		if len(last.Depth) != depth.Len() {
			return fmt.Errorf("%w: depth image size %d, expected %d",
				posetrack.ErrInvalidDimension, depth.Len(), len(last.Depth))
		}
		if ts.Before(last.Timestamp) {
			return fmt.Errorf("%w: frame at %v precedes last frame at %v",
				posetrack.ErrConfiguration, ts, last.Timestamp)
		}
	}

	f := Frame{
		Timestamp: ts,
		Depth:     toSlice(depth),
	}

	if truth != nil && truth.Len() > 0 {
		f.GroundTruth = toSlice(truth)
	}

	d.Frames = append(d.Frames, f)

	return nil
}

// Record is a time stamped ground truth state.
type Record struct {
	Timestamp time.Time
	State     []float64
}

// MatchGroundTruth assigns to every frame the state of the record nearest in time
// if the time difference does not exceed tol. Frames with no record within tol keep
// their ground truth. It returns the number of matched frames.
func (d *Dataset) MatchGroundTruth(records []Record, tol time.Duration) int {
	if len(records) == 0 {
		return 0
	}

	rs := make([]Record, len(records))
	copy(rs, records)
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Timestamp.Before(rs[j].Timestamp)
	})

	matched := 0
	for i := range d.Frames {
		ts := d.Frames[i].Timestamp
		// first record not before the frame
		k := sort.Search(len(rs), func(j int) bool {
			return !rs[j].Timestamp.Before(ts)
		})

		best, delta := -1, tol
		for _, j := range []int{k - 1, k} {
			if j < 0 || j >= len(rs) {
				continue
			}
			dt := rs[j].Timestamp.Sub(ts)
			if dt < 0 {
				dt = -dt
			}
			if dt <= delta {
				best, delta = j, dt
			}
		}

		if best >= 0 {
			d.Frames[i].GroundTruth = append([]float64(nil), rs[best].State...)
			matched++
		}
	}

	return matched
}

func toSlice(v mat.Vector) []float64 {
	s := make([]float64, v.Len())
	for i := range s {
		s[i] = v.AtVec(i)
	}

	return s
}
