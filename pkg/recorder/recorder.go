// Package recorder samples the vehicle state into paths, serializes them and plays them
// back.
package recorder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cyrilix/robocar-truck/pkg/truck"
	"github.com/cyrilix/robocar-truck/pkg/vehicle"
	"go.uber.org/zap"
)

var (
	ErrEmptyPath    = errors.New("path has no sample")
	ErrPathNotFound = errors.New("path not found")
)

// sampling tolerance on the simulated clock, ticks accumulate float rounding
const timeEpsilon = 1e-9

// Vec2 is encoded as a json array of two floats
type Vec2 [2]float64

type Sample struct {
	FrontAxle   Vec2    `json:"front_axle"`
	TractorAxle Vec2    `json:"tractor_axle"`
	Hitch       Vec2    `json:"hitch"`
	TrailerAxle Vec2    `json:"trailer_axle"`
	Psi1        float64 `json:"psi1"`
	Psi2        float64 `json:"psi2"`
	V1          float64 `json:"v1"`
	Delta       float64 `json:"delta"`
	Timestamp   float64 `json:"timestamp"`
}

func NewSample(s vehicle.State, timestamp float64) Sample {
	return Sample{
		FrontAxle:   Vec2{s.X0, s.Y0},
		TractorAxle: Vec2{s.X1, s.Y1},
		Hitch:       Vec2{s.X1c, s.Y1c},
		TrailerAxle: Vec2{s.X2, s.Y2},
		Psi1:        s.Psi1,
		Psi2:        s.Psi2,
		V1:          s.V1,
		Delta:       s.Delta,
		Timestamp:   timestamp,
	}
}

// Path is an ordered sequence of samples.
type Path struct {
	Name           string   `json:"name"`
	SampleInterval float64  `json:"sample_interval"`
	Samples        []Sample `json:"samples"`
}

// Duration returns the time spanned by the samples.
func (p Path) Duration() float64 {
	if len(p.Samples) < 2 {
		return 0
	}
	return p.Samples[len(p.Samples)-1].Timestamp - p.Samples[0].Timestamp
}

func (p Path) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("unable to encode path %q: %w", p.Name, err)
	}
	return nil
}

func ReadPath(r io.Reader) (Path, error) {
	var p Path
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Path{}, fmt.Errorf("unable to decode path: %w", err)
	}
	if len(p.Samples) == 0 {
		return Path{}, fmt.Errorf("path %q: %w", p.Name, ErrEmptyPath)
	}
	return p, nil
}

func NewRecorder(name string, interval time.Duration) *Recorder {
	return &Recorder{
		interval: interval.Seconds(),
		path:     Path{Name: name, SampleInterval: interval.Seconds()},
		log:      zap.S().With("path", name),
	}
}

/* Simulation listener appending one sample every interval of simulated time */
type Recorder struct {
	interval float64

	mu         sync.Mutex
	recording  bool
	hasSample  bool
	lastSample float64
	path       Path

	log *zap.SugaredLogger
}

func (r *Recorder) StartRecording() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.Info("start recording")
	r.recording = true
}

func (r *Recorder) StopRecording() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.Infof("stop recording, %d samples", len(r.path.Samples))
	r.recording = false
}

// Reset drops recorded samples.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.path.Samples = nil
	r.hasSample = false
}

func (r *Recorder) OnStep(snap truck.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	if r.hasSample && snap.Time-r.lastSample < r.interval-timeEpsilon {
		return
	}
	r.path.Samples = append(r.path.Samples, NewSample(snap.State, snap.Time))
	r.lastSample = snap.Time
	r.hasSample = true
}

// Path returns a copy of the recorded path.
func (r *Recorder) Path() Path {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.path
	p.Samples = append([]Sample(nil), r.path.Samples...)
	return p
}
