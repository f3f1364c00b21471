package recorder

import (
	"sync"

	"github.com/cyrilix/robocar-truck/pkg/kinematics"
	"github.com/cyrilix/robocar-truck/pkg/truck"
	"github.com/cyrilix/robocar-truck/pkg/vehicle"
)

func NewReplayer(p Path) *Replayer {
	return &Replayer{path: p}
}

// Replayer walks a path and writes each sample back into a state.
type Replayer struct {
	path Path
	idx  int
}

// Next applies the next sample to s and returns its timestamp, ok is false once the path
// is exhausted.
func (r *Replayer) Next(s *vehicle.State) (timestamp float64, ok bool) {
	if r.idx >= len(r.path.Samples) {
		return 0, false
	}
	sample := r.path.Samples[r.idx]
	r.idx++

	s.X0, s.Y0 = sample.FrontAxle[0], sample.FrontAxle[1]
	s.X1, s.Y1 = sample.TractorAxle[0], sample.TractorAxle[1]
	s.X1c, s.Y1c = sample.Hitch[0], sample.Hitch[1]
	s.X2, s.Y2 = sample.TrailerAxle[0], sample.TrailerAxle[1]
	s.Psi1 = sample.Psi1
	s.Psi2 = sample.Psi2
	s.Gamma = s.Psi1 - s.Psi2
	s.V1 = sample.V1
	s.Delta = sample.Delta
	return sample.Timestamp, true
}

// Rewind restarts the replay from the first sample.
func (r *Replayer) Rewind() {
	r.idx = 0
}

// Remaining returns the number of samples not yet replayed.
func (r *Replayer) Remaining() int {
	return len(r.path.Samples) - r.idx
}

// Commands returns the recorded commands as a simulation input source. Register it as a
// listener of the simulation so its clock follows the simulated time.
func (r *Replayer) Commands() *CommandReplay {
	return &CommandReplay{path: r.path}
}

// CommandReplay drives the integrator with recorded commands: the step ending at T uses
// the command of the first sample at or after T. Past the last sample it commands a stop.
type CommandReplay struct {
	mu sync.Mutex
	t  float64
	dt float64

	path Path
}

func (c *CommandReplay) OnStep(snap truck.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dt = snap.Time - c.t
	c.t = snap.Time
}

func (c *CommandReplay) Input() kinematics.Input {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.t + c.dt
	for _, s := range c.path.Samples {
		if s.Timestamp >= next-timeEpsilon {
			return kinematics.Input{Velocity: s.V1, SteerAngle: s.Delta}
		}
	}
	return kinematics.Input{}
}

// Done reports whether the simulated time went past the last sample.
func (c *CommandReplay) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.path.Samples)
	return n == 0 || c.t >= c.path.Samples[n-1].Timestamp-timeEpsilon
}
