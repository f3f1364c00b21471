// Package truck runs the fixed-tick simulation loop of one tractor-trailer.
//
// Each tick reads the current command (and tracked poses in motion capture mode), steps the
// integrator exactly once and hands a snapshot of the state to the registered listeners,
// synchronously and in registration order.
package truck

import (
	"fmt"
	"sync"
	"time"

	"github.com/cyrilix/robocar-truck/pkg/kinematics"
	"github.com/cyrilix/robocar-truck/pkg/vehicle"
	"go.uber.org/zap"
)

// Snapshot is a copy of the state right after a step.
type Snapshot struct {
	Time  float64
	Mode  kinematics.Mode
	Input kinematics.Input
	State vehicle.State
}

type Listener interface {
	OnStep(s Snapshot)
}

type ListenerFunc func(s Snapshot)

func (f ListenerFunc) OnStep(s Snapshot) { f(s) }

// CommandSource provides the velocity and steering command.
type CommandSource interface {
	Input() kinematics.Input
}

// PoseSource provides tracked tractor and trailer poses, nil when unknown.
type PoseSource interface {
	Poses() (tractor, trailer *kinematics.RigidBodyPose)
}

type Config struct {
	Mode         kinematics.Mode
	Frame        kinematics.Frame
	TickInterval time.Duration
}

func New(cfg Config, state *vehicle.State, commands CommandSource, poses PoseSource) (*Simulation, error) {
	integrator, err := kinematics.New(cfg.Mode, cfg.Frame)
	if err != nil {
		return nil, fmt.Errorf("unable to init integrator: %w", err)
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("invalid tick interval %v", cfg.TickInterval)
	}
	if cfg.Mode == kinematics.ModeMocap && poses == nil {
		return nil, fmt.Errorf("mode %v needs a pose source", cfg.Mode)
	}

	return &Simulation{
		mode:       cfg.Mode,
		tick:       cfg.TickInterval,
		integrator: integrator,
		state:      state,
		commands:   commands,
		poses:      poses,
		cancel:     make(chan interface{}),
		log:        zap.S().With("mode", cfg.Mode),
	}, nil
}

type Simulation struct {
	mode       kinematics.Mode
	tick       time.Duration
	integrator kinematics.Integrator

	muState   sync.Mutex
	state     *vehicle.State
	simTime   float64
	listeners []Listener

	commands CommandSource
	poses    PoseSource

	cancel     chan interface{}
	cancelOnce sync.Once
	log        *zap.SugaredLogger
}

// AddListener registers l, called after every step.
func (s *Simulation) AddListener(l Listener) {
	s.muState.Lock()
	defer s.muState.Unlock()
	s.listeners = append(s.listeners, l)
}

// Start runs the loop until Stop is called.
func (s *Simulation) Start() error {
	s.log.Infof("start simulation, tick %v", s.tick)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Step(s.tick.Seconds())
		case <-s.cancel:
			return nil
		}
	}
}

func (s *Simulation) Stop() {
	s.log.Info("stop simulation")
	s.cancelOnce.Do(func() { close(s.cancel) })
}

// Step advances the simulation by dt seconds and notifies listeners.
func (s *Simulation) Step(dt float64) Snapshot {
	in := kinematics.Input{}
	if s.commands != nil {
		in = s.commands.Input()
	}
	if s.mode == kinematics.ModeMocap {
		in.Tractor, in.Trailer = s.poses.Poses()
	}

	s.muState.Lock()
	s.integrator.Step(s.state, dt, in)
	s.simTime += dt
	snap := Snapshot{Time: s.simTime, Mode: s.mode, Input: in, State: *s.state}
	listeners := s.listeners
	s.muState.Unlock()

	for _, l := range listeners {
		l.OnStep(snap)
	}
	return snap
}

// State returns a copy of the current state.
func (s *Simulation) State() vehicle.State {
	s.muState.Lock()
	defer s.muState.Unlock()
	return *s.state
}

// Teleport moves the tractor reference point and sets both headings, in degrees.
func (s *Simulation) Teleport(x, y, tractorAngleDeg, trailerAngleDeg float64) {
	s.muState.Lock()
	defer s.muState.Unlock()
	s.log.Debugf("teleport to (%.2f, %.2f)", x, y)
	s.state.SetVehiclePosition(x, y, tractorAngleDeg, trailerAngleDeg)
}

// RotateTractor adds scrollDelta*sensitivity radians to the tractor heading.
func (s *Simulation) RotateTractor(scrollDelta, sensitivity float64) {
	s.muState.Lock()
	defer s.muState.Unlock()
	s.state.SetTractorAngle(scrollDelta, sensitivity)
}

// RotateTrailer adds scrollDelta*sensitivity radians to the trailer heading.
func (s *Simulation) RotateTrailer(scrollDelta, sensitivity float64) {
	s.muState.Lock()
	defer s.muState.Unlock()
	s.state.SetTrailerAngle(scrollDelta, sensitivity)
}

// MoveToRegion teleports the tractor to the region center keeping headings, and reports
// whether the whole vehicle now fits in the region.
func (s *Simulation) MoveToRegion(r vehicle.Region) (bool, error) {
	s.muState.Lock()
	defer s.muState.Unlock()

	c := r.Center()
	s.state.X1, s.state.Y1 = c.X, c.Y
	s.state.UpdateOffsets()
	inside, err := s.state.InsideRegion(r)
	if err != nil {
		return false, err
	}
	s.log.Infof("moved to region %v, inside: %v", r.Name, inside)
	return inside, nil
}
