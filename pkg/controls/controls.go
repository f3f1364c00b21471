package controls

import (
	"math"
	"sync"

	"github.com/cyrilix/robocar-protobuf/go/events"
	"github.com/cyrilix/robocar-truck/pkg/kinematics"
	"go.uber.org/zap"
)

type SteeringController interface {
	WriteSteering(message *events.SteeringMessage)
}

type ThrottleController interface {
	WriteThrottle(message *events.ThrottleMessage)
}

// New builds a controller converting normalized commands into physical ones: a throttle of
// 1 drives at maxVelocity, a steering of 1 turns right at maxSteerAngle radians.
func New(maxVelocity, maxSteerAngle float64) *Controller {
	return &Controller{
		maxVelocity:   maxVelocity,
		maxSteerAngle: maxSteerAngle,
		log:           zap.S().With("part", "controls"),
	}
}

/* Keeps last command received from mqtt topics, read by the simulation on each tick */
type Controller struct {
	maxVelocity   float64
	maxSteerAngle float64

	muControl   sync.Mutex
	lastControl kinematics.Input
	log         *zap.SugaredLogger
}

func (c *Controller) WriteSteering(message *events.SteeringMessage) {
	c.muControl.Lock()
	defer c.muControl.Unlock()

	// robocar steering is positive on the right, heading grows counter-clockwise
	c.lastControl.SteerAngle = -clamp(float64(message.GetSteering())) * c.maxSteerAngle
	c.log.Debugf("new steering %v -> %.3f rad", message.GetSteering(), c.lastControl.SteerAngle)
}

func (c *Controller) WriteThrottle(message *events.ThrottleMessage) {
	c.muControl.Lock()
	defer c.muControl.Unlock()

	c.lastControl.Velocity = clamp(float64(message.GetThrottle())) * c.maxVelocity
	c.log.Debugf("new throttle %v -> %.3f", message.GetThrottle(), c.lastControl.Velocity)
}

// Stop zeroes velocity, steering is kept.
func (c *Controller) Stop() {
	c.muControl.Lock()
	defer c.muControl.Unlock()
	c.lastControl.Velocity = 0.
}

// Input returns the last command.
func (c *Controller) Input() kinematics.Input {
	c.muControl.Lock()
	defer c.muControl.Unlock()
	return c.lastControl
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0.
	}
	return math.Max(-1., math.Min(1., v))
}
