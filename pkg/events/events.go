package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cyrilix/robocar-protobuf/go/events"
	"github.com/cyrilix/robocar-truck/pkg/simulator"
	"github.com/cyrilix/robocar-truck/pkg/truck"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/timestamp"
	"go.uber.org/zap"
)

const queueSize = 16

type Topics struct {
	State    string
	Steering string
	Throttle string
}

// Limits converts physical commands back to normalized robocar values
type Limits struct {
	MaxVelocity   float64
	MaxSteerAngle float64
}

func NewStatePublisher(p Publisher, topics Topics, limits Limits) *StatePublisher {
	return &StatePublisher{
		p:        p,
		topics:   topics,
		limits:   limits,
		snapChan: make(chan truck.Snapshot, queueSize),
	}
}

/* Publishes vehicle state and applied commands after each simulation step */
type StatePublisher struct {
	p      Publisher
	topics Topics
	limits Limits

	snapChan chan truck.Snapshot

	muCancel sync.Mutex
	cancel   chan interface{}
	done     chan interface{}
}

// OnStep queues the snapshot, it never blocks the simulation loop: snapshots are dropped
// when the publisher lags behind.
func (m *StatePublisher) OnStep(snap truck.Snapshot) {
	select {
	case m.snapChan <- snap:
	default:
		zap.S().Debugf("publisher queue full, drop state at t=%.3f", snap.Time)
	}
}

func (m *StatePublisher) Start() {
	m.muCancel.Lock()
	defer m.muCancel.Unlock()

	m.cancel = make(chan interface{})
	m.done = make(chan interface{})
	go m.listenSnapshots(m.cancel, m.done)
}

func (m *StatePublisher) Stop() {
	m.muCancel.Lock()
	defer m.muCancel.Unlock()
	if m.cancel == nil {
		return
	}
	close(m.cancel)
	<-m.done
	m.cancel = nil
}

func (m *StatePublisher) listenSnapshots(cancel <-chan interface{}, done chan<- interface{}) {
	defer close(done)
	logr := zap.S().With("msg_type", "state")
	for {
		select {
		case <-cancel:
			logr.Debug("exit listen state loop")
			return
		case snap := <-m.snapChan:
			if err := m.publishState(snap); err != nil {
				logr.Errorf("unable to publish state: %v", err)
			}
			if err := m.publishSteering(snap); err != nil {
				logr.Errorf("unable to publish steering: %v", err)
			}
			if err := m.publishThrottle(snap); err != nil {
				logr.Errorf("unable to publish throttle: %v", err)
			}
		}
	}
}

func (m *StatePublisher) publishState(snap truck.Snapshot) error {
	if m.topics.State == "" {
		return nil
	}
	payload, err := json.Marshal(simulator.NewStateMsg(snap.State, snap.Time, snap.Mode))
	if err != nil {
		return fmt.Errorf("unable to marshal state message: %w", err)
	}
	return m.p.Publish(m.topics.State, payload)
}

func (m *StatePublisher) publishSteering(snap truck.Snapshot) error {
	if m.topics.Steering == "" || m.limits.MaxSteerAngle == 0 {
		return nil
	}
	msg := &events.SteeringMessage{
		Steering:   float32(-snap.State.Delta / m.limits.MaxSteerAngle),
		Confidence: 1.0,
		FrameRef:   newFrameRef(snap),
	}
	payload, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("unable to marshal protobuf message: %w", err)
	}
	return m.p.Publish(m.topics.Steering, payload)
}

func (m *StatePublisher) publishThrottle(snap truck.Snapshot) error {
	if m.topics.Throttle == "" || m.limits.MaxVelocity == 0 {
		return nil
	}
	msg := &events.ThrottleMessage{
		Throttle:   float32(snap.State.V1 / m.limits.MaxVelocity),
		Confidence: 1.0,
		FrameRef:   newFrameRef(snap),
	}
	payload, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("unable to marshal protobuf message: %w", err)
	}
	return m.p.Publish(m.topics.Throttle, payload)
}

func newFrameRef(snap truck.Snapshot) *events.FrameRef {
	now := time.Now()
	return &events.FrameRef{
		Name: "truck",
		Id:   fmt.Sprintf("%d", int64(snap.Time*1000)),
		CreatedAt: &timestamp.Timestamp{
			Seconds: now.Unix(),
			Nanos:   int32(now.Nanosecond()),
		},
	}
}

type Publisher interface {
	Publish(topic string, payload []byte) error
}

func NewMqttPublisher(client mqtt.Client, qos byte, retain bool) *MqttPublisher {
	return &MqttPublisher{client: client, qos: qos, retain: retain}
}

type MqttPublisher struct {
	client mqtt.Client
	qos    byte
	retain bool
}

func (m *MqttPublisher) Publish(topic string, payload []byte) error {
	token := m.client.Publish(topic, m.qos, m.retain, payload)
	token.WaitTimeout(10 * time.Millisecond)
	if err := token.Error(); err != nil {
		return fmt.Errorf("unable to publish to topic %v: %w", topic, err)
	}
	return nil
}
