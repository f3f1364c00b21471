package gateway

import (
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cyrilix/robocar-truck/pkg/kinematics"
	"github.com/cyrilix/robocar-truck/pkg/simulator"
)

func TestParsePose(t *testing.T) {
	cases := []struct {
		name      string
		line      string
		expectMsg bool
		expectErr bool
	}{
		{"pose", `{"msg_type": "pose", "time": 1.5, "tractor": {"position": {"x": 1, "y": 0, "z": 2}, "orientation": {"w": 1}}}`, true, false},
		{"other message", `{"msg_type": "heartbeat"}`, false, false},
		{"malformed", `{"msg_type": "pose", "time": `, false, true},
	}

	for _, c := range cases {
		msg, err := parsePose([]byte(c.line))
		if (err != nil) != c.expectErr {
			t.Errorf("[%v] unexpected error: %v", c.name, err)
		}
		if (msg != nil) != c.expectMsg {
			t.Errorf("[%v] bad message: %#v", c.name, msg)
		}
	}

	msg, _ := parsePose([]byte(cases[0].line))
	expected := kinematics.RigidBodyPose{
		Position:    kinematics.Vec3{X: 1, Z: 2},
		Orientation: kinematics.Quaternion{W: 1},
	}
	if msg.MsgType != simulator.MsgTypePose || msg.Time != 1.5 || *msg.Tractor != expected || msg.Trailer != nil {
		t.Errorf("bad pose decoded: %#v", msg)
	}
}

func waitPoses(g *Gateway, check func(tractor, trailer *kinematics.RigidBodyPose) bool) bool {
	timeout := time.After(500 * time.Millisecond)
	for {
		if check(g.Poses()) {
			return true
		}
		select {
		case <-timeout:
			return false
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestGateway_ListenPoses(t *testing.T) {
	mocapMock := Mocap2GwMock{}
	err := mocapMock.Start()
	if err != nil {
		t.Errorf("unable to start mock server: %v", err)
	}
	defer func() {
		if err := mocapMock.Close(); err != nil {
			t.Errorf("unable to close mock server: %v", err)
		}
	}()

	part := New(mocapMock.Addr())
	go func() {
		err := part.Start()
		if err != nil {
			t.Errorf("unable to start gateway: %v", err)
		}
	}()
	defer part.Stop()

	if tractor, trailer := part.Poses(); tractor != nil || trailer != nil {
		t.Errorf("no pose expected before first frame: %v %v", tractor, trailer)
	}

	mocapMock.WaitConnection()
	testContent, err := os.ReadFile("testdata/poses.json")
	if err != nil {
		t.Fatalf("unable to read test data: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(testContent)), "\n")

	for idx, line := range lines {
		err = mocapMock.EmitMsg(line)
		if err != nil {
			t.Errorf("[line %v/%v] unable to write line: %v", idx+1, len(lines), err)
		}
	}

	// last frame has no trailer body
	ok := waitPoses(part, func(tractor, trailer *kinematics.RigidBodyPose) bool {
		return tractor != nil && tractor.Position.Z == -0.04 && trailer == nil
	})
	if !ok {
		tractor, trailer := part.Poses()
		t.Errorf("last pose not received: %v %v", tractor, trailer)
	}
}

func TestGateway_Reconnect(t *testing.T) {
	mocapMock := Mocap2GwMock{}
	if err := mocapMock.Start(); err != nil {
		t.Fatalf("unable to start mock server: %v", err)
	}
	defer mocapMock.Close()

	part := New(mocapMock.Addr())
	go part.Start()
	defer part.Stop()

	mocapMock.WaitConnection()
	if err := mocapMock.DropConnection(); err != nil {
		t.Fatalf("unable to drop connection: %v", err)
	}

	mocapMock.WaitConnection()
	err := mocapMock.EmitMsg(`{"msg_type": "pose", "tractor": {"position": {"x": 3, "y": 0, "z": 0}, "orientation": {"w": 1}}}`)
	if err != nil {
		t.Fatalf("unable to emit pose: %v", err)
	}

	ok := waitPoses(part, func(tractor, _ *kinematics.RigidBodyPose) bool {
		return tractor != nil && tractor.Position.X == 3
	})
	if !ok {
		t.Error("pose not received after reconnection")
	}
}

func TestGateway_ConnectionFailure(t *testing.T) {
	oldConnect, oldAttempts, oldDelay := connect, connectAttempts, connectDelay
	defer func() { connect, connectAttempts, connectDelay = oldConnect, oldAttempts, oldDelay }()

	calls := make(chan string, 10)
	connect = func(address string) (io.ReadWriteCloser, error) {
		calls <- address
		return nil, fmt.Errorf("unable to connect to %v", address)
	}
	connectAttempts = 2
	connectDelay = time.Millisecond

	part := New("127.0.0.1:1")
	defer part.Stop()

	done := make(chan error)
	go func() { done <- part.Start() }()

	select {
	case err := <-done:
		if err == nil {
			t.Errorf("Start() should return an error when the server is unreachable")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Start() still blocking after connection attempts are exhausted")
	}
	if len(calls) != 2 {
		t.Errorf("invalid connection attempts %v, wants %v", len(calls), 2)
	}
}
