package simulator

import (
	"github.com/cyrilix/robocar-truck/pkg/kinematics"
	"github.com/cyrilix/robocar-truck/pkg/vehicle"
)

type MsgType string

const (
	MsgTypeState = MsgType("state")
	MsgTypePose  = MsgType("pose")
)

type Msg struct {
	MsgType MsgType `json:"msg_type"`
}

// StateMsg is the json telemetry published after every step. Time is the simulated time in
// seconds.
type StateMsg struct {
	MsgType MsgType       `json:"msg_type"`
	Time    float64       `json:"time"`
	Mode    string        `json:"mode"`
	State   vehicle.State `json:"state"`
}

func NewStateMsg(state vehicle.State, time float64, mode kinematics.Mode) *StateMsg {
	return &StateMsg{
		MsgType: MsgTypeState,
		Time:    time,
		Mode:    string(mode),
		State:   state,
	}
}

/*
PoseMsg is one motion capture frame, sent as a json line by the tracking server:

	{"msg_type": "pose", "time": 12.5,
	 "tractor": {"position": {"x": 0.1, "y": 0, "z": -0.4}, "orientation": {"x": 0, "y": 0, "z": 0, "w": 1}},
	 "trailer": {"position": {"x": 0.1, "y": 0, "z": 0.2}, "orientation": {"x": 0, "y": 0, "z": 0, "w": 1}}}
*/
type PoseMsg struct {
	MsgType MsgType                   `json:"msg_type"`
	Time    float64                   `json:"time"`
	Tractor *kinematics.RigidBodyPose `json:"tractor"`
	Trailer *kinematics.RigidBodyPose `json:"trailer"`
}
