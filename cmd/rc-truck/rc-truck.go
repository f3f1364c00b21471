package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cyrilix/robocar-base/cli"
	events2 "github.com/cyrilix/robocar-protobuf/go/events"
	"github.com/cyrilix/robocar-truck/pkg/controls"
	"github.com/cyrilix/robocar-truck/pkg/dashboard"
	"github.com/cyrilix/robocar-truck/pkg/events"
	"github.com/cyrilix/robocar-truck/pkg/gateway"
	"github.com/cyrilix/robocar-truck/pkg/kinematics"
	"github.com/cyrilix/robocar-truck/pkg/recorder"
	"github.com/cyrilix/robocar-truck/pkg/truck"
	"github.com/cyrilix/robocar-truck/pkg/vehicle"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/protobuf/proto"
	"go.uber.org/zap"
)

const DefaultClientId = "robocar-truck"

func main() {
	var mqttBroker, username, password, clientId string
	var topicState, topicSteering, topicThrottle string
	var topicCtrlSteering, topicCtrlThrottle string
	var mode, mocapAddress, dashboardAddress string
	var shapeName, shapesFile string
	var scale, maxVelocity, maxSteer float64
	var tick, recordInterval time.Duration
	var recordName, recordDB, recordJSON, recordPNG, replayJSON string
	var startX, startY, startTractorAngle, startTrailerAngle float64
	var region string
	var debug bool

	mqttQos := cli.InitIntFlag("MQTT_QOS", 0)
	_, mqttRetain := os.LookupEnv("MQTT_RETAIN")

	cli.InitMqttFlags(DefaultClientId, &mqttBroker, &username, &password, &clientId, &mqttQos, &mqttRetain)

	flag.StringVar(&topicState, "events-topic-state", os.Getenv("MQTT_TOPIC_STATE"), "Mqtt topic to publish truck state, use MQTT_TOPIC_STATE if args not set")
	flag.StringVar(&topicSteering, "events-topic-steering", os.Getenv("MQTT_TOPIC_STEERING"), "Mqtt topic to publish applied steering, use MQTT_TOPIC_STEERING if args not set")
	flag.StringVar(&topicThrottle, "events-topic-throttle", os.Getenv("MQTT_TOPIC_THROTTLE"), "Mqtt topic to publish applied throttle, use MQTT_TOPIC_THROTTLE if args not set")
	flag.StringVar(&topicCtrlSteering, "topic-steering-ctrl", os.Getenv("MQTT_TOPIC_STEERING_CTRL"), "Mqtt topic to receive steering instructions, use MQTT_TOPIC_STEERING_CTRL if args not set")
	flag.StringVar(&topicCtrlThrottle, "topic-throttle-ctrl", os.Getenv("MQTT_TOPIC_THROTTLE_CTRL"), "Mqtt topic to receive throttle instructions, use MQTT_TOPIC_THROTTLE_CTRL if args not set")

	flag.StringVar(&mode, "mode", string(kinematics.ModeActuation), fmt.Sprintf("Kinematics mode, only %s,%s", kinematics.ModeActuation, kinematics.ModeMocap))
	flag.StringVar(&mocapAddress, "mocap-address", "127.0.0.1:9092", "Motion capture server address, used in mocap mode")
	flag.Float64Var(&scale, "scale", 0.1, "Vehicle scale factor, also applied to motion capture positions")
	flag.StringVar(&shapeName, "shape", vehicle.DefaultShapeName, "Vehicle shape preset")
	flag.StringVar(&shapesFile, "shapes-file", "", "Yaml file with additional shape presets")
	flag.DurationVar(&tick, "tick", 20*time.Millisecond, "Simulation fixed time step")
	flag.Float64Var(&maxVelocity, "max-velocity", 1.0, "Velocity for a full throttle command, in m/s")
	flag.Float64Var(&maxSteer, "max-steer", 0.6, "Steering angle for a full steering command, in radians")

	flag.Float64Var(&startX, "start-x", 0, "Initial tractor position x")
	flag.Float64Var(&startY, "start-y", 0, "Initial tractor position y")
	flag.Float64Var(&startTractorAngle, "start-tractor-angle", 0, "Initial tractor heading, in degrees")
	flag.Float64Var(&startTrailerAngle, "start-trailer-angle", 0, "Initial trailer heading, in degrees")
	flag.StringVar(&region, "region", "", "Move the truck to the center of a polygon region, as 'x1,y1 x2,y2 x3,y3 ...'")

	flag.DurationVar(&recordInterval, "record-interval", 100*time.Millisecond, "Path sampling interval, in simulated time")
	flag.StringVar(&recordName, "record-name", "", "Record path with this name, disabled if empty")
	flag.StringVar(&recordDB, "record-db", "", "Sqlite database where recorded paths are stored")
	flag.StringVar(&recordJSON, "record-json", "", "Json file where recorded path is written")
	flag.StringVar(&recordPNG, "record-png", "", "Png file where recorded path is plotted")
	flag.StringVar(&replayJSON, "replay-json", "", "Drive the truck with commands of a recorded json path instead of mqtt")

	flag.StringVar(&dashboardAddress, "dashboard-address", "", "Http address of the dashboard, disabled if empty")
	flag.BoolVar(&debug, "debug", false, "Debug logs")

	flag.Parse()
	if len(os.Args) <= 1 {
		flag.PrintDefaults()
		os.Exit(1)
	}

	config := zap.NewDevelopmentConfig()
	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	lgr, err := config.Build()
	if err != nil {
		log.Fatalf("unable to init logger: %v", err)
	}
	defer func() {
		if err := lgr.Sync(); err != nil {
			log.Printf("unable to Sync logger: %v\n", err)
		}
	}()
	zap.ReplaceGlobals(lgr)

	shape, err := loadShape(shapesFile, shapeName)
	if err != nil {
		zap.S().Fatalf("unable to load vehicle shape: %v", err)
	}
	state := vehicle.New(scale, shape)
	zap.S().Infof("vehicle %v: l1=%.3f l1c=%.3f l2=%.3f", shapeName, state.L1, state.L1c, state.L2)

	client, err := cli.Connect(mqttBroker, username, password, clientId)
	if err != nil {
		zap.S().Fatalf("unable to connect to events broker: %v", err)
	}
	defer client.Disconnect(10)

	a := newApp()

	ctrl := controls.New(maxVelocity, maxSteer)
	a.controller = ctrl
	var commands truck.CommandSource = ctrl
	var replay *recorder.CommandReplay
	if replayJSON != "" {
		p, err := readPathFile(replayJSON)
		if err != nil {
			zap.S().Fatalf("unable to load replay path: %v", err)
		}
		zap.S().Infof("replay commands of path %q, %d samples", p.Name, len(p.Samples))
		replay = recorder.NewReplayer(p).Commands()
		commands = replay
	}

	var poses truck.PoseSource
	if kinematics.Mode(mode) == kinematics.ModeMocap {
		a.gateway = gateway.New(mocapAddress)
		poses = a.gateway
	}

	sim, err := truck.New(truck.Config{
		Mode:         kinematics.Mode(mode),
		Frame:        kinematics.Frame{Scale: scale},
		TickInterval: tick,
	}, state, commands, poses)
	if err != nil {
		zap.S().Fatalf("unable to init simulation: %v", err)
	}
	a.sim = sim

	sim.Teleport(startX, startY, startTractorAngle, startTrailerAngle)
	if region != "" {
		r, err := parseRegion(region)
		if err != nil {
			zap.S().Fatalf("invalid region: %v", err)
		}
		inside, err := sim.MoveToRegion(r)
		if err != nil {
			zap.S().Fatalf("unable to move to region: %v", err)
		}
		if !inside {
			zap.S().Warnf("truck doesn't fit inside region %v", r.Name)
		}
	}
	if replay != nil {
		sim.AddListener(replay)
		sim.AddListener(truck.ListenerFunc(func(truck.Snapshot) {
			if replay.Done() {
				go a.Stop()
			}
		}))
	}

	if topicState != "" || topicSteering != "" || topicThrottle != "" {
		a.publisher = events.NewStatePublisher(
			events.NewMqttPublisher(client, byte(mqttQos), mqttRetain),
			events.Topics{State: topicState, Steering: topicSteering, Throttle: topicThrottle},
			events.Limits{MaxVelocity: maxVelocity, MaxSteerAngle: maxSteer},
		)
		sim.AddListener(a.publisher)
	}

	if recordName != "" {
		a.recorder = recorder.NewRecorder(recordName, recordInterval)
		a.output = recordOutput{db: recordDB, json: recordJSON, png: recordPNG}
		sim.AddListener(a.recorder)
		a.recorder.StartRecording()
	}

	if dashboardAddress != "" {
		a.dashboard = dashboard.New(dashboardAddress)
		sim.AddListener(a.dashboard)
	}

	cli.HandleExit(a)

	if replay == nil {
		if topicCtrlSteering != "" {
			zap.S().Info("configure mqtt route on steering command")
			client.Subscribe(topicCtrlSteering, byte(mqttQos), func(client mqtt.Client, message mqtt.Message) {
				onSteeringCommand(ctrl, message)
			})
		}
		if topicCtrlThrottle != "" {
			zap.S().Info("configure mqtt route on throttle command")
			client.Subscribe(topicCtrlThrottle, byte(mqttQos), func(client mqtt.Client, message mqtt.Message) {
				onThrottleCommand(ctrl, message)
			})
		}
	}

	err = a.Start()
	if err != nil {
		zap.S().Fatalf("unable to start service: %v", err)
	}
}

func loadShape(shapesFile, name string) (vehicle.Shape, error) {
	shapes := vehicle.DefaultShapes()
	if shapesFile != "" {
		f, err := os.Open(shapesFile)
		if err != nil {
			return vehicle.Shape{}, fmt.Errorf("unable to open shapes file: %w", err)
		}
		defer f.Close()
		shapes, err = vehicle.LoadShapes(f)
		if err != nil {
			return vehicle.Shape{}, err
		}
	}
	return shapes.Get(name)
}

func readPathFile(name string) (recorder.Path, error) {
	f, err := os.Open(name)
	if err != nil {
		return recorder.Path{}, fmt.Errorf("unable to open path file: %w", err)
	}
	defer f.Close()
	return recorder.ReadPath(f)
}

// parseRegion reads vertices written as "x1,y1 x2,y2 x3,y3".
func parseRegion(value string) (vehicle.Region, error) {
	var vertices []vehicle.Point
	for _, field := range strings.Fields(value) {
		xy := strings.Split(field, ",")
		if len(xy) != 2 {
			return vehicle.Region{}, fmt.Errorf("invalid vertex %q, wants 'x,y'", field)
		}
		x, err := strconv.ParseFloat(xy[0], 64)
		if err != nil {
			return vehicle.Region{}, fmt.Errorf("invalid x in vertex %q: %w", field, err)
		}
		y, err := strconv.ParseFloat(xy[1], 64)
		if err != nil {
			return vehicle.Region{}, fmt.Errorf("invalid y in vertex %q: %w", field, err)
		}
		vertices = append(vertices, vehicle.Point{X: x, Y: y})
	}
	return vehicle.NewRegion("cli", vertices)
}

func onSteeringCommand(c controls.SteeringController, message mqtt.Message) {
	var steeringMsg events2.SteeringMessage
	err := proto.Unmarshal(message.Payload(), &steeringMsg)
	if err != nil {
		zap.S().Errorf("unable to unmarshal steering msg: %v", err)
		return
	}
	c.WriteSteering(&steeringMsg)
}

func onThrottleCommand(c controls.ThrottleController, message mqtt.Message) {
	var throttleMsg events2.ThrottleMessage
	err := proto.Unmarshal(message.Payload(), &throttleMsg)
	if err != nil {
		zap.S().Errorf("unable to unmarshal throttle msg: %v", err)
		return
	}
	c.WriteThrottle(&throttleMsg)
}
