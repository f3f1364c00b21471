package gateway

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/cyrilix/robocar-truck/pkg/kinematics"
	"github.com/cyrilix/robocar-truck/pkg/simulator"
	"go.uber.org/zap"
)

// connection attempts before Start gives up, the delay between attempts grows exponentially
var (
	connectAttempts uint = 10
	connectDelay         = 1 * time.Second
)

func New(addressMocap string) *Gateway {
	l := zap.S().With("mocap", addressMocap)
	l.Info("run gateway from motion capture server")

	return &Gateway{
		address: addressMocap,
		cancel:  make(chan interface{}),
		log:     l,
	}
}

/* Motion capture interface, keeps the last tracked tractor and trailer poses */
type Gateway struct {
	cancel     chan interface{}
	cancelOnce sync.Once

	address string
	muConn  sync.Mutex
	conn    io.ReadCloser

	muPose   sync.RWMutex
	lastPose *simulator.PoseMsg

	log *zap.SugaredLogger
}

func (p *Gateway) Start() error {
	p.log.Info("connect to motion capture server")
	msgChan := make(chan *simulator.PoseMsg)
	errChan := make(chan error, 1)

	go p.run(msgChan, errChan)

	for {
		select {
		case err := <-errChan:
			if p.cancelled() {
				return nil
			}
			return fmt.Errorf("unable to connect to motion capture server at %v: %w", p.address, err)
		case msg := <-msgChan:
			p.muPose.Lock()
			p.lastPose = msg
			p.muPose.Unlock()
		case <-p.cancel:
			return nil
		}
	}
}

func (p *Gateway) Stop() {
	p.log.Info("close motion capture gateway")
	p.cancelOnce.Do(func() { close(p.cancel) })

	if err := p.Close(); err != nil {
		p.log.Warnf("unexpected error while motion capture connection is closed: %v", err)
	}
}

func (p *Gateway) Close() error {
	p.muConn.Lock()
	defer p.muConn.Unlock()
	if p.conn == nil {
		p.log.Warn("no connection to close")
		return nil
	}
	if err := p.conn.Close(); err != nil {
		return fmt.Errorf("unable to close connection to motion capture server: %w", err)
	}
	return nil
}

// Poses returns copies of the last tracked poses, nil before the first frame.
func (p *Gateway) Poses() (tractor, trailer *kinematics.RigidBodyPose) {
	p.muPose.RLock()
	defer p.muPose.RUnlock()
	if p.lastPose == nil {
		return nil, nil
	}
	if p.lastPose.Tractor != nil {
		t := *p.lastPose.Tractor
		tractor = &t
	}
	if p.lastPose.Trailer != nil {
		t := *p.lastPose.Trailer
		trailer = &t
	}
	return tractor, trailer
}

func (p *Gateway) cancelled() bool {
	select {
	case <-p.cancel:
		return true
	default:
		return false
	}
}

func (p *Gateway) run(msgChan chan<- *simulator.PoseMsg, errChan chan<- error) {
	for !p.cancelled() {
		err := retry.Do(func() error {
			p.log.Info("connect to motion capture server")
			conn, err := connect(p.address)
			if err != nil {
				return fmt.Errorf("unable to connect to motion capture server at %v", p.address)
			}
			p.muConn.Lock()
			p.conn = conn
			p.muConn.Unlock()
			p.log.Info("connection success")
			return nil
		},
			retry.Attempts(connectAttempts),
			retry.Delay(connectDelay),
			retry.RetryIf(func(error) bool { return !p.cancelled() }),
		)
		if err != nil {
			p.log.Errorf("unable to connect to motion capture server: %v", err)
			errChan <- err
			return
		}

		p.muConn.Lock()
		reader := bufio.NewReader(p.conn)
		p.muConn.Unlock()

		if err := p.listen(msgChan, reader); err != nil && !p.cancelled() {
			p.log.Errorf("connection lost: %v", err)
		}
	}
}

func (p *Gateway) listen(msgChan chan<- *simulator.PoseMsg, reader *bufio.Reader) error {
	for {
		rawLine, err := reader.ReadBytes('\n')
		if err == io.EOF {
			p.log.Info("Connection closed")
			return err
		}
		if err != nil {
			return fmt.Errorf("unable to read response: %w", err)
		}

		msg, err := parsePose(rawLine)
		if err != nil {
			p.log.Errorf("unable to unmarshal motion capture msg '%v': %v", string(rawLine), err)
			continue
		}
		if msg == nil {
			continue
		}
		select {
		case msgChan <- msg:
		case <-p.cancel:
			return nil
		}
	}
}

// parsePose decodes a json line, returns nil for messages other than poses.
func parsePose(rawLine []byte) (*simulator.PoseMsg, error) {
	var msg simulator.PoseMsg
	if err := json.Unmarshal(rawLine, &msg); err != nil {
		return nil, err
	}
	if msg.MsgType != simulator.MsgTypePose {
		return nil, nil
	}
	return &msg, nil
}

var connect = func(address string) (io.ReadWriteCloser, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to %v", address)
	}
	return conn, nil
}
