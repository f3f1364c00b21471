package gateway

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"
)

type Mocap2GwMock struct {
	ln            net.Listener
	muConn        sync.Mutex
	conn          net.Conn
	writer        *bufio.Writer
	newConnection chan net.Conn
	logger        *zap.SugaredLogger
}

func (c *Mocap2GwMock) EmitMsg(p string) (err error) {
	c.muConn.Lock()
	defer c.muConn.Unlock()
	_, err = c.writer.WriteString(p + "\n")
	if err != nil {
		c.logger.Errorf("unable to write response: %v", err)
	}
	if err == io.EOF {
		c.logger.Info("Connection closed")
		return err
	}
	err = c.writer.Flush()
	return err
}

func (c *Mocap2GwMock) WaitConnection() {
	c.muConn.Lock()
	defer c.muConn.Unlock()
	c.logger.Debug("motion capture waiting connection")
	if c.conn != nil {
		return
	}
	c.logger.Debug("new connection")
	conn := <-c.newConnection

	c.conn = conn
	c.writer = bufio.NewWriter(conn)
}

// DropConnection closes the current client connection, next WaitConnection waits for a new one.
func (c *Mocap2GwMock) DropConnection() error {
	c.muConn.Lock()
	defer c.muConn.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Mocap2GwMock) Start() error {
	c.logger = zap.S().With("mocap", "mock")
	c.newConnection = make(chan net.Conn)
	ln, err := net.Listen("tcp", "127.0.0.1:")
	c.ln = ln
	if err != nil {
		return fmt.Errorf("unable to listen on port: %v", err)
	}
	go func() {
		for {
			conn, err := c.ln.Accept()
			if err != nil {
				c.logger.Debugf("connection close: %v", err)
				break
			}
			c.newConnection <- conn
		}
	}()
	return nil
}

func (c *Mocap2GwMock) Addr() string {
	return c.ln.Addr().String()
}

func (c *Mocap2GwMock) Close() error {
	if c == nil {
		return nil
	}
	c.logger.Debug("close mock server")

	err := c.ln.Close()
	if err != nil {
		return fmt.Errorf("unable to close mock server: %v", err)
	}
	return nil
}
