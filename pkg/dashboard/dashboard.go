// Package dashboard exposes the simulated truck state over http: a json snapshot on
// /api/state and a websocket stream on /ws.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cyrilix/robocar-truck/pkg/simulator"
	"github.com/cyrilix/robocar-truck/pkg/truck"
	"github.com/cyrilix/robocar-truck/pkg/vehicle"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	clientQueueSize = 8
	writeTimeout    = time.Second
)

// Format returns the display lines of s, values rounded to two decimals.
func Format(s vehicle.State) []string {
	return []string{
		fmt.Sprintf("v1: %.2f", s.V1),
		fmt.Sprintf("v2: %.2f", s.V2),
		fmt.Sprintf("delta: %.2f", s.Delta),
		fmt.Sprintf("gamma: %.2f", s.Gamma),
		fmt.Sprintf("x1: %.2f, y1: %.2f", s.X1, s.Y1),
		fmt.Sprintf("x2: %.2f, y2: %.2f", s.X2, s.Y2),
		fmt.Sprintf("psi1: %.2f, psi2: %.2f", s.Psi1, s.Psi2),
	}
}

// StateMsg is the document served on both endpoints.
type StateMsg struct {
	simulator.StateMsg
	Lines []string `json:"lines"`
}

func newStateMsg(snap truck.Snapshot) StateMsg {
	return StateMsg{
		StateMsg: *simulator.NewStateMsg(snap.State, snap.Time, snap.Mode),
		Lines:    Format(snap.State),
	}
}

func New(address string) *Server {
	s := &Server{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: zap.S().With("dashboard", address),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/ws", s.handleWebsocket)
	s.srv = &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return s
}

/* Simulation listener keeping the last state for http and websocket clients */
type Server struct {
	srv      *http.Server
	upgrader websocket.Upgrader

	muState sync.RWMutex
	last    *StateMsg

	muClients sync.Mutex
	clients   map[*client]struct{}

	log *zap.SugaredLogger
}

type client struct {
	send chan []byte
}

// Handler returns the http routes of the dashboard.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Start() error {
	s.log.Infof("start dashboard on %v", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("unable to serve dashboard: %w", err)
	}
	return nil
}

func (s *Server) Stop() {
	s.log.Info("stop dashboard")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Warnf("unable to shutdown dashboard: %v", err)
	}

	s.muClients.Lock()
	defer s.muClients.Unlock()
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
}

func (s *Server) OnStep(snap truck.Snapshot) {
	msg := newStateMsg(snap)
	s.muState.Lock()
	s.last = &msg
	s.muState.Unlock()

	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Errorf("unable to marshal state: %v", err)
		return
	}

	s.muClients.Lock()
	defer s.muClients.Unlock()
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
			// slow client, it will get the next one
		}
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.muState.RLock()
	last := s.last
	s.muState.RUnlock()

	if last == nil {
		http.Error(w, `{"error": "no state yet"}`, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(last); err != nil {
		s.log.Errorf("unable to write state: %v", err)
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	c := &client{send: make(chan []byte, clientQueueSize)}
	s.muClients.Lock()
	s.clients[c] = struct{}{}
	s.muClients.Unlock()
	defer s.removeClient(c)

	s.muState.RLock()
	last := s.last
	s.muState.RUnlock()
	if last != nil {
		if err := conn.WriteJSON(last); err != nil {
			return
		}
	}

	// reader only detects the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.log.Debugf("websocket read error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case payload, ok := <-c.send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.log.Debugf("unable to write to websocket client: %v", err)
				return
			}
		}
	}
}

func (s *Server) removeClient(c *client) {
	s.muClients.Lock()
	defer s.muClients.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.muClients.Lock()
	defer s.muClients.Unlock()
	return len(s.clients)
}
