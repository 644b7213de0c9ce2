// Package console serves live link statistics over WebSocket so a running
// device can be observed from a browser or CLI tool.
package console

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/udplink/internal/device"
	"github.com/1ureka/udplink/internal/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// snapshotInterval is how often connected observers receive a stats frame.
const snapshotInterval = time.Second

// frame is one JSON message pushed to observers.
type frame struct {
	Local     string        `json:"local"`
	Remote    string        `json:"remote,omitempty"`
	Connected bool          `json:"connected"`
	Stats     util.Snapshot `json:"stats"`
}

// Server exposes a /stats WebSocket endpoint describing one device.
type Server struct {
	dev      *device.Device
	listener net.Listener
}

// NewServer creates a console server for the given device.
func NewServer(dev *device.Device) *Server {
	return &Server{dev: dev}
}

// Start begins listening on addr (e.g. "127.0.0.1:0"). Returns the
// assigned port number.
func (s *Server) Start(ctx context.Context, addr string) (int, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("failed to start console server: %w", err)
	}
	s.listener = listener
	port := listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		s.handleStats(ctx, w, r)
	})

	go func() {
		_ = http.Serve(listener, mux)
	}()

	return port, nil
}

// handleStats upgrades the connection and pushes a stats frame every
// snapshotInterval until the observer disconnects or ctx is cancelled.
func (s *Server) handleStats(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	util.LogDebug("console observer connected: %s", conn.RemoteAddr())

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteJSON(s.snapshot()); err != nil {
				util.LogDebug("console observer gone: %v", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// snapshot assembles the current frame for this device.
func (s *Server) snapshot() frame {
	f := frame{
		Local:     s.dev.LocalAddr().String(),
		Connected: s.dev.Connected(),
		Stats:     util.Stats.Snap(),
	}
	if remote := s.dev.Remote(); remote != nil {
		f.Remote = remote.String()
	}
	return f
}

// Close shuts down the listener so no new observers can connect. Observers
// already connected are not closed here; they keep receiving frames until
// they disconnect or the context passed to Start is cancelled.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
}
