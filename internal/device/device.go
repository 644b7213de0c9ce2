// Package device implements one side of a point-to-point reliable/unreliable
// messaging transport over a single UDP socket.
//
// A Device exchanges typed messages with exactly one remote peer. Reliable
// messages are acknowledged, retransmitted, and dispatched to handlers
// strictly in allocation order, at most once. Unreliable messages are
// best-effort; late arrivals are dropped. Devices are single-use — once
// closed they cannot reconnect.
package device

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1ureka/udplink/internal/protocol"
	"github.com/1ureka/udplink/internal/util"
)

// Retry defaults, shared by the connect handshake and reliable sends.
const (
	DefaultAttempts = 10
	DefaultInterval = 100 * time.Millisecond
)

// Device is one endpoint of the link. All methods are safe for concurrent
// use; any number of goroutines may send while a single background
// goroutine owns all socket reads.
type Device struct {
	conn *net.UDPConn

	// mu guards remote and connected. The receive goroutine writes them
	// during the handshake; senders read them.
	mu        sync.Mutex
	remote    *net.UDPAddr
	connected bool
	active    bool // true when created by Dial

	// writeMu serializes datagram writes.
	writeMu sync.Mutex

	// connectAck is closed once when the active side sees CONNECT(ack).
	connectAck  chan struct{}
	connectOnce sync.Once

	// Send counters, allocated atomically by any sender. Receive counters
	// are touched only by the receive goroutine (receiver.go).
	nextReliableSend   atomic.Uint32
	nextUnreliableSend atomic.Uint32
	nextReliableRecv   uint32
	nextUnreliableRecv uint32

	// pending holds one slot per in-flight reliable send, keyed by sequence.
	pendingMu sync.Mutex
	pending   map[uint32]*sendSlot

	registry *registry
	dispatch *dispatcher

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// Listen creates a passive device bound to local (an "ip:port" UDP address).
// It returns immediately; the first peer that probes with a CONNECT fixes
// the remote endpoint, after which the device behaves identically to a
// dialed one.
func Listen(local string, opts ...Option) (*Device, error) {
	laddr, err := net.ResolveUDPAddr("udp", local)
	if err != nil {
		return nil, fmt.Errorf("resolve bind address: %w", err)
	}
	return newDevice(laddr, nil, opts)
}

// Dial creates an active device bound to local and connects it to remote.
// It blocks for the handshake: up to DefaultAttempts probes, each followed
// by a wait of up to DefaultInterval for the peer's reply. If the peer
// never replies the socket is shut down and ErrConnectionFailed is returned.
func Dial(local, remote string, opts ...Option) (*Device, error) {
	laddr, err := net.ResolveUDPAddr("udp", local)
	if err != nil {
		return nil, fmt.Errorf("resolve bind address: %w", err)
	}
	raddr, err := net.ResolveUDPAddr("udp", remote)
	if err != nil {
		return nil, fmt.Errorf("resolve remote address: %w", err)
	}
	if !sameFamily(laddr.IP, raddr.IP) {
		return nil, fmt.Errorf("%w: bind %s, remote %s", ErrInvalidEndpoint, laddr, raddr)
	}

	d, err := newDevice(laddr, raddr, opts)
	if err != nil {
		return nil, err
	}

	if err := d.connect(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// newDevice binds the socket, applies options, and starts the receive loop.
func newDevice(laddr, raddr *net.UDPAddr, opts []Option) (*Device, error) {
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", laddr, err)
	}

	d := &Device{
		conn:       conn,
		remote:     raddr,
		active:     raddr != nil,
		connectAck: make(chan struct{}),
		pending:    make(map[uint32]*sendSlot),
		registry:   newRegistry(),
		done:       make(chan struct{}),
	}

	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}
	d.dispatch, err = newDispatcher(cfg.asyncDispatch)
	if err != nil {
		conn.Close()
		return nil, err
	}

	go d.receiveLoop()
	return d, nil
}

// connect runs the active-side handshake loop.
func (d *Device) connect() error {
	probe := protocol.EncodeConnect(protocol.QueryProbe)

	for attempt := 0; attempt < DefaultAttempts; attempt++ {
		if err := d.write(probe); err != nil {
			util.LogDebug("connect probe %d failed: %v", attempt, err)
		}

		select {
		case <-d.connectAck:
			util.LogInfo("connected to %s", d.Remote())
			return nil
		case <-time.After(DefaultInterval):
		case <-d.done:
			return ErrConnectionFailed
		}
	}
	return fmt.Errorf("%w: no reply after %d attempts", ErrConnectionFailed, DefaultAttempts)
}

// Close shuts the device down: the connected flag is cleared, the socket is
// closed (which terminates the receive loop), and any blocked reliable
// sends return ErrTimeout at their next wake. Close is idempotent and
// terminal — a closed device cannot be reused.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.connected = false
		d.remote = nil
		d.mu.Unlock()

		close(d.done)
		d.closeErr = d.conn.Close()
		d.dispatch.release()
	})
	return d.closeErr
}

// LocalAddr returns the bound socket address.
func (d *Device) LocalAddr() *net.UDPAddr {
	return d.conn.LocalAddr().(*net.UDPAddr)
}

// Remote returns the current remote endpoint, or nil while unconnected.
func (d *Device) Remote() *net.UDPAddr {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remote
}

// Connected reports whether the handshake has completed and the device has
// not been closed.
func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// RegisterParser maps a message type to a handler. The first registration
// wins: a duplicate returns ErrAlreadyRegistered and leaves the existing
// mapping in place. Registration is allowed before or after the handshake.
func (d *Device) RegisterParser(msgType protocol.MessageType, fn Handler) error {
	return d.registry.register(msgType, fn)
}

// write sends one datagram to the current remote. Writes are serialized so
// concurrent senders cannot interleave.
func (d *Device) write(data []byte) error {
	d.mu.Lock()
	raddr := d.remote
	d.mu.Unlock()
	if raddr == nil {
		return ErrNotConnected
	}

	d.writeMu.Lock()
	_, err := d.conn.WriteToUDP(data, raddr)
	d.writeMu.Unlock()
	if err == nil {
		util.Stats.AddSent(len(data))
	}
	return err
}

// sameFamily reports whether two IPs share an address family. Unspecified
// bind addresses (nil IP) match either family.
func sameFamily(a, b net.IP) bool {
	if a == nil || b == nil {
		return true
	}
	return (a.To4() != nil) == (b.To4() != nil)
}
