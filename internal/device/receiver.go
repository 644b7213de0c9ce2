package device

import (
	"errors"
	"net"
	"time"

	"github.com/1ureka/udplink/internal/protocol"
	"github.com/1ureka/udplink/internal/util"
)

// receiveLoop owns all socket reads for the device. It classifies each
// datagram by type, maintains the receive counters, acks reliable packets,
// and hands payloads to registered handlers. It exits when the socket is
// closed; other read errors are logged and the loop continues, since UDP
// errors can be transient.
func (d *Device) receiveLoop() {
	buf := make([]byte, protocol.MaxPacketSize)

	for {
		n, addr, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-d.done:
				return
			default:
			}
			util.LogWarning("socket read error: %v", err)
			continue
		}
		util.Stats.AddRecv(n)

		pkt, err := protocol.Decode(buf[:n])
		if err != nil {
			util.LogDebug("dropping malformed datagram from %s: %v", addr, err)
			continue
		}

		switch pkt.Type {
		case protocol.TypeConnect:
			d.handleConnect(pkt, addr)
		case protocol.TypeResponse:
			d.handleResponse(pkt, addr)
		case protocol.TypeReliable:
			d.handleReliable(pkt, addr)
		case protocol.TypeUnreliable:
			d.handleUnreliable(pkt, addr)
		}
	}
}

// handleConnect runs the handshake state transitions.
//
// A probe (query=1) from an unknown peer binds it as the remote when none
// is bound yet; probes from the bound remote are re-answered idempotently,
// probes from anyone else are ignored. An ack (query=0) completes the
// active-side handshake; unsolicited acks are ignored.
func (d *Device) handleConnect(pkt *protocol.Packet, addr *net.UDPAddr) {
	switch pkt.Query {
	case protocol.QueryProbe:
		d.mu.Lock()
		if d.remote == nil {
			select {
			case <-d.done:
				d.mu.Unlock()
				return
			default:
			}
			d.remote = addr
			d.connected = true
			util.LogInfo("peer %s connected", addr)
		} else if !sameEndpoint(d.remote, addr) {
			d.mu.Unlock()
			util.LogDebug("ignoring connect probe from %s: already bound to %s", addr, d.remote)
			return
		}
		d.mu.Unlock()

		if err := d.write(protocol.EncodeConnect(protocol.QueryAck)); err != nil {
			util.LogDebug("connect ack write: %v", err)
		}

	case protocol.QueryAck:
		d.mu.Lock()
		expected := d.active && d.remote != nil && sameEndpoint(d.remote, addr)
		if expected {
			d.connected = true
		}
		d.mu.Unlock()

		if expected {
			d.connectOnce.Do(func() { close(d.connectAck) })
		}

	default:
		util.LogDebug("ignoring connect packet with query=%d from %s", pkt.Query, addr)
	}
}

// handleResponse wakes the reliable send blocked on the acked sequence.
// A missing slot means the sender already timed out — a harmless race.
func (d *Device) handleResponse(pkt *protocol.Packet, addr *net.UDPAddr) {
	if !d.fromRemote(addr) {
		return
	}
	if slot, ok := d.lookupPending(pkt.Sequence); ok {
		slot.signal()
	}
}

// handleReliable acks and dispatches an in-order reliable packet, re-acks
// duplicates without re-dispatching, and drops packets ahead of the
// expected sequence (the sender keeps retransmitting the gap).
func (d *Device) handleReliable(pkt *protocol.Packet, addr *net.UDPAddr) {
	if !d.fromRemote(addr) {
		return
	}

	switch {
	case pkt.Sequence == d.nextReliableRecv:
		if err := d.write(protocol.EncodeResponse(pkt.Sequence)); err != nil {
			util.LogDebug("ack write seq=%d: %v", pkt.Sequence, err)
		}
		d.nextReliableRecv++
		d.dispatchMessage(pkt)

	case pkt.Sequence < d.nextReliableRecv:
		// Duplicate — our earlier ack was lost. Ack again, drop the payload.
		util.Stats.AddDuplicate()
		if err := d.write(protocol.EncodeResponse(pkt.Sequence)); err != nil {
			util.LogDebug("ack write seq=%d: %v", pkt.Sequence, err)
		}

	default:
		// Ahead of the expected sequence — drop; retransmission of the
		// lower sequences will catch us up.
	}
}

// handleUnreliable dispatches a packet at or ahead of the expected sequence
// and advances the counter past it; anything older is stale and dropped.
func (d *Device) handleUnreliable(pkt *protocol.Packet, addr *net.UDPAddr) {
	if !d.fromRemote(addr) {
		return
	}

	if pkt.Sequence < d.nextUnreliableRecv {
		util.Stats.AddDuplicate()
		return
	}
	d.nextUnreliableRecv = pkt.Sequence + 1
	d.dispatchMessage(pkt)
}

// dispatchMessage looks up the handler for a message type and runs it via
// the dispatch strategy. The registry lock is never held across the
// handler. An unregistered type is logged and the loop carries on.
func (d *Device) dispatchMessage(pkt *protocol.Packet) {
	fn, ok := d.registry.lookup(pkt.MessageType)
	if !ok {
		util.LogError("no handler registered for message type %d (seq=%d)", pkt.MessageType, pkt.Sequence)
		return
	}

	sendTime := time.Unix(0, pkt.SendTime)
	payload := pkt.Payload
	d.dispatch.run(func() { fn(sendTime, payload) })
}

// fromRemote reports whether addr is the bound remote endpoint. Packets
// from anyone else — or any packet while unconnected — are ignored.
func (d *Device) fromRemote(addr *net.UDPAddr) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remote != nil && sameEndpoint(d.remote, addr)
}

// sameEndpoint compares (IP, port) pairs.
func sameEndpoint(a, b *net.UDPAddr) bool {
	return a.Port == b.Port && a.IP.Equal(b.IP)
}
