package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/1ureka/udplink/internal/protocol"
	"github.com/1ureka/udplink/internal/util"
)

// sendSlot records one in-flight reliable send. The sending goroutine
// blocks on ack until the receive goroutine signals it or the attempt
// budget runs out.
type sendSlot struct {
	seq  uint32
	once sync.Once
	ack  chan struct{}
}

func newSendSlot(seq uint32) *sendSlot {
	return &sendSlot{seq: seq, ack: make(chan struct{})}
}

// signal marks the slot acked. Safe to call more than once.
func (s *sendSlot) signal() {
	s.once.Do(func() { close(s.ack) })
}

// acked reports whether signal has been called.
func (s *sendSlot) acked() bool {
	select {
	case <-s.ack:
		return true
	default:
		return false
	}
}

// SendReliable transmits a message and blocks until the peer acknowledges
// it or the retry budget is exhausted. Each of the (default DefaultAttempts)
// transmissions is followed by a wait of up to the configured interval for
// the ack. Messages from concurrent senders reach the peer's handler in
// sequence-allocation order.
//
// Fails fast with ErrMessageTooLarge or ErrNotConnected before any bytes
// are sent; returns ErrTimeout when the budget runs out or the device is
// closed mid-send.
func (d *Device) SendReliable(msgType protocol.MessageType, payload []byte, opts ...SendOption) error {
	cfg := sendOptions{attempts: DefaultAttempts, interval: DefaultInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(payload) > protocol.MaxMessageSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLarge, len(payload), protocol.MaxMessageSize)
	}
	if !d.Connected() {
		return ErrNotConnected
	}

	// The sequence is claimed before the first transmission, so the
	// allocation order across concurrent senders fixes the dispatch order
	// at the peer.
	seq := d.nextReliableSend.Add(1) - 1

	data, err := protocol.EncodeMessage(protocol.TypeReliable, seq, msgType, time.Now().UnixNano(), payload)
	if err != nil {
		return err
	}

	slot := newSendSlot(seq)
	d.addPending(slot)
	defer d.removePending(seq)

	for attempt := 0; attempt < cfg.attempts; attempt++ {
		if !d.Connected() {
			return ErrTimeout
		}
		if attempt > 0 {
			util.Stats.AddRetransmit()
		}
		if err := d.write(data); err != nil {
			util.LogDebug("reliable write seq=%d attempt=%d: %v", seq, attempt, err)
		}

		select {
		case <-slot.ack:
			return nil
		case <-time.After(cfg.interval):
		case <-d.done:
			return ErrTimeout
		}
	}

	if slot.acked() {
		return nil
	}
	return fmt.Errorf("%w: seq=%d after %d attempts", ErrTimeout, seq, cfg.attempts)
}

// SendUnreliable transmits a message once, best-effort. No ack is awaited
// and no retransmission happens; the peer drops it if it arrives late.
func (d *Device) SendUnreliable(msgType protocol.MessageType, payload []byte) error {
	if len(payload) > protocol.MaxMessageSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLarge, len(payload), protocol.MaxMessageSize)
	}
	if !d.Connected() {
		return ErrNotConnected
	}

	seq := d.nextUnreliableSend.Add(1) - 1

	data, err := protocol.EncodeMessage(protocol.TypeUnreliable, seq, msgType, time.Now().UnixNano(), payload)
	if err != nil {
		return err
	}
	return d.write(data)
}

// addPending inserts a slot into the pending set.
func (d *Device) addPending(slot *sendSlot) {
	d.pendingMu.Lock()
	d.pending[slot.seq] = slot
	d.pendingMu.Unlock()
}

// removePending deletes a slot. A RESPONSE arriving afterwards finds no
// slot, which the receive loop tolerates.
func (d *Device) removePending(seq uint32) {
	d.pendingMu.Lock()
	delete(d.pending, seq)
	d.pendingMu.Unlock()
}

// lookupPending returns the slot awaiting seq, if its sender is still blocked.
func (d *Device) lookupPending(seq uint32) (*sendSlot, bool) {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	slot, ok := d.pending[seq]
	return slot, ok
}
