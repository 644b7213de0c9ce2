// Package protocol defines the wire format for the point-to-point UDP link.
package protocol

// Packet type constants.
const (
	TypeConnect    uint8 = 0x00 // Connection handshake probe / acknowledgement
	TypeResponse   uint8 = 0x01 // Ack for a reliable packet
	TypeReliable   uint8 = 0x02 // Acknowledged, in-order message
	TypeUnreliable uint8 = 0x03 // Best-effort message
)

// Header and payload size constants.
const (
	// ConnectHeaderSize is the size of a CONNECT packet: Type(1) + Query(1).
	ConnectHeaderSize = 2

	// ResponseHeaderSize is the size of a RESPONSE packet: Type(1) + Sequence(4).
	ResponseHeaderSize = 5

	// FullHeaderSize is the header size of RELIABLE and UNRELIABLE packets:
	// Type(1) + Sequence(4) + MessageType(1) + SendTime(8).
	FullHeaderSize = 14

	// MaxMessageSize is the maximum payload a single message may carry.
	// Larger messages are rejected — the protocol does not fragment.
	MaxMessageSize = 60

	// MaxPacketSize is the largest datagram the link ever produces:
	// FullHeaderSize + MaxMessageSize. Receive buffers are sized to this.
	MaxPacketSize = FullHeaderSize + MaxMessageSize
)

// CONNECT query values.
const (
	QueryProbe uint8 = 1 // sent by the active side to probe the peer
	QueryAck   uint8 = 0 // sent by the passive side to confirm the connection
)

// MessageType identifies the semantic type of a user payload. It is the
// handler-registry key; the numbering below is convention, not mechanism.
type MessageType uint8

// Reserved message types.
const (
	MsgTest     MessageType = 0
	MsgConsole  MessageType = 1
	MsgWatchdog MessageType = 2
)

// Packet represents a decoded link packet. Which fields are meaningful
// depends on Type:
//
//	CONNECT:    Query
//	RESPONSE:   Sequence (the sequence being acknowledged)
//	RELIABLE /
//	UNRELIABLE: Sequence, MessageType, SendTime, Payload
type Packet struct {
	Type        uint8
	Query       uint8       // CONNECT only
	Sequence    uint32      // RESPONSE, RELIABLE, UNRELIABLE
	MessageType MessageType // RELIABLE, UNRELIABLE
	SendTime    int64       // RELIABLE, UNRELIABLE — sender wall clock, Unix nanoseconds
	Payload     []byte      // RELIABLE, UNRELIABLE — at most MaxMessageSize bytes
}
