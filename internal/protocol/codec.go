package protocol

import (
	"encoding/binary"
	"fmt"
)

// EncodeConnect serializes a CONNECT packet with the given query value.
func EncodeConnect(query uint8) []byte {
	return []byte{TypeConnect, query}
}

// EncodeResponse serializes a RESPONSE packet acknowledging seq.
func EncodeResponse(seq uint32) []byte {
	buf := make([]byte, ResponseHeaderSize)
	buf[0] = TypeResponse
	binary.BigEndian.PutUint32(buf[1:5], seq)
	return buf
}

// EncodeMessage serializes a RELIABLE or UNRELIABLE packet. typ must be
// TypeReliable or TypeUnreliable; the payload must not exceed MaxMessageSize.
func EncodeMessage(typ uint8, seq uint32, msgType MessageType, sendTime int64, payload []byte) ([]byte, error) {
	if typ != TypeReliable && typ != TypeUnreliable {
		return nil, fmt.Errorf("not a message packet type: %d", typ)
	}
	if len(payload) > MaxMessageSize {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), MaxMessageSize)
	}

	buf := make([]byte, FullHeaderSize+len(payload))
	buf[0] = typ
	binary.BigEndian.PutUint32(buf[1:5], seq)
	buf[5] = uint8(msgType)
	binary.BigEndian.PutUint64(buf[6:14], uint64(sendTime))
	copy(buf[FullHeaderSize:], payload)
	return buf, nil
}

// Decode deserializes a datagram into a Packet. The layout is selected by
// the first byte; length is validated per type.
func Decode(data []byte) (*Packet, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("empty datagram")
	}

	switch data[0] {
	case TypeConnect:
		if len(data) < ConnectHeaderSize {
			return nil, fmt.Errorf("connect packet too short: %d bytes (need %d)", len(data), ConnectHeaderSize)
		}
		return &Packet{Type: TypeConnect, Query: data[1]}, nil

	case TypeResponse:
		if len(data) < ResponseHeaderSize {
			return nil, fmt.Errorf("response packet too short: %d bytes (need %d)", len(data), ResponseHeaderSize)
		}
		return &Packet{
			Type:     TypeResponse,
			Sequence: binary.BigEndian.Uint32(data[1:5]),
		}, nil

	case TypeReliable, TypeUnreliable:
		if len(data) < FullHeaderSize {
			return nil, fmt.Errorf("message packet too short: %d bytes (need at least %d)", len(data), FullHeaderSize)
		}
		if len(data) > MaxPacketSize {
			return nil, fmt.Errorf("message packet too long: %d bytes (max %d)", len(data), MaxPacketSize)
		}
		pkt := &Packet{
			Type:        data[0],
			Sequence:    binary.BigEndian.Uint32(data[1:5]),
			MessageType: MessageType(data[5]),
			SendTime:    int64(binary.BigEndian.Uint64(data[6:14])),
		}
		if len(data) > FullHeaderSize {
			pkt.Payload = make([]byte, len(data)-FullHeaderSize)
			copy(pkt.Payload, data[FullHeaderSize:])
		}
		return pkt, nil

	default:
		return nil, fmt.Errorf("unknown packet type: %d", data[0])
	}
}
