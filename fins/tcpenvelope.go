package fins

import "encoding/binary"

// FINS/TCP wraps every frame in a 16-byte envelope: the magic string
// "FINS", a big-endian length (command + error code + payload, NOT counting the
// magic/length fields themselves), a 4-byte envelope command code, and a
// 4-byte envelope error code. This is distinct from the FINS header's own
// command code carried inside the payload. Grounded on the teacher's
// listener.go / sendInitFrame, generalized into a standalone codec so the
// Transport Adapter can frame and deframe without touching header.go.
const (
	TCPHeaderLength     = 16
	TCPMinFrameLength   = 8
	TCPCommandHeaderLen = 12
	tcpMagic            = "FINS"

	// Envelope command codes.
	EnvelopeCommandConnect uint32 = 0x00000000
	EnvelopeCommandSend    uint32 = 0x00000002

	// Envelope error codes (subset the client needs to recognize).
	EnvelopeErrorNone                uint32 = 0x00000000
	EnvelopeErrorNodeAddressInUse    uint32 = 0x00000001
	EnvelopeErrorAllNodesAddressUsed uint32 = 0x00000002
)

// TCPEnvelope is one FINS/TCP frame: the envelope header plus payload
// (for a connect request, the payload is the client's 4-byte node
// number; for a connect response, the client's and then the server's
// 4-byte node numbers; for a data frame, header||command||body).
type TCPEnvelope struct {
	Command uint32
	Error   uint32
	Payload []byte
}

// Encode serializes the envelope to its wire form.
func (e TCPEnvelope) Encode() []byte {
	buf := make([]byte, 16+len(e.Payload))
	copy(buf[0:4], tcpMagic)
	binary.BigEndian.PutUint32(buf[4:8], uint32(8+len(e.Payload)))
	binary.BigEndian.PutUint32(buf[8:12], e.Command)
	binary.BigEndian.PutUint32(buf[12:16], e.Error)
	copy(buf[16:], e.Payload)
	return buf
}

// DecodeTCPEnvelope parses a complete envelope (header + payload) off the
// front of data. Callers are expected to have already sized data to
// exactly one frame via SplitTCPFrame.
func DecodeTCPEnvelope(data []byte) (TCPEnvelope, error) {
	if len(data) < TCPHeaderLength {
		return TCPEnvelope{}, ProtocolError{Reason: "truncated FINS/TCP envelope"}
	}
	if string(data[0:4]) != tcpMagic {
		return TCPEnvelope{}, ProtocolError{Reason: "bad FINS/TCP magic"}
	}
	length := binary.BigEndian.Uint32(data[4:8])
	if length < TCPMinFrameLength {
		return TCPEnvelope{}, ProtocolError{Reason: "FINS/TCP length field too small"}
	}
	payloadLen := int(length) - 8
	if len(data) < 16+payloadLen {
		return TCPEnvelope{}, ProtocolError{Reason: "FINS/TCP envelope shorter than declared length"}
	}
	return TCPEnvelope{
		Command: binary.BigEndian.Uint32(data[8:12]),
		Error:   binary.BigEndian.Uint32(data[12:16]),
		Payload: data[16 : 16+payloadLen],
	}, nil
}

// SplitTCPFrame is a bufio.Scanner SplitFunc that resyncs to the next
// "FINS" magic on a bad header and waits for a complete frame before
// emitting a token, mirroring the teacher's finsSplitFunc.
func SplitTCPFrame(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if len(data) < 4 {
		return 0, nil, nil
	}

	magicAt := -1
	for i := 0; i+4 <= len(data); i++ {
		if string(data[i:i+4]) == tcpMagic {
			magicAt = i
			break
		}
	}
	if magicAt == -1 {
		// No magic anywhere in the buffer: drop everything except a
		// trailing partial match of "FINS" so a split magic still resyncs.
		keep := 3
		if len(data) < keep {
			keep = len(data)
		}
		return len(data) - keep, nil, nil
	}
	if magicAt > 0 {
		return magicAt, nil, nil
	}

	if len(data) < 8 {
		return 0, nil, nil
	}
	length := binary.BigEndian.Uint32(data[4:8])
	if length < TCPMinFrameLength || length > 1<<20 {
		// Bad length: resync past the magic we just matched.
		return 4, nil, nil
	}
	frameLen := int(length) + 8
	if len(data) < frameLen {
		if atEOF {
			return 0, nil, ProtocolError{Reason: "truncated FINS/TCP frame at EOF"}
		}
		return 0, nil, nil
	}

	frame := make([]byte, frameLen)
	copy(frame, data[:frameLen])
	return frameLen, frame, nil
}
