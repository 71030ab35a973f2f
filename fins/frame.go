package fins

import (
	"encoding/binary"
	"fmt"

	"github.com/havrevik/finsgo/mapping"
)

// Request is a decoded FINS frame: header, command code and command-body
// parameters, assembled by the Protocol Engine and handed to the
// Transport Adapter for framing and delivery.
type Request struct {
	Header  Header
	Command mapping.CommandCode
	Body    []byte
}

// Encode serializes the request as header || command || body.
func (r Request) Encode(byteOrder binary.ByteOrder) []byte {
	buf := make([]byte, 0, 10+2+len(r.Body))
	buf = append(buf, r.Header.Encode()...)
	cmd := make([]byte, 2)
	byteOrder.PutUint16(cmd, uint16(r.Command))
	buf = append(buf, cmd...)
	buf = append(buf, r.Body...)
	return buf
}

// DecodeRequest parses a Request out of a frame body (header || command
// || body), the inverse of Encode. Used by the in-process simulator to
// play the PLC side of the protocol.
func DecodeRequest(data []byte, byteOrder binary.ByteOrder) (Request, error) {
	hdr, err := DecodeHeader(data)
	if err != nil {
		return Request{}, err
	}
	rest := data[10:]
	if len(rest) < 2 {
		return Request{}, ProtocolError{Reason: "truncated FINS request"}
	}
	return Request{
		Header:  hdr,
		Command: mapping.CommandCode(byteOrder.Uint16(rest[0:2])),
		Body:    rest[2:],
	}, nil
}

// Response is a decoded FINS reply: header, echoed command code, end
// code and any trailing data payload.
//
// MRES/SRES are the raw end-code bytes exactly as received; EndCode is
// the masked combination of the two that drives Succeeded and the
// description table lookup; EndCodeHex is EndCode rendered as a
// lowercase, zero-padded 4-digit hex string, per the Frame Codec's
// string representation of an end code. NetworkRelayError,
// FatalCPUUnitError and NonFatalCPUUnitError surface the three
// out-of-band error categories the end code's high bits carry.
type Response struct {
	Header               Header
	Command              mapping.CommandCode
	MRES                 byte
	SRES                 byte
	EndCode              uint16
	EndCodeHex           string
	EndCodeDescription   string
	NetworkRelayError    bool
	FatalCPUUnitError    bool
	NonFatalCPUUnitError bool
	Data                 []byte

	// Words and Bools carry a Memory Area Read response's decoded
	// payload, populated only by Client.Read: a word address fills
	// Words (one big-endian int16 per 2-byte item), a bit address
	// fills Bools (one bool per 0x00/0x01 byte). Both are nil for
	// every other command.
	Words []int16
	Bools []bool

	// MultiValues carries a Multiple Memory Area Read response's
	// decoded payload, populated only by Client.ReadMultiple; nil for
	// every other command.
	MultiValues []MultiReadValue

	// CPUUnitData carries a Controller Data Read response's decoded
	// payload, populated only by Client.CPUUnitDataRead; nil for every
	// other command.
	CPUUnitData *CPUUnitData
}

// Succeeded reports whether the PLC's end code is EndCodeNormalCompletion.
func (r Response) Succeeded() bool {
	return r.EndCode == mapping.EndCodeNormalCompletion
}

// Encode serializes the response as header || command || endcode || data,
// the inverse of DecodeResponse. Used by the in-process simulator to
// build replies. The raw MRES/SRES bytes are written back verbatim,
// preserving any error-flag bits EndCode's masked form would otherwise
// lose.
func (r Response) Encode(byteOrder binary.ByteOrder) []byte {
	buf := make([]byte, 0, 10+4+len(r.Data))
	buf = append(buf, r.Header.Encode()...)
	tail := make([]byte, 4)
	byteOrder.PutUint16(tail[0:2], uint16(r.Command))
	tail[2] = r.MRES
	tail[3] = r.SRES
	buf = append(buf, tail...)
	buf = append(buf, r.Data...)
	return buf
}

// decodeEndCode splits the raw MRES/SRES end-code bytes into the masked
// end code reported to callers plus the three error-category flags
// carried in their high bits: bit 0x80 of MRES is a network relay
// error, bit 0x80 of SRES a fatal CPU unit error, bit 0x40 of SRES a
// non-fatal one.
//
// The spec's literal mask for SRES (0x2F) also clears bit 0x40, which
// would erase the non-fatal flag bit from the reported code even on the
// spec's own worked boundary scenario (end code bytes 0xC0/0x40, which
// the spec states resolves to endCode "0040" with
// nonFatalCpuUnitError=true). Masking SRES with 0x7F instead, clearing
// only the fatal-error bit and leaving the non-fatal one as part of the
// numeric code, is what reproduces that scenario, so that's what's
// applied here; MRES keeps the documented 0x3F.
func decodeEndCode(mres, sres byte) (code uint16, networkRelayError, fatalCPUUnitError, nonFatalCPUUnitError bool) {
	networkRelayError = mres&0x80 != 0
	fatalCPUUnitError = sres&0x80 != 0
	nonFatalCPUUnitError = sres&0x40 != 0
	code = uint16(mres&0x3F)<<8 | uint16(sres&0x7F)
	return
}

// endCodeHex renders code as the spec's lowercase, zero-padded 4-digit
// hex string.
func endCodeHex(code uint16) string {
	return fmt.Sprintf("%04x", code)
}

// NewResponse builds a Response that echoes req's header and command
// with the given end code and data payload. endCode is the combined
// 16-bit MRES<<8|SRES value (mapping's EndCode* constants are already
// in this form and carry no error-flag bits).
func NewResponse(req Request, endCode uint16, data []byte) Response {
	mres := byte(endCode >> 8)
	sres := byte(endCode)
	code, netRelay, fatal, nonFatal := decodeEndCode(mres, sres)
	return Response{
		Header:               req.Header,
		Command:              req.Command,
		MRES:                 mres,
		SRES:                 sres,
		EndCode:              code,
		EndCodeHex:           endCodeHex(code),
		EndCodeDescription:   mapping.EndCodeDescription(code),
		NetworkRelayError:    netRelay,
		FatalCPUUnitError:    fatal,
		NonFatalCPUUnitError: nonFatal,
		Data:                 data,
	}
}

// DecodeResponse parses a Response out of a frame body (everything after
// the FINS/TCP envelope, i.e. header || command || endcode || data).
func DecodeResponse(data []byte, byteOrder binary.ByteOrder) (Response, error) {
	hdr, err := DecodeHeader(data)
	if err != nil {
		return Response{}, err
	}
	rest := data[10:]
	if len(rest) < 4 {
		return Response{}, ProtocolError{Reason: "truncated FINS response"}
	}
	cmd := mapping.CommandCode(byteOrder.Uint16(rest[0:2]))
	mres, sres := rest[2], rest[3]
	code, netRelay, fatal, nonFatal := decodeEndCode(mres, sres)
	return Response{
		Header:               hdr,
		Command:              cmd,
		MRES:                 mres,
		SRES:                 sres,
		EndCode:              code,
		EndCodeHex:           endCodeHex(code),
		EndCodeDescription:   mapping.EndCodeDescription(code),
		NetworkRelayError:    netRelay,
		FatalCPUUnitError:    fatal,
		NonFatalCPUUnitError: nonFatal,
		Data:                 rest[4:],
	}, nil
}

// --- Command body builders ---
//
// Each builder returns the command-specific parameter bytes that follow
// the 2-byte command code; the Protocol Engine prepends header+command
// via Request.Encode. Grounded on the teacher's command.go/readOps.go/
// writeOps.go, generalized from raw byte/offset pairs onto WireAddress.

// ReadBody builds the Memory Area Read (0101) parameter bytes.
func ReadBody(addr WireAddress, itemCount uint16) []byte {
	buf := make([]byte, 6)
	copy(buf[0:4], addr.Bytes())
	binary.BigEndian.PutUint16(buf[4:6], itemCount)
	return buf
}

// WriteBody builds the Memory Area Write (0102) parameter bytes.
func WriteBody(addr WireAddress, itemCount uint16, data []byte) []byte {
	buf := make([]byte, 6+len(data))
	copy(buf[0:4], addr.Bytes())
	binary.BigEndian.PutUint16(buf[4:6], itemCount)
	copy(buf[6:], data)
	return buf
}

// FillBody builds the Memory Area Fill (0103) parameter bytes.
func FillBody(addr WireAddress, itemCount uint16, value [2]byte) []byte {
	buf := make([]byte, 8)
	copy(buf[0:4], addr.Bytes())
	binary.BigEndian.PutUint16(buf[4:6], itemCount)
	copy(buf[6:8], value[:])
	return buf
}

// MultipleMemoryReadItem is one (area-qualified) address requested by a
// Multiple Memory Area Read (0104) command.
type MultipleMemoryReadItem struct {
	Addr WireAddress
}

// MultipleReadBody builds the Multiple Memory Area Read parameter bytes:
// a flat concatenation of 4-byte addresses, one per requested item.
func MultipleReadBody(items []MultipleMemoryReadItem) []byte {
	buf := make([]byte, 0, 4*len(items))
	for _, it := range items {
		buf = append(buf, it.Addr.Bytes()...)
	}
	return buf
}

// TransferBody builds the Memory Area Transfer (0105) parameter bytes:
// source address, destination address, item count.
func TransferBody(src, dst WireAddress, itemCount uint16) []byte {
	buf := make([]byte, 10)
	copy(buf[0:4], src.Bytes())
	copy(buf[4:8], dst.Bytes())
	binary.BigEndian.PutUint16(buf[8:10], itemCount)
	return buf
}

// RunBody builds the Run (0401) parameter bytes: the 2-byte program
// number 0xFFFF (the teacher's convention). No mode byte is sent.
func RunBody() []byte {
	return []byte{0xFF, 0xFF}
}

// StopBody builds the Stop (0402) parameter bytes; it carries no payload.
func StopBody() []byte {
	return nil
}

// StatusBody builds the Controller Status Read (0601) parameter bytes;
// it carries no payload.
func StatusBody() []byte {
	return nil
}

// CPUUnitDataReadBody builds the Controller Data Read (0501) parameter
// bytes; it carries no payload.
func CPUUnitDataReadBody() []byte {
	return nil
}

// ClockReadBody builds the Clock Read (0701) parameter bytes; it carries
// no payload.
func ClockReadBody() []byte {
	return nil
}
