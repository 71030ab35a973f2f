package fins

import (
	"fmt"
	"time"
)

// Named error kinds the Protocol Engine and Sequence Manager raise.
// Each is a small struct implementing error, mirroring the teacher's
// ResponseTimeoutError / IncompatibleMemoryAreaError style so callers can
// type-switch on the kind they care about instead of parsing strings.

// InvalidAddressError is returned by the Address Codec when a symbolic
// address string fails to parse.
type InvalidAddressError struct {
	Input string
}

func (e InvalidAddressError) Error() string {
	return fmt.Sprintf("fins: invalid address %q", e.Input)
}

// UnknownAreaError is returned when an address's area mnemonic has no
// entry in the selected family's table.
type UnknownAreaError struct {
	Area   string
	Family PlcFamily
}

func (e UnknownAreaError) Error() string {
	return fmt.Sprintf("fins: unknown memory area %q for family %s", e.Area, e.Family)
}

// IncompatibleMemoryAreaError describes an operation expecting a word
// area (or bit area) being given the other kind. No operation in this
// package returns it; Encode picks the word or bit table from the address.
type IncompatibleMemoryAreaError struct {
	Area byte
}

func (e IncompatibleMemoryAreaError) Error() string {
	return fmt.Sprintf("fins: memory area 0x%02X is incompatible with the requested access mode", e.Area)
}

// InvalidParameterError covers validation failures: missing/zero counts,
// unsupported data widths, malformed option values.
type InvalidParameterError struct {
	Reason string
}

func (e InvalidParameterError) Error() string {
	return fmt.Sprintf("fins: invalid parameter: %s", e.Reason)
}

// QueueFullError is delivered on admission when activeCount >= maxQueue.
type QueueFullError struct {
	MaxQueue int
}

func (e QueueFullError) Error() string {
	return fmt.Sprintf("fins: queue full (max %d in-flight requests)", e.MaxQueue)
}

// SidInUseError describes a SID slot still occupied by a non-terminal
// sequence. SequenceManager.Add never returns it: Add skips occupied SIDs
// and returns QueueFullError only when all 254 are in use.
type SidInUseError struct {
	SID byte
}

func (e SidInUseError) Error() string {
	return fmt.Sprintf("fins: service id %d is still in use", e.SID)
}

// TimeoutError marks a request whose timer expired before a reply arrived.
type TimeoutError struct {
	SID      byte
	Duration time.Duration
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("fins: request sid=%d timed out after %s", e.SID, e.Duration)
}

// TransportError wraps a write failure or connection closure reported by
// the Transport Adapter.
type TransportError struct {
	Err error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("fins: transport error: %v", e.Err)
}

func (e TransportError) Unwrap() error { return e.Err }

// ProtocolError covers magic mismatches, truncated envelopes, unexpected
// command codes, and mismatched multi-read echoes. A response whose SID
// matches no in-flight request is logged and dropped, not raised as a
// ProtocolError.
type ProtocolError struct {
	Reason string
}

func (e ProtocolError) Error() string {
	return fmt.Sprintf("fins: protocol error: %s", e.Reason)
}

// EndCodeError surfaces a non-"0000" PLC end code. The spec treats this
// as a successful transaction at the transport level: it is attached to
// the Response rather than returned as a completion error, but the type
// exists so callers who want a Go error can wrap a Response in one.
type EndCodeError struct {
	Response *Response
}

func (e EndCodeError) Error() string {
	return fmt.Sprintf("fins: end code %s: %s", e.Response.EndCodeHex, e.Response.EndCodeDescription)
}

// BCDError is returned by the BCD decoder used by ReadClock.
type BCDError struct {
	Msg string
}

func (e BCDError) Error() string {
	return fmt.Sprintf("fins: BCD error: %s", e.Msg)
}
