package fins

import (
	"context"
	"time"

	"github.com/havrevik/finsgo/mapping"
)

// FatalErrorCode is a bitmask over one 16-bit error word returned by
// Controller Status Read. The teacher's healthOps.go references this
// type (PLCStatus.FatalError) without ever defining it; this fills that
// gap, modeled as a flat uint16 per byte pair the way mapping.StatusCode
// models the status byte.
type FatalErrorCode uint16

// HasFatalError reports whether any bit of the error word is set.
func (f FatalErrorCode) HasFatalError() bool {
	return f != 0
}

// PLCStatus is the decoded result of a Controller Status Read: run
// status, operating mode, and the fatal/non-fatal error bitmasks that
// follow them in the response payload.
type PLCStatus struct {
	Status        mapping.StatusCode
	Mode          mapping.ModeCode
	FatalError    FatalErrorCode
	NonFatalError FatalErrorCode
}

// IsRunning reports whether the PLC is in the RUN status.
func (s PLCStatus) IsRunning() bool { return s.Status == mapping.StatusRun }

// IsStopped reports whether the PLC is in the STOP status.
func (s PLCStatus) IsStopped() bool { return s.Status == mapping.StatusStop }

// IsStandby reports whether the PLC is in the STANDBY status.
func (s PLCStatus) IsStandby() bool { return s.Status == mapping.StatusStandby }

// HasFatalError reports whether the fatal error bitmask is non-zero.
func (s PLCStatus) HasFatalError() bool { return s.FatalError.HasFatalError() }

// HasError reports whether either the fatal or non-fatal error bitmask
// is non-zero.
func (s PLCStatus) HasError() bool {
	return s.FatalError.HasFatalError() || s.NonFatalError.HasFatalError()
}

// decodeStatus parses data[0]=status, data[1]=mode, data[2:4]=fatal
// error bitmask, data[4:6]=non-fatal error bitmask. The published FINS
// reference carries further per-flag detail after these words; this
// keeps only one word each for fatal and non-fatal errors, enough to answer
// HasFatalError/HasError without committing to a full flag enumeration
// the spec never lists bit-by-bit.
func decodeStatus(data []byte) (PLCStatus, error) {
	if len(data) < 6 {
		return PLCStatus{}, ProtocolError{Reason: "short controller status payload"}
	}
	return PLCStatus{
		Status:        mapping.StatusCode(data[0]),
		Mode:          mapping.ModeCode(data[1]),
		FatalError:    FatalErrorCode(uint16(data[2])<<8 | uint16(data[3])),
		NonFatalError: FatalErrorCode(uint16(data[4])<<8 | uint16(data[5])),
	}, nil
}

// ReadStatus issues a Controller Status Read and decodes the result.
func (c *Client) ReadStatus(ctx context.Context) (PLCStatus, error) {
	resp, err := c.Status(ctx)
	if err != nil {
		return PLCStatus{}, err
	}
	if !resp.Succeeded() {
		return PLCStatus{}, EndCodeError{Response: &resp}
	}
	return decodeStatus(resp.Data)
}

// reconnectBackoff is the retry ladder ReconnectWithBackoff walks, matching the
// teacher's healthOps.go Reconnect.
var reconnectBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second}

// ReconnectWithBackoff retries Reconnect along the backoff ladder,
// giving up and returning the last error once the ladder is exhausted
// or ctx is canceled.
func (c *Client) ReconnectWithBackoff(ctx context.Context) error {
	var lastErr error
	for _, delay := range reconnectBackoff {
		err := c.Reconnect()
		if err == nil {
			return nil
		}
		lastErr = err
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// Ping checks liveness by issuing a Clock Read, matching the teacher's
// convention of using a cheap read-only command as a heartbeat.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ReadClock(ctx)
	return err
}
