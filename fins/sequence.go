package fins

import (
	"sync"
	"time"

	"github.com/havrevik/finsgo/mapping"
)

// sequenceState tracks where one in-flight transaction is in its life
// cycle. Pending means registered but not yet handed to the Transport
// Adapter; Sent means the write succeeded and a timer is running;
// Complete/TimedOut/Errored are terminal.
type sequenceState int

const (
	statePending sequenceState = iota
	stateSent
	stateComplete
	stateTimedOut
	stateErrored
)

// sequence is one Sequence Manager slot: a SID, its state, the response
// channel the caller blocks on, and the timer guarding it.
type sequence struct {
	sid       uint8
	command   mapping.CommandCode
	state     sequenceState
	submitted time.Time
	sent      time.Time
	timer     *time.Timer
	replyCh   chan sequenceResult
}

// sequenceResult is what a completed/timed-out/errored sequence delivers
// to its waiting caller.
type sequenceResult struct {
	Response Response
	Err      error
}

// SID returns the service id this sequence was allocated.
func (s *sequence) SID() uint8 { return s.sid }

// Wait returns the channel the sequence's terminal result is delivered
// on. The Protocol Engine uses this internally; exposed so tests can
// drive the Sequence Manager directly without a live transport.
func (s *sequence) Wait() <-chan sequenceResult { return s.replyCh }

// sampleWindow is the rolling round-trip sample count the spec's stats
// snapshot is computed over.
const sampleWindow = 50

// SequenceManager multiplexes concurrent requests over the 1-254 SID
// space, tracks each one's lifecycle, and maintains rolling round-trip
// and throughput statistics. Grounded on the teacher's incrementSid/resp
// map (header.go, listener.go), generalized into its own component with
// explicit states instead of a bare channel map, since the teacher's
// design let two callers collide silently on SID reuse under load.
type SequenceManager struct {
	mu       sync.Mutex
	next     uint8
	active   map[uint8]*sequence
	samples  []time.Duration
	sampleAt int

	mpsWindowStart time.Time
	mpsCount       int
	lastMPS        float64
}

// NewSequenceManager returns a manager with an empty active set, SIDs
// starting at 1 (0 is reserved, matching the teacher's convention of
// never minting SID 0).
func NewSequenceManager() *SequenceManager {
	return &SequenceManager{
		next:           1,
		active:         make(map[uint8]*sequence),
		mpsWindowStart: time.Time{},
	}
}

// ActiveCount returns the number of sequences not yet in a terminal state.
func (m *SequenceManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// FreeSpace returns how many more sequences could be admitted before
// exhausting the 254-slot SID space.
func (m *SequenceManager) FreeSpace() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return 254 - len(m.active)
}

// Add allocates the next free SID and registers a Pending sequence for
// it, remembering cmd so the dispatch loop can later check that the
// response's command code agrees with what was actually sent. Returns
// QueueFullError if every SID in 1..254 is currently active.
func (m *SequenceManager) Add(cmd mapping.CommandCode) (*sequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.active) >= 254 {
		return nil, QueueFullError{MaxQueue: 254}
	}

	for i := 0; i < 254; i++ {
		sid := m.next
		m.next++
		if m.next == 0 || m.next > 254 {
			m.next = 1
		}
		if _, inUse := m.active[sid]; !inUse {
			seq := &sequence{
				sid:       sid,
				command:   cmd,
				state:     statePending,
				submitted: now(),
				replyCh:   make(chan sequenceResult, 1),
			}
			m.active[sid] = seq
			return seq, nil
		}
	}
	return nil, QueueFullError{MaxQueue: 254}
}

// CommandFor returns the command code the still-active sequence sid was
// registered with, without altering its state. Used by the dispatch
// loop to validate an inbound response's echoed command code before
// delivering it.
func (m *SequenceManager) CommandFor(sid uint8) (mapping.CommandCode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq, ok := m.active[sid]
	if !ok {
		return 0, false
	}
	return seq.command, true
}

// ConfirmSent marks sid as handed off to the transport and starts its
// timeout timer, which delivers a TimeoutError on expiry if the sequence
// hasn't already completed.
func (m *SequenceManager) ConfirmSent(sid uint8, timeout time.Duration) {
	m.mu.Lock()
	seq, ok := m.active[sid]
	if !ok {
		m.mu.Unlock()
		return
	}
	seq.state = stateSent
	seq.sent = now()
	seq.timer = time.AfterFunc(timeout, func() { m.timeoutSequence(sid, timeout) })
	m.mu.Unlock()
}

func (m *SequenceManager) timeoutSequence(sid uint8, timeout time.Duration) {
	m.mu.Lock()
	seq, ok := m.active[sid]
	if !ok || seq.state == stateComplete || seq.state == stateErrored {
		m.mu.Unlock()
		return
	}
	seq.state = stateTimedOut
	delete(m.active, sid)
	m.mu.Unlock()

	seq.replyCh <- sequenceResult{Err: TimeoutError{SID: sid, Duration: timeout}}
}

// Complete delivers resp to the sequence's waiter, records a round-trip
// sample, and removes the sequence from the active set.
func (m *SequenceManager) Complete(sid uint8, resp Response) bool {
	m.mu.Lock()
	seq, ok := m.active[sid]
	if !ok || seq.state == stateComplete || seq.state == stateTimedOut || seq.state == stateErrored {
		m.mu.Unlock()
		return false
	}
	if seq.timer != nil {
		seq.timer.Stop()
	}
	seq.state = stateComplete
	delete(m.active, sid)
	m.recordSample(now().Sub(seq.submitted))
	m.recordMessage()
	m.mu.Unlock()

	seq.replyCh <- sequenceResult{Response: resp}
	return true
}

// SetError aborts sid with a transport-level error (e.g. a write
// failure) rather than a protocol response.
func (m *SequenceManager) SetError(sid uint8, err error) {
	m.mu.Lock()
	seq, ok := m.active[sid]
	if !ok || seq.state == stateComplete || seq.state == stateTimedOut || seq.state == stateErrored {
		m.mu.Unlock()
		return
	}
	if seq.timer != nil {
		seq.timer.Stop()
	}
	seq.state = stateErrored
	delete(m.active, sid)
	m.mu.Unlock()

	seq.replyCh <- sequenceResult{Err: err}
}

// Remove drops sid from the active set without delivering any result,
// used when a caller abandons a wait (e.g. on context cancellation).
func (m *SequenceManager) Remove(sid uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq, ok := m.active[sid]; ok {
		if seq.timer != nil {
			seq.timer.Stop()
		}
		delete(m.active, sid)
	}
}

// recordSample appends d to the rolling window, evicting the oldest
// sample once the window is full. Caller holds m.mu.
func (m *SequenceManager) recordSample(d time.Duration) {
	if len(m.samples) < sampleWindow {
		m.samples = append(m.samples, d)
		return
	}
	m.samples[m.sampleAt] = d
	m.sampleAt = (m.sampleAt + 1) % sampleWindow
}

// recordMessage buckets one completed message into the current 1000ms
// sampling window, resampling lastMPS when the window rolls over. Caller
// holds m.mu.
func (m *SequenceManager) recordMessage() {
	t := now()
	if m.mpsWindowStart.IsZero() {
		m.mpsWindowStart = t
	}
	elapsed := t.Sub(m.mpsWindowStart)
	if elapsed >= time.Second {
		m.lastMPS = float64(m.mpsCount) / elapsed.Seconds()
		m.mpsCount = 0
		m.mpsWindowStart = t
	}
	m.mpsCount++
}

// Stats is a point-in-time snapshot of the Sequence Manager's rolling
// round-trip and throughput statistics.
type Stats struct {
	SampleCount       int
	MinRoundTrip      time.Duration
	MaxRoundTrip      time.Duration
	AverageRoundTrip  time.Duration
	MessagesPerSecond float64
	ActiveCount       int
}

// Snapshot computes Stats from the current rolling window.
func (m *SequenceManager) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		SampleCount:       len(m.samples),
		MessagesPerSecond: m.lastMPS,
		ActiveCount:       len(m.active),
	}
	if len(m.samples) == 0 {
		return s
	}
	var total time.Duration
	s.MinRoundTrip = m.samples[0]
	s.MaxRoundTrip = m.samples[0]
	for _, d := range m.samples {
		total += d
		if d < s.MinRoundTrip {
			s.MinRoundTrip = d
		}
		if d > s.MaxRoundTrip {
			s.MaxRoundTrip = d
		}
	}
	s.AverageRoundTrip = total / time.Duration(len(m.samples))
	return s
}

// Close aborts every active sequence with a transport-closed error,
// unblocking anyone waiting on a reply.
func (m *SequenceManager) Close() {
	m.mu.Lock()
	active := make([]*sequence, 0, len(m.active))
	for _, seq := range m.active {
		if seq.timer != nil {
			seq.timer.Stop()
		}
		active = append(active, seq)
	}
	m.active = make(map[uint8]*sequence)
	m.mu.Unlock()

	for _, seq := range active {
		seq.replyCh <- sequenceResult{Err: TransportError{Err: errClosed}}
	}
}

var errClosed = ProtocolError{Reason: "connection closed"}

// now is a seam over time.Now so sequence.go has a single call site if a
// deterministic clock is ever substituted in tests.
func now() time.Time {
	return time.Now()
}
