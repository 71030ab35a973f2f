package fins

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/havrevik/finsgo/mapping"
)

// TransportKind selects which Transport Adapter NewClient dials.
type TransportKind int

const (
	TransportTCP TransportKind = iota
	TransportUDP
)

// defaultMaxQueue bounds how many SIDs may be in flight at once before
// Command returns QueueFullError, independent of the 254-slot hard cap
// the Sequence Manager itself enforces.
const defaultMaxQueue = 50

// Client is the Protocol Engine: it validates requests, mints headers
// and wire addresses, tracks in-flight transactions via the Sequence
// Manager, and drives a Transport Adapter. Grounded on the teacher's
// Client (client.go) and generalized to the symbolic Address Codec, a
// pluggable Transport, and explicit admission control in place of the
// teacher's unbounded "retry incrementSid forever" fallback.
type Client struct {
	transport Transport
	seq       *SequenceManager
	headerTpl HeaderTemplate
	family    PlcFamily
	timeout   time.Duration
	maxQueue  int
	logger    *log.Logger

	dialer func() (Transport, error)

	done chan struct{}
}

// Option configures a Client at construction time.
type Option func(*clientConfig)

type clientConfig struct {
	kind        TransportKind
	port        int
	network     byte
	node        byte
	unit        byte
	srcNode     byte
	family      PlcFamily
	timeout     time.Duration
	maxQueue    int
	logger      *log.Logger
	dialTimeout time.Duration
}

// WithUDP selects the FINS/UDP transport (default is TCP).
func WithUDP() Option { return func(c *clientConfig) { c.kind = TransportUDP } }

// WithPort overrides the default FINS port (9600).
func WithPort(port int) Option { return func(c *clientConfig) { c.port = port } }

// WithDestination sets the PLC's network/node/unit triple.
func WithDestination(network, node, unit byte) Option {
	return func(c *clientConfig) { c.network, c.node, c.unit = network, node, unit }
}

// WithSourceNode sets the client's own node number for FINS/UDP, where
// there is no handshake to assign one automatically.
func WithSourceNode(node byte) Option {
	return func(c *clientConfig) { c.srcNode = node }
}

// WithFamily selects the PLC family's address table (default FamilyCS).
func WithFamily(f PlcFamily) Option { return func(c *clientConfig) { c.family = f } }

// WithTimeout sets the per-request response timeout (default 2s).
func WithTimeout(d time.Duration) Option { return func(c *clientConfig) { c.timeout = d } }

// WithMaxQueue bounds in-flight requests before Command returns
// QueueFullError (default 50).
func WithMaxQueue(n int) Option { return func(c *clientConfig) { c.maxQueue = n } }

// WithLogger overrides the default logger (log.Default()).
func WithLogger(l *log.Logger) Option { return func(c *clientConfig) { c.logger = l } }

// NewClient dials host and returns a ready Client. Per the spec, FINS/TCP
// performs a node-assignment handshake before any command may be sent;
// FINS/UDP has no handshake and relies on WithSourceNode/WithDestination.
func NewClient(host string, opts ...Option) (*Client, error) {
	cfg := clientConfig{
		kind:        TransportTCP,
		port:        9600,
		family:      FamilyCS,
		timeout:     2 * time.Second,
		maxQueue:    defaultMaxQueue,
		logger:      log.Default(),
		dialTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	dialer := func() (Transport, error) {
		switch cfg.kind {
		case TransportUDP:
			addr, err := NewUDPNodeAddress(host, cfg.port, cfg.network, cfg.node, cfg.unit)
			if err != nil {
				return nil, err
			}
			return DialUDP(addr)
		default:
			addr, err := NewTCPNodeAddress(host, cfg.port, cfg.network, cfg.node, cfg.unit)
			if err != nil {
				return nil, err
			}
			return DialTCP(addr, cfg.dialTimeout)
		}
	}

	t, err := dialer()
	if err != nil {
		return nil, err
	}

	tpl := DefaultHeaderTemplate()
	tpl.DNA = cfg.network
	tpl.DA1 = cfg.node
	tpl.DA2 = cfg.unit

	if cfg.kind == TransportUDP {
		tpl.SA1 = cfg.srcNode
	} else {
		clientNode, serverNode := t.LocalNode()
		tpl.SA1 = clientNode
		if cfg.node == 0 {
			tpl.DA1 = serverNode
		}
	}

	c := &Client{
		transport: t,
		seq:       NewSequenceManager(),
		headerTpl: tpl,
		family:    cfg.family,
		timeout:   cfg.timeout,
		maxQueue:  cfg.maxQueue,
		logger:    cfg.logger,
		dialer:    dialer,
		done:      make(chan struct{}),
	}

	go c.dispatchLoop()
	return c, nil
}

// dispatchLoop reads inbound frames off the transport and completes the
// matching sequence by SID, mirroring the teacher's channelHandler.
func (c *Client) dispatchLoop() {
	for {
		select {
		case <-c.done:
			return
		case raw, ok := <-c.transport.Receive():
			if !ok {
				return
			}
			resp, err := DecodeResponse(raw, byteOrder)
			if err != nil {
				c.logger.Printf("fins: dropping malformed response: %v", err)
				continue
			}
			if wantCmd, ok := c.seq.CommandFor(resp.Header.SID); ok && wantCmd != resp.Command {
				c.seq.SetError(resp.Header.SID, ProtocolError{
					Reason: fmt.Sprintf("response command code 0x%04X does not match request command 0x%04X", uint16(resp.Command), uint16(wantCmd)),
				})
				continue
			}
			if !c.seq.Complete(resp.Header.SID, resp) {
				c.logger.Printf("fins: response for unknown or already-resolved sid %d", resp.Header.SID)
			}
		case err, ok := <-c.transport.Errors():
			if !ok {
				return
			}
			c.logger.Printf("fins: transport error: %v", err)
		}
	}
}

// QueueCount returns the number of requests currently awaiting a reply.
func (c *Client) QueueCount() int {
	return c.seq.ActiveCount()
}

// Stats returns the current rolling round-trip/throughput snapshot.
func (c *Client) Stats() Stats {
	return c.seq.Snapshot()
}

// SetKeepAlive configures TCP keepalive on the underlying connection.
// A no-op when the client was constructed with WithUDP.
func (c *Client) SetKeepAlive(enable bool, interval time.Duration) error {
	if t, ok := c.transport.(*TCPTransport); ok {
		return t.SetKeepAlive(enable, interval)
	}
	return nil
}

// StringToFinsAddress parses a symbolic address string. Parsing does not
// depend on the client's PLC family; the family applies only when the
// address is encoded for the wire.
func (c *Client) StringToFinsAddress(s string) (MemoryAddress, error) {
	return ParseAddress(s)
}

// FinsAddressToString renders addr back to its canonical string form
// with the given word/bit offset applied.
func (c *Client) FinsAddressToString(addr MemoryAddress, offsetWd uint16, offsetBit byte) string {
	return Render(addr, offsetWd, offsetBit)
}

// command is the generic dispatcher every public operation funnels
// through: admission control, header mint, send, and a blocking wait
// on the sequence's reply channel (or ctx cancellation).
func (c *Client) command(ctx context.Context, code mapping.CommandCode, body []byte, override *RoutingOverride) (Response, error) {
	if c.seq.ActiveCount() >= c.maxQueue {
		return Response{}, QueueFullError{MaxQueue: c.maxQueue}
	}

	seq, err := c.seq.Add(code)
	if err != nil {
		return Response{}, err
	}

	hdr := c.headerTpl.Apply(override).Header(seq.sid)
	req := Request{Header: hdr, Command: code, Body: body}

	if err := c.transport.Send(req); err != nil {
		c.seq.SetError(seq.sid, err)
		<-seq.replyCh
		return Response{}, err
	}
	c.seq.ConfirmSent(seq.sid, c.timeout)

	select {
	case res := <-seq.replyCh:
		if res.Err != nil {
			return Response{}, res.Err
		}
		return res.Response, nil
	case <-ctx.Done():
		c.seq.Remove(seq.sid)
		return Response{}, ctx.Err()
	}
}

// Read issues a Memory Area Read for itemCount words (or bits, per
// addr's mode) starting at addr. On success, the response's Words or
// Bools field carries the decoded payload (chosen by addr.IsBitAddress),
// alongside the raw Data bytes.
func (c *Client) Read(ctx context.Context, addr MemoryAddress, itemCount uint16) (Response, error) {
	wire, err := Encode(addr, c.family)
	if err != nil {
		return Response{}, err
	}
	resp, err := c.command(ctx, mapping.CommandCodeMemoryAreaRead, ReadBody(wire, itemCount), nil)
	if err != nil {
		return Response{}, err
	}
	if resp.Succeeded() {
		words, bools, derr := decodeReadValues(addr, resp.Data)
		if derr != nil {
			return resp, derr
		}
		resp.Words = words
		resp.Bools = bools
	}
	return resp, nil
}

// Write issues a Memory Area Write of data (itemCount words or bits) to addr.
func (c *Client) Write(ctx context.Context, addr MemoryAddress, itemCount uint16, data []byte) (Response, error) {
	wire, err := Encode(addr, c.family)
	if err != nil {
		return Response{}, err
	}
	return c.command(ctx, mapping.CommandCodeMemoryAreaWrite, WriteBody(wire, itemCount, data), nil)
}

// Fill issues a Memory Area Fill, writing value to itemCount consecutive
// words starting at addr.
func (c *Client) Fill(ctx context.Context, addr MemoryAddress, itemCount uint16, value [2]byte) (Response, error) {
	wire, err := Encode(addr, c.family)
	if err != nil {
		return Response{}, err
	}
	return c.command(ctx, mapping.CommandCodeMemoryAreaFill, FillBody(wire, itemCount, value), nil)
}

// ReadMultiple issues a Multiple Memory Area Read across addrs, each
// item one word (or bit) wide. On success, the response's MultiValues
// field carries one decoded item per address, in request order, with
// each item's echoed area code validated against what was requested.
func (c *Client) ReadMultiple(ctx context.Context, addrs []MemoryAddress) (Response, error) {
	items := make([]MultipleMemoryReadItem, 0, len(addrs))
	wires := make([]WireAddress, 0, len(addrs))
	for _, a := range addrs {
		wire, err := Encode(a, c.family)
		if err != nil {
			return Response{}, err
		}
		items = append(items, MultipleMemoryReadItem{Addr: wire})
		wires = append(wires, wire)
	}
	resp, err := c.command(ctx, mapping.CommandCodeMultipleMemoryRead, MultipleReadBody(items), nil)
	if err != nil {
		return Response{}, err
	}
	if resp.Succeeded() {
		values, derr := decodeMultiReadValues(addrs, wires, resp.Data)
		if derr != nil {
			return resp, derr
		}
		resp.MultiValues = values
	}
	return resp, nil
}

// Transfer issues a Memory Area Transfer, copying itemCount words from
// src to dst inside the PLC.
func (c *Client) Transfer(ctx context.Context, src, dst MemoryAddress, itemCount uint16) (Response, error) {
	srcWire, err := Encode(src, c.family)
	if err != nil {
		return Response{}, err
	}
	dstWire, err := Encode(dst, c.family)
	if err != nil {
		return Response{}, err
	}
	return c.command(ctx, mapping.CommandCodeMemoryAreaTransfer, TransferBody(srcWire, dstWire, itemCount), nil)
}

// Run switches the PLC to RUN mode.
func (c *Client) Run(ctx context.Context) (Response, error) {
	return c.command(ctx, mapping.CommandCodeRun, RunBody(), nil)
}

// Stop switches the PLC to PROGRAM mode.
func (c *Client) Stop(ctx context.Context) (Response, error) {
	return c.command(ctx, mapping.CommandCodeStop, StopBody(), nil)
}

// Status issues a Controller Status Read.
func (c *Client) Status(ctx context.Context) (Response, error) {
	return c.command(ctx, mapping.CommandCodeControllerStatus, StatusBody(), nil)
}

// CPUUnitDataRead issues a Controller Data Read. On success, the
// response's CPUUnitData field carries the decoded model, version,
// DIP-switch and CPU bus unit configuration.
func (c *Client) CPUUnitDataRead(ctx context.Context) (Response, error) {
	resp, err := c.command(ctx, mapping.CommandCodeControllerDataRead, CPUUnitDataReadBody(), nil)
	if err != nil {
		return Response{}, err
	}
	if resp.Succeeded() {
		data, derr := decodeCPUUnitData(resp.Data)
		if derr != nil {
			return resp, derr
		}
		resp.CPUUnitData = data
	}
	return resp, nil
}

// Command issues an arbitrary command body with a caller-supplied
// command code, for operations the Protocol Engine doesn't wrap
// directly. override, if non-nil, replaces the destination routing for
// this call only (useful for one-off cross-network addressing).
func (c *Client) Command(ctx context.Context, code mapping.CommandCode, body []byte, override *RoutingOverride) (Response, error) {
	return c.command(ctx, code, body, override)
}

// Close stops the dispatch loop, releases every waiting sequence with a
// closed-connection error, and closes the transport.
func (c *Client) Close() error {
	close(c.done)
	c.seq.Close()
	return c.transport.Close()
}

// Reconnect closes the current transport and redials once with the same
// configuration. health.go's ReconnectWithBackoff retries it along a
// backoff ladder.
func (c *Client) Reconnect() error {
	c.transport.Close()
	t, err := c.dialer()
	if err != nil {
		return err
	}
	c.transport = t
	return nil
}
