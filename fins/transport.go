package fins

import (
	"bufio"
	"encoding/binary"
	"net"
	"time"
)

// NodeAddress is a FINS network/node/unit triple paired with the
// transport-level endpoint it resolves to. Grounded on the teacher's
// finsAddress/Address (address.go), kept distinct from the symbolic
// MemoryAddress codec above.
type NodeAddress struct {
	Network byte
	Node    byte
	Unit    byte
	Addr    net.Addr
}

// NewTCPNodeAddress resolves host:port to a NodeAddress for FINS/TCP.
func NewTCPNodeAddress(host string, port int, network, node, unit byte) (NodeAddress, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(host, itoa(port)))
	if err != nil {
		return NodeAddress{}, TransportError{Err: err}
	}
	return NodeAddress{Network: network, Node: node, Unit: unit, Addr: tcpAddr}, nil
}

// NewUDPNodeAddress resolves host:port to a NodeAddress for FINS/UDP.
func NewUDPNodeAddress(host string, port int, network, node, unit byte) (NodeAddress, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, itoa(port)))
	if err != nil {
		return NodeAddress{}, TransportError{Err: err}
	}
	return NodeAddress{Network: network, Node: node, Unit: unit, Addr: udpAddr}, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Transport is the Transport Adapter boundary the Protocol Engine talks
// to: send a fully-assembled Request and receive raw inbound payloads
// (already stripped of any envelope framing) on a channel. Both the TCP
// and UDP adapters implement this, letting the Protocol Engine stay
// ignorant of envelope framing and handshake details.
type Transport interface {
	Send(req Request) error
	Receive() <-chan []byte
	Errors() <-chan error
	LocalNode() (client, server byte)
	Close() error
}

// byteOrder is fixed at big-endian throughout the wire format; FINS
// defines all multi-byte integers MSB-first.
var byteOrder = binary.BigEndian

// TCPTransport implements Transport over FINS/TCP: it performs the
// connection handshake on dial, frames every Request in a 16-byte
// envelope, and demultiplexes inbound envelopes with a bufio.Scanner
// using SplitTCPFrame, mirroring the teacher's listenLoop.
type TCPTransport struct {
	conn       net.Conn
	clientNode byte
	serverNode byte
	recvCh     chan []byte
	errCh      chan error
	closed     chan struct{}
}

// DialTCP connects to addr, performs the FINS/TCP node-assignment
// handshake, and starts the receive loop.
func DialTCP(addr NodeAddress, dialTimeout time.Duration) (*TCPTransport, error) {
	conn, err := net.DialTimeout("tcp", addr.Addr.String(), dialTimeout)
	if err != nil {
		return nil, TransportError{Err: err}
	}

	t := &TCPTransport{
		conn:   conn,
		recvCh: make(chan []byte, 16),
		errCh:  make(chan error, 4),
		closed: make(chan struct{}),
	}

	if err := t.handshake(); err != nil {
		conn.Close()
		return nil, err
	}

	go t.listen()
	return t, nil
}

// SetKeepAlive enables or disables TCP keepalive on the underlying
// connection, and sets the probe interval when enabling it. A no-op if
// the connection isn't a *net.TCPConn.
func (t *TCPTransport) SetKeepAlive(enable bool, interval time.Duration) error {
	tcpConn, ok := t.conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tcpConn.SetKeepAlive(enable); err != nil {
		return TransportError{Err: err}
	}
	if enable {
		if err := tcpConn.SetKeepAlivePeriod(interval); err != nil {
			return TransportError{Err: err}
		}
	}
	return nil
}

// handshake performs the 20-byte-out/24-byte-in FINS/TCP node
// assignment, requesting node 0 (auto-assign) as the teacher does.
func (t *TCPTransport) handshake() error {
	req := TCPEnvelope{
		Command: EnvelopeCommandConnect,
		Error:   EnvelopeErrorNone,
		Payload: []byte{0x00, 0x00, 0x00, 0x00},
	}
	if _, err := t.conn.Write(req.Encode()); err != nil {
		return TransportError{Err: err}
	}

	resp := make([]byte, 24)
	if _, err := readFull(t.conn, resp); err != nil {
		return TransportError{Err: err}
	}
	env, err := DecodeTCPEnvelope(resp)
	if err != nil {
		return err
	}
	if env.Error != EnvelopeErrorNone {
		return ProtocolError{Reason: "FINS/TCP connect request refused"}
	}
	if len(env.Payload) < 8 {
		return ProtocolError{Reason: "truncated FINS/TCP connect response"}
	}
	t.clientNode = env.Payload[3]
	t.serverNode = env.Payload[7]
	return nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (t *TCPTransport) listen() {
	scanner := bufio.NewScanner(t.conn)
	scanner.Buffer(make([]byte, 4096), 1<<20)
	scanner.Split(SplitTCPFrame)
	for scanner.Scan() {
		frame := scanner.Bytes()
		env, err := DecodeTCPEnvelope(frame)
		if err != nil {
			t.errCh <- err
			continue
		}
		if env.Command != EnvelopeCommandSend {
			continue
		}
		payload := make([]byte, len(env.Payload))
		copy(payload, env.Payload)
		t.recvCh <- payload
	}
	if err := scanner.Err(); err != nil {
		select {
		case t.errCh <- TransportError{Err: err}:
		default:
		}
	}
	close(t.closed)
}

// Send frames req in a FINS/TCP data envelope and writes it.
func (t *TCPTransport) Send(req Request) error {
	env := TCPEnvelope{
		Command: EnvelopeCommandSend,
		Error:   EnvelopeErrorNone,
		Payload: req.Encode(byteOrder),
	}
	if _, err := t.conn.Write(env.Encode()); err != nil {
		return TransportError{Err: err}
	}
	return nil
}

// Receive returns the channel of inbound frame payloads.
func (t *TCPTransport) Receive() <-chan []byte { return t.recvCh }

// Errors returns the channel of transport-level errors.
func (t *TCPTransport) Errors() <-chan error { return t.errCh }

// LocalNode returns the node numbers assigned during the handshake.
func (t *TCPTransport) LocalNode() (client, server byte) {
	return t.clientNode, t.serverNode
}

// Close closes the underlying connection.
func (t *TCPTransport) Close() error {
	return t.conn.Close()
}

// UDPTransport implements Transport over FINS/UDP: one datagram is one
// FINS frame, no envelope framing at all.
type UDPTransport struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
	recvCh chan []byte
	errCh  chan error
}

// DialUDP opens a UDP socket to addr. FINS/UDP has no handshake.
func DialUDP(addr NodeAddress) (*UDPTransport, error) {
	udpAddr, ok := addr.Addr.(*net.UDPAddr)
	if !ok {
		return nil, InvalidParameterError{Reason: "UDP transport requires a resolved UDP address"}
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, TransportError{Err: err}
	}
	t := &UDPTransport{
		conn:   conn,
		remote: udpAddr,
		recvCh: make(chan []byte, 16),
		errCh:  make(chan error, 4),
	}
	go t.listen()
	return t, nil
}

func (t *UDPTransport) listen() {
	buf := make([]byte, 4096)
	for {
		n, err := t.conn.Read(buf)
		if err != nil {
			select {
			case t.errCh <- TransportError{Err: err}:
			default:
			}
			return
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		t.recvCh <- payload
	}
}

// Send writes req directly as one UDP datagram.
func (t *UDPTransport) Send(req Request) error {
	if _, err := t.conn.Write(req.Encode(byteOrder)); err != nil {
		return TransportError{Err: err}
	}
	return nil
}

// Receive returns the channel of inbound datagram payloads.
func (t *UDPTransport) Receive() <-chan []byte { return t.recvCh }

// Errors returns the channel of transport-level errors.
func (t *UDPTransport) Errors() <-chan error { return t.errCh }

// LocalNode returns (0, 0): FINS/UDP has no handshake-assigned nodes,
// the caller supplies SA1/DA1 directly via HeaderTemplate.
func (t *UDPTransport) LocalNode() (client, server byte) { return 0, 0 }

// Close closes the underlying socket.
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
