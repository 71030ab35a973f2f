// Package simulator is a minimal soft-PLC used only by this module's own
// tests. It speaks enough of FINS/TCP to exercise the Protocol Engine
// end-to-end: the node-assignment handshake, Memory Area Read/Write/Fill
// and Multiple Memory Area Read against a DM word and bit area,
// Controller Status Read, Controller Data Read, Run/Stop, and Clock
// Read. It does not model ladder logic, scan cycles, or any other part
// of an actual controller.
package simulator

import (
	"bufio"
	"encoding/binary"
	"log"
	"net"
	"sync"
	"time"

	"github.com/havrevik/finsgo/fins"
	"github.com/havrevik/finsgo/mapping"
)

const dmAreaSize = 32768

// Server is an in-process FINS/TCP soft-PLC.
type Server struct {
	listener net.Listener

	mu       sync.Mutex
	dmWord   []byte
	dmBit    []byte
	status   mapping.StatusCode
	mode     mapping.ModeCode
	nextNode byte

	closed chan struct{}
}

// New starts a soft-PLC listening on addr (host:port, or ":0" for an
// ephemeral port — callers can read the assigned port via Addr()).
func New(addr string) (*Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		listener: l,
		dmWord:   make([]byte, dmAreaSize),
		dmBit:    make([]byte, dmAreaSize),
		status:   mapping.StatusRun,
		mode:     mapping.ModeRun,
		nextNode: 2,
		closed:   make(chan struct{}),
	}
	go s.acceptLoop()
	return s, nil
}

// Addr returns the address the simulator is actually listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close shuts the simulator down.
func (s *Server) Close() error {
	close(s.closed)
	return s.listener.Close()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
				log.Printf("simulator: accept error: %v", err)
				return
			}
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	s.mu.Lock()
	clientNode := s.nextNode
	s.nextNode++
	s.mu.Unlock()

	handshake := make([]byte, 20)
	if _, err := readFull(conn, handshake); err != nil {
		return
	}
	resp := fins.TCPEnvelope{
		Command: fins.EnvelopeCommandConnect,
		Error:   fins.EnvelopeErrorNone,
		Payload: []byte{0, 0, 0, clientNode, 0, 0, 0, 1},
	}
	if _, err := conn.Write(resp.Encode()); err != nil {
		return
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), 1<<20)
	scanner.Split(fins.SplitTCPFrame)

	for scanner.Scan() {
		env, err := fins.DecodeTCPEnvelope(scanner.Bytes())
		if err != nil {
			log.Printf("simulator: bad envelope: %v", err)
			continue
		}
		if env.Command != fins.EnvelopeCommandSend {
			continue
		}
		req, err := fins.DecodeRequest(env.Payload, binary.BigEndian)
		if err != nil {
			log.Printf("simulator: bad request: %v", err)
			continue
		}

		respFrame := fins.TCPEnvelope{
			Command: fins.EnvelopeCommandSend,
			Error:   fins.EnvelopeErrorNone,
			Payload: s.handle(req).Encode(binary.BigEndian),
		}
		if _, err := conn.Write(respFrame.Encode()); err != nil {
			return
		}
	}
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

func (s *Server) handle(req fins.Request) fins.Response {
	switch req.Command {
	case mapping.CommandCodeMemoryAreaRead:
		return s.handleRead(req)
	case mapping.CommandCodeMemoryAreaWrite:
		return s.handleWrite(req)
	case mapping.CommandCodeMemoryAreaFill:
		return s.handleFill(req)
	case mapping.CommandCodeMultipleMemoryRead:
		return s.handleMultiRead(req)
	case mapping.CommandCodeControllerDataRead:
		return s.handleCPUUnitDataRead(req)
	case mapping.CommandCodeControllerStatus:
		return s.handleStatus(req)
	case mapping.CommandCodeRun:
		s.mu.Lock()
		s.status = mapping.StatusRun
		s.mode = mapping.ModeRun
		s.mu.Unlock()
		return fins.NewResponse(req, mapping.EndCodeNormalCompletion, nil)
	case mapping.CommandCodeStop:
		s.mu.Lock()
		s.status = mapping.StatusStop
		s.mode = mapping.ModeProgram
		s.mu.Unlock()
		return fins.NewResponse(req, mapping.EndCodeNormalCompletion, nil)
	case mapping.CommandCodeClockRead:
		return s.handleClock(req)
	default:
		return fins.NewResponse(req, mapping.EndCodeNotSupportedByModelVersion, nil)
	}
}

func (s *Server) handleRead(req fins.Request) fins.Response {
	if len(req.Body) < 6 {
		return fins.NewResponse(req, mapping.EndCodeParameterCommandTooShort, nil)
	}
	wire, _ := fins.DecodeWireAddress(req.Body[:4])
	itemCount := binary.BigEndian.Uint16(req.Body[4:6])

	s.mu.Lock()
	defer s.mu.Unlock()

	switch wire.Area() {
	case mapping.MemoryAreaDMWord:
		start := int(wire.Offset()) * 2
		end := start + int(itemCount)*2
		if end > len(s.dmWord) {
			return fins.NewResponse(req, mapping.EndCodeAddressRangeExceeded, nil)
		}
		data := make([]byte, end-start)
		copy(data, s.dmWord[start:end])
		return fins.NewResponse(req, mapping.EndCodeNormalCompletion, data)

	case mapping.MemoryAreaDMBit:
		// wire.Offset() already carries the word offset scaled by 16 (see
		// the Address Codec's bit-mode arithmetic); adding the bit index
		// directly yields the flat bit position, with no further scaling.
		start := int(wire.Offset()) + int(wire.Bit())
		if start+int(itemCount) > len(s.dmBit) {
			return fins.NewResponse(req, mapping.EndCodeAddressRangeExceeded, nil)
		}
		data := make([]byte, itemCount)
		copy(data, s.dmBit[start:start+int(itemCount)])
		return fins.NewResponse(req, mapping.EndCodeNormalCompletion, data)

	default:
		return fins.NewResponse(req, mapping.EndCodeNotSupportedByModelVersion, nil)
	}
}

func (s *Server) handleWrite(req fins.Request) fins.Response {
	if len(req.Body) < 6 {
		return fins.NewResponse(req, mapping.EndCodeParameterCommandTooShort, nil)
	}
	wire, _ := fins.DecodeWireAddress(req.Body[:4])
	itemCount := binary.BigEndian.Uint16(req.Body[4:6])
	payload := req.Body[6:]

	s.mu.Lock()
	defer s.mu.Unlock()

	switch wire.Area() {
	case mapping.MemoryAreaDMWord:
		start := int(wire.Offset()) * 2
		end := start + int(itemCount)*2
		if end > len(s.dmWord) || len(payload) < end-start {
			return fins.NewResponse(req, mapping.EndCodeAddressRangeExceeded, nil)
		}
		copy(s.dmWord[start:end], payload[:end-start])
		return fins.NewResponse(req, mapping.EndCodeNormalCompletion, nil)

	case mapping.MemoryAreaDMBit:
		start := int(wire.Offset()) + int(wire.Bit())
		if start+int(itemCount) > len(s.dmBit) || len(payload) < int(itemCount) {
			return fins.NewResponse(req, mapping.EndCodeAddressRangeExceeded, nil)
		}
		copy(s.dmBit[start:start+int(itemCount)], payload[:itemCount])
		return fins.NewResponse(req, mapping.EndCodeNormalCompletion, nil)

	default:
		return fins.NewResponse(req, mapping.EndCodeNotSupportedByModelVersion, nil)
	}
}

func (s *Server) handleFill(req fins.Request) fins.Response {
	if len(req.Body) < 8 {
		return fins.NewResponse(req, mapping.EndCodeParameterCommandTooShort, nil)
	}
	wire, _ := fins.DecodeWireAddress(req.Body[:4])
	itemCount := binary.BigEndian.Uint16(req.Body[4:6])
	value := req.Body[6:8]

	s.mu.Lock()
	defer s.mu.Unlock()

	if wire.Area() != mapping.MemoryAreaDMWord {
		return fins.NewResponse(req, mapping.EndCodeNotSupportedByModelVersion, nil)
	}
	start := int(wire.Offset()) * 2
	end := start + int(itemCount)*2
	if end > len(s.dmWord) {
		return fins.NewResponse(req, mapping.EndCodeAddressRangeExceeded, nil)
	}
	for i := start; i < end; i += 2 {
		copy(s.dmWord[i:i+2], value)
	}
	return fins.NewResponse(req, mapping.EndCodeNormalCompletion, nil)
}

// handleMultiRead answers a Multiple Memory Area Read: request body is a
// flat concatenation of 4-byte addresses, response body is, per item, a
// 1-byte area-code echo followed by a 1-byte bit value or 2-byte word
// value.
func (s *Server) handleMultiRead(req fins.Request) fins.Response {
	if len(req.Body)%4 != 0 {
		return fins.NewResponse(req, mapping.EndCodeParameterCommandTooShort, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []byte
	for i := 0; i < len(req.Body); i += 4 {
		wire, _ := fins.DecodeWireAddress(req.Body[i : i+4])
		switch wire.Area() {
		case mapping.MemoryAreaDMWord:
			start := int(wire.Offset()) * 2
			if start+2 > len(s.dmWord) {
				return fins.NewResponse(req, mapping.EndCodeAddressRangeExceeded, nil)
			}
			out = append(out, wire.Area())
			out = append(out, s.dmWord[start:start+2]...)
		case mapping.MemoryAreaDMBit:
			pos := int(wire.Offset()) + int(wire.Bit())
			if pos >= len(s.dmBit) {
				return fins.NewResponse(req, mapping.EndCodeAddressRangeExceeded, nil)
			}
			out = append(out, wire.Area())
			out = append(out, s.dmBit[pos])
		default:
			return fins.NewResponse(req, mapping.EndCodeNotSupportedByModelVersion, nil)
		}
	}
	return fins.NewResponse(req, mapping.EndCodeNormalCompletion, out)
}

// handleCPUUnitDataRead answers a Controller Data Read with a fixed,
// made-up but well-formed soft-PLC identity: no CPU bus units mounted.
func (s *Server) handleCPUUnitDataRead(req fins.Request) fins.Response {
	data := make([]byte, 20+20+1+2+2+7+16)
	copy(data[0:20], []byte("FINSGO-SIM"))
	copy(data[20:40], []byte("V1.0"))
	data[40] = 0x00 // DIP switch: all off
	binary.BigEndian.PutUint16(data[41:43], 32)   // program area size (Kwords)
	binary.BigEndian.PutUint16(data[43:45], 32768) // IO memory size (words)
	return fins.NewResponse(req, mapping.EndCodeNormalCompletion, data)
}

func (s *Server) handleStatus(req fins.Request) fins.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := []byte{byte(s.status), byte(s.mode), 0, 0, 0, 0}
	return fins.NewResponse(req, mapping.EndCodeNormalCompletion, data)
}

func (s *Server) handleClock(req fins.Request) fins.Response {
	now := time.Now()
	data := []byte{
		bcd(now.Year() % 100),
		bcd(int(now.Month())),
		bcd(now.Day()),
		bcd(now.Hour()),
		bcd(now.Minute()),
		bcd(now.Second()),
		bcd(int(now.Weekday())),
	}
	return fins.NewResponse(req, mapping.EndCodeNormalCompletion, data)
}

func bcd(v int) byte {
	return byte((v/10)<<4 | (v % 10))
}
