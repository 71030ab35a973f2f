package fins

// Header is the 10-byte FINS frame header: ICF, RSV, GCT, DNA, DA1, DA2,
// SNA, SA1, SA2, SID.
//
// The teacher keeps a single mutable Header on the Client and advances
// its SID field in place before every send (see incrementSid in the
// original driver). That shared mutable field makes two engines, or two
// goroutines sharing one engine, racy. Here the header is an immutable
// value: HeaderTemplate carries every field except SID, and the
// Sequence Manager's SID counter mints a fresh Header value per
// submission via HeaderTemplate.Header. Nothing ever mutates a Header
// after it is built.
type Header struct {
	ICF uint8
	RSV uint8
	GCT uint8
	DNA uint8
	DA1 uint8
	DA2 uint8
	SNA uint8
	SA1 uint8
	SA2 uint8
	SID uint8
}

const (
	// ICFCommandResponse: 1 = command, 0 = response.
	ICFCommandResponse uint8 = 0x80
	// ICFResponseRequired: 0 = response required, 1 = no response required.
	ICFResponseRequired uint8 = 0x01

	DefaultGatewayCount uint8 = 0x02
	DefaultReserved     uint8 = 0x00
)

// HeaderTemplate holds every header field except SID: the routing
// defaults an engine is constructed with, plus any per-call DNA/DA1/DA2
// override applied at submission time.
type HeaderTemplate struct {
	ICF uint8
	RSV uint8
	GCT uint8
	DNA uint8
	DA1 uint8
	DA2 uint8
	SNA uint8
	SA1 uint8
	SA2 uint8
}

// DefaultHeaderTemplate returns the spec's default header fields:
// ICF=0x80 (command, response required), GCT=0x02, everything else zero.
func DefaultHeaderTemplate() HeaderTemplate {
	return HeaderTemplate{
		ICF: ICFCommandResponse,
		RSV: DefaultReserved,
		GCT: DefaultGatewayCount,
	}
}

// RoutingOverride carries a per-call override of the destination/source
// routing fields. A nil field leaves the template's value untouched.
type RoutingOverride struct {
	DNA *uint8
	DA1 *uint8
	DA2 *uint8
}

// Apply returns a copy of t with any overridden fields replaced.
func (t HeaderTemplate) Apply(o *RoutingOverride) HeaderTemplate {
	if o == nil {
		return t
	}
	if o.DNA != nil {
		t.DNA = *o.DNA
	}
	if o.DA1 != nil {
		t.DA1 = *o.DA1
	}
	if o.DA2 != nil {
		t.DA2 = *o.DA2
	}
	return t
}

// Header mints a full Header value from the template plus a SID.
func (t HeaderTemplate) Header(sid uint8) Header {
	return Header{
		ICF: t.ICF,
		RSV: t.RSV,
		GCT: t.GCT,
		DNA: t.DNA,
		DA1: t.DA1,
		DA2: t.DA2,
		SNA: t.SNA,
		SA1: t.SA1,
		SA2: t.SA2,
		SID: sid,
	}
}

// Encode converts a Header to its 10-byte wire representation.
func (h Header) Encode() []byte {
	return []byte{h.ICF, h.RSV, h.GCT, h.DNA, h.DA1, h.DA2, h.SNA, h.SA1, h.SA2, h.SID}
}

// DecodeHeader parses a Header from its 10-byte wire representation.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < 10 {
		return Header{}, ProtocolError{Reason: "truncated FINS header"}
	}
	return Header{
		ICF: data[0],
		RSV: data[1],
		GCT: data[2],
		DNA: data[3],
		DA1: data[4],
		DA2: data[5],
		SNA: data[6],
		SA1: data[7],
		SA2: data[8],
		SID: data[9],
	}, nil
}

// IsCommand returns true if the header represents a command message.
func (h Header) IsCommand() bool {
	return h.ICF&ICFCommandResponse != 0
}

// IsResponseRequired returns true if a response is required for this message.
func (h Header) IsResponseRequired() bool {
	return h.ICF&ICFResponseRequired == 0
}
