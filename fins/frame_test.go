package fins_test

import (
	"encoding/binary"
	"testing"

	"github.com/havrevik/finsgo/fins"
	"github.com/havrevik/finsgo/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestResponseRoundTrip(t *testing.T) {
	tpl := fins.DefaultHeaderTemplate()
	hdr := tpl.Header(7)

	addr, err := fins.ParseAddress("D100")
	require.NoError(t, err)
	wire, err := fins.Encode(addr, fins.FamilyCS)
	require.NoError(t, err)

	req := fins.Request{Header: hdr, Command: mapping.CommandCodeMemoryAreaRead, Body: fins.ReadBody(wire, 2)}
	encoded := req.Encode(binary.BigEndian)

	decoded, err := fins.DecodeRequest(encoded, binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, req.Header, decoded.Header)
	assert.Equal(t, req.Command, decoded.Command)
	assert.Equal(t, req.Body, decoded.Body)

	resp := fins.NewResponse(decoded, mapping.EndCodeNormalCompletion, []byte{0, 1, 0, 2})
	respEncoded := resp.Encode(binary.BigEndian)

	respDecoded, err := fins.DecodeResponse(respEncoded, binary.BigEndian)
	require.NoError(t, err)
	assert.True(t, respDecoded.Succeeded())
	assert.Equal(t, []byte{0, 1, 0, 2}, respDecoded.Data)
}

func TestWriteBodyLayout(t *testing.T) {
	wire := fins.NewWireAddress(mapping.MemoryAreaDMWord, 100, 0)
	body := fins.WriteBody(wire, 1, []byte{0xAB, 0xCD})
	require.Len(t, body, 8)
	assert.Equal(t, mapping.MemoryAreaDMWord, body[0])
	assert.Equal(t, []byte{0xAB, 0xCD}, body[6:8])
}

func TestDecodeEndCodeBoundary(t *testing.T) {
	tpl := fins.DefaultHeaderTemplate()
	hdr := tpl.Header(1).Encode()

	raw := append([]byte{}, hdr...)
	cmd := make([]byte, 2)
	binary.BigEndian.PutUint16(cmd, uint16(mapping.CommandCodeMemoryAreaRead))
	raw = append(raw, cmd...)
	raw = append(raw, 0xC0, 0x40) // MRES=0xC0, SRES=0x40

	resp, err := fins.DecodeResponse(raw, binary.BigEndian)
	require.NoError(t, err)
	assert.True(t, resp.NetworkRelayError)
	assert.False(t, resp.FatalCPUUnitError)
	assert.True(t, resp.NonFatalCPUUnitError)
	assert.Equal(t, "0040", resp.EndCodeHex)
}

func TestNewResponseEndCodeRoundTrip(t *testing.T) {
	tpl := fins.DefaultHeaderTemplate()
	req := fins.Request{Header: tpl.Header(1), Command: mapping.CommandCodeMemoryAreaRead}

	resp := fins.NewResponse(req, mapping.EndCodeAddressRangeExceeded, nil)
	assert.Equal(t, mapping.EndCodeAddressRangeExceeded, resp.EndCode)
	assert.False(t, resp.Succeeded())
	assert.False(t, resp.NetworkRelayError)
	assert.False(t, resp.FatalCPUUnitError)
	assert.False(t, resp.NonFatalCPUUnitError)

	roundTripped, err := fins.DecodeResponse(resp.Encode(binary.BigEndian), binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, resp.EndCode, roundTripped.EndCode)
	assert.Equal(t, resp.EndCodeHex, roundTripped.EndCodeHex)
}

func TestMultipleReadBodyConcatenatesAddresses(t *testing.T) {
	items := []fins.MultipleMemoryReadItem{
		{Addr: fins.NewWireAddress(mapping.MemoryAreaDMWord, 100, 0)},
		{Addr: fins.NewWireAddress(mapping.MemoryAreaCIOWord, 5, 0)},
	}
	body := fins.MultipleReadBody(items)
	require.Len(t, body, 8)
	assert.Equal(t, mapping.MemoryAreaDMWord, body[0])
	assert.Equal(t, mapping.MemoryAreaCIOWord, body[4])
}
