package fins_test

import (
	"testing"

	"github.com/havrevik/finsgo/fins"
	"github.com/havrevik/finsgo/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddressWord(t *testing.T) {
	addr, err := fins.ParseAddress("D100")
	require.NoError(t, err)
	assert.Equal(t, "D", addr.Area)
	assert.Equal(t, uint16(100), addr.Offset)
	assert.False(t, addr.IsBitAddress())
	assert.Equal(t, "D100", addr.String())
}

func TestParseAddressBit(t *testing.T) {
	addr, err := fins.ParseAddress("CIO50.3")
	require.NoError(t, err)
	assert.Equal(t, "CIO", addr.Area)
	assert.Equal(t, uint16(50), addr.Offset)
	require.True(t, addr.IsBitAddress())
	assert.Equal(t, "CIO50.3", addr.String())
}

func TestParseAddressExtendedMemory(t *testing.T) {
	addr, err := fins.ParseAddress("E1_200")
	require.NoError(t, err)
	assert.Equal(t, "E1", addr.Area)
	assert.Equal(t, uint16(200), addr.Offset)
	assert.Equal(t, "E1_200", addr.String())
}

func TestParseAddressInvalid(t *testing.T) {
	_, err := fins.ParseAddress("not an address")
	assert.Error(t, err)
}

func TestEncodeDMWord(t *testing.T) {
	addr, err := fins.ParseAddress("D100")
	require.NoError(t, err)
	wire, err := fins.Encode(addr, fins.FamilyCS)
	require.NoError(t, err)
	assert.Equal(t, mapping.MemoryAreaDMWord, wire.Area())
	assert.Equal(t, uint16(100), wire.Offset())
	assert.Equal(t, byte(0), wire.Bit())
}

func TestEncodeCIOBit(t *testing.T) {
	addr, err := fins.ParseAddress("CIO50.3")
	require.NoError(t, err)
	wire, err := fins.Encode(addr, fins.FamilyCS)
	require.NoError(t, err)
	assert.Equal(t, mapping.MemoryAreaCIOBit, wire.Area())
	assert.Equal(t, uint16(50*16), wire.Offset())
	assert.Equal(t, byte(3), wire.Bit())
}

func TestEncodeTimerCounter(t *testing.T) {
	addr, err := fins.ParseAddress("C5")
	require.NoError(t, err)
	wire, err := fins.Encode(addr, fins.FamilyCS)
	require.NoError(t, err)
	assert.Equal(t, mapping.MemoryAreaTCWord, wire.Area())
	assert.Equal(t, uint16(0x8000+5), wire.Offset())
}

func TestEncodeCVCIODiffersFromCS(t *testing.T) {
	addr, err := fins.ParseAddress("CIO10")
	require.NoError(t, err)

	csWire, err := fins.Encode(addr, fins.FamilyCS)
	require.NoError(t, err)
	cvWire, err := fins.Encode(addr, fins.FamilyCV)
	require.NoError(t, err)

	assert.Equal(t, mapping.MemoryAreaCIOWord, csWire.Area())
	assert.Equal(t, mapping.MemoryAreaCVCIOWord, cvWire.Area())
	assert.NotEqual(t, csWire.Area(), cvWire.Area())
}

func TestEncodeUnknownArea(t *testing.T) {
	addr := fins.WordAddress("ZZ", 1)
	_, err := fins.Encode(addr, fins.FamilyCS)
	assert.Error(t, err)
	var unknown fins.UnknownAreaError
	assert.ErrorAs(t, err, &unknown)
}

func TestRenderWithOffset(t *testing.T) {
	addr, err := fins.ParseAddress("D100")
	require.NoError(t, err)
	assert.Equal(t, "D105", fins.Render(addr, 5, 0))
}

func TestParsePlcFamily(t *testing.T) {
	f, err := fins.ParsePlcFamily("cv")
	require.NoError(t, err)
	assert.Equal(t, fins.FamilyCV, f)

	f, err = fins.ParsePlcFamily("")
	require.NoError(t, err)
	assert.Equal(t, fins.FamilyCS, f)

	_, err = fins.ParsePlcFamily("bogus")
	assert.Error(t, err)
}
