package fins

import (
	"encoding/binary"
	"strings"
)

// cpuUnitDataLength is the fixed byte width of a Controller Data Read
// (0501) response payload this decoder understands: 20-byte model +
// 20-byte internal version + 1 DIP-switch byte + 2-byte program area
// size + 2-byte I/O memory size + 7 bytes of area-data + 16 CPU bus
// unit configuration bytes (one per slot).
const cpuUnitDataLength = 20 + 20 + 1 + 2 + 2 + 7 + 16

// CPUUnitData is the decoded result of a Controller Data Read: the
// PLC's model and internal version strings, its DIP-switch settings,
// declared program/IO memory sizes, the raw area-data block, and which
// of its 16 CPU bus unit slots carry a mounted unit.
type CPUUnitData struct {
	Model           string
	InternalVersion string
	DIPSwitch       byte
	ProgramAreaSize uint16
	IOMSize         uint16
	AreaData        []byte
	CPUBusUnits     [16]bool
}

// decodeCPUUnitData parses a Controller Data Read response payload.
func decodeCPUUnitData(data []byte) (*CPUUnitData, error) {
	if len(data) < cpuUnitDataLength {
		return nil, ProtocolError{Reason: "short controller data read payload"}
	}

	d := &CPUUnitData{
		Model:           trimPaddedASCII(data[0:20]),
		InternalVersion: trimPaddedASCII(data[20:40]),
		DIPSwitch:       data[40],
		ProgramAreaSize: binary.BigEndian.Uint16(data[41:43]),
		IOMSize:         binary.BigEndian.Uint16(data[43:45]),
	}
	d.AreaData = append([]byte(nil), data[45:52]...)

	slots := data[52:68]
	for i, b := range slots {
		d.CPUBusUnits[i] = b&0x80 != 0
	}
	return d, nil
}

// trimPaddedASCII strips trailing NUL and space padding off a fixed-width
// ASCII field, the way the teacher's clock/status decoders treat
// fixed-width PLC payload fields as raw bytes rather than null-terminated
// C strings.
func trimPaddedASCII(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}
