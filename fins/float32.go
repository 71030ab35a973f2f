package fins

import "math"

// EncodeFloat32 packs a float32 into the two-word layout OMRON PLCs use
// for REAL values: the low word carries the low 16 bits of the IEEE 754
// bit pattern, the high word the high 16 bits. Grounded on the
// teacher's root main.go ConvertFloat32ToOmronData.
func EncodeFloat32(value float32) [2]uint16 {
	bits := math.Float32bits(value)
	return [2]uint16{uint16(bits), uint16(bits >> 16)}
}

// DecodeFloat32 reverses EncodeFloat32 given the two words in the order
// Read returns them (low word first, high word second).
func DecodeFloat32(words [2]uint16) float32 {
	bits := uint32(words[0]) | uint32(words[1])<<16
	return math.Float32frombits(bits)
}

// EncodeFloat32Bytes is EncodeFloat32 rendered as the 4 big-endian bytes
// a Write body expects.
func EncodeFloat32Bytes(value float32) []byte {
	w := EncodeFloat32(value)
	return []byte{byte(w[0] >> 8), byte(w[0]), byte(w[1] >> 8), byte(w[1])}
}

// DecodeFloat32Bytes reverses EncodeFloat32Bytes given the 4 bytes a
// Read response's Data carries for a 2-word REAL.
func DecodeFloat32Bytes(data []byte) (float32, error) {
	if len(data) < 4 {
		return 0, ProtocolError{Reason: "short payload for float32 decode"}
	}
	words := [2]uint16{
		uint16(data[0])<<8 | uint16(data[1]),
		uint16(data[2])<<8 | uint16(data[3]),
	}
	return DecodeFloat32(words), nil
}
