package mapping

// Memory area codes, the first byte of a FINS 4-byte memory address.
//
// CS/CJ/NJ/NX share one table; CV carries its own, differing in the CIO
// area code (0xB0/0x30 vs 0x80/0x00) per the published FINS reference.
// Extended memory banks E0..E15 follow the 0xA0+n / 0x20+n pattern; banks
// E16..E18 continue at 0x98+(n-16) / 0x18+(n-16), mirroring how the real area-code
// space wraps once the single hex digit would collide with HR/AR.
const (
	// CS/CJ/NJ/NX word areas
	MemoryAreaCIOWord byte = 0xB0
	MemoryAreaWRWord  byte = 0xB1
	MemoryAreaHRWord  byte = 0xB2
	MemoryAreaARWord  byte = 0xB3
	MemoryAreaDMWord  byte = 0x82
	MemoryAreaTCWord  byte = 0x89 // Timer/Counter present value, CS/CJ/NJ/NX and CV alike

	// CS/CJ/NJ/NX bit areas
	MemoryAreaCIOBit byte = 0x30
	MemoryAreaWRBit  byte = 0x31
	MemoryAreaHRBit  byte = 0x32
	MemoryAreaARBit  byte = 0x33
	MemoryAreaDMBit  byte = 0x02
	MemoryAreaTCBit  byte = 0x09 // Timer/Counter completion flag

	// CV-series word areas (CIO differs from CS/CJ/NJ/NX; the rest are shared)
	MemoryAreaCVCIOWord byte = 0x80

	// CV-series bit areas
	MemoryAreaCVCIOBit byte = 0x00

	// Index/Data register areas (not bit-addressable)
	MemoryAreaIR byte = 0xDC
	MemoryAreaDR byte = 0xBC

	// Task flag area (bit only)
	MemoryAreaTaskBit byte = 0x06
)

// wordAreas and bitAreas enumerate every word/bit area code this package
// knows about, across both families, for CheckIsWordMemoryArea /
// CheckIsBitMemoryArea. A byte only ever appears in one of the two sets.
var wordAreas = map[byte]bool{
	MemoryAreaCIOWord:   true,
	MemoryAreaWRWord:    true,
	MemoryAreaHRWord:    true,
	MemoryAreaARWord:    true,
	MemoryAreaDMWord:    true,
	MemoryAreaTCWord:    true,
	MemoryAreaCVCIOWord: true,
	MemoryAreaIR:        true,
	MemoryAreaDR:        true,
}

var bitAreas = map[byte]bool{
	MemoryAreaCIOBit:   true,
	MemoryAreaWRBit:    true,
	MemoryAreaHRBit:    true,
	MemoryAreaARBit:    true,
	MemoryAreaDMBit:    true,
	MemoryAreaTCBit:    true,
	MemoryAreaCVCIOBit: true,
	MemoryAreaTaskBit:  true,
}

// CheckIsWordMemoryArea reports whether area is one of the known
// word-addressable memory area codes.
func CheckIsWordMemoryArea(area byte) bool {
	// Extended memory banks aren't fixed constants above; recognize the
	// two ranges the bank formula produces.
	if isExtendedMemoryWordArea(area) {
		return true
	}
	return wordAreas[area]
}

// CheckIsBitMemoryArea reports whether area is one of the known
// bit-addressable memory area codes.
func CheckIsBitMemoryArea(area byte) bool {
	if isExtendedMemoryBitArea(area) {
		return true
	}
	return bitAreas[area]
}

func isExtendedMemoryWordArea(area byte) bool {
	return (area >= 0xA0 && area <= 0xAF) || (area >= 0x98 && area <= 0x9A)
}

func isExtendedMemoryBitArea(area byte) bool {
	return (area >= 0x20 && area <= 0x2F) || (area >= 0x18 && area <= 0x1A)
}

// ExtendedMemoryWordArea returns the word-mode area code for extended
// memory bank n (0..18).
func ExtendedMemoryWordArea(n int) (byte, bool) {
	switch {
	case n >= 0 && n <= 15:
		return byte(0xA0 + n), true
	case n >= 16 && n <= 18:
		return byte(0x98 + (n - 16)), true
	default:
		return 0, false
	}
}

// ExtendedMemoryBitArea returns the bit-mode area code for extended
// memory bank n (0..18).
func ExtendedMemoryBitArea(n int) (byte, bool) {
	switch {
	case n >= 0 && n <= 15:
		return byte(0x20 + n), true
	case n >= 16 && n <= 18:
		return byte(0x18 + (n - 16)), true
	default:
		return 0, false
	}
}
