package fins

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/havrevik/finsgo/mapping"
)

// PlcFamily selects which memory-area table and offset arithmetic the
// Address Codec uses. CS, CJ, NJ and NX share one table; CV carries its
// own (see areaTableCS* / areaTableCV* below).
type PlcFamily uint8

const (
	FamilyCS PlcFamily = iota
	FamilyCV
)

func (f PlcFamily) String() string {
	switch f {
	case FamilyCS:
		return "CS/CJ/NJ/NX"
	case FamilyCV:
		return "CV"
	default:
		return "unknown"
	}
}

// ParsePlcFamily maps the constructor's MODE option string onto the
// underlying family. CS, CSCJ, CJ, NJ, NJNX and NX all share the CS
// table; only CV is distinct.
func ParsePlcFamily(mode string) (PlcFamily, error) {
	switch strings.ToUpper(strings.TrimSpace(mode)) {
	case "", "CS", "CSCJ", "CJ", "NJ", "NJNX", "NX":
		return FamilyCS, nil
	case "CV":
		return FamilyCV, nil
	default:
		return 0, InvalidParameterError{Reason: fmt.Sprintf("unknown PLC family mode %q", mode)}
	}
}

// MemoryAddress is a parsed symbolic PLC address: an area mnemonic, a
// word offset, and an optional bit index. Bit != nil means this is a bit
// address, encoded against the area's bit-mode table; otherwise it's a
// word address, encoded against the word-mode table.
type MemoryAddress struct {
	Area   string
	Offset uint16
	Bit    *byte
}

// IsBitAddress reports whether this address targets a single bit.
func (a MemoryAddress) IsBitAddress() bool {
	return a.Bit != nil
}

// WordAddress constructs a word-mode MemoryAddress.
func WordAddress(area string, offset uint16) MemoryAddress {
	return MemoryAddress{Area: area, Offset: offset}
}

// BitAddress constructs a bit-mode MemoryAddress.
func BitAddress(area string, offset uint16, bit byte) MemoryAddress {
	b := bit
	return MemoryAddress{Area: area, Offset: offset, Bit: &b}
}

// Regex A: mnemonic with no underscore, e.g. "D100", "CIO50.3".
var addressPatternA = regexp.MustCompile(`^([A-Z]+)([0-9]+)(?:\.([0-9]+))?$`)

// Regex B: mnemonic containing an underscore, for extended-memory banks
// "E0_" .. "E18_". The area token is the literal prefix up to (and
// consuming) the underscore, e.g. "E1_200" -> area "E1", offset 200.
var addressPatternB = regexp.MustCompile(`^(.+)_([0-9]+)(?:\.([0-9]+))?$`)

// ParseAddress parses a symbolic address string such as "D100",
// "CIO50.3" or "E1_200" into a MemoryAddress. Which regex applies is
// decided purely by the presence of an underscore in the raw string,
// per the spec's tie-break rule.
func ParseAddress(s string) (MemoryAddress, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))

	var matches []string
	if strings.Contains(raw, "_") {
		matches = addressPatternB.FindStringSubmatch(raw)
	} else {
		matches = addressPatternA.FindStringSubmatch(raw)
	}
	if matches == nil {
		return MemoryAddress{}, InvalidAddressError{Input: s}
	}

	area := matches[1]
	offset, err := strconv.ParseUint(matches[2], 10, 16)
	if err != nil {
		return MemoryAddress{}, InvalidAddressError{Input: s}
	}

	addr := MemoryAddress{Area: area, Offset: uint16(offset)}
	if matches[3] != "" {
		bit, err := strconv.ParseUint(matches[3], 10, 8)
		if err != nil || bit > 15 {
			return MemoryAddress{}, InvalidAddressError{Input: s}
		}
		b := byte(bit)
		addr.Bit = &b
	}
	return addr, nil
}

// areaMode distinguishes the word-mode table from the bit-mode table
// when looking up an area code / computing offset arithmetic.
type areaMode int

const (
	modeWord areaMode = iota
	modeBit
)

// areaTable maps area mnemonic -> area code for one PLC family and one
// addressing mode (word or bit).
type areaTable map[string]byte

// areaTableCSWord / areaTableCSBit / areaTableCVWord / areaTableCVBit
// cover the fixed-byte areas; extended memory banks (E0..E18) are
// computed via mapping.ExtendedMemoryWordArea / ExtendedMemoryBitArea
// rather than enumerated here.
var areaTableCSWord = areaTable{
	"D":   mapping.MemoryAreaDMWord,
	"CIO": mapping.MemoryAreaCIOWord,
	"W":   mapping.MemoryAreaWRWord,
	"H":   mapping.MemoryAreaHRWord,
	"A":   mapping.MemoryAreaARWord,
	"T":   mapping.MemoryAreaTCWord,
	"C":   mapping.MemoryAreaTCWord,
	"IR":  mapping.MemoryAreaIR,
	"DR":  mapping.MemoryAreaDR,
}

var areaTableCSBit = areaTable{
	"D":   mapping.MemoryAreaDMBit,
	"CIO": mapping.MemoryAreaCIOBit,
	"W":   mapping.MemoryAreaWRBit,
	"H":   mapping.MemoryAreaHRBit,
	"A":   mapping.MemoryAreaARBit,
	"T":   mapping.MemoryAreaTCBit,
	"C":   mapping.MemoryAreaTCBit,
}

var areaTableCVWord = areaTable{
	"D":   mapping.MemoryAreaDMWord,
	"CIO": mapping.MemoryAreaCVCIOWord,
	"W":   mapping.MemoryAreaWRWord,
	"H":   mapping.MemoryAreaHRWord,
	"A":   mapping.MemoryAreaARWord,
	"T":   mapping.MemoryAreaTCWord,
	"C":   mapping.MemoryAreaTCWord,
	"IR":  mapping.MemoryAreaIR,
	"DR":  mapping.MemoryAreaDR,
}

var areaTableCVBit = areaTable{
	"D":   mapping.MemoryAreaDMBit,
	"CIO": mapping.MemoryAreaCVCIOBit,
	"W":   mapping.MemoryAreaWRBit,
	"H":   mapping.MemoryAreaHRBit,
	"A":   mapping.MemoryAreaARBit,
	"T":   mapping.MemoryAreaTCBit,
	"C":   mapping.MemoryAreaTCBit,
}

// extendedMemoryBank reports whether area names an extended memory bank
// ("E0".."E18") and, if so, the bank number.
func extendedMemoryBank(area string) (int, bool) {
	if !strings.HasPrefix(area, "E") {
		return 0, false
	}
	n, err := strconv.Atoi(area[1:])
	if err != nil || n < 0 || n > 18 {
		return 0, false
	}
	return n, true
}

// areaCode resolves area -> area code for the given family and mode.
func areaCode(family PlcFamily, mode areaMode, area string) (byte, bool) {
	if n, ok := extendedMemoryBank(area); ok {
		if mode == modeWord {
			return mapping.ExtendedMemoryWordArea(n)
		}
		return mapping.ExtendedMemoryBitArea(n)
	}

	var table areaTable
	switch {
	case family == FamilyCV && mode == modeWord:
		table = areaTableCVWord
	case family == FamilyCV && mode == modeBit:
		table = areaTableCVBit
	case mode == modeWord:
		table = areaTableCSWord
	default:
		table = areaTableCSBit
	}

	code, ok := table[area]
	return code, ok
}

// computeOffset applies the area-specific arithmetic described in the
// spec: the A area gets +0x01C0 beyond word 447 (word mode) or the
// CV-specific bit-mode bases +0xB000/+0x0CC0; the C/T (Timer/Counter)
// area gets +0x8000 (CS) or +0x0800 (CV); every other area passes the
// offset through, multiplied by 16 in bit mode.
//
// The spec leaves open whether the CV A-area bit-mode base is added
// before or after the x16 scale; this always scales first, then adds,
// since that is the only order that keeps the CS-family word/bit tables
// consistent with the worked scenarios (D100, CIO50.3, E1_200, C5).
func computeOffset(family PlcFamily, mode areaMode, area string, offset uint16) uint16 {
	switch area {
	case "A":
		if mode == modeBit {
			if family == FamilyCV {
				if offset > 447 {
					return offset*16 + 0x0CC0
				}
				return offset*16 + 0xB000
			}
			if offset > 447 {
				return offset*16 + 0x01C0
			}
			return offset * 16
		}
		if offset > 447 {
			return offset + 0x01C0
		}
		return offset
	case "C", "T":
		base := uint16(0x8000)
		if family == FamilyCV {
			base = 0x0800
		}
		if mode == modeBit {
			return offset*16 + base
		}
		return offset + base
	default:
		if mode == modeBit {
			return offset * 16
		}
		return offset
	}
}

// Encode produces the 4-byte wire encoding [areaCode, offsetHi, offsetLo,
// bitOrZero] for addr under family.
func Encode(addr MemoryAddress, family PlcFamily) (WireAddress, error) {
	mode := modeWord
	if addr.IsBitAddress() {
		mode = modeBit
	}

	code, ok := areaCode(family, mode, addr.Area)
	if !ok {
		return WireAddress{}, UnknownAreaError{Area: addr.Area, Family: family}
	}

	memOffset := computeOffset(family, mode, addr.Area, addr.Offset)

	var bit byte
	if addr.Bit != nil {
		bit = *addr.Bit
	}

	return NewWireAddress(code, memOffset, bit), nil
}

// Render re-renders addr as a canonical string, applying the offset
// adjustments FinsAddressToString exposes to callers (offsetWd added to
// the word offset, offsetBit added to the bit index). Extended-memory
// bank addresses ("E1".."E18") re-insert the underscore ParseAddress
// consumed, satisfying the round-trip law render(parse(s)) == s for
// "E1_200"-style input.
func Render(addr MemoryAddress, offsetWd uint16, offsetBit byte) string {
	var b strings.Builder
	b.WriteString(addr.Area)
	if _, ok := extendedMemoryBank(addr.Area); ok {
		b.WriteByte('_')
	}
	b.WriteString(strconv.FormatUint(uint64(addr.Offset+offsetWd), 10))
	if addr.Bit != nil {
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(uint64(*addr.Bit+offsetBit), 10))
	}
	return b.String()
}

// String renders addr with no offset adjustment, satisfying the
// round-trip law render(parse(s)) == s for canonical forms.
func (a MemoryAddress) String() string {
	return Render(a, 0, 0)
}
