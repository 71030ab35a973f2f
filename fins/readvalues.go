package fins

import "encoding/binary"

// decodeReadValues decodes a Memory Area Read response payload against
// the kind of address the request targeted: a bit address yields one
// bool per byte (0x00/0x01), a word address yields one big-endian int16
// per 2-byte item.
func decodeReadValues(addr MemoryAddress, data []byte) (words []int16, bools []bool, err error) {
	if addr.IsBitAddress() {
		bools = make([]bool, len(data))
		for i, b := range data {
			bools[i] = b != 0
		}
		return nil, bools, nil
	}
	if len(data)%2 != 0 {
		return nil, nil, ProtocolError{Reason: "odd-length payload for a word-mode read"}
	}
	words = make([]int16, len(data)/2)
	for i := range words {
		words[i] = int16(binary.BigEndian.Uint16(data[i*2 : i*2+2]))
	}
	return words, nil, nil
}

// MultiReadValue is one decoded item from a Multiple Memory Area Read
// response: the echoed area code plus either a bit or word value,
// matched in order against the address the request listed for this slot.
type MultiReadValue struct {
	AreaCode byte
	IsBit    bool
	Bool     bool
	Word     int16
}

// decodeMultiReadValues walks addrs in the order the Multiple Memory
// Area Read request listed them, consuming a 1-byte area-code echo plus
// either a 1-byte bit value or 2-byte word value per item. wires is the
// same addresses' wire encoding, used to validate each echoed area code
// against what was actually requested.
func decodeMultiReadValues(addrs []MemoryAddress, wires []WireAddress, data []byte) ([]MultiReadValue, error) {
	values := make([]MultiReadValue, 0, len(addrs))
	pos := 0
	for i, addr := range addrs {
		if pos >= len(data) {
			return nil, ProtocolError{Reason: "multi-read response shorter than the request's address list"}
		}
		echoed := data[pos]
		if echoed != wires[i].Area() {
			return nil, ProtocolError{Reason: "multi-read response area code does not match the requested address"}
		}
		pos++

		v := MultiReadValue{AreaCode: echoed, IsBit: addr.IsBitAddress()}
		if v.IsBit {
			if pos >= len(data) {
				return nil, ProtocolError{Reason: "multi-read response shorter than the request's address list"}
			}
			v.Bool = data[pos] != 0
			pos++
		} else {
			if pos+2 > len(data) {
				return nil, ProtocolError{Reason: "multi-read response shorter than the request's address list"}
			}
			v.Word = int16(binary.BigEndian.Uint16(data[pos : pos+2]))
			pos += 2
		}
		values = append(values, v)
	}
	return values, nil
}
