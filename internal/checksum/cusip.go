package checksum

// CUSIPPayloadLength is the number of characters covered by a CUSIP check digit.
const CUSIPPayloadLength = 8

// CUSIPValue maps a CUSIP character to its numeral value. Letters are accepted
// in either case.
func CUSIPValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10, true
	case c == '*':
		return 36, true
	case c == '@':
		return 37, true
	case c == '#':
		return 38, true
	}
	return 0, false
}

// CUSIPCheckDigit computes the modulus 10 double-add-double check digit of an
// eight character CUSIP payload. Values at odd zero-based positions are doubled
// before their decimal digits are summed.
func CUSIPCheckDigit(payload string) (byte, error) {
	if len(payload) != CUSIPPayloadLength {
		return 0, lengthError("cusip", CUSIPPayloadLength, len(payload))
	}
	sum := 0
	for i := 0; i < len(payload); i++ {
		v, ok := CUSIPValue(payload[i])
		if !ok {
			return 0, &CharError{Position: i, Char: payload[i]}
		}
		if i%2 == 1 {
			v *= 2
		}
		sum += digitSum(v)
	}
	return checkChar(sum), nil
}
