package checksum

// ISINPayloadLength is the number of characters covered by an ISIN check digit.
const ISINPayloadLength = 11

// ISINCheckDigit computes the check digit of an eleven character ISIN payload.
// Letters expand to two digits (A=10 through Z=35) and the resulting digit
// string is run through Luhn from the right, doubling the rightmost digit.
// The expansion is walked in place rather than materialised.
func ISINCheckDigit(payload string) (byte, error) {
	if len(payload) != ISINPayloadLength {
		return 0, lengthError("isin", ISINPayloadLength, len(payload))
	}
	sum := 0
	double := true
	add := func(d int) {
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	for i := len(payload) - 1; i >= 0; i-- {
		c := payload[i]
		switch {
		case c >= '0' && c <= '9':
			add(int(c - '0'))
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			add(v % 10)
			add(v / 10)
		default:
			return 0, &CharError{Position: i, Char: c}
		}
	}
	return checkChar(sum), nil
}
