package checksum

import "fmt"

// IBANMinLength is the shortest string the mod 97 rearrangement is defined for.
const IBANMinLength = 5

// IBANRemainder rearranges an electronic-format IBAN (first four characters
// moved to the end), maps letters to two-digit numerals and returns the
// remainder modulo 97. The remainder is accumulated one decimal digit at a
// time so arbitrarily long inputs never overflow.
func IBANRemainder(iban string) (int, error) {
	if len(iban) < IBANMinLength {
		return 0, fmt.Errorf("%w: iban must be at least %d characters, got %d", ErrInvalidLength, IBANMinLength, len(iban))
	}
	rem := 0
	for k := 0; k < len(iban); k++ {
		i := (k + 4) % len(iban)
		var ok bool
		if rem, ok = mod97Step(rem, iban[i]); !ok {
			return 0, &CharError{Position: i, Char: iban[i]}
		}
	}
	return rem, nil
}

// IBANValid reports whether the mod 97 remainder of iban equals 1.
func IBANValid(iban string) bool {
	rem, err := IBANRemainder(iban)
	return err == nil && rem == 1
}

// IBANCheckDigits computes the two check digits for a country code and BBAN.
// A CharError position counts from the start of the rearranged string, the
// BBAN followed by the country code.
func IBANCheckDigits(country, bban string) (string, error) {
	rem, offset := 0, 0
	for _, part := range []string{bban, country, "00"} {
		for i := 0; i < len(part); i++ {
			var ok bool
			if rem, ok = mod97Step(rem, part[i]); !ok {
				return "", &CharError{Position: offset + i, Char: part[i]}
			}
		}
		offset += len(part)
	}
	return fmt.Sprintf("%02d", 98-rem), nil
}

func mod97Step(rem int, c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return (rem*10 + int(c-'0')) % 97, true
	case c >= 'A' && c <= 'Z':
		v := int(c-'A') + 10
		rem = (rem*10 + v/10) % 97
		return (rem*10 + v%10) % 97, true
	}
	return rem, false
}
