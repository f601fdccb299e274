// Package checksum implements the check-digit arithmetic behind CUSIP, ISIN and
// IBAN identifiers. All functions are pure and safe for concurrent use.
package checksum

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCharacter is returned when a payload holds a character outside
	// the alphabet of the algorithm.
	ErrInvalidCharacter = errors.New("invalid character")
	// ErrInvalidLength is returned when a payload has the wrong size.
	ErrInvalidLength = errors.New("invalid length")
)

// CharError reports the first character an algorithm could not map to a numeral.
type CharError struct {
	Position int
	Char     byte
}

func (e *CharError) Error() string {
	return fmt.Sprintf("invalid character %q at position %d", e.Char, e.Position)
}

func (e *CharError) Unwrap() error { return ErrInvalidCharacter }

func lengthError(algo string, want, got int) error {
	return fmt.Errorf("%w: %s payload must be %d characters, got %d", ErrInvalidLength, algo, want, got)
}

// digitSum adds the decimal digits of a value below 100.
func digitSum(v int) int {
	return v/10 + v%10
}

func checkChar(sum int) byte {
	return byte('0' + (10-sum%10)%10)
}
