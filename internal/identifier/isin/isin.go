// Package isin parses and validates twelve character International Securities
// Identification Numbers.
package isin

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"istr/internal/checksum"
)

// Length is the number of characters in an ISIN.
const Length = 12

var (
	ErrInvalidLength    = errors.New("isin: invalid length")
	ErrInvalidCharacter = errors.New("isin: invalid character")
	ErrChecksumMismatch = errors.New("isin: check digit mismatch")
)

// ParseError describes why a string is not an ISIN. Position is -1 when the
// failure is not tied to a single character.
type ParseError struct {
	Input    string
	Position int
	Expected byte
	Found    byte
	Err      error
}

func (e *ParseError) Error() string {
	switch {
	case errors.Is(e.Err, ErrChecksumMismatch):
		return fmt.Sprintf("%v: %q has check digit %q, expected %q", e.Err, e.Input, e.Found, e.Expected)
	case e.Position >= 0:
		return fmt.Sprintf("%v: %q at position %d", e.Err, e.Input, e.Position)
	default:
		return fmt.Sprintf("%v: %q", e.Err, e.Input)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// ISIN is a validated identifier: a two letter prefix, a nine character basic
// code and a check digit.
type ISIN struct {
	value string
}

// Parse validates s and returns the identifier. Input must already be upper
// case.
func Parse(s string) (ISIN, error) {
	if err := check(s); err != nil {
		return ISIN{}, err
	}
	return ISIN{value: s}, nil
}

// Validate reports whether s is a valid ISIN without constructing one.
func Validate(s string) bool {
	return check(s) == nil
}

// MustParse is like Parse but panics on invalid input.
func MustParse(s string) ISIN {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func check(s string) error {
	if utf8.RuneCountInString(s) != Length {
		return &ParseError{Input: s, Position: -1, Err: ErrInvalidLength}
	}
	for i, r := range s {
		if r >= utf8.RuneSelf {
			return &ParseError{Input: s, Position: utf8.RuneCountInString(s[:i]), Err: ErrInvalidCharacter}
		}
	}
	for i := 0; i < Length; i++ {
		c := s[i]
		upper := c >= 'A' && c <= 'Z'
		digit := c >= '0' && c <= '9'
		var ok bool
		switch {
		case i < 2:
			ok = upper
		case i < Length-1:
			ok = upper || digit
		default:
			ok = digit
		}
		if !ok {
			return &ParseError{Input: s, Position: i, Err: ErrInvalidCharacter}
		}
	}

	want, err := checksum.ISINCheckDigit(s[:Length-1])
	if err != nil {
		return &ParseError{Input: s, Position: -1, Err: fmt.Errorf("%w: %v", ErrInvalidCharacter, err)}
	}
	if got := s[Length-1]; got != want {
		return &ParseError{Input: s, Position: Length - 1, Expected: want, Found: got, Err: ErrChecksumMismatch}
	}
	return nil
}

func (i ISIN) String() string { return i.value }

// Prefix returns the two letter prefix, usually an ISO 3166 country code.
func (i ISIN) Prefix() string { return i.value[:2] }

// BasicCode returns the nine character national security identifier.
func (i ISIN) BasicCode() string { return i.value[2:11] }

// CheckDigit returns the final character.
func (i ISIN) CheckDigit() byte { return i.value[11] }

// Payload returns the eleven characters covered by the check digit.
func (i ISIN) Payload() string { return i.value[:11] }
