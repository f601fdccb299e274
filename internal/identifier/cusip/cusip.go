// Package cusip parses and validates nine character CUSIP identifiers,
// including the CINS variant used for non-North-American issuers.
package cusip

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"istr/internal/checksum"
)

// Length is the number of characters in a CUSIP.
const Length = 9

var (
	ErrInvalidLength    = errors.New("cusip: invalid length")
	ErrInvalidCharacter = errors.New("cusip: invalid character")
	ErrChecksumMismatch = errors.New("cusip: check digit mismatch")
)

// ParseError describes why a string is not a CUSIP. Position is -1 when the
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

// CUSIP is a validated identifier held in upper case.
type CUSIP struct {
	value string
}

// Parse validates s and returns the identifier. Letters are accepted in either
// case.
func Parse(s string) (CUSIP, error) {
	normalized, err := check(s)
	if err != nil {
		return CUSIP{}, err
	}
	return CUSIP{value: normalized}, nil
}

// Validate reports whether s is a well-formed CUSIP with a correct check digit.
func Validate(s string) bool {
	_, err := check(s)
	return err == nil
}

// MustParse is like Parse but panics on invalid input. Intended for tests and
// package-level fixtures.
func MustParse(s string) CUSIP {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

func check(s string) (string, error) {
	if utf8.RuneCountInString(s) != Length {
		return "", &ParseError{Input: s, Position: -1, Err: ErrInvalidLength}
	}
	if len(s) != Length {
		// nine runes but more than nine bytes: at least one is outside ASCII
		for i, r := range s {
			if r >= utf8.RuneSelf {
				return "", &ParseError{Input: s, Position: utf8.RuneCountInString(s[:i]), Err: ErrInvalidCharacter}
			}
		}
	}

	var buf [Length]byte
	for i := 0; i < Length; i++ {
		c := upper(s[i])
		if !allowedAt(i, c) {
			return "", &ParseError{Input: s, Position: i, Err: ErrInvalidCharacter}
		}
		buf[i] = c
	}

	want, err := checksum.CUSIPCheckDigit(string(buf[:Length-1]))
	if err != nil {
		return "", &ParseError{Input: s, Position: -1, Err: fmt.Errorf("%w: %v", ErrInvalidCharacter, err)}
	}
	if got := buf[Length-1]; got != want {
		return "", &ParseError{Input: s, Position: Length - 1, Expected: want, Found: got, Err: ErrChecksumMismatch}
	}
	return string(buf[:]), nil
}

func allowedAt(i int, c byte) bool {
	isAlnum := (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z')
	switch {
	case i < 6:
		return isAlnum
	case i < 8:
		return isAlnum || c == '*' || c == '@' || c == '#'
	default:
		return c >= '0' && c <= '9'
	}
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// String returns the nine character upper-case form.
func (c CUSIP) String() string { return c.value }

// IssuerNum returns the six character issuer number.
func (c CUSIP) IssuerNum() string { return c.value[:6] }

// IssueNum returns the two character issue number.
func (c CUSIP) IssueNum() string { return c.value[6:8] }

// CheckDigit returns the final character.
func (c CUSIP) CheckDigit() byte { return c.value[8] }

// Payload returns the eight characters covered by the check digit.
func (c CUSIP) Payload() string { return c.value[:8] }

// HasPrivateIssuer reports whether the issuer number falls in a range reserved
// for private use: it begins with 99 (990000-99ZZZZ), or its last three
// characters are 990-999 or 99A-99Z.
func (c CUSIP) HasPrivateIssuer() bool {
	leading := value(c.value[0]) == 9 && value(c.value[1]) == 9
	trailing := value(c.value[3]) == 9 && value(c.value[4]) == 9 && value(c.value[5]) <= 35
	return leading || trailing
}

// IsPrivateIssue reports whether the issue number falls in a range reserved
// for private use: 90-99 or 9A-9Y.
func (c CUSIP) IsPrivateIssue() bool {
	return value(c.value[6]) == 9 && value(c.value[7]) <= 34
}

// IsPrivateUse reports whether either the issuer or the issue is reserved for
// private use.
func (c CUSIP) IsPrivateUse() bool {
	return c.HasPrivateIssuer() || c.IsPrivateIssue()
}

// IsCINS reports whether the identifier is a CINS, which begins with a letter.
func (c CUSIP) IsCINS() bool {
	return c.value[0] >= 'A' && c.value[0] <= 'Z'
}

// AsCINS returns the CINS view of c, or false when c is not a CINS.
func (c CUSIP) AsCINS() (CINS, bool) {
	if !c.IsCINS() {
		return CINS{}, false
	}
	return CINS{cusip: c}, true
}

func value(b byte) int {
	v, _ := checksum.CUSIPValue(b)
	return v
}
