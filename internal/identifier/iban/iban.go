// Package iban parses and validates International Bank Account Numbers in
// electronic or print format against a static registry of country formats.
package iban

import (
	"errors"
	"fmt"
	"strings"

	"istr/internal/checksum"
)

const (
	MinLength = 5
	MaxLength = 34
)

var (
	// ErrInvalidFormat covers the base shape and the registered length.
	ErrInvalidFormat   = errors.New("iban: invalid format")
	ErrUnknownCountry  = errors.New("iban: unknown country code")
	ErrInvalidBBAN     = errors.New("iban: bban does not match country structure")
	ErrInvalidChecksum = errors.New("iban: invalid checksum")
)

// ParseError describes why a string is not an IBAN.
type ParseError struct {
	Input   string
	Country string
	Reason  string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: %q: %s", e.Err, e.Input, e.Reason)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Input)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IBAN is a validated account number held in electronic format.
type IBAN struct {
	value  string
	layout bankLayout
}

// Parse validates s, accepting either the electronic format or the print
// format with groups of four separated by single spaces.
func Parse(s string) (IBAN, error) {
	electronic, err := check(s)
	if err != nil {
		return IBAN{}, err
	}
	return IBAN{value: electronic, layout: layouts[electronic[:2]]}, nil
}

// Validate reports whether s is a valid IBAN.
func Validate(s string) bool {
	_, err := check(s)
	return err == nil
}

// MustParse is like Parse but panics on invalid input.
func MustParse(s string) IBAN {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func check(s string) (string, error) {
	electronic, ok := fromPrint(s)
	if !ok {
		return "", &ParseError{Input: s, Reason: "malformed print format grouping", Err: ErrInvalidFormat}
	}
	if reason := baseShape(electronic); reason != "" {
		return "", &ParseError{Input: s, Reason: reason, Err: ErrInvalidFormat}
	}

	country := electronic[:2]
	f, ok := formats[country]
	if !ok {
		return "", &ParseError{Input: s, Country: country, Err: ErrUnknownCountry}
	}
	if len(electronic) != f.length {
		return "", &ParseError{
			Input:   s,
			Country: country,
			Reason:  fmt.Sprintf("length %d, %s requires %d", len(electronic), country, f.length),
			Err:     ErrInvalidFormat,
		}
	}
	if pos, ok := f.matches(electronic[4:]); !ok {
		return "", &ParseError{
			Input:   s,
			Country: country,
			Reason:  fmt.Sprintf("bban offset %d does not match %s", pos, registry[country].bban),
			Err:     ErrInvalidBBAN,
		}
	}
	if !checksum.IBANValid(electronic) {
		return "", &ParseError{Input: s, Country: country, Err: ErrInvalidChecksum}
	}
	return electronic, nil
}

// fromPrint strips the single spaces of the print format. Input without
// spaces is returned unchanged. Spaces are only accepted between complete
// groups of four.
func fromPrint(s string) (string, bool) {
	if !strings.Contains(s, " ") {
		return s, true
	}
	groups := strings.Split(s, " ")
	for i, g := range groups {
		last := i == len(groups)-1
		if len(g) == 0 || len(g) > 4 || (!last && len(g) != 4) {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func baseShape(s string) string {
	if len(s) < MinLength || len(s) > MaxLength {
		return fmt.Sprintf("length %d outside %d..%d", len(s), MinLength, MaxLength)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		alpha := c >= 'A' && c <= 'Z'
		digit := c >= '0' && c <= '9'
		switch {
		case i < 2 && !alpha:
			return fmt.Sprintf("country code character %q at %d", c, i)
		case i >= 2 && i < 4 && !digit:
			return fmt.Sprintf("check digit character %q at %d", c, i)
		case !alpha && !digit:
			return fmt.Sprintf("character %q at %d", c, i)
		}
	}
	return ""
}

// CountryCode returns the ISO 3166 country code.
func (i IBAN) CountryCode() string { return i.value[:2] }

// CheckDigits returns the two check digits.
func (i IBAN) CheckDigits() string { return i.value[2:4] }

// BBAN returns the country specific Basic Bank Account Number.
func (i IBAN) BBAN() string { return i.value[4:] }

// BankID returns the bank identifier, when the country defines one.
func (i IBAN) BankID() (string, bool) { return i.slice(i.layout.bank) }

// BranchID returns the branch identifier, when the country defines one.
func (i IBAN) BranchID() (string, bool) { return i.slice(i.layout.branch) }

func (i IBAN) slice(s span) (string, bool) {
	if !s.defined() {
		return "", false
	}
	bban := i.BBAN()
	return bban[s.start:s.end], true
}

// Electronic returns the IBAN without spaces.
func (i IBAN) Electronic() string { return i.value }

// Print returns the IBAN in groups of four separated by spaces.
func (i IBAN) Print() string {
	var b strings.Builder
	b.Grow(len(i.value) + len(i.value)/4)
	for k := 0; k < len(i.value); k += 4 {
		if k > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(i.value[k:min(k+4, len(i.value))])
	}
	return b.String()
}

func (i IBAN) String() string { return i.value }

// Countries returns the number of registered countries.
func Countries() int { return len(formats) }
