// Package diagnostic maps recognizer errors onto the fixed, human readable
// category strings reported by the check projections.
package diagnostic

import (
	"errors"

	"istr/internal/identifier/cusip"
	"istr/internal/identifier/iban"
	"istr/internal/identifier/isin"
	"istr/internal/identifier/weburl"
)

const (
	// OK is reported for rows that parse successfully.
	OK = "ok"
	// Unknown is reported for errors outside every known taxonomy.
	Unknown = "unknown error"

	IBANInvalidFormat   = "Invalid format (len/char)"
	IBANInvalidChecksum = "Invalid checksum"
	IBANInvalidBBAN     = "Invalid Bban"
	IBANUnknownCountry  = "Invalid country code"

	InvalidLength     = "Invalid length"
	InvalidCharacter  = "Invalid character"
	InvalidCheckDigit = "Invalid check digit"
)

type category struct {
	err   error
	label string
}

var categories = []category{
	{iban.ErrInvalidFormat, IBANInvalidFormat},
	{iban.ErrInvalidChecksum, IBANInvalidChecksum},
	{iban.ErrInvalidBBAN, IBANInvalidBBAN},
	{iban.ErrUnknownCountry, IBANUnknownCountry},
	{cusip.ErrInvalidLength, InvalidLength},
	{cusip.ErrInvalidCharacter, InvalidCharacter},
	{cusip.ErrChecksumMismatch, InvalidCheckDigit},
	{isin.ErrInvalidLength, InvalidLength},
	{isin.ErrInvalidCharacter, InvalidCharacter},
	{isin.ErrChecksumMismatch, InvalidCheckDigit},
}

// Classify returns the category string for err. A nil error is OK.
func Classify(err error) string {
	if err == nil {
		return OK
	}
	var urlErr *weburl.ParseError
	if errors.As(err, &urlErr) {
		return urlErr.Kind.String()
	}
	for _, c := range categories {
		if errors.Is(err, c.err) {
			return c.label
		}
	}
	return Unknown
}

// Categories lists every category string Classify can return, excluding OK.
func Categories() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, c := range categories {
		add(c.label)
	}
	for k := weburl.KindEmptyHost; k <= weburl.KindOverflow; k++ {
		add(k.String())
	}
	add(Unknown)
	return out
}
