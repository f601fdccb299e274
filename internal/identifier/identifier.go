// Package identifier names the identifier families understood by the engine.
// Each family has its own recognizer package (cusip, isin, iban, weburl).
package identifier

import "fmt"

// Format is an identifier family.
type Format string

const (
	FormatCUSIP Format = "cusip"
	FormatISIN  Format = "isin"
	FormatIBAN  Format = "iban"
	FormatURL   Format = "url"
)

// Formats lists every supported family in a stable order.
func Formats() []Format {
	return []Format{FormatCUSIP, FormatISIN, FormatIBAN, FormatURL}
}

// IsValid reports whether f names a supported family.
func (f Format) IsValid() bool {
	switch f {
	case FormatCUSIP, FormatISIN, FormatIBAN, FormatURL:
		return true
	}
	return false
}

func (f Format) String() string { return string(f) }

// ParseFormat converts a family name into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !f.IsValid() {
		return "", fmt.Errorf("unknown identifier format %q", s)
	}
	return f, nil
}
