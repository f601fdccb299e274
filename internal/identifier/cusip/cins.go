package cusip

// CINS is the CUSIP International Numbering System view of a CUSIP whose
// first character is a letter identifying the issuer's country or region.
type CINS struct {
	cusip CUSIP
}

// CUSIP returns the underlying identifier.
func (c CINS) CUSIP() CUSIP { return c.cusip }

// CountryCode returns the leading country or region letter.
func (c CINS) CountryCode() byte { return c.cusip.value[0] }

// IssuerNum returns the five character issuer number that follows the
// country code.
func (c CINS) IssuerNum() string { return c.cusip.value[1:6] }

// IsBase reports whether the country code is in the base set, which excludes
// the letters I, O and Z.
func (c CINS) IsBase() bool { return !c.IsExtended() }

// IsExtended reports whether the country code is one of I, O or Z.
func (c CINS) IsExtended() bool {
	switch c.CountryCode() {
	case 'I', 'O', 'Z':
		return true
	}
	return false
}

func (c CINS) String() string { return c.cusip.value }
