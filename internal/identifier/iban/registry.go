package iban

import (
	"fmt"
	"strconv"
)

// countryFormat is the registered shape of one country's IBAN.
type countryFormat struct {
	length int
	bban   string
}

// registry holds the total IBAN length and the BBAN structure of every
// participating country. Structures use the registry notation: a length, an
// exclamation mark for fixed length, and a class (n digits, a upper-case
// letters, c upper-case alphanumerics).
var registry = map[string]countryFormat{
	"AD": {length: 24, bban: "4!n4!n12!c"},
	"AE": {length: 23, bban: "3!n16!n"},
	"AL": {length: 28, bban: "8!n16!c"},
	"AT": {length: 20, bban: "5!n11!n"},
	"AZ": {length: 28, bban: "4!a20!c"},
	"BA": {length: 20, bban: "3!n3!n8!n2!n"},
	"BE": {length: 16, bban: "3!n7!n2!n"},
	"BG": {length: 22, bban: "4!a4!n2!n8!c"},
	"BH": {length: 22, bban: "4!a14!c"},
	"BI": {length: 27, bban: "5!n5!n11!n2!n"},
	"BR": {length: 29, bban: "8!n5!n10!n1!a1!c"},
	"BY": {length: 28, bban: "4!c4!n16!c"},
	"CH": {length: 21, bban: "5!n12!c"},
	"CR": {length: 22, bban: "4!n14!n"},
	"CY": {length: 28, bban: "3!n5!n16!c"},
	"CZ": {length: 24, bban: "4!n6!n10!n"},
	"DE": {length: 22, bban: "8!n10!n"},
	"DJ": {length: 27, bban: "5!n5!n11!n2!n"},
	"DK": {length: 18, bban: "4!n9!n1!n"},
	"DO": {length: 28, bban: "4!c20!n"},
	"EE": {length: 20, bban: "2!n2!n11!n1!n"},
	"EG": {length: 29, bban: "4!n4!n17!n"},
	"ES": {length: 24, bban: "4!n4!n1!n1!n10!n"},
	"FI": {length: 18, bban: "3!n11!n"},
	"FK": {length: 18, bban: "2!a12!n"},
	"FO": {length: 18, bban: "4!n9!n1!n"},
	"FR": {length: 27, bban: "5!n5!n11!c2!n"},
	"GB": {length: 22, bban: "4!a6!n8!n"},
	"GE": {length: 22, bban: "2!a16!n"},
	"GI": {length: 23, bban: "4!a15!c"},
	"GL": {length: 18, bban: "4!n9!n1!n"},
	"GR": {length: 27, bban: "3!n4!n16!c"},
	"GT": {length: 28, bban: "4!c20!c"},
	"HR": {length: 21, bban: "7!n10!n"},
	"HU": {length: 28, bban: "3!n4!n1!n15!n1!n"},
	"IE": {length: 22, bban: "4!a6!n8!n"},
	"IL": {length: 23, bban: "3!n3!n13!n"},
	"IQ": {length: 23, bban: "4!a3!n12!n"},
	"IS": {length: 26, bban: "4!n2!n6!n10!n"},
	"IT": {length: 27, bban: "1!a5!n5!n12!c"},
	"JO": {length: 30, bban: "4!a4!n18!c"},
	"KW": {length: 30, bban: "4!a22!c"},
	"KZ": {length: 20, bban: "3!n13!c"},
	"LB": {length: 28, bban: "4!n20!c"},
	"LC": {length: 32, bban: "4!a24!c"},
	"LI": {length: 21, bban: "5!n12!c"},
	"LT": {length: 20, bban: "5!n11!n"},
	"LU": {length: 20, bban: "3!n13!c"},
	"LV": {length: 21, bban: "4!a13!c"},
	"LY": {length: 25, bban: "3!n3!n15!n"},
	"MC": {length: 27, bban: "5!n5!n11!c2!n"},
	"MD": {length: 24, bban: "2!c18!c"},
	"ME": {length: 22, bban: "3!n13!n2!n"},
	"MK": {length: 19, bban: "3!n10!c2!n"},
	"MN": {length: 20, bban: "4!n12!n"},
	"MR": {length: 27, bban: "5!n5!n11!n2!n"},
	"MT": {length: 31, bban: "4!a5!n18!c"},
	"MU": {length: 30, bban: "4!a2!n2!n12!n3!n3!a"},
	"NI": {length: 28, bban: "4!a20!n"},
	"NL": {length: 18, bban: "4!a10!n"},
	"NO": {length: 15, bban: "4!n6!n1!n"},
	"OM": {length: 23, bban: "3!n16!c"},
	"PK": {length: 24, bban: "4!a16!c"},
	"PL": {length: 28, bban: "8!n16!n"},
	"PS": {length: 29, bban: "4!a21!c"},
	"PT": {length: 25, bban: "4!n4!n11!n2!n"},
	"QA": {length: 29, bban: "4!a21!c"},
	"RO": {length: 24, bban: "4!a16!c"},
	"RS": {length: 22, bban: "3!n13!n2!n"},
	"RU": {length: 33, bban: "9!n5!n15!c"},
	"SA": {length: 24, bban: "2!n18!c"},
	"SC": {length: 31, bban: "4!a2!n2!n16!n3!a"},
	"SD": {length: 18, bban: "2!n12!n"},
	"SE": {length: 24, bban: "3!n16!n1!n"},
	"SI": {length: 19, bban: "5!n8!n2!n"},
	"SK": {length: 24, bban: "4!n6!n10!n"},
	"SM": {length: 27, bban: "1!a5!n5!n12!c"},
	"SO": {length: 23, bban: "4!n3!n12!n"},
	"ST": {length: 25, bban: "4!n4!n11!n2!n"},
	"SV": {length: 28, bban: "4!a20!n"},
	"TL": {length: 23, bban: "3!n14!n2!n"},
	"TN": {length: 24, bban: "2!n3!n13!n2!n"},
	"TR": {length: 26, bban: "5!n1!n16!c"},
	"UA": {length: 29, bban: "6!n19!c"},
	"VA": {length: 22, bban: "3!n15!n"},
	"VG": {length: 24, bban: "4!a16!n"},
	"XK": {length: 20, bban: "4!n10!n2!n"},
	"YE": {length: 30, bban: "4!a4!n18!c"},
}

type charClass byte

const (
	classDigit charClass = 'n'
	classAlpha charClass = 'a'
	classAlnum charClass = 'c'
)

type segment struct {
	length int
	class  charClass
}

type format struct {
	length   int
	segments []segment
}

// formats is registry compiled once at init.
var formats = compileRegistry(registry)

func compileRegistry(src map[string]countryFormat) map[string]format {
	out := make(map[string]format, len(src))
	for country, cf := range src {
		segs, err := parseStructure(cf.bban)
		if err != nil {
			panic(fmt.Sprintf("iban registry %s: %v", country, err))
		}
		out[country] = format{length: cf.length, segments: segs}
	}
	return out
}

func parseStructure(s string) ([]segment, error) {
	var segs []segment
	for i := 0; i < len(s); {
		j := i
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == i || j+1 >= len(s) || s[j] != '!' {
			return nil, fmt.Errorf("malformed structure %q at %d", s, i)
		}
		n, err := strconv.Atoi(s[i:j])
		if err != nil {
			return nil, err
		}
		class := charClass(s[j+1])
		switch class {
		case classDigit, classAlpha, classAlnum:
		default:
			return nil, fmt.Errorf("unknown character class %q in %q", class, s)
		}
		segs = append(segs, segment{length: n, class: class})
		i = j + 2
	}
	return segs, nil
}

func (f format) bbanLength() int {
	n := 0
	for _, s := range f.segments {
		n += s.length
	}
	return n
}

// matches reports whether bban conforms to the segments, returning the offset
// of the first offending character otherwise.
func (f format) matches(bban string) (int, bool) {
	pos := 0
	for _, seg := range f.segments {
		for k := 0; k < seg.length; k++ {
			if pos >= len(bban) || !seg.class.accepts(bban[pos]) {
				return pos, false
			}
			pos++
		}
	}
	return pos, pos == len(bban)
}

func (c charClass) accepts(b byte) bool {
	digit := b >= '0' && b <= '9'
	alpha := b >= 'A' && b <= 'Z'
	switch c {
	case classDigit:
		return digit
	case classAlpha:
		return alpha
	default:
		return digit || alpha
	}
}

// span is a half-open range of BBAN offsets. The zero span means undefined.
type span struct {
	start, end int
}

func (s span) defined() bool { return s.end > s.start }

type bankLayout struct {
	bank   span
	branch span
}

// layouts locates the bank and branch identifiers inside the BBAN. Countries
// missing here still validate; their bank and branch are reported as absent.
var layouts = map[string]bankLayout{
	"AD": {bank: span{0, 4}, branch: span{4, 8}},
	"AE": {bank: span{0, 3}},
	"AL": {bank: span{0, 3}, branch: span{3, 7}},
	"AT": {bank: span{0, 5}},
	"AZ": {bank: span{0, 4}},
	"BA": {bank: span{0, 3}, branch: span{3, 6}},
	"BE": {bank: span{0, 3}},
	"BG": {bank: span{0, 4}, branch: span{4, 8}},
	"BH": {bank: span{0, 4}},
	"BR": {bank: span{0, 8}, branch: span{8, 13}},
	"BY": {bank: span{0, 4}},
	"CH": {bank: span{0, 5}},
	"CR": {bank: span{0, 4}},
	"CY": {bank: span{0, 3}, branch: span{3, 8}},
	"CZ": {bank: span{0, 4}},
	"DE": {bank: span{0, 8}},
	"DK": {bank: span{0, 4}},
	"DO": {bank: span{0, 4}},
	"EE": {bank: span{0, 2}},
	"EG": {bank: span{0, 4}, branch: span{4, 8}},
	"ES": {bank: span{0, 4}, branch: span{4, 8}},
	"FI": {bank: span{0, 3}},
	"FO": {bank: span{0, 4}},
	"FR": {bank: span{0, 5}, branch: span{5, 10}},
	"GB": {bank: span{0, 4}, branch: span{4, 10}},
	"GE": {bank: span{0, 2}},
	"GI": {bank: span{0, 4}},
	"GL": {bank: span{0, 4}},
	"GR": {bank: span{0, 3}, branch: span{3, 7}},
	"GT": {bank: span{0, 4}},
	"HR": {bank: span{0, 7}},
	"HU": {bank: span{0, 3}, branch: span{3, 7}},
	"IE": {bank: span{0, 4}, branch: span{4, 10}},
	"IL": {bank: span{0, 3}, branch: span{3, 6}},
	"IQ": {bank: span{0, 4}, branch: span{4, 7}},
	"IT": {bank: span{1, 6}, branch: span{6, 11}},
	"JO": {bank: span{0, 4}, branch: span{4, 8}},
	"KW": {bank: span{0, 4}},
	"KZ": {bank: span{0, 3}},
	"LB": {bank: span{0, 4}},
	"LC": {bank: span{0, 4}},
	"LI": {bank: span{0, 5}},
	"LT": {bank: span{0, 5}},
	"LU": {bank: span{0, 3}},
	"LV": {bank: span{0, 4}},
	"LY": {bank: span{0, 3}, branch: span{3, 6}},
	"MC": {bank: span{0, 5}, branch: span{5, 10}},
	"MD": {bank: span{0, 2}},
	"ME": {bank: span{0, 3}},
	"MK": {bank: span{0, 3}},
	"MR": {bank: span{0, 5}, branch: span{5, 10}},
	"MT": {bank: span{0, 4}, branch: span{4, 9}},
	"MU": {bank: span{0, 6}, branch: span{6, 8}},
	"NL": {bank: span{0, 4}},
	"NO": {bank: span{0, 4}},
	"PK": {bank: span{0, 4}},
	"PS": {bank: span{0, 4}},
	"PT": {bank: span{0, 4}, branch: span{4, 8}},
	"QA": {bank: span{0, 4}},
	"RO": {bank: span{0, 4}},
	"RS": {bank: span{0, 3}},
	"SA": {bank: span{0, 2}},
	"SC": {bank: span{0, 6}, branch: span{6, 8}},
	"SE": {bank: span{0, 3}},
	"SI": {bank: span{0, 5}},
	"SK": {bank: span{0, 4}},
	"SM": {bank: span{1, 6}, branch: span{6, 11}},
	"ST": {bank: span{0, 4}, branch: span{4, 8}},
	"SV": {bank: span{0, 4}},
	"TL": {bank: span{0, 3}},
	"TN": {bank: span{0, 2}, branch: span{2, 5}},
	"TR": {bank: span{0, 5}},
	"UA": {bank: span{0, 6}},
	"VA": {bank: span{0, 3}},
	"VG": {bank: span{0, 4}},
	"XK": {bank: span{0, 2}, branch: span{2, 4}},
}
