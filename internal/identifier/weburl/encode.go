package weburl

import (
	"strings"
	"unicode/utf8"
)

// encodeSet decides which ASCII bytes are percent-encoded. Bytes above 0x7E
// and C0 controls are always encoded.
type encodeSet func(b byte) bool

func c0Control(b byte) bool { return b < 0x20 || b > 0x7E }

func fragmentSet(b byte) bool {
	return c0Control(b) || b == ' ' || b == '"' || b == '<' || b == '>' || b == '`'
}

func querySet(b byte) bool {
	return c0Control(b) || b == ' ' || b == '"' || b == '#' || b == '<' || b == '>'
}

func specialQuerySet(b byte) bool { return querySet(b) || b == '\'' }

func pathSet(b byte) bool {
	return querySet(b) || b == '?' || b == '`' || b == '{' || b == '}'
}

func userinfoSet(b byte) bool {
	if pathSet(b) {
		return true
	}
	switch b {
	case '/', ':', ';', '=', '@', '[', '\\', ']', '^', '|':
		return true
	}
	return false
}

const upperHex = "0123456789ABCDEF"

// appendEncoded writes r to b, percent-encoding each UTF-8 byte in set.
func appendEncoded(b *strings.Builder, r rune, set encodeSet) {
	var tmp [utf8.UTFMax]byte
	n := utf8.EncodeRune(tmp[:], r)
	for _, c := range tmp[:n] {
		if set(c) {
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0xF])
			continue
		}
		b.WriteByte(c)
	}
}

// appendEncodedRune is appendEncoded for a rune buffer.
func appendEncodedRune(dst []rune, r rune, set encodeSet) []rune {
	if r < utf8.RuneSelf && !set(byte(r)) {
		return append(dst, r)
	}
	var tmp [utf8.UTFMax]byte
	n := utf8.EncodeRune(tmp[:], r)
	for _, c := range tmp[:n] {
		if set(c) {
			dst = append(dst, '%', rune(upperHex[c>>4]), rune(upperHex[c&0xF]))
			continue
		}
		dst = append(dst, rune(c))
	}
	return dst
}

func encodeString(s string, set encodeSet) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		appendEncoded(&b, r, set)
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// percentDecode decodes %XX sequences and leaves malformed ones untouched.
func percentDecode(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, ok1 := unhex(s[i+1])
			lo, ok2 := unhex(s[i+2])
			if ok1 && ok2 {
				out = append(out, hi<<4|lo)
				i += 2
				continue
			}
		}
		out = append(out, s[i])
	}
	return out
}
