package weburl

import (
	"net/netip"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

type hostKind int

const (
	hostNone hostKind = iota
	hostEmpty
	hostDomain
	hostOpaque
	hostIPv4
	hostIPv6
)

// host is a parsed host in its serialized form.
type host struct {
	kind  hostKind
	value string
}

// lookup maps and validates domains the way browsers do before a DNS lookup,
// but without the strict STD3 character rules and DNS length limits.
var lookup = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.Transitional(false),
	idna.StrictDomainName(false),
	idna.CheckHyphens(false),
	idna.VerifyDNSLength(false),
)

func parseHost(input string, special bool) (host, error) {
	if strings.HasPrefix(input, "[") {
		if !strings.HasSuffix(input, "]") {
			return host{}, failure(KindInvalidIPv6, input)
		}
		v6, err := parseIPv6(input[1 : len(input)-1])
		if err != nil {
			return host{}, err
		}
		return host{kind: hostIPv6, value: v6}, nil
	}
	if !special {
		return parseOpaqueHost(input)
	}

	decoded := percentDecode(input)
	if !utf8.Valid(decoded) {
		return host{}, failure(KindIDNAError, input)
	}
	ascii, err := lookup.ToASCII(string(decoded))
	if err != nil {
		return host{}, &ParseError{Kind: KindIDNAError, Input: input, Err: err}
	}
	if ascii == "" {
		if input != "" {
			return host{}, failure(KindIDNAError, input)
		}
		return host{}, failure(KindEmptyHost, input)
	}
	for i := 0; i < len(ascii); i++ {
		if forbiddenDomain(ascii[i]) {
			return host{}, failure(KindInvalidDomainCharacter, input)
		}
	}
	if endsInNumber(ascii) {
		v4, err := parseIPv4(ascii)
		if err != nil {
			return host{}, err
		}
		return host{kind: hostIPv4, value: v4}, nil
	}
	return host{kind: hostDomain, value: ascii}, nil
}

func parseOpaqueHost(input string) (host, error) {
	for i := 0; i < len(input); i++ {
		if forbiddenHost(input[i]) {
			return host{}, failure(KindInvalidDomainCharacter, input)
		}
	}
	if input == "" {
		return host{kind: hostEmpty}, nil
	}
	return host{kind: hostOpaque, value: encodeString(input, c0Control)}, nil
}

func forbiddenHost(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\r', ' ', '#', '/', ':', '<', '>', '?', '@', '[', '\\', ']', '^', '|':
		return true
	}
	return false
}

func forbiddenDomain(b byte) bool {
	return forbiddenHost(b) || b <= 0x1F || b == '%' || b == 0x7F
}

// endsInNumber reports whether the last dot-separated label is numeric,
// which routes the host to the IPv4 parser.
func endsInNumber(s string) bool {
	parts := strings.Split(s, ".")
	if parts[len(parts)-1] == "" {
		if len(parts) == 1 {
			return false
		}
		parts = parts[:len(parts)-1]
	}
	last := parts[len(parts)-1]
	if last != "" && strings.Trim(last, "0123456789") == "" {
		return true
	}
	_, ok := parseIPv4Number(last)
	return ok
}

func parseIPv4Number(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	base := 10
	switch {
	case len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X"):
		base, s = 16, s[2:]
	case len(s) >= 2 && s[0] == '0':
		base, s = 8, s[1:]
	}
	if s == "" {
		return 0, true
	}
	n, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseIPv4 accepts the legacy forms browsers still honour: one to four parts
// in decimal, octal or hex, with the last part filling the remaining bytes.
func parseIPv4(s string) (string, error) {
	parts := strings.Split(s, ".")
	if parts[len(parts)-1] == "" && len(parts) > 1 {
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 4 {
		return "", failure(KindInvalidIPv4, s)
	}
	nums := make([]uint64, len(parts))
	for i, p := range parts {
		n, ok := parseIPv4Number(p)
		if !ok {
			return "", failure(KindInvalidIPv4, s)
		}
		nums[i] = n
	}
	last := len(nums) - 1
	for _, n := range nums[:last] {
		if n > 255 {
			return "", failure(KindInvalidIPv4, s)
		}
	}
	if nums[last] >= 1<<(8*(5-len(nums))) {
		return "", failure(KindInvalidIPv4, s)
	}
	addr := nums[last]
	for i, n := range nums[:last] {
		addr += n << (8 * (3 - i))
	}
	return netip.AddrFrom4([4]byte{byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr)}).String(), nil
}

func parseIPv6(s string) (string, error) {
	if strings.Contains(s, "%") {
		return "", failure(KindInvalidIPv6, s)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is6() {
		return "", &ParseError{Kind: KindInvalidIPv6, Input: s, Err: err}
	}
	return "[" + serializeIPv6(addr.As16()) + "]", nil
}

// serializeIPv6 writes eight hex pieces and compresses the first longest run
// of two or more zero pieces. Embedded IPv4 notation is never produced.
func serializeIPv6(b [16]byte) string {
	var pieces [8]uint16
	for i := range pieces {
		pieces[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	start, length := -1, 1
	for i := 0; i < 8; {
		if pieces[i] != 0 {
			i++
			continue
		}
		j := i
		for j < 8 && pieces[j] == 0 {
			j++
		}
		if j-i > length {
			start, length = i, j-i
		}
		i = j
	}

	var sb strings.Builder
	for i := 0; i < 8; i++ {
		if i == start {
			sb.WriteString("::")
			i += length - 1
			continue
		}
		if i > 0 && i != start+length {
			sb.WriteByte(':')
		}
		sb.WriteString(strconv.FormatUint(uint64(pieces[i]), 16))
	}
	return sb.String()
}
