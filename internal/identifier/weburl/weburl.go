// Package weburl parses absolute URLs following the WHATWG URL Standard's
// basic URL parser, without a base URL. Parsed URLs expose their components
// in serialized form.
package weburl

import (
	"math"
	"strconv"
	"strings"
)

var defaultPorts = map[string]int{
	"ftp":   21,
	"file":  -1,
	"http":  80,
	"https": 443,
	"ws":    80,
	"wss":   443,
}

// IsSpecialScheme reports whether scheme is one of ftp, file, http, https,
// ws or wss.
func IsSpecialScheme(scheme string) bool {
	_, ok := defaultPorts[scheme]
	return ok
}

// URL is a parsed absolute URL.
type URL struct {
	scheme   string
	username string
	password string
	host     host
	port     int // -1 when absent
	opaque   bool
	segments []string
	query    *string
	fragment *string
}

// Parse parses s as an absolute URL.
func Parse(s string) (URL, error) {
	if uint64(len(s)) > math.MaxUint32 {
		return URL{}, failure(KindOverflow, "")
	}
	p := &parser{
		raw:   s,
		input: []rune(preprocess(s)),
		url:   URL{port: -1},
	}
	if err := p.run(); err != nil {
		return URL{}, err
	}
	return p.url, nil
}

// Validate reports whether s parses as an absolute URL.
func Validate(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// preprocess trims leading and trailing C0 controls and spaces and removes
// every tab and newline.
func preprocess(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool { return r <= 0x20 })
	if !strings.ContainsAny(s, "\t\n\r") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
}

// Scheme returns the lower-case scheme without the trailing colon.
func (u URL) Scheme() string { return u.scheme }

// Username returns the percent-encoded username, or "" when none was given.
func (u URL) Username() string { return u.username }

// Password returns the percent-encoded password.
func (u URL) Password() (string, bool) { return u.password, u.password != "" }

// Host returns the serialized host. An empty host is reported as absent.
func (u URL) Host() (string, bool) {
	switch u.host.kind {
	case hostNone, hostEmpty:
		return "", false
	}
	return u.host.value, true
}

// Domain returns the host when it is a domain name rather than an IP
// address literal.
func (u URL) Domain() (string, bool) {
	if u.host.kind != hostDomain && u.host.kind != hostOpaque {
		return "", false
	}
	return u.host.value, true
}

// Port returns the explicit port. Default ports of special schemes are
// elided during parsing.
func (u URL) Port() (uint16, bool) {
	if u.port < 0 {
		return 0, false
	}
	return uint16(u.port), true
}

// PortOrDefault returns the explicit port or the scheme's default.
func (u URL) PortOrDefault() (uint16, bool) {
	if p, ok := u.Port(); ok {
		return p, true
	}
	if d := defaultPorts[u.scheme]; d > 0 {
		return uint16(d), true
	}
	return 0, false
}

// Path returns the serialized path.
func (u URL) Path() string {
	if u.opaque {
		return u.segments[0]
	}
	var b strings.Builder
	for _, seg := range u.segments {
		b.WriteByte('/')
		b.WriteString(seg)
	}
	return b.String()
}

// PathSegments returns the path segments, or false for an opaque path.
func (u URL) PathSegments() ([]string, bool) {
	if u.opaque {
		return nil, false
	}
	return append([]string(nil), u.segments...), true
}

// Query returns the query without the leading question mark.
func (u URL) Query() (string, bool) { return deref(u.query) }

// Fragment returns the fragment without the leading hash.
func (u URL) Fragment() (string, bool) { return deref(u.fragment) }

// IsSpecial reports whether the scheme is special.
func (u URL) IsSpecial() bool { return IsSpecialScheme(u.scheme) }

// CannotBeABase reports whether the URL has an opaque path, such as
// mailto:someone@example.com.
func (u URL) CannotBeABase() bool { return u.opaque }

// SetHost replaces the host. URLs with an opaque path have no host to set.
func (u *URL) SetHost(h string) error {
	if u.opaque {
		return failure(KindSetHostOnCannotBeABaseURL, h)
	}
	if h == "" {
		if u.IsSpecial() && u.scheme != "file" {
			return failure(KindEmptyHost, h)
		}
		u.host = host{kind: hostEmpty}
		return nil
	}
	parsed, err := parseHost(h, u.IsSpecial())
	if err != nil {
		return err
	}
	if u.scheme == "file" && parsed.value == "localhost" {
		parsed = host{kind: hostEmpty}
	}
	u.host = parsed
	return nil
}

// String returns the serialized URL.
func (u URL) String() string {
	var b strings.Builder
	b.WriteString(u.scheme)
	b.WriteByte(':')
	if u.host.kind != hostNone {
		b.WriteString("//")
		if u.username != "" || u.password != "" {
			b.WriteString(u.username)
			if u.password != "" {
				b.WriteByte(':')
				b.WriteString(u.password)
			}
			b.WriteByte('@')
		}
		b.WriteString(u.host.value)
		if u.port >= 0 {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(u.port))
		}
	} else if !u.opaque && len(u.segments) > 1 && u.segments[0] == "" {
		b.WriteString("/.")
	}
	b.WriteString(u.Path())
	if u.query != nil {
		b.WriteByte('?')
		b.WriteString(*u.query)
	}
	if u.fragment != nil {
		b.WriteByte('#')
		b.WriteString(*u.fragment)
	}
	return b.String()
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
