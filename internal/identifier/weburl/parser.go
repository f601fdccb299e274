package weburl

import "strings"

type state int

const (
	stateSchemeStart state = iota
	stateScheme
	stateNoScheme
	stateSpecialAuthoritySlashes
	stateSpecialAuthorityIgnoreSlashes
	statePathOrAuthority
	stateAuthority
	stateHost
	statePort
	stateFile
	stateFileSlash
	stateFileHost
	statePathStart
	statePath
	stateOpaquePath
	stateQuery
	stateFragment
)

const eof rune = -1

type parser struct {
	raw   string
	input []rune
	url   URL

	state        state
	pointer      int
	buf          []rune
	user, pass   strings.Builder
	atSignSeen   bool
	passwordSeen bool
	insideBrack  bool
}

func (p *parser) at(i int) rune {
	if i < 0 || i >= len(p.input) {
		return eof
	}
	return p.input[i]
}

// remainingStartsWith reports whether the code points after the pointer
// begin with s.
func (p *parser) remainingStartsWith(s string) bool {
	i := p.pointer + 1
	for _, r := range s {
		if p.at(i) != r {
			return false
		}
		i++
	}
	return true
}

func (p *parser) run() error {
	for p.pointer = 0; p.pointer <= len(p.input); p.pointer++ {
		if err := p.step(p.at(p.pointer)); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) special() bool { return IsSpecialScheme(p.url.scheme) }

func (p *parser) fail(kind Kind) error { return failure(kind, p.raw) }

func (p *parser) step(c rune) error {
	switch p.state {
	case stateSchemeStart:
		if isASCIIAlpha(c) {
			p.buf = append(p.buf, toLower(c))
			p.state = stateScheme
			return nil
		}
		p.state = stateNoScheme
		p.pointer--
	case stateScheme:
		return p.scheme(c)
	case stateNoScheme:
		return p.fail(KindRelativeWithoutBase)
	case stateSpecialAuthoritySlashes:
		p.state = stateSpecialAuthorityIgnoreSlashes
		if c == '/' && p.remainingStartsWith("/") {
			p.pointer++
			return nil
		}
		p.pointer--
	case stateSpecialAuthorityIgnoreSlashes:
		if c != '/' && c != '\\' {
			p.state = stateAuthority
			p.pointer--
		}
	case statePathOrAuthority:
		if c == '/' {
			p.state = stateAuthority
			return nil
		}
		p.state = statePath
		p.pointer--
	case stateAuthority:
		return p.authority(c)
	case stateHost:
		return p.hostname(c)
	case statePort:
		return p.port(c)
	case stateFile:
		p.url.scheme = "file"
		p.url.host = host{kind: hostEmpty}
		if c == '/' || c == '\\' {
			p.state = stateFileSlash
			return nil
		}
		p.state = statePath
		p.pointer--
	case stateFileSlash:
		if c == '/' || c == '\\' {
			p.state = stateFileHost
			return nil
		}
		p.state = statePath
		p.pointer--
	case stateFileHost:
		return p.fileHost(c)
	case statePathStart:
		switch {
		case p.special():
			p.state = statePath
			if c != '/' && c != '\\' {
				p.pointer--
			}
		case c == '?':
			p.url.query = new(string)
			p.state = stateQuery
		case c == '#':
			p.url.fragment = new(string)
			p.state = stateFragment
		case c != eof:
			p.state = statePath
			if c != '/' {
				p.pointer--
			}
		}
	case statePath:
		p.path(c)
	case stateOpaquePath:
		p.opaquePath(c)
	case stateQuery:
		p.queryState(c)
	case stateFragment:
		if c != eof {
			p.buf = append(p.buf, c)
			return nil
		}
		*p.url.fragment = p.flush(fragmentSet)
	}
	return nil
}

func (p *parser) scheme(c rune) error {
	if isASCIIAlphanumeric(c) || c == '+' || c == '-' || c == '.' {
		p.buf = append(p.buf, toLower(c))
		return nil
	}
	if c != ':' {
		p.buf = p.buf[:0]
		p.state = stateNoScheme
		p.pointer = -1
		return nil
	}

	p.url.scheme = string(p.buf)
	p.buf = p.buf[:0]
	switch {
	case p.url.scheme == "file":
		p.state = stateFile
	case p.special():
		p.state = stateSpecialAuthoritySlashes
	case p.remainingStartsWith("/"):
		p.state = statePathOrAuthority
		p.pointer++
	default:
		p.url.opaque = true
		p.url.segments = []string{""}
		p.state = stateOpaquePath
	}
	return nil
}

func (p *parser) authority(c rune) error {
	if c == '@' {
		if p.atSignSeen {
			if p.passwordSeen {
				p.pass.WriteString("%40")
			} else {
				p.user.WriteString("%40")
			}
		}
		p.atSignSeen = true
		for _, r := range p.buf {
			if r == ':' && !p.passwordSeen {
				p.passwordSeen = true
				continue
			}
			if p.passwordSeen {
				appendEncoded(&p.pass, r, userinfoSet)
			} else {
				appendEncoded(&p.user, r, userinfoSet)
			}
		}
		p.buf = p.buf[:0]
		return nil
	}
	if c == eof || c == '/' || c == '?' || c == '#' || (p.special() && c == '\\') {
		if p.atSignSeen && len(p.buf) == 0 {
			return p.fail(KindEmptyHost)
		}
		p.url.username, p.url.password = p.user.String(), p.pass.String()
		p.pointer -= len(p.buf) + 1
		p.buf = p.buf[:0]
		p.state = stateHost
		return nil
	}
	p.buf = append(p.buf, c)
	return nil
}

func (p *parser) hostname(c rune) error {
	switch {
	case c == ':' && !p.insideBrack:
		if len(p.buf) == 0 {
			return p.fail(KindEmptyHost)
		}
		if err := p.setHost(); err != nil {
			return err
		}
		p.state = statePort
	case c == eof || c == '/' || c == '?' || c == '#' || (p.special() && c == '\\'):
		p.pointer--
		if p.special() && len(p.buf) == 0 {
			return p.fail(KindEmptyHost)
		}
		if err := p.setHost(); err != nil {
			return err
		}
		p.state = statePathStart
	default:
		if c == '[' {
			p.insideBrack = true
		} else if c == ']' {
			p.insideBrack = false
		}
		p.buf = append(p.buf, c)
	}
	return nil
}

func (p *parser) setHost() error {
	h, err := parseHost(string(p.buf), p.special())
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Input = p.raw
		}
		return err
	}
	p.url.host = h
	p.buf = p.buf[:0]
	return nil
}

func (p *parser) port(c rune) error {
	if isASCIIDigit(c) {
		p.buf = append(p.buf, c)
		return nil
	}
	if c == eof || c == '/' || c == '?' || c == '#' || (p.special() && c == '\\') {
		if len(p.buf) > 0 {
			n := 0
			for _, d := range p.buf {
				n = n*10 + int(d-'0')
				if n > 65535 {
					return p.fail(KindInvalidPort)
				}
			}
			if d, ok := defaultPorts[p.url.scheme]; ok && n == d {
				n = -1
			}
			p.url.port = n
			p.buf = p.buf[:0]
		}
		p.state = statePathStart
		p.pointer--
		return nil
	}
	return p.fail(KindInvalidPort)
}

func (p *parser) fileHost(c rune) error {
	if c != eof && c != '/' && c != '\\' && c != '?' && c != '#' {
		p.buf = append(p.buf, c)
		return nil
	}
	p.pointer--
	switch {
	case isWindowsDriveLetter(p.buf, false):
		// the drive letter stays in the buffer and becomes the first segment
		p.state = statePath
	case len(p.buf) == 0:
		p.url.host = host{kind: hostEmpty}
		p.state = statePathStart
	default:
		if err := p.setHost(); err != nil {
			return err
		}
		if p.url.host.value == "localhost" {
			p.url.host = host{kind: hostEmpty}
		}
		p.state = statePathStart
	}
	return nil
}

func (p *parser) path(c rune) {
	slash := c == '/' || (p.special() && c == '\\')
	if c != eof && !slash && c != '?' && c != '#' {
		p.buf = appendEncodedRune(p.buf, c, pathSet)
		return
	}

	seg := string(p.buf)
	switch {
	case isDoubleDot(seg):
		p.shortenPath()
		if !slash {
			p.url.segments = append(p.url.segments, "")
		}
	case isSingleDot(seg):
		if !slash {
			p.url.segments = append(p.url.segments, "")
		}
	default:
		if p.url.scheme == "file" && len(p.url.segments) == 0 && isWindowsDriveLetter(p.buf, false) {
			if p.url.host.kind != hostEmpty && p.url.host.kind != hostNone {
				p.url.host = host{kind: hostEmpty}
			}
			seg = string(p.buf[0]) + ":"
		}
		p.url.segments = append(p.url.segments, seg)
	}
	p.buf = p.buf[:0]

	switch c {
	case '?':
		p.url.query = new(string)
		p.state = stateQuery
	case '#':
		p.url.fragment = new(string)
		p.state = stateFragment
	}
}

func (p *parser) shortenPath() {
	segs := p.url.segments
	if p.url.scheme == "file" && len(segs) == 1 && isWindowsDriveLetter([]rune(segs[0]), true) {
		return
	}
	if len(segs) > 0 {
		p.url.segments = segs[:len(segs)-1]
	}
}

func (p *parser) opaquePath(c rune) {
	if c != eof && c != '?' && c != '#' {
		p.buf = append(p.buf, c)
		return
	}
	p.url.segments[0] = p.flush(c0Control)
	switch c {
	case '?':
		p.url.query = new(string)
		p.state = stateQuery
	case '#':
		p.url.fragment = new(string)
		p.state = stateFragment
	}
}

// flush percent-encodes the buffered code points and empties the buffer.
func (p *parser) flush(set encodeSet) string {
	var b strings.Builder
	b.Grow(len(p.buf))
	for _, r := range p.buf {
		appendEncoded(&b, r, set)
	}
	p.buf = p.buf[:0]
	return b.String()
}

func (p *parser) queryState(c rune) {
	if c != eof && c != '#' {
		p.buf = append(p.buf, c)
		return
	}
	set := querySet
	if p.special() {
		set = specialQuerySet
	}
	*p.url.query += p.flush(set)
	if c == '#' {
		p.url.fragment = new(string)
		p.state = stateFragment
	}
}

func isASCIIAlpha(c rune) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isASCIIDigit(c rune) bool { return c >= '0' && c <= '9' }
func isASCIIAlphanumeric(c rune) bool { return isASCIIAlpha(c) || isASCIIDigit(c) }

func toLower(c rune) rune {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// isWindowsDriveLetter matches a letter followed by ':' or, unless
// normalized is set, '|'.
func isWindowsDriveLetter(s []rune, normalized bool) bool {
	if len(s) != 2 || !isASCIIAlpha(s[0]) {
		return false
	}
	return s[1] == ':' || (!normalized && s[1] == '|')
}

func isSingleDot(s string) bool {
	return s == "." || strings.EqualFold(s, "%2e")
}

func isDoubleDot(s string) bool {
	switch strings.ToLower(s) {
	case "..", ".%2e", "%2e.", "%2e%2e":
		return true
	}
	return false
}
